package decimals

import (
	"testing"

	"github.com/gaze-network/uint128"
	"github.com/stretchr/testify/assert"
)

func TestToDecimal(t *testing.T) {
	assert.Equal(t, "1.5", ToDecimal(uint128.From64(1_500_000_000), 9).String())
	assert.Equal(t, "0.003734", ToDecimal(uint128.From64(3_734_000), 9).String())
	assert.Equal(t, "123", ToDecimal(uint128.From64(123), 0).String())
}

func TestFromNano(t *testing.T) {
	assert.Equal(t, "0.2", FromNano(uint128.From64(200_000_000)).String())
	assert.Equal(t, "65225022", FromNano(uint128.From64(65_225_022_000_000_000)).String())
}
