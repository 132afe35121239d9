package rounds

import (
	"testing"

	"github.com/gaze-network/uint128"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestByIndex(t *testing.T) {
	first, err := ByIndex(0)
	require.NoError(t, err)
	assert.Equal(t, uint64(65_225_022), first.CapacityTokens)
	assert.Equal(t, uint64(3_734_000), first.PriceNano)

	last, err := ByIndex(19)
	require.NoError(t, err)
	assert.Equal(t, uint64(5_733_043), last.CapacityTokens)
	assert.Equal(t, uint64(73_579_000), last.PriceNano)

	_, err = ByIndex(-1)
	assert.Error(t, err)
	_, err = ByIndex(20)
	assert.Error(t, err)
}

func TestFillSingleRound(t *testing.T) {
	// 0.2 TON at the opening price buys 53 whole tokens
	fill, err := Fill(0, uint128.Zero, uint128.From64(200_000_000))
	require.NoError(t, err)
	assert.Equal(t, uint128.From64(53), fill.Tokens)
	assert.Equal(t, uint128.From64(53*3_734_000), fill.ValueConsumed)
	assert.Equal(t, uint128.From64(200_000_000-53*3_734_000), fill.Leftover)
	assert.Equal(t, int32(0), fill.FinalRound)
	assert.Equal(t, uint128.From64(53).Mul64(nanoPerToken), fill.FinalRoundSoldNano)
	assert.False(t, fill.SoldOut)
}

func TestFillOneTon(t *testing.T) {
	fill, err := Fill(0, uint128.Zero, uint128.From64(1_000_000_000))
	require.NoError(t, err)
	assert.Equal(t, uint128.From64(267), fill.Tokens)
	assert.Equal(t, uint128.From64(267*3_734_000), fill.ValueConsumed)
}

func TestFillDust(t *testing.T) {
	// less than one token's price buys nothing
	fill, err := Fill(0, uint128.Zero, uint128.From64(1_000_000))
	require.NoError(t, err)
	assert.True(t, fill.Tokens.IsZero())
	assert.Equal(t, uint128.From64(1_000_000), fill.Leftover)
	assert.False(t, fill.SoldOut)
}

func TestFillRollsIntoNextRound(t *testing.T) {
	// leave 10 tokens of stock in round 0, pay enough for 25
	round0, err := ByIndex(0)
	require.NoError(t, err)
	sold := round0.CapacityNano().Sub(uint128.From64(10).Mul64(nanoPerToken))

	pay := uint128.From64(25 * 4_369_000) // would buy 25 at round 1 price
	fill, err := Fill(0, sold, pay)
	require.NoError(t, err)

	// 10 at round 0 price, remainder at round 1 price
	remaining := pay.Sub(uint128.From64(10 * 3_734_000))
	round1Tokens := remaining.Div64(4_369_000)
	assert.Equal(t, uint128.From64(10).Add(round1Tokens), fill.Tokens)
	assert.Equal(t, int32(1), fill.FinalRound)
	assert.Equal(t, round1Tokens.Mul64(nanoPerToken), fill.FinalRoundSoldNano)
}

func TestFillExactRoundBoundary(t *testing.T) {
	round0, err := ByIndex(0)
	require.NoError(t, err)
	sold := round0.CapacityNano().Sub(uint128.From64(5).Mul64(nanoPerToken))

	// exactly the cost of the 5 remaining tokens
	fill, err := Fill(0, sold, uint128.From64(5*3_734_000))
	require.NoError(t, err)
	assert.Equal(t, uint128.From64(5), fill.Tokens)
	assert.True(t, fill.Leftover.IsZero())
	assert.Equal(t, int32(1), fill.FinalRound)
	assert.True(t, fill.FinalRoundSoldNano.IsZero())
}

func TestFillSoldOut(t *testing.T) {
	last, err := ByIndex(19)
	require.NoError(t, err)

	fill, err := Fill(19, last.CapacityNano(), uint128.From64(1_000_000_000))
	require.NoError(t, err)
	assert.True(t, fill.SoldOut)
	assert.True(t, fill.Tokens.IsZero())
	assert.Equal(t, uint128.From64(1_000_000_000), fill.Leftover)
}

func TestFillLastRoundPartial(t *testing.T) {
	fill, err := Fill(19, uint128.Zero, uint128.From64(1_000_000_000))
	require.NoError(t, err)
	assert.Equal(t, uint128.From64(13), fill.Tokens) // 1e9 / 73_579_000
	assert.Equal(t, int32(19), fill.FinalRound)
	assert.False(t, fill.SoldOut)
}

func TestFillBadCursor(t *testing.T) {
	round0, err := ByIndex(0)
	require.NoError(t, err)
	_, err = Fill(0, round0.CapacityNano().Add64(1), uint128.From64(1))
	assert.Error(t, err)
}

func TestScheduleShape(t *testing.T) {
	require.EqualValues(t, 20, Count())
	for i := int32(1); i < Count(); i++ {
		prev, err := ByIndex(i - 1)
		require.NoError(t, err)
		cur, err := ByIndex(i)
		require.NoError(t, err)
		assert.Greater(t, cur.PriceNano, prev.PriceNano, "price must rise at round %d", i)
		assert.Less(t, cur.CapacityTokens, prev.CapacityTokens, "capacity must shrink at round %d", i)
	}
}
