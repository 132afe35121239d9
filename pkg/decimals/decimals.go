package decimals

import (
	"math"

	"github.com/gaze-network/uint128"
	"github.com/shopspring/decimal"

	"github.com/magnet-network/presale-engine/pkg/logger"
	"github.com/magnet-network/presale-engine/pkg/logger/slogx"
)

const (
	DefaultDivPrecision = 36

	// NanoDigits is the number of decimal digits in one whole unit of both
	// TON and the sold jetton (10^9 nano per unit).
	NanoDigits = 9
)

func init() {
	decimal.DivisionPrecision = DefaultDivPrecision
}

// ToDecimal converts a uint128 integer amount with the given number of
// decimals to decimal.Decimal (safety floating point).
func ToDecimal(value uint128.Uint128, decimals int64) decimal.Decimal {
	if decimals > math.MaxInt32 {
		logger.Panic("ToDecimal: decimals is too big, should be equal less than 2^31-1", slogx.Int64("decimals", decimals))
	}
	return decimal.NewFromBigInt(value.Big(), -int32(decimals))
}

// FromNano converts a nano amount (TON or jetton base units) to a
// human-readable decimal.
func FromNano(value uint128.Uint128) decimal.Decimal {
	return ToDecimal(value, NanoDigits)
}
