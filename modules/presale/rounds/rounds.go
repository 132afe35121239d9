// Package rounds holds the fixed pricing schedule of the sale and the
// arithmetic for filling purchases against it. All token amounts are whole
// tokens unless the name says nano; all TON amounts are nanoton.
package rounds

import (
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/uint128"

	"github.com/magnet-network/presale-engine/common/errs"
)

// Round is one tier of the schedule. Price rises and capacity shrinks with
// each tier; both are fixed at deploy time and never change.
type Round struct {
	Index          int32
	CapacityTokens uint64
	PriceNano      uint64 // nanoton per whole token
}

const nanoPerToken = 1_000_000_000

// levels is the deployed schedule: 20 tiers, listed in sale order.
var levels = []Round{
	{0, 65_225_022, 3_734_000},
	{1, 57_039_669, 4_369_000},
	{2, 50_370_908, 5_112_000},
	{3, 44_326_399, 5_981_000},
	{4, 39_007_231, 6_998_000},
	{5, 34_326_365, 8_187_000},
	{6, 30_207_200, 9_578_000},
	{7, 26_582_336, 11_207_000},
	{8, 23_392_455, 13_112_000},
	{9, 20_585_361, 15_342_000},
	{10, 18_115_117, 17_950_000},
	{11, 15_941_303, 21_001_000},
	{12, 14_028_347, 24_571_000},
	{13, 12_344_945, 28_748_000},
	{14, 10_863_552, 33_636_000},
	{15, 9_559_925, 39_353_000},
	{16, 8_412_734, 46_043_000},
	{17, 7_423_267, 53_871_000},
	{18, 6_514_821, 63_029_000},
	{19, 5_733_043, 73_579_000},
}

// Count returns the number of tiers in the schedule.
func Count() int32 {
	return int32(len(levels))
}

// ByIndex returns the tier at the given index.
func ByIndex(index int32) (Round, error) {
	if index < 0 || index >= Count() {
		return Round{}, errors.Wrapf(errs.InvalidArgument, "round %d out of range [0, %d)", index, Count())
	}
	return levels[index], nil
}

// CapacityNano is the tier capacity in token base units.
func (r Round) CapacityNano() uint128.Uint128 {
	return uint128.From64(r.CapacityTokens).Mul64(nanoPerToken)
}

// Price is the tier price as a uint128, for arithmetic against values.
func (r Round) Price() uint128.Uint128 {
	return uint128.From64(r.PriceNano)
}

// Purchase is the result of filling a payment against the schedule.
type Purchase struct {
	// Tokens is the number of whole tokens bought across all tiers touched.
	Tokens uint128.Uint128

	// ValueConsumed is the nanoton actually spent on tokens. Always
	// Tokens-weighted by each tier's price; never exceeds the payment.
	ValueConsumed uint128.Uint128

	// Leftover is the unspent remainder of the payment.
	Leftover uint128.Uint128

	// FinalRound and FinalRoundSoldNano are the schedule cursor after the
	// purchase. FinalRound advances past tiers the purchase exhausted.
	FinalRound         int32
	FinalRoundSoldNano uint128.Uint128

	// SoldOut is set when the last tier is exhausted and the payment could
	// not buy a single token.
	SoldOut bool
}

// Fill buys as many whole tokens as payNano affords, starting at the given
// schedule cursor and rolling into later tiers as each one fills. Partial
// tokens are never sold; whatever cannot buy a whole token at the current
// tier price is returned as Leftover.
func Fill(startRound int32, startSoldNano, payNano uint128.Uint128) (Purchase, error) {
	round, err := ByIndex(startRound)
	if err != nil {
		return Purchase{}, err
	}
	if startSoldNano.Cmp(round.CapacityNano()) > 0 {
		return Purchase{}, errors.Wrapf(errs.InvalidArgument, "round %d sold %s exceeds capacity", startRound, startSoldNano)
	}

	p := Purchase{
		Leftover:           payNano,
		FinalRound:         startRound,
		FinalRoundSoldNano: startSoldNano,
	}
	for {
		capacity := round.CapacityNano()
		remainingTokens := capacity.Sub(p.FinalRoundSoldNano).Div64(nanoPerToken)
		affordableTokens := p.Leftover.Div(round.Price())

		bought := remainingTokens
		if affordableTokens.Cmp(bought) < 0 {
			bought = affordableTokens
		}

		cost := bought.Mul(round.Price())
		p.Tokens = p.Tokens.Add(bought)
		p.ValueConsumed = p.ValueConsumed.Add(cost)
		p.Leftover = p.Leftover.Sub(cost)
		p.FinalRoundSoldNano = p.FinalRoundSoldNano.Add(bought.Mul64(nanoPerToken))

		if bought.Cmp(remainingTokens) < 0 {
			// tier still has stock, payment is spent down to dust
			return p, nil
		}

		// tier exhausted; advance the cursor if a next tier exists
		next, err := ByIndex(round.Index + 1)
		if err != nil {
			if p.Tokens.IsZero() {
				p.SoldOut = true
			}
			return p, nil
		}
		round = next
		p.FinalRound = next.Index
		p.FinalRoundSoldNano = uint128.Zero
		if p.Leftover.Cmp(round.Price()) < 0 {
			return p, nil
		}
	}
}
