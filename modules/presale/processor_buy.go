package presale

import (
	"context"
	"log/slog"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/uint128"

	"github.com/magnet-network/presale-engine/core/types"
	"github.com/magnet-network/presale-engine/modules/presale/datagateway"
	"github.com/magnet-network/presale-engine/modules/presale/errcode"
	"github.com/magnet-network/presale-engine/modules/presale/internal/entity"
	"github.com/magnet-network/presale-engine/modules/presale/internal/ledger"
	"github.com/magnet-network/presale-engine/modules/presale/rounds"
	"github.com/magnet-network/presale-engine/pkg/logger"
)

// handleBuy settles a purchase: fill against the schedule, credit buyer and
// referral tracks, refund any meaningful leftover. All three buy encodings
// land here and behave identically.
func (p *Processor) handleBuy(ctx context.Context, tx datagateway.PresaleDataGatewayWithTx, l *ledger.Ledger, state *entity.SaleState, env *types.InboundEnvelope, msg BuyMessage) ([]*types.OutboundMessage, error) {
	if env.Sender == nil {
		return nil, errors.WithStack(errcode.ErrBadWallet)
	}
	buyer := addrKey(env.Sender)
	if env.ValueNano.Cmp(minBuyValue) < 0 {
		return nil, errors.WithStack(errcode.ErrAttachMoreTon)
	}

	var referral string
	if msg.Referral != nil {
		referral = addrKey(msg.Referral)
		if referral == buyer {
			return nil, errors.WithStack(errcode.ErrBadWallet)
		}
	}

	fill, err := rounds.Fill(state.CurrentRound, state.CurrentRoundSoldNano, env.ValueNano)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fill purchase")
	}
	if fill.SoldOut || fill.Tokens.IsZero() {
		return nil, errors.WithStack(errcode.ErrBadAmount)
	}

	buyerBonus := fill.Tokens.Mul64(buyerBonusPercent).Div64(100)
	buyerCredited := fill.Tokens.Add(buyerBonus).Mul64(nanoPerToken)
	var referralCredited uint128.Uint128
	if referral != "" {
		referralCredited = fill.Tokens.Mul64(referralBonusPercent).Div64(100).Mul64(nanoPerToken)
	}

	if err := l.Credit(ctx, state, buyer, buyerCredited, uint128.Zero); err != nil {
		return nil, errors.Wrap(err, "failed to credit buyer")
	}
	if !referralCredited.IsZero() {
		if err := l.Credit(ctx, state, referral, uint128.Zero, referralCredited); err != nil {
			return nil, errors.Wrap(err, "failed to credit referral")
		}
	}

	state.CurrentRound = fill.FinalRound
	state.CurrentRoundSoldNano = fill.FinalRoundSoldNano
	state.TotalSoldNano = state.TotalSoldNano.Add(buyerCredited).Add(referralCredited)
	state.TotalRaisedNano = state.TotalRaisedNano.Add(fill.ValueConsumed)

	var emits []*types.OutboundMessage
	refunded := uint128.Zero
	if fill.Leftover.Cmp(minRefundValue) >= 0 {
		refunded = fill.Leftover
		emits = append(emits, &types.OutboundMessage{
			Dest:      env.Sender,
			ValueNano: refunded,
			Bounce:    false,
		})
	}
	state.BalanceNano = state.BalanceNano.Add(env.ValueNano).Sub(refunded)

	if err := tx.CreatePurchase(ctx, &entity.Purchase{
		Seq:                  env.Seq,
		Buyer:                buyer,
		Referral:             referral,
		Encoding:             msg.Encoding,
		ValueNano:            env.ValueNano,
		ConsumedNano:         fill.ValueConsumed,
		RefundedNano:         refunded,
		BuyerCreditedNano:    buyerCredited,
		ReferralCreditedNano: referralCredited,
		RoundAfter:           fill.FinalRound,
		Timestamp:            env.Now,
	}); err != nil {
		return nil, errors.Wrap(err, "failed to record purchase")
	}

	logger.DebugContext(ctx, "Purchase settled",
		slog.String("buyer", buyer),
		slog.String("tokens", fill.Tokens.String()),
		slog.Int("round_after", int(fill.FinalRound)),
	)
	return emits, nil
}
