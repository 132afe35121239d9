package presale

import (
	"context"
	"log/slog"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/uint128"
	"github.com/xssnick/tonutils-go/address"

	"github.com/magnet-network/presale-engine/common/errs"
	"github.com/magnet-network/presale-engine/core/types"
	"github.com/magnet-network/presale-engine/modules/presale/datagateway"
	"github.com/magnet-network/presale-engine/modules/presale/errcode"
	"github.com/magnet-network/presale-engine/modules/presale/internal/entity"
	"github.com/magnet-network/presale-engine/modules/presale/internal/ledger"
	"github.com/magnet-network/presale-engine/pkg/logger"
)

// handleClaim reserves the sender's whole claimable balance under a fresh
// correlation id and fires the jetton transfer. The claim settles later via
// JettonExcesses (delivered) or a bounced transfer (failed).
func (p *Processor) handleClaim(ctx context.Context, l *ledger.Ledger, state *entity.SaleState, env *types.InboundEnvelope) ([]*types.OutboundMessage, error) {
	if env.Sender == nil {
		return nil, errors.WithStack(errcode.ErrBadWallet)
	}
	if !state.JettonWalletSet() {
		return nil, errors.WithStack(errcode.ErrJettonWalletNotSet)
	}
	if env.ValueNano.Cmp(minClaimValue) < 0 {
		return nil, errors.WithStack(errcode.ErrAttachMoreTon)
	}

	qid := state.NextQid
	state.NextQid++

	claimer := addrKey(env.Sender)
	amount, err := l.Reserve(ctx, state, claimer, qid, env.Now, env.Now.Add(PendingTTL))
	if err != nil {
		return nil, errors.Wrap(err, "failed to reserve claim")
	}

	wallet, err := address.ParseAddr(state.JettonWallet)
	if err != nil {
		return nil, errors.Wrapf(err, "stored jetton wallet %q is unparseable", state.JettonWallet)
	}

	state.BalanceNano = state.BalanceNano.Add(claimGasReserve)
	emit := &types.OutboundMessage{
		Dest:      wallet,
		ValueNano: env.ValueNano.Sub(claimGasReserve),
		Bounce:    true,
		Body:      EncodeJettonTransfer(qid, amount, env.Sender, env.Sender),
	}

	logger.InfoContext(ctx, "Claim reserved",
		slog.String("claimer", claimer),
		slog.Uint64("qid", qid),
		slog.String("amount", amount.String()),
	)
	return []*types.OutboundMessage{emit}, nil
}

// handleJettonExcesses is the delivery acknowledgement: the registry binds
// the qid back to the claiming account, which is then finalized. Unmatched
// acknowledgements are absorbed; the claim they belonged to was already
// settled another way.
func (p *Processor) handleJettonExcesses(ctx context.Context, tx datagateway.PresaleDataGatewayWithTx, l *ledger.Ledger, state *entity.SaleState, env *types.InboundEnvelope, msg JettonExcessesMessage) error {
	state.BalanceNano = state.BalanceNano.Add(env.ValueNano)

	binding, err := tx.GetClaimBinding(ctx, msg.QueryID)
	if err != nil {
		if errors.Is(err, errs.NotFound) {
			logger.InfoContext(ctx, "Absorbing unmatched excesses", slog.Uint64("qid", msg.QueryID))
			return nil
		}
		return errors.Wrap(err, "failed to get claim binding")
	}

	amount, err := l.Finalize(ctx, state, binding.Address)
	if err != nil {
		return errors.Wrap(err, "failed to finalize claim")
	}
	state.JettonInventoryNano = clampSub(ctx, state.JettonInventoryNano, amount, "jetton inventory")

	logger.InfoContext(ctx, "Claim finalized",
		slog.String("claimer", binding.Address),
		slog.Uint64("qid", msg.QueryID),
		slog.String("amount", amount.String()),
	)
	return nil
}

// handleTransferFailed undoes the reservation of a claim whose delivery
// bounced. The returned transfer value stays with the contract.
func (p *Processor) handleTransferFailed(ctx context.Context, tx datagateway.PresaleDataGatewayWithTx, l *ledger.Ledger, state *entity.SaleState, env *types.InboundEnvelope, msg TransferFailedMessage) error {
	state.BalanceNano = state.BalanceNano.Add(env.ValueNano)

	binding, err := tx.GetClaimBinding(ctx, msg.QueryID)
	if err != nil {
		if errors.Is(err, errs.NotFound) {
			logger.WarnContext(ctx, "Bounced transfer for unknown claim", slog.Uint64("qid", msg.QueryID))
			return nil
		}
		return errors.Wrap(err, "failed to get claim binding")
	}

	amount, err := l.Restore(ctx, state, binding.Address)
	if err != nil {
		return errors.Wrap(err, "failed to restore claim")
	}

	logger.WarnContext(ctx, "Claim delivery failed, reservation restored",
		slog.String("claimer", binding.Address),
		slog.Uint64("qid", msg.QueryID),
		slog.String("amount", amount.String()),
	)
	return nil
}

// handleCancelPending lets an account holder restore their own reservation
// once its recovery deadline has passed. The deadline gate is deliberately
// stricter than a plain self-service cancel: before it the in-flight
// delivery could still settle, and restoring then would pay the claim twice.
func (p *Processor) handleCancelPending(ctx context.Context, tx datagateway.PresaleDataGatewayWithTx, l *ledger.Ledger, state *entity.SaleState, env *types.InboundEnvelope) error {
	if env.Sender == nil {
		return errors.WithStack(errcode.ErrBadWallet)
	}
	holder := addrKey(env.Sender)
	account, err := tx.GetAccount(ctx, holder)
	if err != nil {
		return errors.Wrap(err, "failed to get account")
	}
	if !account.HasPending() {
		return errors.WithStack(errcode.ErrNoPending)
	}
	if env.Now.Before(*account.PendingUntil) {
		return errors.WithStack(errcode.ErrPendingNotExpired)
	}

	if _, err := l.Restore(ctx, state, holder); err != nil {
		return errors.Wrap(err, "failed to restore claim")
	}
	state.BalanceNano = state.BalanceNano.Add(env.ValueNano)
	return nil
}

// handleResolvePending settles a stuck reservation on someone's behalf. The
// owner may finalize or restore at any time; the affected user may only
// restore, and only after the recovery deadline.
func (p *Processor) handleResolvePending(ctx context.Context, tx datagateway.PresaleDataGatewayWithTx, l *ledger.Ledger, state *entity.SaleState, env *types.InboundEnvelope, msg ResolvePendingMessage) error {
	if env.Sender == nil || msg.User == nil || msg.User.Type() == address.NoneAddress {
		return errors.WithStack(errcode.ErrBadWallet)
	}
	sender := addrKey(env.Sender)
	user := addrKey(msg.User)
	isOwner := sender == state.Owner
	if !isOwner && sender != user {
		return errors.WithStack(errcode.ErrNotOwnerOrUser)
	}

	account, err := tx.GetAccount(ctx, user)
	if err != nil {
		return errors.Wrap(err, "failed to get account")
	}
	if !account.HasPending() {
		return errors.WithStack(errcode.ErrNoPending)
	}

	if isOwner {
		switch msg.Action {
		case ResolveActionFinalize:
			amount, err := l.Finalize(ctx, state, user)
			if err != nil {
				return errors.Wrap(err, "failed to finalize claim")
			}
			state.JettonInventoryNano = clampSub(ctx, state.JettonInventoryNano, amount, "jetton inventory")
		case ResolveActionRestore:
			if _, err := l.Restore(ctx, state, user); err != nil {
				return errors.Wrap(err, "failed to restore claim")
			}
		default:
			return errors.WithStack(errcode.ErrBadAmount)
		}
	} else {
		if msg.Action != ResolveActionRestore {
			return errors.WithStack(errcode.ErrOnlyRestoreAllowed)
		}
		if env.Now.Before(*account.PendingUntil) {
			return errors.WithStack(errcode.ErrPendingNotExpired)
		}
		if _, err := l.Restore(ctx, state, user); err != nil {
			return errors.Wrap(err, "failed to restore claim")
		}
	}
	state.BalanceNano = state.BalanceNano.Add(env.ValueNano)
	return nil
}

// clampSub floors advisory counters at zero. Inventory is informational
// (funding notifications can be missed), so underflow here is a warning,
// not an abort.
func clampSub(ctx context.Context, a, b uint128.Uint128, what string) uint128.Uint128 {
	if a.Cmp(b) < 0 {
		logger.WarnContext(ctx, "Counter underflow clamped to zero",
			slog.String("counter", what),
			slog.String("have", a.String()),
			slog.String("sub", b.String()),
		)
		return uint128.Zero
	}
	return a.Sub(b)
}
