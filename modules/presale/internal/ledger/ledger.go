// Package ledger moves balances between the claimable, pending and claimed
// buckets of an account, keeping the per-account tracks, the correlation
// registry and the global aggregates consistent in one place. Callers wrap
// every call in a storage transaction; the ledger itself never commits.
package ledger

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/uint128"

	"github.com/magnet-network/presale-engine/modules/presale/datagateway"
	"github.com/magnet-network/presale-engine/modules/presale/errcode"
	"github.com/magnet-network/presale-engine/modules/presale/internal/entity"
)

type Ledger struct {
	dg datagateway.PresaleDataGatewayWithTx
}

func New(dg datagateway.PresaleDataGatewayWithTx) *Ledger {
	return &Ledger{dg: dg}
}

// Credit adds newly purchased allotments to an account. Amounts are token
// base units; either may be zero. Mutates state aggregates in place, the
// caller persists state.
func (l *Ledger) Credit(ctx context.Context, state *entity.SaleState, address string, buyerNano, referralNano uint128.Uint128) error {
	if buyerNano.IsZero() && referralNano.IsZero() {
		return nil
	}
	account, err := l.dg.GetAccount(ctx, address)
	if err != nil {
		return errors.Wrap(err, "failed to get account")
	}

	account.Buyer.ClaimableNano = account.Buyer.ClaimableNano.Add(buyerNano)
	account.Buyer.CreditedNano = account.Buyer.CreditedNano.Add(buyerNano)
	account.Referral.ClaimableNano = account.Referral.ClaimableNano.Add(referralNano)
	account.Referral.CreditedNano = account.Referral.CreditedNano.Add(referralNano)

	if err := l.dg.SaveAccount(ctx, account); err != nil {
		return errors.Wrap(err, "failed to save account")
	}
	state.TotalClaimableNano = state.TotalClaimableNano.Add(buyerNano).Add(referralNano)
	return nil
}

// Reserve moves the account's entire claimable balance (both tracks) into
// pending and binds it to qid in the correlation registry. until is the
// recovery deadline of the reservation. Returns the reserved amount.
func (l *Ledger) Reserve(ctx context.Context, state *entity.SaleState, address string, qid uint64, now, until time.Time) (uint128.Uint128, error) {
	account, err := l.dg.GetAccount(ctx, address)
	if err != nil {
		return uint128.Zero, errors.Wrap(err, "failed to get account")
	}
	if account.HasPending() {
		return uint128.Zero, errors.WithStack(errcode.ErrClaimPendingTryLater)
	}
	amount := account.ClaimableTotalNano()
	if amount.IsZero() {
		return uint128.Zero, errors.WithStack(errcode.ErrNothingToClaim)
	}

	account.Buyer.PendingNano = account.Buyer.ClaimableNano
	account.Referral.PendingNano = account.Referral.ClaimableNano
	account.Buyer.ClaimableNano = uint128.Zero
	account.Referral.ClaimableNano = uint128.Zero
	account.PendingQid = &qid
	account.PendingUntil = &until

	if err := l.dg.SaveAccount(ctx, account); err != nil {
		return uint128.Zero, errors.Wrap(err, "failed to save account")
	}
	if err := l.dg.CreateClaimBinding(ctx, &entity.ClaimBinding{
		Qid:       qid,
		Address:   address,
		CreatedAt: now,
	}); err != nil {
		return uint128.Zero, errors.Wrap(err, "failed to create claim binding")
	}

	state.TotalClaimableNano, err = checkedSub(state.TotalClaimableNano, amount)
	if err != nil {
		return uint128.Zero, errors.Wrapf(err, "claimable aggregate below account %s", address)
	}
	state.TotalPendingNano = state.TotalPendingNano.Add(amount)
	return amount, nil
}

// Finalize settles the account's reservation as delivered: pending moves to
// claimed and the registry binding is dropped. Returns the settled amount.
func (l *Ledger) Finalize(ctx context.Context, state *entity.SaleState, address string) (uint128.Uint128, error) {
	account, err := l.dg.GetAccount(ctx, address)
	if err != nil {
		return uint128.Zero, errors.Wrap(err, "failed to get account")
	}
	if !account.HasPending() {
		return uint128.Zero, errors.WithStack(errcode.ErrNoPending)
	}
	amount := account.PendingTotalNano()
	qid := *account.PendingQid

	account.Buyer.ClaimedNano = account.Buyer.ClaimedNano.Add(account.Buyer.PendingNano)
	account.Referral.ClaimedNano = account.Referral.ClaimedNano.Add(account.Referral.PendingNano)
	account.Buyer.PendingNano = uint128.Zero
	account.Referral.PendingNano = uint128.Zero
	account.PendingQid = nil
	account.PendingUntil = nil

	if err := l.dg.SaveAccount(ctx, account); err != nil {
		return uint128.Zero, errors.Wrap(err, "failed to save account")
	}
	if err := l.dg.DeleteClaimBinding(ctx, qid); err != nil {
		return uint128.Zero, errors.Wrap(err, "failed to delete claim binding")
	}

	state.TotalPendingNano, err = checkedSub(state.TotalPendingNano, amount)
	if err != nil {
		return uint128.Zero, errors.Wrapf(err, "pending aggregate below account %s", address)
	}
	state.TotalClaimedNano = state.TotalClaimedNano.Add(amount)
	return amount, nil
}

// Restore undoes the account's reservation: pending moves back to claimable
// and the registry binding is dropped. Returns the restored amount.
func (l *Ledger) Restore(ctx context.Context, state *entity.SaleState, address string) (uint128.Uint128, error) {
	account, err := l.dg.GetAccount(ctx, address)
	if err != nil {
		return uint128.Zero, errors.Wrap(err, "failed to get account")
	}
	if !account.HasPending() {
		return uint128.Zero, errors.WithStack(errcode.ErrNoPending)
	}
	amount := account.PendingTotalNano()
	qid := *account.PendingQid

	account.Buyer.ClaimableNano = account.Buyer.ClaimableNano.Add(account.Buyer.PendingNano)
	account.Referral.ClaimableNano = account.Referral.ClaimableNano.Add(account.Referral.PendingNano)
	account.Buyer.PendingNano = uint128.Zero
	account.Referral.PendingNano = uint128.Zero
	account.PendingQid = nil
	account.PendingUntil = nil

	if err := l.dg.SaveAccount(ctx, account); err != nil {
		return uint128.Zero, errors.Wrap(err, "failed to save account")
	}
	if err := l.dg.DeleteClaimBinding(ctx, qid); err != nil {
		return uint128.Zero, errors.Wrap(err, "failed to delete claim binding")
	}

	state.TotalPendingNano, err = checkedSub(state.TotalPendingNano, amount)
	if err != nil {
		return uint128.Zero, errors.Wrapf(err, "pending aggregate below account %s", address)
	}
	state.TotalClaimableNano = state.TotalClaimableNano.Add(amount)
	return amount, nil
}

// checkedSub guards the aggregates: an underflow here means a logic defect,
// never a user mistake, so it surfaces as INTERNAL_CLAIMABLE_UNDERFLOW and
// aborts the message instead of clamping to zero.
func checkedSub(a, b uint128.Uint128) (uint128.Uint128, error) {
	if a.Cmp(b) < 0 {
		return uint128.Zero, errors.WithStack(errcode.ErrClaimableUnderflow)
	}
	return a.Sub(b), nil
}
