package entity

import (
	"time"

	"github.com/gaze-network/uint128"
)

// TrackBalances is one allotment track of an account. Buyer and referral
// credits are earned differently but move through the same lifecycle:
// credited -> claimable -> pending -> claimed (or back to claimable).
type TrackBalances struct {
	// ClaimableNano is spendable by a claim. Token base units.
	ClaimableNano uint128.Uint128

	// PendingNano is reserved by an in-flight claim.
	PendingNano uint128.Uint128

	// ClaimedNano has been delivered and acknowledged. Monotonic.
	ClaimedNano uint128.Uint128

	// CreditedNano is the lifetime total ever credited. Monotonic.
	CreditedNano uint128.Uint128
}

// Account is the per-address ledger row. An account exists implicitly with
// zero balances until its first credit.
type Account struct {
	Address string

	Buyer    TrackBalances
	Referral TrackBalances

	// PendingQid correlates the account's in-flight claim with the
	// asynchronous delivery acknowledgement. Nil when no claim is in
	// flight. At most one reservation per account at a time.
	PendingQid *uint64

	// PendingUntil is the deadline after which the account holder may
	// restore a stuck reservation without the owner.
	PendingUntil *time.Time
}

func NewAccount(address string) *Account {
	return &Account{Address: address}
}

func (a *Account) ClaimableTotalNano() uint128.Uint128 {
	return a.Buyer.ClaimableNano.Add(a.Referral.ClaimableNano)
}

func (a *Account) PendingTotalNano() uint128.Uint128 {
	return a.Buyer.PendingNano.Add(a.Referral.PendingNano)
}

func (a *Account) ClaimedTotalNano() uint128.Uint128 {
	return a.Buyer.ClaimedNano.Add(a.Referral.ClaimedNano)
}

func (a *Account) CreditedTotalNano() uint128.Uint128 {
	return a.Buyer.CreditedNano.Add(a.Referral.CreditedNano)
}

func (a *Account) HasPending() bool {
	return a.PendingQid != nil
}

// IsZero reports whether the account carries no balances and no reservation,
// i.e. storing it would be a no-op.
func (a *Account) IsZero() bool {
	return a.CreditedTotalNano().IsZero() && !a.HasPending()
}
