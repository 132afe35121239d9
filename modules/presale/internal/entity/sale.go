package entity

import (
	"time"

	"github.com/gaze-network/uint128"
)

// SaleState is the singleton contract state: configuration fixed at deploy,
// the schedule cursor, global aggregates and the claim correlation counter.
type SaleState struct {
	// Owner is the admin address. Immutable after deploy.
	Owner string

	// JettonMaster identifies the token being sold. Immutable after deploy.
	JettonMaster string

	// JettonWallet is the sale's own wallet for the token. One-shot: empty
	// until bound by the owner, immutable afterwards.
	JettonWallet string

	// CurrentRound and CurrentRoundSoldNano are the schedule cursor.
	CurrentRound         int32
	CurrentRoundSoldNano uint128.Uint128

	// Aggregates. All monotonic except TotalClaimableNano and
	// TotalPendingNano, which trade against each other.
	TotalSoldNano      uint128.Uint128 // token base units credited, both tracks
	TotalRaisedNano    uint128.Uint128 // nanoton consumed by purchases
	TotalClaimableNano uint128.Uint128 // sum of claimable across accounts
	TotalPendingNano   uint128.Uint128 // sum of pending across accounts
	TotalClaimedNano   uint128.Uint128 // delivered and acknowledged

	// NextQid is the claim correlation counter. Strictly increasing; a qid
	// is never reused even after its claim settles.
	NextQid uint64

	// BalanceNano is the contract's TON balance.
	BalanceNano uint128.Uint128

	// JettonInventoryNano is the token stock held for deliveries.
	JettonInventoryNano uint128.Uint128

	// ProcessedSeq is the Seq of the last envelope applied. Strictly
	// increasing; used to reject replays after a restart.
	ProcessedSeq uint64

	DeployedAt time.Time
}

func (s *SaleState) JettonWalletSet() bool {
	return s.JettonWallet != ""
}

// ClaimBinding is one row of the claim correlation registry: which account a
// given qid's delivery belongs to. Rows are deleted when the claim settles.
type ClaimBinding struct {
	Qid       uint64
	Address   string
	CreatedAt time.Time
}
