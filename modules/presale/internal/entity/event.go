package entity

import (
	"time"

	"github.com/gaze-network/uint128"
)

// PurchaseEncoding tells which of the equivalent buy encodings carried a
// purchase. The choice has no effect on the outcome; it is kept for audit.
type PurchaseEncoding string

const (
	PurchaseEncodingTransfer PurchaseEncoding = "transfer"
	PurchaseEncodingManual   PurchaseEncoding = "manual"
	PurchaseEncodingTyped    PurchaseEncoding = "typed"
)

// Purchase is the audit record of one settled buy.
type Purchase struct {
	Seq      uint64
	Buyer    string
	Referral string // empty when none
	Encoding PurchaseEncoding

	ValueNano    uint128.Uint128 // attached value
	ConsumedNano uint128.Uint128 // spent on tokens
	RefundedNano uint128.Uint128 // bounced leftover, zero when kept as dust

	BuyerCreditedNano    uint128.Uint128 // base + buyer bonus, token base units
	ReferralCreditedNano uint128.Uint128

	RoundAfter int32
	Timestamp  time.Time
}

// OutboundKind classifies emitted messages for the audit log.
type OutboundKind string

const (
	OutboundKindJettonTransfer OutboundKind = "jetton_transfer"
	OutboundKindRefund         OutboundKind = "refund"
	OutboundKindPayout         OutboundKind = "payout"
	OutboundKindDeployOk       OutboundKind = "deploy_ok"
	OutboundKindBounce         OutboundKind = "bounce"
)

// Outbound is the audit record of one emitted message, body kept as BoC.
type Outbound struct {
	Seq       uint64 // envelope that caused the emission
	Kind      OutboundKind
	Dest      string
	ValueNano uint128.Uint128
	Bounce    bool
	BodyBoC   []byte // nil for bodiless transfers
	CreatedAt time.Time
}
