package presale

import (
	"time"

	"github.com/gaze-network/uint128"
)

const Version = "v0.3.0"

// Recognized inbound operation tags. Values match the deployed contract ABI.
const (
	// Buy encodings. A bare value transfer (empty body) is also a buy.
	OpBuyManual uint32 = 0x42555901 // [tag:32][hasRef:1][ref addr?]
	OpBuyTyped  uint32 = 0x42555902 // typed BuyAbi{ref?}

	OpClaim           uint32 = 1129070921 // "CLAI"
	OpCancelPending   uint32 = 4129785881
	OpResolvePending  uint32 = 2390954843
	OpSetJettonWallet uint32 = 3101903737
	OpWithdraw        uint32 = 1464423496
	OpWithdrawJettons uint32 = 1464489038

	OpDeploy   uint32 = 2490013878
	OpDeployOk uint32 = 2952335191

	// Jetton wallet collaborator protocol.
	OpJettonTransfer             uint32 = 0x0f8a7ea5
	OpJettonTransferNotification uint32 = 0x7362d09c
	OpJettonExcesses             uint32 = 0xd53276db
)

// ResolvePending action codes.
const (
	ResolveActionFinalize int64 = 1
	ResolveActionRestore  int64 = 2
)

// PendingTTL is the recovery window for a stuck reservation. After it has
// elapsed the affected user may restore the reservation without the owner.
const PendingTTL = 24 * time.Hour

// NanoPerToken is the number of jetton base units in one whole token.
const nanoPerToken = 1_000_000_000

// Bonus rates, in percent. Referral bonus is paid from a separate allotment
// and is not subtracted from the buyer.
const (
	buyerBonusPercent    = 5
	referralBonusPercent = 5
)

// TON value thresholds, in nanoton.
var (
	// minBuyValue is the dust threshold for purchases.
	minBuyValue = uint128.From64(200_000_000) // 0.2 TON

	// minRefundValue is the smallest leftover worth bouncing back.
	minRefundValue = uint128.From64(10_000_000) // 0.01 TON

	// minClaimValue is the minimum attached value for a claim, enough to
	// cover the jetton transfer forwarding chain.
	minClaimValue = uint128.From64(500_000_000) // 0.5 TON

	// claimGasReserve is kept by the contract out of the claim's attached
	// value; the rest is forwarded with the outbound jetton transfer.
	claimGasReserve = uint128.From64(100_000_000) // 0.1 TON

	// jettonForwardValue is forwarded to the recipient's jetton wallet to
	// cover its deployment.
	jettonForwardValue = uint128.From64(50_000_000) // 0.05 TON

	// withdrawReserve is the operating reserve Withdraw must preserve,
	// plus a gas buffer.
	withdrawReserve  = uint128.From64(1_000_000_000) // 1 TON
	withdrawGasFloor = uint128.From64(100_000_000)   // 0.1 TON
)
