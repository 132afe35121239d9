package presale

import (
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/uint128"
	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/tvm/cell"

	"github.com/magnet-network/presale-engine/common/errs"
	"github.com/magnet-network/presale-engine/core/types"
	"github.com/magnet-network/presale-engine/modules/presale/errcode"
	"github.com/magnet-network/presale-engine/modules/presale/internal/entity"
)

// Message is a decoded inbound body. The concrete type selects the handler.
type Message interface {
	isMessage()
}

// BuyMessage covers all three equivalent purchase encodings. Referral is nil
// when the buyer attached none.
type BuyMessage struct {
	Referral *address.Address
	Encoding entity.PurchaseEncoding
}

// ClaimMessage asks for delivery of the sender's whole claimable balance.
// QueryID is advisory; the engine assigns its own correlation id.
type ClaimMessage struct {
	QueryID uint64
}

// CancelPendingMessage restores the sender's own expired reservation.
type CancelPendingMessage struct{}

// ResolvePendingMessage settles or restores a user's reservation.
type ResolvePendingMessage struct {
	User   *address.Address
	Action int64
}

// SetJettonWalletMessage binds the sale's own jetton wallet. One-shot.
type SetJettonWalletMessage struct {
	Wallet *address.Address
}

// WithdrawMessage moves raised TON to the owner, keeping the reserve.
type WithdrawMessage struct {
	AmountNano uint128.Uint128
}

// WithdrawJettonsMessage sweeps unsold token stock to an arbitrary address.
type WithdrawJettonsMessage struct {
	To         *address.Address
	AmountNano uint128.Uint128
	QueryID    uint64
}

// JettonExcessesMessage is the jetton wallet's acknowledgement that a
// transfer settled; it finalizes the claim bound to QueryID.
type JettonExcessesMessage struct {
	QueryID uint64
}

// JettonTransferNotificationMessage reports tokens arriving at the sale's
// wallet, i.e. inventory being funded.
type JettonTransferNotificationMessage struct {
	QueryID    uint64
	AmountNano uint128.Uint128
	Sender     *address.Address
}

// DeployMessage initializes the contract state.
type DeployMessage struct {
	QueryID uint64
}

// TransferFailedMessage is a bounced outbound jetton transfer: delivery for
// the claim bound to QueryID did not happen.
type TransferFailedMessage struct {
	QueryID uint64
}

// UnknownMessage is any body the engine does not recognize.
type UnknownMessage struct {
	Op      uint32
	Bounced bool
}

func (BuyMessage) isMessage()                        {}
func (ClaimMessage) isMessage()                      {}
func (CancelPendingMessage) isMessage()              {}
func (ResolvePendingMessage) isMessage()             {}
func (SetJettonWalletMessage) isMessage()            {}
func (WithdrawMessage) isMessage()                   {}
func (WithdrawJettonsMessage) isMessage()            {}
func (JettonExcessesMessage) isMessage()             {}
func (JettonTransferNotificationMessage) isMessage() {}
func (DeployMessage) isMessage()                     {}
func (TransferFailedMessage) isMessage()             {}
func (UnknownMessage) isMessage()                    {}

// DecodeInbound turns an envelope body into a Message. A bodiless transfer
// is a buy. Malformed bodies fail with errs.InvalidArgument; semantically
// invalid fields (negative amounts) fail with the matching exit code.
func DecodeInbound(env *types.InboundEnvelope) (Message, error) {
	if env.Body == nil || env.Body.BitsSize() < 32 {
		if env.Bounced {
			return UnknownMessage{Bounced: true}, nil
		}
		return BuyMessage{Encoding: entity.PurchaseEncodingTransfer}, nil
	}

	body := env.Body.BeginParse()
	op64, err := body.LoadUInt(32)
	if err != nil {
		return nil, errors.Wrap(errs.InvalidArgument, "failed to load op")
	}
	op := uint32(op64)

	if env.Bounced {
		if op == OpJettonTransfer {
			queryID, err := body.LoadUInt(64)
			if err != nil {
				return nil, errors.Wrap(errs.InvalidArgument, "bounced transfer without query id")
			}
			return TransferFailedMessage{QueryID: queryID}, nil
		}
		return UnknownMessage{Op: op, Bounced: true}, nil
	}

	switch op {
	case OpBuyManual:
		hasRef, err := body.LoadBoolBit()
		if err != nil {
			return nil, errors.Wrap(errs.InvalidArgument, "failed to load referral flag")
		}
		msg := BuyMessage{Encoding: entity.PurchaseEncodingManual}
		if hasRef {
			ref, err := body.LoadAddr()
			if err != nil {
				return nil, errors.Wrap(errs.InvalidArgument, "failed to load referral address")
			}
			msg.Referral = ref
		}
		return msg, nil

	case OpBuyTyped:
		ref, err := body.LoadAddr()
		if err != nil {
			return nil, errors.Wrap(errs.InvalidArgument, "failed to load referral address")
		}
		msg := BuyMessage{Encoding: entity.PurchaseEncodingTyped}
		if ref != nil && ref.Type() != address.NoneAddress {
			msg.Referral = ref
		}
		return msg, nil

	case OpClaim:
		queryID, err := body.LoadUInt(64)
		if err != nil {
			return nil, errors.Wrap(errs.InvalidArgument, "failed to load query id")
		}
		return ClaimMessage{QueryID: queryID}, nil

	case OpCancelPending:
		return CancelPendingMessage{}, nil

	case OpResolvePending:
		user, err := body.LoadAddr()
		if err != nil {
			return nil, errors.Wrap(errs.InvalidArgument, "failed to load user address")
		}
		action, err := body.LoadBigInt(257)
		if err != nil {
			return nil, errors.Wrap(errs.InvalidArgument, "failed to load action")
		}
		if !action.IsInt64() {
			return nil, errors.WithStack(errcode.ErrBadAmount)
		}
		return ResolvePendingMessage{User: user, Action: action.Int64()}, nil

	case OpSetJettonWallet:
		wallet, err := body.LoadAddr()
		if err != nil {
			return nil, errors.Wrap(errs.InvalidArgument, "failed to load wallet address")
		}
		return SetJettonWalletMessage{Wallet: wallet}, nil

	case OpWithdraw:
		amount, err := body.LoadBigInt(257)
		if err != nil {
			return nil, errors.Wrap(errs.InvalidArgument, "failed to load amount")
		}
		if amount.Sign() <= 0 {
			return nil, errors.WithStack(errcode.ErrBadAmount)
		}
		value, err := uint128.FromBig(amount)
		if err != nil {
			return nil, errors.WithStack(errcode.ErrBadAmount)
		}
		return WithdrawMessage{AmountNano: value}, nil

	case OpWithdrawJettons:
		to, err := body.LoadAddr()
		if err != nil {
			return nil, errors.Wrap(errs.InvalidArgument, "failed to load destination address")
		}
		amount, err := body.LoadBigInt(257)
		if err != nil {
			return nil, errors.Wrap(errs.InvalidArgument, "failed to load amount")
		}
		if amount.Sign() <= 0 {
			return nil, errors.WithStack(errcode.ErrBadAmount)
		}
		value, err := uint128.FromBig(amount)
		if err != nil {
			return nil, errors.WithStack(errcode.ErrBadAmount)
		}
		queryID, err := body.LoadUInt(64)
		if err != nil {
			return nil, errors.Wrap(errs.InvalidArgument, "failed to load query id")
		}
		return WithdrawJettonsMessage{To: to, AmountNano: value, QueryID: queryID}, nil

	case OpJettonExcesses:
		queryID, err := body.LoadUInt(64)
		if err != nil {
			return nil, errors.Wrap(errs.InvalidArgument, "failed to load query id")
		}
		return JettonExcessesMessage{QueryID: queryID}, nil

	case OpJettonTransferNotification:
		queryID, err := body.LoadUInt(64)
		if err != nil {
			return nil, errors.Wrap(errs.InvalidArgument, "failed to load query id")
		}
		amount, err := body.LoadBigCoins()
		if err != nil {
			return nil, errors.Wrap(errs.InvalidArgument, "failed to load amount")
		}
		value, err := uint128.FromBig(amount)
		if err != nil {
			return nil, errors.WithStack(errcode.ErrBadAmount)
		}
		sender, err := body.LoadAddr()
		if err != nil {
			return nil, errors.Wrap(errs.InvalidArgument, "failed to load sender address")
		}
		return JettonTransferNotificationMessage{QueryID: queryID, AmountNano: value, Sender: sender}, nil

	case OpDeploy:
		queryID, err := body.LoadUInt(64)
		if err != nil {
			return nil, errors.Wrap(errs.InvalidArgument, "failed to load query id")
		}
		return DeployMessage{QueryID: queryID}, nil

	default:
		return UnknownMessage{Op: op}, nil
	}
}

// EncodeJettonTransfer builds the standard jetton transfer body sent to the
// sale's own jetton wallet to deliver tokens.
func EncodeJettonTransfer(queryID uint64, amountNano uint128.Uint128, to, responseTo *address.Address) *cell.Cell {
	return cell.BeginCell().
		MustStoreUInt(uint64(OpJettonTransfer), 32).
		MustStoreUInt(queryID, 64).
		MustStoreBigCoins(amountNano.Big()).
		MustStoreAddr(to).
		MustStoreAddr(responseTo).
		MustStoreBoolBit(false). // no custom payload
		MustStoreBigCoins(jettonForwardValue.Big()).
		MustStoreBoolBit(false). // no forward payload
		EndCell()
}

// EncodeDeployOk acknowledges a Deploy.
func EncodeDeployOk(queryID uint64) *cell.Cell {
	return cell.BeginCell().
		MustStoreUInt(uint64(OpDeployOk), 32).
		MustStoreUInt(queryID, 64).
		EndCell()
}
