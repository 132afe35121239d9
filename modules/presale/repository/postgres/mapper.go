package postgres

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/uint128"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/samber/lo"

	"github.com/magnet-network/presale-engine/modules/presale/internal/entity"
)

func uint128FromNumeric(src pgtype.Numeric) (uint128.Uint128, error) {
	if !src.Valid {
		return uint128.Zero, errors.New("unexpected null numeric")
	}
	bytes, err := src.MarshalJSON()
	if err != nil {
		return uint128.Zero, errors.WithStack(err)
	}
	result, err := uint128.FromString(string(bytes))
	if err != nil {
		return uint128.Zero, errors.WithStack(err)
	}
	return result, nil
}

func numericFromUint128(src uint128.Uint128) (pgtype.Numeric, error) {
	var result pgtype.Numeric
	if err := result.UnmarshalJSON([]byte(src.String())); err != nil {
		return pgtype.Numeric{}, errors.WithStack(err)
	}
	return result, nil
}

type saleStateModel struct {
	Owner                string
	JettonMaster         string
	JettonWallet         string
	CurrentRound         int32
	CurrentRoundSoldNano pgtype.Numeric
	TotalSoldNano        pgtype.Numeric
	TotalRaisedNano      pgtype.Numeric
	TotalClaimableNano   pgtype.Numeric
	TotalPendingNano     pgtype.Numeric
	TotalClaimedNano     pgtype.Numeric
	NextQid              int64
	BalanceNano          pgtype.Numeric
	JettonInventoryNano  pgtype.Numeric
	ProcessedSeq         int64
	DeployedAt           pgtype.Timestamptz
}

func mapSaleStateModelToType(src saleStateModel) (*entity.SaleState, error) {
	state := &entity.SaleState{
		Owner:        src.Owner,
		JettonMaster: src.JettonMaster,
		JettonWallet: src.JettonWallet,
		CurrentRound: src.CurrentRound,
		NextQid:      uint64(src.NextQid),
		ProcessedSeq: uint64(src.ProcessedSeq),
	}
	if src.DeployedAt.Valid {
		state.DeployedAt = src.DeployedAt.Time.UTC()
	}
	for _, n := range []struct {
		dst *uint128.Uint128
		src pgtype.Numeric
	}{
		{&state.CurrentRoundSoldNano, src.CurrentRoundSoldNano},
		{&state.TotalSoldNano, src.TotalSoldNano},
		{&state.TotalRaisedNano, src.TotalRaisedNano},
		{&state.TotalClaimableNano, src.TotalClaimableNano},
		{&state.TotalPendingNano, src.TotalPendingNano},
		{&state.TotalClaimedNano, src.TotalClaimedNano},
		{&state.BalanceNano, src.BalanceNano},
		{&state.JettonInventoryNano, src.JettonInventoryNano},
	} {
		value, err := uint128FromNumeric(n.src)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		*n.dst = value
	}
	return state, nil
}

type accountModel struct {
	Address               string
	BuyerClaimableNano    pgtype.Numeric
	BuyerPendingNano      pgtype.Numeric
	BuyerClaimedNano      pgtype.Numeric
	BuyerCreditedNano     pgtype.Numeric
	ReferralClaimableNano pgtype.Numeric
	ReferralPendingNano   pgtype.Numeric
	ReferralClaimedNano   pgtype.Numeric
	ReferralCreditedNano  pgtype.Numeric
	PendingQid            pgtype.Int8
	PendingUntil          pgtype.Timestamptz
}

func mapAccountModelToType(src accountModel) (*entity.Account, error) {
	account := entity.NewAccount(src.Address)
	for _, n := range []struct {
		dst *uint128.Uint128
		src pgtype.Numeric
	}{
		{&account.Buyer.ClaimableNano, src.BuyerClaimableNano},
		{&account.Buyer.PendingNano, src.BuyerPendingNano},
		{&account.Buyer.ClaimedNano, src.BuyerClaimedNano},
		{&account.Buyer.CreditedNano, src.BuyerCreditedNano},
		{&account.Referral.ClaimableNano, src.ReferralClaimableNano},
		{&account.Referral.PendingNano, src.ReferralPendingNano},
		{&account.Referral.ClaimedNano, src.ReferralClaimedNano},
		{&account.Referral.CreditedNano, src.ReferralCreditedNano},
	} {
		value, err := uint128FromNumeric(n.src)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		*n.dst = value
	}
	if src.PendingQid.Valid {
		account.PendingQid = lo.ToPtr(uint64(src.PendingQid.Int64))
	}
	if src.PendingUntil.Valid {
		account.PendingUntil = lo.ToPtr(src.PendingUntil.Time.UTC())
	}
	return account, nil
}

type purchaseModel struct {
	Seq                  int64
	Buyer                string
	Referral             string
	Encoding             string
	ValueNano            pgtype.Numeric
	ConsumedNano         pgtype.Numeric
	RefundedNano         pgtype.Numeric
	BuyerCreditedNano    pgtype.Numeric
	ReferralCreditedNano pgtype.Numeric
	RoundAfter           int32
	Timestamp            pgtype.Timestamptz
}

func mapPurchaseModelToType(src purchaseModel) (*entity.Purchase, error) {
	purchase := &entity.Purchase{
		Seq:        uint64(src.Seq),
		Buyer:      src.Buyer,
		Referral:   src.Referral,
		Encoding:   entity.PurchaseEncoding(src.Encoding),
		RoundAfter: src.RoundAfter,
	}
	if src.Timestamp.Valid {
		purchase.Timestamp = src.Timestamp.Time.UTC()
	}
	for _, n := range []struct {
		dst *uint128.Uint128
		src pgtype.Numeric
	}{
		{&purchase.ValueNano, src.ValueNano},
		{&purchase.ConsumedNano, src.ConsumedNano},
		{&purchase.RefundedNano, src.RefundedNano},
		{&purchase.BuyerCreditedNano, src.BuyerCreditedNano},
		{&purchase.ReferralCreditedNano, src.ReferralCreditedNano},
	} {
		value, err := uint128FromNumeric(n.src)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		*n.dst = value
	}
	return purchase, nil
}

type outboundModel struct {
	Seq       int64
	Kind      string
	Dest      string
	ValueNano pgtype.Numeric
	Bounce    bool
	BodyBoC   []byte
	CreatedAt pgtype.Timestamptz
}

func mapOutboundModelToType(src outboundModel) (*entity.Outbound, error) {
	outbound := &entity.Outbound{
		Seq:     uint64(src.Seq),
		Kind:    entity.OutboundKind(src.Kind),
		Dest:    src.Dest,
		Bounce:  src.Bounce,
		BodyBoC: src.BodyBoC,
	}
	if src.CreatedAt.Valid {
		outbound.CreatedAt = src.CreatedAt.Time.UTC()
	}
	value, err := uint128FromNumeric(src.ValueNano)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	outbound.ValueNano = value
	return outbound, nil
}

func timestamptz(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: t.UTC(), Valid: !t.IsZero()}
}
