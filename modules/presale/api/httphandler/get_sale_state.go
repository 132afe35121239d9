package httphandler

import (
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/uint128"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/magnet-network/presale-engine/common/errs"
	"github.com/magnet-network/presale-engine/core/constants"
	"github.com/magnet-network/presale-engine/pkg/decimals"
)

type getSaleStateResult struct {
	Owner           string  `json:"owner"`
	JettonMaster    string  `json:"jettonMaster"`
	JettonWallet    *string `json:"jettonWallet"`
	JettonWalletSet bool    `json:"jettonWalletSet"`

	CurrentRound         int32           `json:"currentRound"`
	CurrentRoundSoldNano uint128.Uint128 `json:"currentRoundSoldNano"`

	TotalSoldNano      uint128.Uint128 `json:"totalSoldNano"`
	TotalRaisedNano    uint128.Uint128 `json:"totalRaisedNano"`
	TotalRaisedTon     decimal.Decimal `json:"totalRaisedTon"`
	TotalClaimableNano uint128.Uint128 `json:"totalClaimableNano"`
	TotalPendingNano   uint128.Uint128 `json:"totalPendingNano"`
	TotalClaimedNano   uint128.Uint128 `json:"totalClaimedNano"`

	NextQid      uint64 `json:"nextQid"`
	ProcessedSeq uint64 `json:"processedSeq"`
	DeployedAt   int64  `json:"deployedAt"` // unix timestamp

	CodeVersion string `json:"codeVersion"`
}

type getSaleStateResponse = HttpResponse[getSaleStateResult]

func (h *HttpHandler) GetSaleState(ctx *fiber.Ctx) error {
	state, err := h.usecase.GetSaleState(ctx.UserContext())
	if err != nil {
		if errors.Is(err, errs.NotFound) {
			return errs.NewPublicError("sale not deployed")
		}
		return errors.Wrap(err, "error during GetSaleState")
	}

	result := getSaleStateResult{
		Owner:                state.Owner,
		JettonMaster:         state.JettonMaster,
		JettonWalletSet:      state.JettonWalletSet(),
		CurrentRound:         state.CurrentRound,
		CurrentRoundSoldNano: state.CurrentRoundSoldNano,
		TotalSoldNano:        state.TotalSoldNano,
		TotalRaisedNano:      state.TotalRaisedNano,
		TotalRaisedTon:       decimals.FromNano(state.TotalRaisedNano),
		TotalClaimableNano:   state.TotalClaimableNano,
		TotalPendingNano:     state.TotalPendingNano,
		TotalClaimedNano:     state.TotalClaimedNano,
		NextQid:              state.NextQid,
		ProcessedSeq:         state.ProcessedSeq,
		DeployedAt:           state.DeployedAt.Unix(),
		CodeVersion:          constants.Version,
	}
	if state.JettonWalletSet() {
		wallet := state.JettonWallet
		result.JettonWallet = &wallet
	}
	return errors.WithStack(ctx.Status(fiber.StatusOK).JSON(getSaleStateResponse{
		Result: &result,
	}))
}
