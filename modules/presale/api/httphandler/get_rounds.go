package httphandler

import (
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/magnet-network/presale-engine/common/errs"
	"github.com/magnet-network/presale-engine/modules/presale/rounds"
	"github.com/magnet-network/presale-engine/pkg/decimals"
)

type roundResult struct {
	Index          int32           `json:"index"`
	CapacityTokens uint64          `json:"capacityTokens"`
	PriceNano      uint64          `json:"priceNano"`
	PriceTon       decimal.Decimal `json:"priceTon"`
}

func mapRoundToResult(round rounds.Round) roundResult {
	return roundResult{
		Index:          round.Index,
		CapacityTokens: round.CapacityTokens,
		PriceNano:      round.PriceNano,
		PriceTon:       decimals.ToDecimal(round.Price(), decimals.NanoDigits),
	}
}

type getRoundsResult struct {
	List []roundResult `json:"list"`
}

type getRoundsResponse = HttpResponse[getRoundsResult]

func (h *HttpHandler) GetRounds(ctx *fiber.Ctx) error {
	result := getRoundsResult{
		List: lo.Map(h.usecase.GetRounds(ctx.UserContext()), func(round rounds.Round, _ int) roundResult {
			return mapRoundToResult(round)
		}),
	}
	return errors.WithStack(ctx.Status(fiber.StatusOK).JSON(getRoundsResponse{
		Result: &result,
	}))
}

type getRoundRequest struct {
	Index string `params:"index"`
}

type getRoundResponse = HttpResponse[roundResult]

func (h *HttpHandler) GetRound(ctx *fiber.Ctx) error {
	var req getRoundRequest
	if err := ctx.ParamsParser(&req); err != nil {
		return errors.WithStack(err)
	}
	index, err := strconv.ParseInt(req.Index, 10, 32)
	if err != nil {
		return errs.NewPublicError("round index must be an integer")
	}

	round, err := h.usecase.GetRound(ctx.UserContext(), int32(index))
	if err != nil {
		if errors.Is(err, errs.InvalidArgument) {
			return errs.NewPublicError("round index out of range")
		}
		return errors.Wrap(err, "error during GetRound")
	}

	result := mapRoundToResult(round)
	return errors.WithStack(ctx.Status(fiber.StatusOK).JSON(getRoundResponse{
		Result: &result,
	}))
}
