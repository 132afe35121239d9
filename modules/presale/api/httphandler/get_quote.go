package httphandler

import (
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/uint128"
	"github.com/gofiber/fiber/v2"

	"github.com/magnet-network/presale-engine/common/errs"
)

type getQuoteRequest struct {
	ValueNano string `query:"valueNano"`
}

func (r *getQuoteRequest) Validate() error {
	var errList []error
	if r.ValueNano == "" {
		errList = append(errList, errors.New("valueNano is required"))
	} else if _, err := uint128.FromString(r.ValueNano); err != nil {
		errList = append(errList, errors.Errorf("valueNano '%s' is not a valid amount", r.ValueNano))
	}
	return errs.WithPublicMessage(errors.Join(errList...), "validation error")
}

type getQuoteResult struct {
	Tokens             uint128.Uint128 `json:"tokens"`
	ValueConsumedNano  uint128.Uint128 `json:"valueConsumedNano"`
	LeftoverNano       uint128.Uint128 `json:"leftoverNano"`
	FinalRound         int32           `json:"finalRound"`
	FinalRoundSoldNano uint128.Uint128 `json:"finalRoundSoldNano"`
	SoldOut            bool            `json:"soldOut"`
}

type getQuoteResponse = HttpResponse[getQuoteResult]

func (h *HttpHandler) GetQuote(ctx *fiber.Ctx) error {
	var req getQuoteRequest
	if err := ctx.QueryParser(&req); err != nil {
		return errors.WithStack(err)
	}
	if err := req.Validate(); err != nil {
		return errors.WithStack(err)
	}
	valueNano, _ := uint128.FromString(req.ValueNano)

	fill, err := h.usecase.QuotePurchase(ctx.UserContext(), valueNano)
	if err != nil {
		if errors.Is(err, errs.NotFound) {
			return errs.NewPublicError("sale not deployed")
		}
		return errors.Wrap(err, "error during QuotePurchase")
	}

	result := getQuoteResult{
		Tokens:             fill.Tokens,
		ValueConsumedNano:  fill.ValueConsumed,
		LeftoverNano:       fill.Leftover,
		FinalRound:         fill.FinalRound,
		FinalRoundSoldNano: fill.FinalRoundSoldNano,
		SoldOut:            fill.SoldOut,
	}
	return errors.WithStack(ctx.Status(fiber.StatusOK).JSON(getQuoteResponse{
		Result: &result,
	}))
}
