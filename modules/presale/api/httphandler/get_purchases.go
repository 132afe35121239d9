package httphandler

import (
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/uint128"
	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"

	"github.com/magnet-network/presale-engine/common/errs"
)

const (
	defaultPurchasesLimit = 100
	maxPurchasesLimit     = 1000
)

type getPurchasesRequest struct {
	Address string `params:"address"`
	Limit   int32  `query:"limit"`
}

func (r *getPurchasesRequest) Validate() error {
	var errList []error
	if _, ok := resolveAddress(r.Address); !ok {
		errList = append(errList, errors.Errorf("address '%s' is not a valid TON address", r.Address))
	}
	if r.Limit < 0 || r.Limit > maxPurchasesLimit {
		errList = append(errList, errors.Errorf("limit must be in range [0, %d]", maxPurchasesLimit))
	}
	if r.Limit == 0 {
		r.Limit = defaultPurchasesLimit
	}
	return errs.WithPublicMessage(errors.Join(errList...), "validation error")
}

type purchaseResult struct {
	Seq                  uint64          `json:"seq"`
	Referral             *string         `json:"referral"`
	Encoding             string          `json:"encoding"`
	ValueNano            uint128.Uint128 `json:"valueNano"`
	ConsumedNano         uint128.Uint128 `json:"consumedNano"`
	RefundedNano         uint128.Uint128 `json:"refundedNano"`
	BuyerCreditedNano    uint128.Uint128 `json:"buyerCreditedNano"`
	ReferralCreditedNano uint128.Uint128 `json:"referralCreditedNano"`
	RoundAfter           int32           `json:"roundAfter"`
	Timestamp            int64           `json:"timestamp"` // unix timestamp
}

type getPurchasesResult struct {
	List []purchaseResult `json:"list"`
}

type getPurchasesResponse = HttpResponse[getPurchasesResult]

func (h *HttpHandler) GetPurchases(ctx *fiber.Ctx) error {
	var req getPurchasesRequest
	if err := ctx.ParamsParser(&req); err != nil {
		return errors.WithStack(err)
	}
	if err := ctx.QueryParser(&req); err != nil {
		return errors.WithStack(err)
	}
	if err := req.Validate(); err != nil {
		return errors.WithStack(err)
	}
	address, _ := resolveAddress(req.Address)

	purchases, err := h.usecase.GetPurchasesByAddress(ctx.UserContext(), address, req.Limit)
	if err != nil {
		return errors.Wrap(err, "error during GetPurchasesByAddress")
	}

	result := getPurchasesResult{
		List: make([]purchaseResult, 0, len(purchases)),
	}
	for _, purchase := range purchases {
		item := purchaseResult{
			Seq:                  purchase.Seq,
			Encoding:             string(purchase.Encoding),
			ValueNano:            purchase.ValueNano,
			ConsumedNano:         purchase.ConsumedNano,
			RefundedNano:         purchase.RefundedNano,
			BuyerCreditedNano:    purchase.BuyerCreditedNano,
			ReferralCreditedNano: purchase.ReferralCreditedNano,
			RoundAfter:           purchase.RoundAfter,
			Timestamp:            purchase.Timestamp.Unix(),
		}
		if purchase.Referral != "" {
			item.Referral = lo.ToPtr(purchase.Referral)
		}
		result.List = append(result.List, item)
	}
	return errors.WithStack(ctx.Status(fiber.StatusOK).JSON(getPurchasesResponse{
		Result: &result,
	}))
}
