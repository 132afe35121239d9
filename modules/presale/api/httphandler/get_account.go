package httphandler

import (
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/uint128"
	"github.com/gofiber/fiber/v2"

	"github.com/magnet-network/presale-engine/common/errs"
)

type getAccountRequest struct {
	Address string `params:"address"`
}

func (r *getAccountRequest) Validate() error {
	var errList []error
	if _, ok := resolveAddress(r.Address); !ok {
		errList = append(errList, errors.Errorf("address '%s' is not a valid TON address", r.Address))
	}
	return errs.WithPublicMessage(errors.Join(errList...), "validation error")
}

type trackResult struct {
	ClaimableNano uint128.Uint128 `json:"claimableNano"`
	PendingNano   uint128.Uint128 `json:"pendingNano"`
	ClaimedNano   uint128.Uint128 `json:"claimedNano"`
	CreditedNano  uint128.Uint128 `json:"creditedNano"`
}

type getAccountResult struct {
	Address  string      `json:"address"`
	Buyer    trackResult `json:"buyer"`
	Referral trackResult `json:"referral"`

	ClaimableTotalNano uint128.Uint128 `json:"claimableTotalNano"`
	PendingTotalNano   uint128.Uint128 `json:"pendingTotalNano"`

	IsPending    bool    `json:"isPending"`
	PendingQid   *uint64 `json:"pendingQid"`
	PendingUntil *int64  `json:"pendingUntil"` // unix timestamp
}

type getAccountResponse = HttpResponse[getAccountResult]

func (h *HttpHandler) GetAccount(ctx *fiber.Ctx) error {
	var req getAccountRequest
	if err := ctx.ParamsParser(&req); err != nil {
		return errors.WithStack(err)
	}
	if err := req.Validate(); err != nil {
		return errors.WithStack(err)
	}
	address, _ := resolveAddress(req.Address)

	account, err := h.usecase.GetAccount(ctx.UserContext(), address)
	if err != nil {
		return errors.Wrap(err, "error during GetAccount")
	}

	result := getAccountResult{
		Address: account.Address,
		Buyer: trackResult{
			ClaimableNano: account.Buyer.ClaimableNano,
			PendingNano:   account.Buyer.PendingNano,
			ClaimedNano:   account.Buyer.ClaimedNano,
			CreditedNano:  account.Buyer.CreditedNano,
		},
		Referral: trackResult{
			ClaimableNano: account.Referral.ClaimableNano,
			PendingNano:   account.Referral.PendingNano,
			ClaimedNano:   account.Referral.ClaimedNano,
			CreditedNano:  account.Referral.CreditedNano,
		},
		ClaimableTotalNano: account.ClaimableTotalNano(),
		PendingTotalNano:   account.PendingTotalNano(),
		IsPending:          account.HasPending(),
		PendingQid:         account.PendingQid,
	}
	if account.PendingUntil != nil {
		until := account.PendingUntil.Unix()
		result.PendingUntil = &until
	}
	return errors.WithStack(ctx.Status(fiber.StatusOK).JSON(getAccountResponse{
		Result: &result,
	}))
}
