package httphandler

import (
	"github.com/gofiber/fiber/v2"
)

func (h *HttpHandler) Mount(router fiber.Router) error {
	r := router.Group("/v1/presale")

	r.Get("/state", h.GetSaleState)
	r.Get("/rounds", h.GetRounds)
	r.Get("/rounds/:index", h.GetRound)
	r.Get("/quote", h.GetQuote)
	r.Get("/accounts/:address", h.GetAccount)
	r.Get("/accounts/:address/purchases", h.GetPurchases)
	return nil
}
