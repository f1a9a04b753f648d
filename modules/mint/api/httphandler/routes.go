package httphandler

import (
	"github.com/gofiber/fiber/v2"
)

func (h *HttpHandler) Mount(router fiber.Router) error {
	r := router.Group("/v1/mint")

	r.Post("/create-commit", h.CreateCommit)
	r.Post("/broadcast-commit", h.BroadcastCommit)
	r.Post("/reveal", h.Reveal)
	r.Post("/retry-reveal", h.RetryReveal)
	r.Post("/estimate-cost", h.EstimateCost)
	r.Get("/estimate-fee", h.EstimateFee)
	r.Get("/sessions/:id", h.GetSession)
	return nil
}
