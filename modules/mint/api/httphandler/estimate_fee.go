package httphandler

import (
	"github.com/cockroachdb/errors"
	"github.com/gofiber/fiber/v2"
	"github.com/ordforge/mint-engine/modules/mint/internal/entity"
)

type estimateFeeResponse = HttpResponse[entity.FeeEstimate]

func (h *HttpHandler) EstimateFee(ctx *fiber.Ctx) (err error) {
	estimate, err := h.usecase.EstimateFee(ctx.UserContext())
	if err != nil {
		return errors.Wrap(err, "error during EstimateFee")
	}
	resp := estimateFeeResponse{Result: &estimate}
	return errors.WithStack(ctx.JSON(resp))
}
