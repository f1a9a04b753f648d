package httphandler

import (
	"github.com/cockroachdb/errors"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/ordforge/mint-engine/common/errs"
)

type retryRevealRequest struct {
	MintInscriptionId uuid.UUID `json:"mint_inscription_id"`
}

func (r retryRevealRequest) Validate() error {
	var errList []error
	if r.MintInscriptionId == uuid.Nil {
		errList = append(errList, errors.New("'mint_inscription_id' is required"))
	}
	return errs.WithPublicMessage(errors.Join(errList...), "validation error")
}

type retryRevealResult struct {
	SessionId   uuid.UUID       `json:"sessionId"`
	Status      string          `json:"status"`
	Inscription mintInscription `json:"inscription"`
}

type retryRevealResponse = HttpResponse[retryRevealResult]

func (h *HttpHandler) RetryReveal(ctx *fiber.Ctx) (err error) {
	var req retryRevealRequest
	if err := ctx.BodyParser(&req); err != nil {
		return errors.WithStack(err)
	}
	if err := req.Validate(); err != nil {
		return errors.WithStack(err)
	}

	result, err := h.usecase.RetryReveal(ctx.UserContext(), req.MintInscriptionId)
	if err != nil {
		if errors.Is(err, errs.NotFound) {
			return errs.NewPublicError("mint inscription not found")
		}
		return errors.Wrap(err, "error during RetryReveal")
	}

	resp := retryRevealResponse{
		Result: &retryRevealResult{
			SessionId:   result.Session.Id,
			Status:      string(result.Session.Status),
			Inscription: mapMintInscriptionToResponse(result.Inscription),
		},
	}
	return errors.WithStack(ctx.JSON(resp))
}
