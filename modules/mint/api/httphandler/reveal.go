package httphandler

import (
	"github.com/cockroachdb/errors"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/ordforge/mint-engine/common/errs"
	"github.com/ordforge/mint-engine/modules/mint/internal/entity"
	"github.com/ordforge/mint-engine/modules/mint/usecase"
	"github.com/samber/lo"
)

type revealRequest struct {
	SessionId  uuid.UUID `json:"session_id"`
	CommitTxId string    `json:"commit_tx_id"`
}

func (r revealRequest) Validate() error {
	var errList []error
	if r.SessionId == uuid.Nil {
		errList = append(errList, errors.New("'session_id' is required"))
	}
	return errs.WithPublicMessage(errors.Join(errList...), "validation error")
}

type revealResult struct {
	SessionId    uuid.UUID         `json:"sessionId"`
	Status       string            `json:"status"`
	Succeeded    int               `json:"succeeded"`
	Failed       int               `json:"failed"`
	Inscriptions []mintInscription `json:"inscriptions"`
}

type revealResponse = HttpResponse[revealResult]

func (h *HttpHandler) Reveal(ctx *fiber.Ctx) (err error) {
	var req revealRequest
	if err := ctx.BodyParser(&req); err != nil {
		return errors.WithStack(err)
	}
	if err := req.Validate(); err != nil {
		return errors.WithStack(err)
	}

	result, err := h.usecase.Reveal(ctx.UserContext(), usecase.RevealParams{
		SessionId:  req.SessionId,
		CommitTxId: req.CommitTxId,
	})
	if err != nil {
		if errors.Is(err, errs.NotFound) {
			return errs.NewPublicError("mint session not found")
		}
		return errors.Wrap(err, "error during Reveal")
	}

	resp := revealResponse{
		Result: &revealResult{
			SessionId:    result.Session.Id,
			Status:       string(result.Session.Status),
			Succeeded:    result.Outcome.Succeeded,
			Failed:       result.Outcome.Failed,
			Inscriptions: lo.Map(result.Inscriptions, func(i *entity.MintInscription, _ int) mintInscription { return mapMintInscriptionToResponse(i) }),
		},
	}
	return errors.WithStack(ctx.JSON(resp))
}
