package httphandler

import (
	"github.com/cockroachdb/errors"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/ordforge/mint-engine/common/errs"
	"github.com/ordforge/mint-engine/modules/mint/internal/entity"
	"github.com/samber/lo"
)

type getSessionRequest struct {
	Id string `params:"id"`
}

func (r getSessionRequest) Validate() error {
	var errList []error
	if _, err := uuid.Parse(r.Id); err != nil {
		errList = append(errList, errors.New("'id' is not a valid session id"))
	}
	return errs.WithPublicMessage(errors.Join(errList...), "validation error")
}

type getSessionResult struct {
	Session      mintSession       `json:"session"`
	Inscriptions []mintInscription `json:"inscriptions"`
}

type getSessionResponse = HttpResponse[getSessionResult]

func (h *HttpHandler) GetSession(ctx *fiber.Ctx) (err error) {
	var req getSessionRequest
	if err := ctx.ParamsParser(&req); err != nil {
		return errors.WithStack(err)
	}
	if err := req.Validate(); err != nil {
		return errors.WithStack(err)
	}
	id := uuid.MustParse(req.Id)

	detail, err := h.usecase.GetSession(ctx.UserContext(), id)
	if err != nil {
		if errors.Is(err, errs.NotFound) {
			return errs.NewPublicError("mint session not found")
		}
		return errors.Wrap(err, "error during GetSession")
	}

	resp := getSessionResponse{
		Result: &getSessionResult{
			Session:      mapMintSessionToResponse(detail.Session),
			Inscriptions: lo.Map(detail.Inscriptions, func(i *entity.MintInscription, _ int) mintInscription { return mapMintInscriptionToResponse(i) }),
		},
	}
	return errors.WithStack(ctx.JSON(resp))
}
