package httphandler

import (
	"github.com/cockroachdb/errors"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/ordforge/mint-engine/common/errs"
	"github.com/ordforge/mint-engine/modules/mint/internal/entity"
	"github.com/ordforge/mint-engine/modules/mint/usecase"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

type createCommitRequest struct {
	OrdinalIds       []int64         `json:"ordinal_ids"`
	MinterAddress    string          `json:"minter_address"`
	PaymentAddress   string          `json:"payment_address"`
	PaymentPubKey    string          `json:"payment_pubkey"`
	FeeRate          decimal.Decimal `json:"fee_rate"`
	ReceivingAddress string          `json:"receiving_wallet"`
}

func (r createCommitRequest) Validate() error {
	var errList []error
	if len(r.OrdinalIds) == 0 {
		errList = append(errList, errors.New("'ordinal_ids' is required"))
	}
	if r.MinterAddress == "" {
		errList = append(errList, errors.New("'minter_address' is required"))
	}
	if r.PaymentAddress == "" {
		errList = append(errList, errors.New("'payment_address' is required"))
	}
	if !r.FeeRate.IsPositive() {
		errList = append(errList, errors.New("'fee_rate' must be positive"))
	}
	return errs.WithPublicMessage(errors.Join(errList...), "validation error")
}

type createCommitResult struct {
	SessionId    uuid.UUID         `json:"sessionId"`
	CommitPSBT   string            `json:"commitPsbt"`
	Session      mintSession       `json:"session"`
	Inscriptions []mintInscription `json:"inscriptions"`
}

type createCommitResponse = HttpResponse[createCommitResult]

func (h *HttpHandler) CreateCommit(ctx *fiber.Ctx) (err error) {
	var req createCommitRequest
	if err := ctx.BodyParser(&req); err != nil {
		return errors.WithStack(err)
	}
	if err := req.Validate(); err != nil {
		return errors.WithStack(err)
	}

	result, err := h.usecase.CreateCommit(ctx.UserContext(), usecase.CreateCommitParams{
		OrdinalIds:       req.OrdinalIds,
		MinterAddress:    req.MinterAddress,
		PaymentAddress:   req.PaymentAddress,
		PaymentPubKey:    req.PaymentPubKey,
		ReceivingAddress: req.ReceivingAddress,
		FeeRate:          req.FeeRate,
	})
	if err != nil {
		if errors.Is(err, errs.NotFound) {
			return errs.NewPublicError("ordinal not found")
		}
		return errors.Wrap(err, "error during CreateCommit")
	}

	resp := createCommitResponse{
		Result: &createCommitResult{
			SessionId:    result.Session.Id,
			CommitPSBT:   result.CommitPSBT,
			Session:      mapMintSessionToResponse(result.Session),
			Inscriptions: lo.Map(result.Inscriptions, func(i *entity.MintInscription, _ int) mintInscription { return mapMintInscriptionToResponse(i) }),
		},
	}
	return errors.WithStack(ctx.JSON(resp))
}
