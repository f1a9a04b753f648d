package httphandler

import (
	"github.com/cockroachdb/errors"
	"github.com/gofiber/fiber/v2"
	"github.com/ordforge/mint-engine/common/errs"
	"github.com/ordforge/mint-engine/modules/mint/inscribe"
	"github.com/ordforge/mint-engine/modules/mint/internal/entity"
	"github.com/ordforge/mint-engine/modules/mint/usecase"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

type estimateCostPayload struct {
	ContentType string `json:"content_type"`
	SizeBytes   int64  `json:"size_bytes"`
}

type estimateCostRequest struct {
	OrdinalIds     []int64               `json:"ordinal_ids"`
	Payloads       []estimateCostPayload `json:"payloads"`
	FeeRate        decimal.Decimal       `json:"fee_rate"`
	PaymentAddress string                `json:"payment_address"`
	InputCount     int                   `json:"input_count"`
}

func (r estimateCostRequest) Validate() error {
	var errList []error
	if len(r.OrdinalIds) == 0 && len(r.Payloads) == 0 {
		errList = append(errList, errors.New("one of 'ordinal_ids', 'payloads' is required"))
	}
	if !r.FeeRate.IsPositive() {
		errList = append(errList, errors.New("'fee_rate' must be positive"))
	}
	return errs.WithPublicMessage(errors.Join(errList...), "validation error")
}

type estimateCostResponse = HttpResponse[entity.CostEstimate]

func (h *HttpHandler) EstimateCost(ctx *fiber.Ctx) (err error) {
	var req estimateCostRequest
	if err := ctx.BodyParser(&req); err != nil {
		return errors.WithStack(err)
	}
	if err := req.Validate(); err != nil {
		return errors.WithStack(err)
	}

	estimate, err := h.usecase.EstimateCost(ctx.UserContext(), usecase.EstimateCostParams{
		OrdinalIds: req.OrdinalIds,
		Items: lo.Map(req.Payloads, func(p estimateCostPayload, _ int) inscribe.ItemSpec {
			return inscribe.ItemSpec{ContentType: p.ContentType, PayloadSize: p.SizeBytes}
		}),
		FeeRate:        req.FeeRate,
		PaymentAddress: req.PaymentAddress,
		InputCount:     req.InputCount,
	})
	if err != nil {
		if errors.Is(err, errs.NotFound) {
			return errs.NewPublicError("ordinal not found")
		}
		return errors.Wrap(err, "error during EstimateCost")
	}

	resp := estimateCostResponse{Result: &estimate}
	return errors.WithStack(ctx.JSON(resp))
}
