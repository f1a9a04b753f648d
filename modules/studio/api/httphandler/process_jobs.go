package httphandler

import (
	"github.com/cockroachdb/errors"
	"github.com/gofiber/fiber/v2"
	"github.com/ordforge/mint-engine/pkg/logger"
	"github.com/ordforge/mint-engine/pkg/logger/slogx"
)

type promotionSummary struct {
	Checked   int `json:"checked"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Refunded  int `json:"refunded"`
}

type processJobsResult struct {
	Processed        int              `json:"processed"`
	Successful       int              `json:"successful"`
	Failed           int              `json:"failed"`
	StuckJobsCleaned int              `json:"stuckJobsCleaned"`
	Promotion        promotionSummary `json:"promotion"`
}

type processJobsResponse = HttpResponse[processJobsResult]

func (h *HttpHandler) ProcessJobs(ctx *fiber.Ctx) (err error) {
	summary, err := h.usecase.ProcessJobs(ctx.UserContext())
	if err != nil {
		return errors.Wrap(err, "error during ProcessJobs")
	}

	// piggyback the session-expiry janitor on the same schedule
	expired, err := h.sessions.ExpireSessions(ctx.UserContext())
	if err != nil {
		logger.ErrorContext(ctx.UserContext(), "can't expire mint sessions", slogx.Error(err))
	} else if expired > 0 {
		logger.InfoContext(ctx.UserContext(), "released expired mint sessions", slogx.Int("count", expired))
	}

	resp := processJobsResponse{
		Result: &processJobsResult{
			Processed:        summary.Processed,
			Successful:       summary.Successful,
			Failed:           summary.Failed,
			StuckJobsCleaned: summary.StuckJobsCleaned,
			Promotion: promotionSummary{
				Checked:   summary.Promotion.Checked,
				Completed: summary.Promotion.Completed,
				Failed:    summary.Promotion.Failed,
				Refunded:  summary.Promotion.Refunded,
			},
		},
	}
	return errors.WithStack(ctx.JSON(resp))
}
