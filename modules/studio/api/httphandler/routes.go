package httphandler

import (
	"github.com/gofiber/fiber/v2"
)

func (h *HttpHandler) Mount(router fiber.Router) error {
	cron := router.Group("/v1/cron")
	cron.Get("/process-jobs", h.requireCronSecret, h.ProcessJobs)
	cron.Post("/process-jobs", h.requireCronSecretOrAdminSignature, h.ProcessJobs)

	router.Post("/v1/callbacks/video", h.requireCallbackToken, h.VideoCallback)
	return nil
}
