package httphandler

import (
	"context"

	"github.com/ordforge/mint-engine/common"
	"github.com/ordforge/mint-engine/modules/studio/usecase"
)

// SessionJanitor expires abandoned mint sessions. The cron pass runs it
// alongside the job processor so reserved UTXOs are released on schedule.
type SessionJanitor interface {
	ExpireSessions(ctx context.Context) (int, error)
}

type Config struct {
	Network common.Network

	// CronSecret authenticates scheduler GET invocations.
	CronSecret string

	// AdminWalletAddress is the wallet allowed to trigger a pass manually
	// via a signed message.
	AdminWalletAddress string

	// VideoCallbackToken authenticates completion callbacks from the video
	// service.
	VideoCallbackToken string
}

type HttpHandler struct {
	usecase  *usecase.Usecase
	sessions SessionJanitor
	config   Config
}

func New(config Config, usecase *usecase.Usecase, sessions SessionJanitor) *HttpHandler {
	return &HttpHandler{
		usecase:  usecase,
		sessions: sessions,
		config:   config,
	}
}

type HttpResponse[T any] struct {
	Error  *string `json:"error"`
	Result *T      `json:"result,omitempty"`
}
