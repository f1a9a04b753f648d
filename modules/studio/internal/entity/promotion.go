package entity

import (
	"time"

	"github.com/google/uuid"
)

type PromotionJobStatus string

const (
	PromotionJobStatusPending    PromotionJobStatus = "pending"
	PromotionJobStatusProcessing PromotionJobStatus = "processing"
	PromotionJobStatusCompleted  PromotionJobStatus = "completed"
	PromotionJobStatusFailed     PromotionJobStatus = "failed"
)

// PromotionJob is a promotional video generation handled by an external
// service. ExternalTaskId is the service-side task handle used by both the
// completion callback and the polling fallback.
type PromotionJob struct {
	Id            uuid.UUID
	WalletAddress string
	OrdinalId     int64
	Status        PromotionJobStatus

	ExternalTaskId string
	CreditsSpent   int64
	VideoURL       string
	ErrorMessage   string

	StartedAt   *time.Time
	CompletedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type CreditTransactionType string

const (
	CreditTransactionTypeSpend  CreditTransactionType = "spend"
	CreditTransactionTypeRefund CreditTransactionType = "refund"
)

// CreditTransaction is a ledger row of credits spent on or refunded for a
// promotion job.
type CreditTransaction struct {
	Id             int64
	WalletAddress  string
	PromotionJobId uuid.UUID
	Type           CreditTransactionType
	Amount         int64
	CreatedAt      time.Time
}
