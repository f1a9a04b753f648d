package datagateway

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/ordforge/mint-engine/modules/studio/internal/entity"
)

type StudioDataGateway interface {
	StudioReaderDataGateway
	StudioWriterDataGateway

	// BeginStudioTx returns a new StudioDataGateway with transaction enabled. All write operations performed in this datagateway must be committed to persist changes.
	BeginStudioTx(ctx context.Context) (StudioDataGatewayWithTx, error)
}

type StudioDataGatewayWithTx interface {
	StudioDataGateway
	Tx
}

type StudioReaderDataGateway interface {
	// GetStuckGenerationJobs returns processing jobs started before the cutoff.
	GetStuckGenerationJobs(ctx context.Context, startedBefore time.Time, limit int32) ([]*entity.GenerationJob, error)
	// GetCollectionIdsWithPendingJobs returns collection ids ordered by their
	// oldest pending job, oldest first.
	GetCollectionIdsWithPendingJobs(ctx context.Context, limit int32) ([]int64, error)
	// GetPendingGenerationJobs returns a collection's pending jobs, oldest first.
	GetPendingGenerationJobs(ctx context.Context, collectionId int64, limit int32) ([]*entity.GenerationJob, error)
	// GetGenerationJob returns one job. Returns errs.NotFound if it does not exist.
	GetGenerationJob(ctx context.Context, id uuid.UUID) (*entity.GenerationJob, error)
	// GetCollection returns the collection. Returns errs.NotFound if it does not exist.
	GetCollection(ctx context.Context, id int64) (*entity.Collection, error)
	GetTraitsByCollectionId(ctx context.Context, collectionId int64) ([]entity.Trait, error)

	// GetPollablePromotionJobs returns processing promotion jobs with an
	// external task id whose age falls inside [minAge, maxAge].
	GetPollablePromotionJobs(ctx context.Context, now time.Time, minAge, maxAge time.Duration, limit int32) ([]*entity.PromotionJob, error)
	// GetPromotionJobByTaskId returns the job owning the external task id.
	// Returns errs.NotFound if no job stored that task id.
	GetPromotionJobByTaskId(ctx context.Context, taskId string) (*entity.PromotionJob, error)
}

type StudioWriterDataGateway interface {
	// ClaimGenerationJob atomically moves a pending job to processing.
	// Returns false when another worker won the claim.
	ClaimGenerationJob(ctx context.Context, id uuid.UUID, now time.Time) (bool, error)
	// CompleteGenerationJob records artifacts and marks the job completed.
	CompleteGenerationJob(ctx context.Context, job *entity.GenerationJob) error
	// FailGenerationJob marks the job failed with the message.
	FailGenerationJob(ctx context.Context, id uuid.UUID, errorMessage string) error
	// CreateGenerationError appends a structured failure record for the job.
	CreateGenerationError(ctx context.Context, generationError *entity.GenerationError) error
	// SetOrdinalArtifact points the ordinal at its generated payload.
	SetOrdinalArtifact(ctx context.Context, ordinalId int64, artifactKey string, contentType string, payloadSize int64) error

	// CompletePromotionJob marks the job completed with its video URL.
	CompletePromotionJob(ctx context.Context, id uuid.UUID, videoURL string) error
	// FailPromotionJob marks the job failed with the message.
	FailPromotionJob(ctx context.Context, id uuid.UUID, errorMessage string) error
	// CreatePromotionRefund inserts the refund ledger row for the job.
	// Returns false without error when a refund was already recorded, so
	// refunds stay exactly-once under concurrent reconciler passes.
	CreatePromotionRefund(ctx context.Context, jobId uuid.UUID, walletAddress string, amount int64) (bool, error)
}
