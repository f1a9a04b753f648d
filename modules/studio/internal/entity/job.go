package entity

import (
	"time"

	"github.com/google/uuid"
)

type GenerationJobStatus string

const (
	GenerationJobStatusPending    GenerationJobStatus = "pending"
	GenerationJobStatusProcessing GenerationJobStatus = "processing"
	GenerationJobStatusCompleted  GenerationJobStatus = "completed"
	GenerationJobStatusFailed     GenerationJobStatus = "failed"
)

// GenerationJob is one queued image generation for an ordinal of a
// collection. Workers claim it with an atomic pending->processing update.
type GenerationJob struct {
	Id            uuid.UUID
	CollectionId  int64
	OrdinalId     int64
	OrdinalNumber int64
	Status        GenerationJobStatus

	// TraitOverrides pins trait values by trait type, bypassing weighted
	// random selection.
	TraitOverrides map[string]string

	Prompt           string
	ImageURL         string
	ThumbnailURL     string
	ContentViolation bool
	ErrorMessage     string

	StartedAt   *time.Time
	CompletedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// GenerationErrorStage identifies which step of the pipeline failed.
type GenerationErrorStage string

const (
	GenerationErrorStageTimeout          GenerationErrorStage = "timeout"
	GenerationErrorStageAPI              GenerationErrorStage = "api"
	GenerationErrorStageFetch            GenerationErrorStage = "fetch"
	GenerationErrorStageDecode           GenerationErrorStage = "decode"
	GenerationErrorStageContentViolation GenerationErrorStage = "content_violation"
	GenerationErrorStageCompress         GenerationErrorStage = "compress"
	GenerationErrorStageThumbnail        GenerationErrorStage = "thumbnail"
	GenerationErrorStageUpload           GenerationErrorStage = "upload"
	GenerationErrorStageTraits           GenerationErrorStage = "traits"
)

// GenerationError is a structured failure record written before a job is
// marked failed. One job can accumulate several across retries.
type GenerationError struct {
	Id        int64
	JobId     uuid.UUID
	Stage     GenerationErrorStage
	Message   string
	CreatedAt time.Time
}
