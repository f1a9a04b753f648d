package usecase

import (
	"context"
	"math/rand"
	"time"

	"github.com/ordforge/mint-engine/modules/studio/datagateway"
	"github.com/ordforge/mint-engine/modules/studio/generation"
	"github.com/ordforge/mint-engine/modules/studio/video"
)

// ImageGenerator is the subset of the image-generation client the job
// processor uses.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt, negativePrompt string) (*generation.Result, error)
	FetchImage(ctx context.Context, imageURL string) ([]byte, error)
}

// VideoStatusGateway polls the external video service for task completion.
type VideoStatusGateway interface {
	RecordInfo(ctx context.Context, taskId string) (video.TaskStatus, error)
}

// ArtifactStore uploads generated artifacts and returns their public URL.
type ArtifactStore interface {
	Put(ctx context.Context, key string, contentType string, data []byte) (string, error)
}

type Config struct {
	// StuckJobTimeout is how long a processing job may run before a later
	// pass reclaims it as timed out.
	StuckJobTimeout time.Duration

	// MaxCollectionsPerPass and MaxJobsPerCollection cap one pass so a large
	// collection cannot starve the others.
	MaxCollectionsPerPass int32
	MaxJobsPerCollection  int32

	// ImageTargetBytes bounds the compressed inscription image.
	ImageTargetBytes int
	ThumbnailMaxDim  int

	// PromotionPollMinAge/PromotionPollMaxAge bound which processing
	// promotion jobs are polled: too young and the callback will likely
	// arrive on its own, too old and the task is considered lost.
	PromotionPollMinAge time.Duration
	PromotionPollMaxAge time.Duration
	PromotionPollLimit  int32
}

type Usecase struct {
	studioDg  datagateway.StudioDataGateway
	generator ImageGenerator
	video     VideoStatusGateway
	artifacts ArtifactStore
	config    Config

	now     func() time.Time
	newRand func() *rand.Rand
}

func New(studioDg datagateway.StudioDataGateway, generator ImageGenerator, videoGateway VideoStatusGateway, artifacts ArtifactStore, config Config) *Usecase {
	if config.StuckJobTimeout <= 0 {
		config.StuckJobTimeout = 5 * time.Minute
	}
	if config.MaxCollectionsPerPass <= 0 {
		config.MaxCollectionsPerPass = 50
	}
	if config.MaxJobsPerCollection <= 0 {
		config.MaxJobsPerCollection = 20
	}
	if config.ImageTargetBytes <= 0 {
		config.ImageTargetBytes = 350_000
	}
	if config.ThumbnailMaxDim <= 0 {
		config.ThumbnailMaxDim = 256
	}
	if config.PromotionPollMinAge <= 0 {
		config.PromotionPollMinAge = 30 * time.Second
	}
	if config.PromotionPollMaxAge <= 0 {
		config.PromotionPollMaxAge = 30 * time.Minute
	}
	if config.PromotionPollLimit <= 0 {
		config.PromotionPollLimit = 10
	}
	return &Usecase{
		studioDg:  studioDg,
		generator: generator,
		video:     videoGateway,
		artifacts: artifacts,
		config:    config,
		now:       time.Now,
		newRand: func() *rand.Rand {
			return rand.New(rand.NewSource(time.Now().UnixNano()))
		},
	}
}
