package usecase

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/ordforge/mint-engine/modules/studio/generation"
	"github.com/ordforge/mint-engine/modules/studio/internal/entity"
	"github.com/ordforge/mint-engine/modules/studio/internal/imaging"
	"github.com/ordforge/mint-engine/modules/studio/internal/traits"
	"github.com/ordforge/mint-engine/pkg/logger"
	"github.com/ordforge/mint-engine/pkg/logger/slogx"
	"golang.org/x/sync/errgroup"
)

const stuckJobReclaimLimit = 100

type PromotionSummary struct {
	Checked   int `json:"checked"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Refunded  int `json:"refunded"`
}

type ProcessSummary struct {
	Processed        int              `json:"processed"`
	Successful       int              `json:"successful"`
	Failed           int              `json:"failed"`
	StuckJobsCleaned int              `json:"stuckJobsCleaned"`
	Promotion        PromotionSummary `json:"promotion"`
}

// ProcessJobs runs one pass of the generation pipeline: reclaim stuck jobs,
// schedule pending jobs fairly across collections, process them concurrently
// with per-job failure isolation, then reconcile in-flight promotion jobs.
// The pass is stateless; overlapping invocations coordinate only through the
// atomic job claim.
func (u *Usecase) ProcessJobs(ctx context.Context) (*ProcessSummary, error) {
	summary := &ProcessSummary{}

	cleaned, err := u.reclaimStuckJobs(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "can't reclaim stuck jobs")
	}
	summary.StuckJobsCleaned = cleaned

	batches, err := u.scheduleBatches(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "can't schedule pending jobs")
	}

	// every selected job goes out at once, collections don't queue behind
	// each other
	type batchTally struct{ succeeded, failed int }
	tallies := make([]batchTally, len(batches))
	var group errgroup.Group
	for i, batch := range batches {
		i, batch := i, batch
		group.Go(func() error {
			succeeded, failed := u.processBatch(ctx, batch)
			tallies[i] = batchTally{succeeded: succeeded, failed: failed}
			return nil
		})
	}
	_ = group.Wait()

	for _, tally := range tallies {
		summary.Processed += tally.succeeded + tally.failed
		summary.Successful += tally.succeeded
		summary.Failed += tally.failed
	}

	summary.Promotion = u.reconcilePromotions(ctx)
	return summary, nil
}

func (u *Usecase) reclaimStuckJobs(ctx context.Context) (int, error) {
	cutoff := u.now().Add(-u.config.StuckJobTimeout)
	stuck, err := u.studioDg.GetStuckGenerationJobs(ctx, cutoff, stuckJobReclaimLimit)
	if err != nil {
		return 0, errors.Wrap(err, "can't get stuck jobs")
	}

	var cleaned int
	for _, job := range stuck {
		message := fmt.Sprintf("job timed out after %s", u.config.StuckJobTimeout)
		u.recordJobFailure(ctx, job.Id, entity.GenerationErrorStageTimeout, message)
		cleaned++
	}
	if cleaned > 0 {
		logger.InfoContext(ctx, "reclaimed stuck generation jobs", slogx.Int("count", cleaned))
	}
	return cleaned, nil
}

// jobBatch is one collection's share of the pass, with the collection data
// loaded once for all of its jobs.
type jobBatch struct {
	collection *entity.Collection
	traitPool  []entity.Trait
	jobs       []*entity.GenerationJob
}

func (u *Usecase) scheduleBatches(ctx context.Context) ([]jobBatch, error) {
	collectionIds, err := u.studioDg.GetCollectionIdsWithPendingJobs(ctx, u.config.MaxCollectionsPerPass)
	if err != nil {
		return nil, errors.Wrap(err, "can't get collections with pending jobs")
	}

	batches := make([]jobBatch, 0, len(collectionIds))
	for _, collectionId := range collectionIds {
		jobs, err := u.studioDg.GetPendingGenerationJobs(ctx, collectionId, u.config.MaxJobsPerCollection)
		if err != nil {
			return nil, errors.Wrapf(err, "can't get pending jobs of collection %d", collectionId)
		}
		if len(jobs) == 0 {
			continue
		}
		collection, err := u.studioDg.GetCollection(ctx, collectionId)
		if err != nil {
			return nil, errors.Wrapf(err, "can't get collection %d", collectionId)
		}
		traitPool, err := u.studioDg.GetTraitsByCollectionId(ctx, collectionId)
		if err != nil {
			return nil, errors.Wrapf(err, "can't get traits of collection %d", collectionId)
		}
		batches = append(batches, jobBatch{collection: collection, traitPool: traitPool, jobs: jobs})
	}
	return batches, nil
}

var errClaimLost = errors.New("job claimed by another worker")

// processBatch fans the batch out and waits for every job. A job's failure is
// recorded against that job only and never aborts its siblings.
func (u *Usecase) processBatch(ctx context.Context, batch jobBatch) (succeeded, failed int) {
	results := make([]error, len(batch.jobs))

	var group errgroup.Group
	for i, job := range batch.jobs {
		i, job := i, job
		group.Go(func() error {
			results[i] = u.processJob(ctx, batch, job)
			return nil
		})
	}
	_ = group.Wait()

	for i, err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, errClaimLost):
			// not ours, another pass is on it
		default:
			failed++
			logger.WarnContext(ctx, "generation job failed",
				slogx.Stringer("jobId", batch.jobs[i].Id), slogx.Error(err))
		}
	}
	return succeeded, failed
}

func (u *Usecase) processJob(ctx context.Context, batch jobBatch, job *entity.GenerationJob) error {
	claimed, err := u.studioDg.ClaimGenerationJob(ctx, job.Id, u.now())
	if err != nil {
		return errors.Wrap(err, "can't claim job")
	}
	if !claimed {
		return errors.WithStack(errClaimLost)
	}

	assignment, err := traits.Resolve(batch.traitPool, job.TraitOverrides, batch.collection.RotationTraitType, job.OrdinalNumber, u.newRand())
	if err != nil {
		u.recordJobFailure(ctx, job.Id, entity.GenerationErrorStageTraits, err.Error())
		return errors.Wrap(err, "can't resolve traits")
	}
	prompt := traits.BuildPrompt(*batch.collection, assignment)

	result, err := u.generator.GenerateImage(ctx, prompt, batch.collection.NegativePrompt)
	if err != nil {
		var policyErr *generation.ContentPolicyError
		if errors.As(err, &policyErr) {
			return u.completeWithPlaceholder(ctx, job, prompt, policyErr)
		}
		stage := entity.GenerationErrorStageAPI
		if errors.Is(err, context.DeadlineExceeded) {
			stage = entity.GenerationErrorStageTimeout
		}
		u.recordJobFailure(ctx, job.Id, stage, err.Error())
		return errors.Wrap(err, "can't generate image")
	}

	rawImage, err := u.fetchResultImage(ctx, job.Id, result)
	if err != nil {
		return errors.WithStack(err)
	}

	img, _, err := imaging.Decode(rawImage)
	if err != nil {
		u.recordJobFailure(ctx, job.Id, entity.GenerationErrorStageDecode, err.Error())
		return errors.Wrap(err, "can't decode image")
	}
	compressed, err := imaging.CompressJPEG(img, u.config.ImageTargetBytes)
	if err != nil {
		u.recordJobFailure(ctx, job.Id, entity.GenerationErrorStageCompress, err.Error())
		return errors.Wrap(err, "can't compress image")
	}
	thumbnail, err := imaging.CompressJPEG(imaging.Thumbnail(img, u.config.ThumbnailMaxDim), u.config.ImageTargetBytes)
	if err != nil {
		u.recordJobFailure(ctx, job.Id, entity.GenerationErrorStageThumbnail, err.Error())
		return errors.Wrap(err, "can't build thumbnail")
	}

	return u.storeArtifacts(ctx, job, prompt, artifactSet{
		image:       compressed,
		contentType: "image/jpeg",
		extension:   "jpg",
		thumbnail:   thumbnail,
		violation:   false,
	})
}

// completeWithPlaceholder substitutes the deterministic placeholder for a
// content-policy refusal. The job completes flagged instead of failing, but
// the refusal still lands in the error log for operators.
func (u *Usecase) completeWithPlaceholder(ctx context.Context, job *entity.GenerationJob, prompt string, policyErr *generation.ContentPolicyError) error {
	u.recordGenerationError(ctx, job.Id, entity.GenerationErrorStageContentViolation, policyErr.Message)

	placeholder, err := imaging.PlaceholderPNG()
	if err != nil {
		u.recordJobFailure(ctx, job.Id, entity.GenerationErrorStageCompress, err.Error())
		return errors.Wrap(err, "can't render placeholder")
	}
	return u.storeArtifacts(ctx, job, prompt, artifactSet{
		image:       placeholder,
		contentType: "image/png",
		extension:   "png",
		thumbnail:   placeholder,
		violation:   true,
	})
}

func (u *Usecase) fetchResultImage(ctx context.Context, jobId uuid.UUID, result *generation.Result) ([]byte, error) {
	if result.ImageBase64 != "" {
		rawImage, err := base64.StdEncoding.DecodeString(result.ImageBase64)
		if err != nil {
			u.recordJobFailure(ctx, jobId, entity.GenerationErrorStageDecode, err.Error())
			return nil, errors.Wrap(err, "can't decode inline image")
		}
		return rawImage, nil
	}
	if result.ImageURL == "" {
		err := errors.New("generation result carries neither url nor inline image")
		u.recordJobFailure(ctx, jobId, entity.GenerationErrorStageAPI, err.Error())
		return nil, err
	}
	rawImage, err := u.generator.FetchImage(ctx, result.ImageURL)
	if err != nil {
		u.recordJobFailure(ctx, jobId, entity.GenerationErrorStageFetch, err.Error())
		return nil, errors.Wrap(err, "can't fetch result image")
	}
	return rawImage, nil
}

type artifactSet struct {
	image       []byte
	contentType string
	extension   string
	thumbnail   []byte
	violation   bool
}

func (u *Usecase) storeArtifacts(ctx context.Context, job *entity.GenerationJob, prompt string, artifacts artifactSet) error {
	imageKey := fmt.Sprintf("collections/%d/ordinals/%d/image.%s", job.CollectionId, job.OrdinalNumber, artifacts.extension)
	thumbnailKey := fmt.Sprintf("collections/%d/ordinals/%d/thumbnail.%s", job.CollectionId, job.OrdinalNumber, artifacts.extension)

	imageURL, err := u.artifacts.Put(ctx, imageKey, artifacts.contentType, artifacts.image)
	if err != nil {
		u.recordJobFailure(ctx, job.Id, entity.GenerationErrorStageUpload, err.Error())
		return errors.Wrap(err, "can't upload image")
	}
	thumbnailURL, err := u.artifacts.Put(ctx, thumbnailKey, artifacts.contentType, artifacts.thumbnail)
	if err != nil {
		u.recordJobFailure(ctx, job.Id, entity.GenerationErrorStageUpload, err.Error())
		return errors.Wrap(err, "can't upload thumbnail")
	}
	if err := u.studioDg.SetOrdinalArtifact(ctx, job.OrdinalId, imageKey, artifacts.contentType, int64(len(artifacts.image))); err != nil {
		u.recordJobFailure(ctx, job.Id, entity.GenerationErrorStageUpload, err.Error())
		return errors.Wrap(err, "can't record ordinal artifact")
	}

	completedAt := u.now()
	completed := *job
	completed.Prompt = prompt
	completed.ImageURL = imageURL
	completed.ThumbnailURL = thumbnailURL
	completed.ContentViolation = artifacts.violation
	completed.CompletedAt = &completedAt
	if err := u.studioDg.CompleteGenerationJob(ctx, &completed); err != nil {
		return errors.Wrap(err, "can't complete job")
	}

	logger.InfoContext(ctx, "generation job completed",
		slogx.Stringer("jobId", job.Id),
		slogx.Int64("ordinalNumber", job.OrdinalNumber),
		slogx.Bool("contentViolation", artifacts.violation),
	)
	return nil
}

// recordJobFailure writes the structured error row first, then flips the job
// to failed. The row must land before the transition so operators always see
// what broke, even if the status update races another pass.
func (u *Usecase) recordJobFailure(ctx context.Context, jobId uuid.UUID, stage entity.GenerationErrorStage, message string) {
	u.recordGenerationError(ctx, jobId, stage, message)
	if err := u.studioDg.FailGenerationJob(ctx, jobId, message); err != nil {
		logger.ErrorContext(ctx, "can't mark generation job failed",
			slogx.Stringer("jobId", jobId), slogx.Error(err))
	}
}

func (u *Usecase) recordGenerationError(ctx context.Context, jobId uuid.UUID, stage entity.GenerationErrorStage, message string) {
	err := u.studioDg.CreateGenerationError(ctx, &entity.GenerationError{
		JobId:   jobId,
		Stage:   stage,
		Message: message,
	})
	if err != nil {
		logger.ErrorContext(ctx, "can't record generation error",
			slogx.Stringer("jobId", jobId), slogx.String("stage", string(stage)), slogx.Error(err))
	}
}
