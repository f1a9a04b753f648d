package usecase

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/ordforge/mint-engine/common/errs"
	"github.com/ordforge/mint-engine/modules/studio/internal/entity"
	"github.com/ordforge/mint-engine/modules/studio/video"
	"github.com/ordforge/mint-engine/pkg/logger"
	"github.com/ordforge/mint-engine/pkg/logger/slogx"
)

// reconcilePromotions polls the video service for processing promotion jobs
// whose completion callback has not arrived. Polling is a fallback: jobs
// younger than the min age are left to the callback, jobs older than the max
// age are no longer polled.
func (u *Usecase) reconcilePromotions(ctx context.Context) PromotionSummary {
	var summary PromotionSummary

	jobs, err := u.studioDg.GetPollablePromotionJobs(ctx, u.now(), u.config.PromotionPollMinAge, u.config.PromotionPollMaxAge, u.config.PromotionPollLimit)
	if err != nil {
		logger.ErrorContext(ctx, "can't get pollable promotion jobs", slogx.Error(err))
		return summary
	}

	for _, job := range jobs {
		summary.Checked++

		status, err := u.video.RecordInfo(ctx, job.ExternalTaskId)
		if err != nil {
			logger.WarnContext(ctx, "can't poll promotion task",
				slogx.Stringer("jobId", job.Id), slogx.String("taskId", job.ExternalTaskId), slogx.Error(err))
			continue
		}

		outcome, refunded, err := u.applyPromotionStatus(ctx, job, status)
		if err != nil {
			logger.WarnContext(ctx, "can't apply promotion task status",
				slogx.Stringer("jobId", job.Id), slogx.Error(err))
			continue
		}
		switch outcome {
		case video.OutcomeSuccess:
			summary.Completed++
		case video.OutcomeFailure:
			summary.Failed++
		}
		if refunded {
			summary.Refunded++
		}
	}
	return summary
}

// HandleVideoCallback applies a completion callback from the video service.
// Callbacks for unknown tasks or already-settled jobs are acknowledged as
// no-ops so the service stops retrying them.
func (u *Usecase) HandleVideoCallback(ctx context.Context, taskId string, status video.TaskStatus) error {
	job, err := u.studioDg.GetPromotionJobByTaskId(ctx, taskId)
	if err != nil {
		if errors.Is(err, errs.NotFound) {
			logger.WarnContext(ctx, "video callback for unknown task", slogx.String("taskId", taskId))
			return nil
		}
		return errors.Wrap(err, "can't get promotion job")
	}
	if job.Status != entity.PromotionJobStatusProcessing {
		return nil
	}

	_, _, err = u.applyPromotionStatus(ctx, job, status)
	return errors.WithStack(err)
}

// applyPromotionStatus moves the job per the interpreted task signal. A
// pending signal is a no-op. A content-policy failure refunds the spent
// credits exactly once before the job fails; the job keeps the service's
// original error message either way.
func (u *Usecase) applyPromotionStatus(ctx context.Context, job *entity.PromotionJob, status video.TaskStatus) (video.Outcome, bool, error) {
	outcome := status.Outcome()
	switch outcome {
	case video.OutcomeSuccess:
		if err := u.studioDg.CompletePromotionJob(ctx, job.Id, status.ResultUrls[0]); err != nil {
			return outcome, false, errors.Wrap(err, "can't complete promotion job")
		}
		logger.InfoContext(ctx, "promotion job completed", slogx.Stringer("jobId", job.Id))
		return outcome, false, nil

	case video.OutcomeFailure:
		var refunded bool
		if status.IsContentPolicyFailure() {
			var err error
			refunded, err = u.studioDg.CreatePromotionRefund(ctx, job.Id, job.WalletAddress, job.CreditsSpent)
			if err != nil {
				// refund is best effort, the job still fails with its own error
				logger.ErrorContext(ctx, "can't refund promotion credits",
					slogx.Stringer("jobId", job.Id), slogx.Error(err))
			} else if refunded {
				logger.InfoContext(ctx, "refunded promotion credits",
					slogx.Stringer("jobId", job.Id), slogx.Int64("amount", job.CreditsSpent))
			}
		}
		if err := u.studioDg.FailPromotionJob(ctx, job.Id, status.ErrorMessage); err != nil {
			return outcome, refunded, errors.Wrap(err, "can't fail promotion job")
		}
		return outcome, refunded, nil

	default:
		return outcome, false, nil
	}
}
