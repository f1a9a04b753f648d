package postgres

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/ordforge/mint-engine/common/errs"
	"github.com/ordforge/mint-engine/modules/studio/internal/entity"
)

const selectPromotionJob = `
SELECT id, wallet_address, ordinal_id, status, external_task_id, credits_spent, video_url, error_message, started_at, completed_at, created_at, updated_at
FROM promotion_jobs
`

func scanPromotionJob(row pgx.Row) (*entity.PromotionJob, error) {
	var model promotionJobModel
	err := row.Scan(
		&model.Id, &model.WalletAddress, &model.OrdinalId, &model.Status, &model.ExternalTaskId,
		&model.CreditsSpent, &model.VideoUrl, &model.ErrorMessage,
		&model.StartedAt, &model.CompletedAt, &model.CreatedAt, &model.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.WithStack(errs.NotFound)
		}
		return nil, errors.Wrap(err, "error during query")
	}
	return mapPromotionJobModelToType(model), nil
}

func (r *Repository) GetPollablePromotionJobs(ctx context.Context, now time.Time, minAge, maxAge time.Duration, limit int32) ([]*entity.PromotionJob, error) {
	rows, err := r.conn().Query(ctx,
		selectPromotionJob+`
WHERE status = $1
  AND external_task_id != ''
  AND started_at <= $2
  AND started_at >= $3
ORDER BY started_at
LIMIT $4`,
		string(entity.PromotionJobStatusProcessing),
		pgFromTime(now.Add(-minAge)), pgFromTime(now.Add(-maxAge)), limit,
	)
	if err != nil {
		return nil, errors.Wrap(err, "error during query")
	}
	defer rows.Close()

	var jobs []*entity.PromotionJob
	for rows.Next() {
		job, err := scanPromotionJob(rows)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		jobs = append(jobs, job)
	}
	return jobs, errors.Wrap(rows.Err(), "error during row iteration")
}

func (r *Repository) GetPromotionJobByTaskId(ctx context.Context, taskId string) (*entity.PromotionJob, error) {
	row := r.conn().QueryRow(ctx, selectPromotionJob+`WHERE external_task_id = $1`, taskId)
	job, err := scanPromotionJob(row)
	return job, errors.WithStack(err)
}

func (r *Repository) CompletePromotionJob(ctx context.Context, id uuid.UUID, videoURL string) error {
	tag, err := r.conn().Exec(ctx, `
UPDATE promotion_jobs
SET status = $2, video_url = $3, completed_at = now(), updated_at = now()
WHERE id = $1`,
		pgFromUUID(id), string(entity.PromotionJobStatusCompleted), videoURL,
	)
	if err != nil {
		return errors.Wrap(err, "error during exec")
	}
	if tag.RowsAffected() == 0 {
		return errors.WithStack(errs.NotFound)
	}
	return nil
}

func (r *Repository) FailPromotionJob(ctx context.Context, id uuid.UUID, errorMessage string) error {
	tag, err := r.conn().Exec(ctx, `
UPDATE promotion_jobs
SET status = $2, error_message = $3, updated_at = now()
WHERE id = $1`,
		pgFromUUID(id), string(entity.PromotionJobStatusFailed), errorMessage,
	)
	if err != nil {
		return errors.Wrap(err, "error during exec")
	}
	if tag.RowsAffected() == 0 {
		return errors.WithStack(errs.NotFound)
	}
	return nil
}

// CreatePromotionRefund stays exactly-once through the partial unique index
// on (promotion_job_id) WHERE type = 'refund'.
func (r *Repository) CreatePromotionRefund(ctx context.Context, jobId uuid.UUID, walletAddress string, amount int64) (bool, error) {
	tag, err := r.conn().Exec(ctx, `
INSERT INTO credit_transactions (wallet_address, promotion_job_id, type, amount, created_at)
VALUES ($1, $2, $3, $4, now())
ON CONFLICT DO NOTHING`,
		walletAddress, pgFromUUID(jobId), string(entity.CreditTransactionTypeRefund), amount,
	)
	if err != nil {
		return false, errors.Wrap(err, "error during exec")
	}
	return tag.RowsAffected() > 0, nil
}
