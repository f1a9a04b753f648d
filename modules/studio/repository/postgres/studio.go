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

const selectGenerationJob = `
SELECT id, collection_id, ordinal_id, ordinal_number, status, trait_overrides, prompt, image_url, thumbnail_url, content_violation, error_message, started_at, completed_at, created_at, updated_at
FROM generation_jobs
`

func scanGenerationJob(row pgx.Row) (*entity.GenerationJob, error) {
	var model generationJobModel
	err := row.Scan(
		&model.Id, &model.CollectionId, &model.OrdinalId, &model.OrdinalNumber, &model.Status,
		&model.TraitOverrides, &model.Prompt, &model.ImageUrl, &model.ThumbnailUrl,
		&model.ContentViolation, &model.ErrorMessage,
		&model.StartedAt, &model.CompletedAt, &model.CreatedAt, &model.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.WithStack(errs.NotFound)
		}
		return nil, errors.Wrap(err, "error during query")
	}
	job, err := mapGenerationJobModelToType(model)
	return job, errors.WithStack(err)
}

func (r *Repository) scanGenerationJobs(rows pgx.Rows) ([]*entity.GenerationJob, error) {
	defer rows.Close()
	var jobs []*entity.GenerationJob
	for rows.Next() {
		job, err := scanGenerationJob(rows)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		jobs = append(jobs, job)
	}
	return jobs, errors.Wrap(rows.Err(), "error during row iteration")
}

func (r *Repository) GetGenerationJob(ctx context.Context, id uuid.UUID) (*entity.GenerationJob, error) {
	row := r.conn().QueryRow(ctx, selectGenerationJob+`WHERE id = $1`, pgFromUUID(id))
	job, err := scanGenerationJob(row)
	return job, errors.WithStack(err)
}

func (r *Repository) GetStuckGenerationJobs(ctx context.Context, startedBefore time.Time, limit int32) ([]*entity.GenerationJob, error) {
	rows, err := r.conn().Query(ctx,
		selectGenerationJob+`WHERE status = $1 AND started_at < $2 ORDER BY started_at LIMIT $3`,
		string(entity.GenerationJobStatusProcessing), pgFromTime(startedBefore), limit,
	)
	if err != nil {
		return nil, errors.Wrap(err, "error during query")
	}
	return r.scanGenerationJobs(rows)
}

func (r *Repository) GetCollectionIdsWithPendingJobs(ctx context.Context, limit int32) ([]int64, error) {
	rows, err := r.conn().Query(ctx, `
SELECT collection_id
FROM generation_jobs
WHERE status = $1
GROUP BY collection_id
ORDER BY min(created_at)
LIMIT $2`,
		string(entity.GenerationJobStatusPending), limit,
	)
	if err != nil {
		return nil, errors.Wrap(err, "error during query")
	}
	defer rows.Close()

	var collectionIds []int64
	for rows.Next() {
		var collectionId int64
		if err := rows.Scan(&collectionId); err != nil {
			return nil, errors.Wrap(err, "error during scan")
		}
		collectionIds = append(collectionIds, collectionId)
	}
	return collectionIds, errors.Wrap(rows.Err(), "error during row iteration")
}

func (r *Repository) GetPendingGenerationJobs(ctx context.Context, collectionId int64, limit int32) ([]*entity.GenerationJob, error) {
	rows, err := r.conn().Query(ctx,
		selectGenerationJob+`WHERE status = $1 AND collection_id = $2 ORDER BY created_at LIMIT $3`,
		string(entity.GenerationJobStatusPending), collectionId, limit,
	)
	if err != nil {
		return nil, errors.Wrap(err, "error during query")
	}
	return r.scanGenerationJobs(rows)
}

// ClaimGenerationJob relies on the conditional UPDATE being atomic: under
// concurrent claims exactly one matches the pending predicate.
func (r *Repository) ClaimGenerationJob(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	tag, err := r.conn().Exec(ctx, `
UPDATE generation_jobs
SET status = $2, started_at = $3, updated_at = $3
WHERE id = $1 AND status = $4`,
		pgFromUUID(id), string(entity.GenerationJobStatusProcessing), pgFromTime(now), string(entity.GenerationJobStatusPending),
	)
	if err != nil {
		return false, errors.Wrap(err, "error during exec")
	}
	return tag.RowsAffected() > 0, nil
}

func (r *Repository) CompleteGenerationJob(ctx context.Context, job *entity.GenerationJob) error {
	tag, err := r.conn().Exec(ctx, `
UPDATE generation_jobs
SET status = $2, prompt = $3, image_url = $4, thumbnail_url = $5, content_violation = $6, error_message = '', completed_at = $7, updated_at = now()
WHERE id = $1`,
		pgFromUUID(job.Id), string(entity.GenerationJobStatusCompleted), job.Prompt,
		job.ImageURL, job.ThumbnailURL, job.ContentViolation, pgFromTimePtr(job.CompletedAt),
	)
	if err != nil {
		return errors.Wrap(err, "error during exec")
	}
	if tag.RowsAffected() == 0 {
		return errors.WithStack(errs.NotFound)
	}
	return nil
}

func (r *Repository) FailGenerationJob(ctx context.Context, id uuid.UUID, errorMessage string) error {
	tag, err := r.conn().Exec(ctx, `
UPDATE generation_jobs
SET status = $2, error_message = $3, updated_at = now()
WHERE id = $1`,
		pgFromUUID(id), string(entity.GenerationJobStatusFailed), errorMessage,
	)
	if err != nil {
		return errors.Wrap(err, "error during exec")
	}
	if tag.RowsAffected() == 0 {
		return errors.WithStack(errs.NotFound)
	}
	return nil
}

func (r *Repository) CreateGenerationError(ctx context.Context, generationError *entity.GenerationError) error {
	_, err := r.conn().Exec(ctx, `
INSERT INTO generation_errors (job_id, stage, message, created_at)
VALUES ($1, $2, $3, now())`,
		pgFromUUID(generationError.JobId), string(generationError.Stage), generationError.Message,
	)
	return errors.Wrap(err, "error during exec")
}

func (r *Repository) SetOrdinalArtifact(ctx context.Context, ordinalId int64, artifactKey string, contentType string, payloadSize int64) error {
	tag, err := r.conn().Exec(ctx, `
UPDATE ordinals
SET artifact_key = $2, content_type = $3, payload_size = $4
WHERE id = $1`,
		ordinalId, artifactKey, contentType, payloadSize,
	)
	if err != nil {
		return errors.Wrap(err, "error during exec")
	}
	if tag.RowsAffected() == 0 {
		return errors.WithStack(errs.NotFound)
	}
	return nil
}

func (r *Repository) GetCollection(ctx context.Context, id int64) (*entity.Collection, error) {
	var collection entity.Collection
	err := r.conn().QueryRow(ctx, `
SELECT id, name, style_prompt, negative_prompt, rotation_trait_type
FROM collections
WHERE id = $1`, id).
		Scan(&collection.Id, &collection.Name, &collection.StylePrompt, &collection.NegativePrompt, &collection.RotationTraitType)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.WithStack(errs.NotFound)
		}
		return nil, errors.Wrap(err, "error during query")
	}
	return &collection, nil
}

func (r *Repository) GetTraitsByCollectionId(ctx context.Context, collectionId int64) ([]entity.Trait, error) {
	rows, err := r.conn().Query(ctx, `
SELECT id, collection_id, trait_type, value, description, rarity_weight, ignored
FROM traits
WHERE collection_id = $1
ORDER BY id`, collectionId)
	if err != nil {
		return nil, errors.Wrap(err, "error during query")
	}
	defer rows.Close()

	var traitList []entity.Trait
	for rows.Next() {
		var trait entity.Trait
		if err := rows.Scan(&trait.Id, &trait.CollectionId, &trait.TraitType, &trait.Value, &trait.Description, &trait.RarityWeight, &trait.Ignored); err != nil {
			return nil, errors.Wrap(err, "error during scan")
		}
		traitList = append(traitList, trait)
	}
	return traitList, errors.Wrap(rows.Err(), "error during row iteration")
}
