package postgres

import (
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/ordforge/mint-engine/modules/studio/internal/entity"
)

func uuidFromPg(src pgtype.UUID) uuid.UUID {
	if !src.Valid {
		return uuid.Nil
	}
	return uuid.UUID(src.Bytes)
}

func pgFromUUID(src uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: src, Valid: true}
}

func timeFromPg(src pgtype.Timestamptz) time.Time {
	if !src.Valid {
		return time.Time{}
	}
	return src.Time.UTC()
}

func timePtrFromPg(src pgtype.Timestamptz) *time.Time {
	if !src.Valid {
		return nil
	}
	t := src.Time.UTC()
	return &t
}

func pgFromTime(src time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: src, Valid: !src.IsZero()}
}

func pgFromTimePtr(src *time.Time) pgtype.Timestamptz {
	if src == nil {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: *src, Valid: true}
}

type generationJobModel struct {
	Id               pgtype.UUID
	CollectionId     int64
	OrdinalId        int64
	OrdinalNumber    int64
	Status           string
	TraitOverrides   []byte
	Prompt           string
	ImageUrl         string
	ThumbnailUrl     string
	ContentViolation bool
	ErrorMessage     string
	StartedAt        pgtype.Timestamptz
	CompletedAt      pgtype.Timestamptz
	CreatedAt        pgtype.Timestamptz
	UpdatedAt        pgtype.Timestamptz
}

func mapGenerationJobModelToType(src generationJobModel) (*entity.GenerationJob, error) {
	var overrides map[string]string
	if len(src.TraitOverrides) > 0 {
		if err := json.Unmarshal(src.TraitOverrides, &overrides); err != nil {
			return nil, errors.Wrap(err, "failed to parse trait overrides")
		}
	}
	return &entity.GenerationJob{
		Id:               uuidFromPg(src.Id),
		CollectionId:     src.CollectionId,
		OrdinalId:        src.OrdinalId,
		OrdinalNumber:    src.OrdinalNumber,
		Status:           entity.GenerationJobStatus(src.Status),
		TraitOverrides:   overrides,
		Prompt:           src.Prompt,
		ImageURL:         src.ImageUrl,
		ThumbnailURL:     src.ThumbnailUrl,
		ContentViolation: src.ContentViolation,
		ErrorMessage:     src.ErrorMessage,
		StartedAt:        timePtrFromPg(src.StartedAt),
		CompletedAt:      timePtrFromPg(src.CompletedAt),
		CreatedAt:        timeFromPg(src.CreatedAt),
		UpdatedAt:        timeFromPg(src.UpdatedAt),
	}, nil
}

type promotionJobModel struct {
	Id             pgtype.UUID
	WalletAddress  string
	OrdinalId      int64
	Status         string
	ExternalTaskId string
	CreditsSpent   int64
	VideoUrl       string
	ErrorMessage   string
	StartedAt      pgtype.Timestamptz
	CompletedAt    pgtype.Timestamptz
	CreatedAt      pgtype.Timestamptz
	UpdatedAt      pgtype.Timestamptz
}

func mapPromotionJobModelToType(src promotionJobModel) *entity.PromotionJob {
	return &entity.PromotionJob{
		Id:             uuidFromPg(src.Id),
		WalletAddress:  src.WalletAddress,
		OrdinalId:      src.OrdinalId,
		Status:         entity.PromotionJobStatus(src.Status),
		ExternalTaskId: src.ExternalTaskId,
		CreditsSpent:   src.CreditsSpent,
		VideoURL:       src.VideoUrl,
		ErrorMessage:   src.ErrorMessage,
		StartedAt:      timePtrFromPg(src.StartedAt),
		CompletedAt:    timePtrFromPg(src.CompletedAt),
		CreatedAt:      timeFromPg(src.CreatedAt),
		UpdatedAt:      timeFromPg(src.UpdatedAt),
	}
}
