package postgres

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/ordforge/mint-engine/modules/mint/internal/entity"
	"github.com/shopspring/decimal"
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

func pgFromTime(src time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: src, Valid: !src.IsZero()}
}

func pgFromTimePtr(src *time.Time) pgtype.Timestamptz {
	if src == nil {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: *src, Valid: true}
}

func decimalFromNumeric(src pgtype.Numeric) decimal.Decimal {
	if !src.Valid || src.Int == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(src.Int, src.Exp)
}

func numericFromDecimal(src decimal.Decimal) (pgtype.Numeric, error) {
	var result pgtype.Numeric
	if err := result.Scan(src.String()); err != nil {
		return pgtype.Numeric{}, errors.WithStack(err)
	}
	return result, nil
}

type mintSessionModel struct {
	Id               pgtype.UUID
	Status           string
	MinterAddress    string
	PaymentAddress   string
	PaymentPubKey    string
	ReceivingAddress string
	FeeRate          pgtype.Numeric
	CommitPsbt       string
	CommitTxId       string
	CommitFee        int64
	TotalRevealFee   int64
	TotalPostage     int64
	CreatedAt        pgtype.Timestamptz
	UpdatedAt        pgtype.Timestamptz
	ExpiresAt        pgtype.Timestamptz
}

func mapMintSessionModelToType(src mintSessionModel) *entity.MintSession {
	return &entity.MintSession{
		Id:               uuidFromPg(src.Id),
		Status:           entity.MintSessionStatus(src.Status),
		MinterAddress:    src.MinterAddress,
		PaymentAddress:   src.PaymentAddress,
		PaymentPubKey:    src.PaymentPubKey,
		ReceivingAddress: src.ReceivingAddress,
		FeeRate:          decimalFromNumeric(src.FeeRate),
		CommitPSBT:       src.CommitPsbt,
		CommitTxId:       src.CommitTxId,
		CommitFee:        src.CommitFee,
		TotalRevealFee:   src.TotalRevealFee,
		TotalPostage:     src.TotalPostage,
		CreatedAt:        timeFromPg(src.CreatedAt),
		UpdatedAt:        timeFromPg(src.UpdatedAt),
		ExpiresAt:        timeFromPg(src.ExpiresAt),
	}
}

type mintInscriptionModel struct {
	Id               pgtype.UUID
	SessionId        pgtype.UUID
	OrdinalId        int64
	ContentType      string
	PayloadSize      int64
	RevealPrivateKey []byte
	LeafScript       []byte
	CommitVout       int32
	CommitValue      int64
	Status           string
	RevealTxId       string
	InscriptionId    string
	ErrorMessage     string
	RevealedAt       pgtype.Timestamptz
}

func mapMintInscriptionModelToType(src mintInscriptionModel) *entity.MintInscription {
	var revealedAt *time.Time
	if src.RevealedAt.Valid {
		t := src.RevealedAt.Time.UTC()
		revealedAt = &t
	}
	return &entity.MintInscription{
		Id:               uuidFromPg(src.Id),
		SessionId:        uuidFromPg(src.SessionId),
		OrdinalId:        src.OrdinalId,
		ContentType:      src.ContentType,
		PayloadSize:      src.PayloadSize,
		RevealPrivateKey: src.RevealPrivateKey,
		LeafScript:       src.LeafScript,
		CommitVout:       uint32(src.CommitVout),
		CommitValue:      src.CommitValue,
		Status:           entity.MintInscriptionStatus(src.Status),
		RevealTxId:       src.RevealTxId,
		InscriptionId:    src.InscriptionId,
		ErrorMessage:     src.ErrorMessage,
		RevealedAt:       revealedAt,
	}
}
