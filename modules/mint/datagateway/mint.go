package datagateway

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/ordforge/mint-engine/modules/mint/internal/entity"
)

type MintDataGateway interface {
	MintReaderDataGateway
	MintWriterDataGateway

	// BeginMintTx returns a new MintDataGateway with transaction enabled. All write operations performed in this datagateway must be committed to persist changes.
	BeginMintTx(ctx context.Context) (MintDataGatewayWithTx, error)
}

type MintDataGatewayWithTx interface {
	MintDataGateway
	Tx
}

type MintReaderDataGateway interface {
	// GetMintSession returns the session. Returns errs.NotFound if the session does not exist.
	GetMintSession(ctx context.Context, id uuid.UUID) (*entity.MintSession, error)
	// GetMintInscriptionsBySessionId returns the session's items ordered by commit vout.
	GetMintInscriptionsBySessionId(ctx context.Context, sessionId uuid.UUID) ([]*entity.MintInscription, error)
	// GetMintInscription returns one item. Returns errs.NotFound if it does not exist.
	GetMintInscription(ctx context.Context, id uuid.UUID) (*entity.MintInscription, error)
	// GetOrdinalsByIds returns the ordinals for the given ids, in the same order.
	// Returns errs.NotFound if any id is missing.
	GetOrdinalsByIds(ctx context.Context, ids []int64) ([]*entity.Ordinal, error)
	// GetLiveReservedOutpoints returns outpoints currently reserved by unexpired
	// sessions other than excludeSessionId.
	GetLiveReservedOutpoints(ctx context.Context, excludeSessionId uuid.UUID, now time.Time) ([]string, error)
	// GetExpiredPendingSessions returns pending_signature sessions past their deadline.
	GetExpiredPendingSessions(ctx context.Context, now time.Time, limit int32) ([]*entity.MintSession, error)
}

type MintWriterDataGateway interface {
	CreateMintSession(ctx context.Context, session *entity.MintSession) error
	// UpdateMintSessionStatus updates the session status and, when non-empty, the commit txid.
	UpdateMintSessionStatus(ctx context.Context, id uuid.UUID, status entity.MintSessionStatus, commitTxId string) error
	CreateMintInscriptions(ctx context.Context, inscriptions []*entity.MintInscription) error
	// UpdateMintInscriptionResult persists a reveal attempt result (status,
	// reveal txid, inscription id, error message, revealed at).
	UpdateMintInscriptionResult(ctx context.Context, inscription *entity.MintInscription) error
	ReserveUTXOs(ctx context.Context, reservations []*entity.ReservedUTXO) error
	ReleaseUTXOsBySessionId(ctx context.Context, sessionId uuid.UUID) error
}
