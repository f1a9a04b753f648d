package postgres

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/ordforge/mint-engine/common/errs"
	"github.com/ordforge/mint-engine/modules/mint/internal/entity"
)

const selectMintSession = `
SELECT id, status, minter_address, payment_address, payment_pubkey, receiving_address, fee_rate, commit_psbt, commit_tx_id, commit_fee, total_reveal_fee, total_postage, created_at, updated_at, expires_at
FROM mint_sessions
`

func scanMintSession(row pgx.Row) (*entity.MintSession, error) {
	var model mintSessionModel
	err := row.Scan(
		&model.Id, &model.Status, &model.MinterAddress, &model.PaymentAddress, &model.PaymentPubKey,
		&model.ReceivingAddress, &model.FeeRate, &model.CommitPsbt, &model.CommitTxId,
		&model.CommitFee, &model.TotalRevealFee, &model.TotalPostage,
		&model.CreatedAt, &model.UpdatedAt, &model.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.WithStack(errs.NotFound)
		}
		return nil, errors.Wrap(err, "error during query")
	}
	return mapMintSessionModelToType(model), nil
}

func (r *Repository) GetMintSession(ctx context.Context, id uuid.UUID) (*entity.MintSession, error) {
	row := r.conn().QueryRow(ctx, selectMintSession+`WHERE id = $1`, pgFromUUID(id))
	session, err := scanMintSession(row)
	return session, errors.WithStack(err)
}

func (r *Repository) GetExpiredPendingSessions(ctx context.Context, now time.Time, limit int32) ([]*entity.MintSession, error) {
	rows, err := r.conn().Query(ctx,
		selectMintSession+`WHERE status = $1 AND expires_at < $2 ORDER BY expires_at LIMIT $3`,
		string(entity.MintSessionStatusPendingSignature), pgFromTime(now), limit,
	)
	if err != nil {
		return nil, errors.Wrap(err, "error during query")
	}
	defer rows.Close()

	var sessions []*entity.MintSession
	for rows.Next() {
		session, err := scanMintSession(rows)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		sessions = append(sessions, session)
	}
	return sessions, errors.Wrap(rows.Err(), "error during row iteration")
}

func (r *Repository) CreateMintSession(ctx context.Context, session *entity.MintSession) error {
	feeRate, err := numericFromDecimal(session.FeeRate)
	if err != nil {
		return errors.Wrap(err, "failed to convert fee rate")
	}
	_, err = r.conn().Exec(ctx, `
INSERT INTO mint_sessions (id, status, minter_address, payment_address, payment_pubkey, receiving_address, fee_rate, commit_psbt, commit_tx_id, commit_fee, total_reveal_fee, total_postage, created_at, updated_at, expires_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		pgFromUUID(session.Id), string(session.Status), session.MinterAddress, session.PaymentAddress,
		session.PaymentPubKey, session.ReceivingAddress, feeRate, session.CommitPSBT, session.CommitTxId,
		session.CommitFee, session.TotalRevealFee, session.TotalPostage,
		pgFromTime(session.CreatedAt), pgFromTime(session.UpdatedAt), pgFromTime(session.ExpiresAt),
	)
	return errors.Wrap(err, "error during exec")
}

func (r *Repository) UpdateMintSessionStatus(ctx context.Context, id uuid.UUID, status entity.MintSessionStatus, commitTxId string) error {
	tag, err := r.conn().Exec(ctx, `
UPDATE mint_sessions
SET status = $2,
    commit_tx_id = CASE WHEN $3 = '' THEN commit_tx_id ELSE $3 END,
    updated_at = now()
WHERE id = $1`,
		pgFromUUID(id), string(status), commitTxId,
	)
	if err != nil {
		return errors.Wrap(err, "error during exec")
	}
	if tag.RowsAffected() == 0 {
		return errors.WithStack(errs.NotFound)
	}
	return nil
}

const selectMintInscription = `
SELECT id, session_id, ordinal_id, content_type, payload_size, reveal_private_key, leaf_script, commit_vout, commit_value, status, reveal_tx_id, inscription_id, error_message, revealed_at
FROM mint_inscriptions
`

func scanMintInscription(row pgx.Row) (*entity.MintInscription, error) {
	var model mintInscriptionModel
	err := row.Scan(
		&model.Id, &model.SessionId, &model.OrdinalId, &model.ContentType, &model.PayloadSize,
		&model.RevealPrivateKey, &model.LeafScript, &model.CommitVout, &model.CommitValue,
		&model.Status, &model.RevealTxId, &model.InscriptionId, &model.ErrorMessage, &model.RevealedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.WithStack(errs.NotFound)
		}
		return nil, errors.Wrap(err, "error during query")
	}
	return mapMintInscriptionModelToType(model), nil
}

func (r *Repository) GetMintInscription(ctx context.Context, id uuid.UUID) (*entity.MintInscription, error) {
	row := r.conn().QueryRow(ctx, selectMintInscription+`WHERE id = $1`, pgFromUUID(id))
	inscription, err := scanMintInscription(row)
	return inscription, errors.WithStack(err)
}

func (r *Repository) GetMintInscriptionsBySessionId(ctx context.Context, sessionId uuid.UUID) ([]*entity.MintInscription, error) {
	rows, err := r.conn().Query(ctx, selectMintInscription+`WHERE session_id = $1 ORDER BY commit_vout`, pgFromUUID(sessionId))
	if err != nil {
		return nil, errors.Wrap(err, "error during query")
	}
	defer rows.Close()

	var inscriptions []*entity.MintInscription
	for rows.Next() {
		inscription, err := scanMintInscription(rows)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		inscriptions = append(inscriptions, inscription)
	}
	return inscriptions, errors.Wrap(rows.Err(), "error during row iteration")
}

func (r *Repository) CreateMintInscriptions(ctx context.Context, inscriptions []*entity.MintInscription) error {
	for _, inscription := range inscriptions {
		_, err := r.conn().Exec(ctx, `
INSERT INTO mint_inscriptions (id, session_id, ordinal_id, content_type, payload_size, reveal_private_key, leaf_script, commit_vout, commit_value, status, reveal_tx_id, inscription_id, error_message, revealed_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
			pgFromUUID(inscription.Id), pgFromUUID(inscription.SessionId), inscription.OrdinalId,
			inscription.ContentType, inscription.PayloadSize, inscription.RevealPrivateKey,
			inscription.LeafScript, int32(inscription.CommitVout), inscription.CommitValue,
			string(inscription.Status), inscription.RevealTxId, inscription.InscriptionId,
			inscription.ErrorMessage, pgFromTimePtr(inscription.RevealedAt),
		)
		if err != nil {
			return errors.Wrap(err, "error during exec")
		}
	}
	return nil
}

func (r *Repository) UpdateMintInscriptionResult(ctx context.Context, inscription *entity.MintInscription) error {
	tag, err := r.conn().Exec(ctx, `
UPDATE mint_inscriptions
SET status = $2, reveal_tx_id = $3, inscription_id = $4, error_message = $5, revealed_at = $6
WHERE id = $1`,
		pgFromUUID(inscription.Id), string(inscription.Status), inscription.RevealTxId,
		inscription.InscriptionId, inscription.ErrorMessage, pgFromTimePtr(inscription.RevealedAt),
	)
	if err != nil {
		return errors.Wrap(err, "error during exec")
	}
	if tag.RowsAffected() == 0 {
		return errors.WithStack(errs.NotFound)
	}
	return nil
}

func (r *Repository) GetOrdinalsByIds(ctx context.Context, ids []int64) ([]*entity.Ordinal, error) {
	rows, err := r.conn().Query(ctx, `
SELECT id, collection_id, ordinal_number, content_type, artifact_key, payload_size
FROM ordinals
WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, errors.Wrap(err, "error during query")
	}
	defer rows.Close()

	byId := make(map[int64]*entity.Ordinal, len(ids))
	for rows.Next() {
		var ordinal entity.Ordinal
		if err := rows.Scan(&ordinal.Id, &ordinal.CollectionId, &ordinal.OrdinalNumber, &ordinal.ContentType, &ordinal.ArtifactKey, &ordinal.PayloadSize); err != nil {
			return nil, errors.Wrap(err, "error during scan")
		}
		byId[ordinal.Id] = &ordinal
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error during row iteration")
	}

	ordinals := make([]*entity.Ordinal, 0, len(ids))
	for _, id := range ids {
		ordinal, ok := byId[id]
		if !ok {
			return nil, errors.Wrapf(errs.NotFound, "ordinal %d", id)
		}
		ordinals = append(ordinals, ordinal)
	}
	return ordinals, nil
}

func (r *Repository) GetLiveReservedOutpoints(ctx context.Context, excludeSessionId uuid.UUID, now time.Time) ([]string, error) {
	rows, err := r.conn().Query(ctx, `
SELECT tx_hash, tx_idx
FROM reserved_utxos
WHERE session_id != $1 AND expires_at > $2`,
		pgFromUUID(excludeSessionId), pgFromTime(now),
	)
	if err != nil {
		return nil, errors.Wrap(err, "error during query")
	}
	defer rows.Close()

	var outpoints []string
	for rows.Next() {
		var (
			txHash string
			txIdx  int32
		)
		if err := rows.Scan(&txHash, &txIdx); err != nil {
			return nil, errors.Wrap(err, "error during scan")
		}
		outpoints = append(outpoints, entity.UTXO{TxId: txHash, Vout: uint32(txIdx)}.Outpoint())
	}
	return outpoints, errors.Wrap(rows.Err(), "error during row iteration")
}

// ReserveUTXOs inserts one reservation row per funding outpoint. A row left
// behind by an expired session is overwritten in place instead of waiting for
// the expiry janitor; a live row belonging to anyone is a conflict.
func (r *Repository) ReserveUTXOs(ctx context.Context, reservations []*entity.ReservedUTXO) error {
	for _, reservation := range reservations {
		ct, err := r.conn().Exec(ctx, `
INSERT INTO reserved_utxos (session_id, tx_hash, tx_idx, value, reserved_at, expires_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (tx_hash, tx_idx) DO UPDATE
SET session_id = EXCLUDED.session_id,
    value = EXCLUDED.value,
    reserved_at = EXCLUDED.reserved_at,
    expires_at = EXCLUDED.expires_at
WHERE reserved_utxos.expires_at <= EXCLUDED.reserved_at`,
			pgFromUUID(reservation.SessionId), reservation.TxId, int32(reservation.Vout),
			reservation.Value, pgFromTime(reservation.ReservedAt), pgFromTime(reservation.ExpiresAt),
		)
		if err != nil {
			return errors.Wrap(err, "error during exec")
		}
		if ct.RowsAffected() == 0 {
			return errors.Wrapf(errs.Conflict, "utxo %s already reserved", reservation.Outpoint())
		}
	}
	return nil
}

func (r *Repository) ReleaseUTXOsBySessionId(ctx context.Context, sessionId uuid.UUID) error {
	_, err := r.conn().Exec(ctx, `DELETE FROM reserved_utxos WHERE session_id = $1`, pgFromUUID(sessionId))
	return errors.Wrap(err, "error during exec")
}
