package usecase

import (
	"bytes"
	"context"

	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/wire"
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/ordforge/mint-engine/common/errs"
	"github.com/ordforge/mint-engine/modules/mint/internal/entity"
	"github.com/ordforge/mint-engine/pkg/btcutils"
	"github.com/ordforge/mint-engine/pkg/btcutils/psbtutils"
	"github.com/ordforge/mint-engine/pkg/logger"
	"github.com/ordforge/mint-engine/pkg/logger/slogx"
	"github.com/ordforge/mint-engine/pkg/mempool"
)

type BroadcastCommitParams struct {
	SessionId uuid.UUID

	// Exactly one of SignedPSBT (base64 or hex) and TxHex must be provided.
	SignedPSBT string
	TxHex      string
}

type BroadcastCommitResult struct {
	Session    *entity.MintSession
	CommitTxId string
}

// BroadcastCommit finalizes the client-signed commit and broadcasts it. On
// success the session moves to broadcast, the commit txid is recorded and the
// funding reservations are released (the outputs are spent now, the
// reservation has done its job).
func (u *Usecase) BroadcastCommit(ctx context.Context, params BroadcastCommitParams) (*BroadcastCommitResult, error) {
	session, err := u.mintDg.GetMintSession(ctx, params.SessionId)
	if err != nil {
		return nil, errors.Wrap(err, "can't get mint session")
	}
	if session.IsExpired(u.now()) {
		return nil, errs.WithPublicMessage(errors.Wrap(errs.InvalidState, "session expired before signing"), "")
	}
	if err := session.Status.ValidateTransition(entity.MintSessionStatusBroadcast); err != nil {
		return nil, errs.WithPublicMessage(err, "")
	}

	tx, err := u.extractSignedCommitTx(params)
	if err != nil {
		return nil, errs.WithPublicMessage(err, "invalid signed commit")
	}
	inscriptions, err := u.mintDg.GetMintInscriptionsBySessionId(ctx, params.SessionId)
	if err != nil {
		return nil, errors.Wrap(err, "can't get mint inscriptions")
	}
	if err := validateCommitOutputs(tx, inscriptions); err != nil {
		return nil, errs.WithPublicMessage(err, "signed commit does not match session")
	}

	rawTxHex, err := btcutils.SerializeTxHex(tx)
	if err != nil {
		return nil, errors.Wrap(err, "can't serialize commit tx")
	}
	txid, err := u.bitcoin.BroadcastTx(ctx, rawTxHex)
	if err != nil {
		var broadcastErr *mempool.BroadcastError
		switch {
		case errors.As(err, &broadcastErr) && broadcastErr.AlreadyKnown:
			// an earlier attempt went through and the response was lost;
			// the commit is live, proceed as a successful broadcast
			txid = tx.TxHash().String()
			logger.InfoContext(ctx, "commit tx already known to the network",
				slogx.Stringer("sessionId", session.Id),
				slogx.String("commitTxId", txid),
			)
		case errors.As(err, &broadcastErr) && !broadcastErr.Retryable:
			logger.WarnContext(ctx, "commit broadcast rejected, failing session",
				slogx.Stringer("sessionId", session.Id),
				slogx.Error(err),
			)
			if failErr := u.failSession(ctx, session.Id); failErr != nil {
				logger.ErrorContext(ctx, "can't mark session failed after rejected broadcast", slogx.Error(failErr))
			}
			return nil, errs.WithPublicMessage(err, "commit transaction rejected")
		default:
			// transient failure, the client can retry the broadcast
			return nil, errors.Wrap(err, "can't broadcast commit tx")
		}
	}

	mintDgTx, err := u.mintDg.BeginMintTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "can't begin transaction")
	}
	defer func() {
		if err := mintDgTx.Rollback(ctx); err != nil {
			logger.WarnContext(ctx, "failed to rollback transaction", slogx.Error(err))
		}
	}()
	if err := mintDgTx.UpdateMintSessionStatus(ctx, session.Id, entity.MintSessionStatusBroadcast, txid); err != nil {
		return nil, errors.Wrap(err, "can't update session status")
	}
	if err := mintDgTx.ReleaseUTXOsBySessionId(ctx, session.Id); err != nil {
		return nil, errors.Wrap(err, "can't release utxo reservations")
	}
	if err := mintDgTx.Commit(ctx); err != nil {
		return nil, errors.Wrap(err, "can't commit transaction")
	}

	session.Status = entity.MintSessionStatusBroadcast
	session.CommitTxId = txid
	logger.InfoContext(ctx, "broadcast commit tx",
		slogx.Stringer("sessionId", session.Id),
		slogx.String("commitTxId", txid),
	)
	return &BroadcastCommitResult{Session: session, CommitTxId: txid}, nil
}

// extractSignedCommitTx turns the client's submission into a final wire tx:
// raw tx hex as-is, or a signed PSBT finalized and extracted.
func (u *Usecase) extractSignedCommitTx(params BroadcastCommitParams) (*wire.MsgTx, error) {
	switch {
	case params.TxHex != "":
		tx, err := btcutils.DeserializeTxHex(params.TxHex)
		if err != nil {
			return nil, errors.Wrap(err, "can't deserialize tx hex")
		}
		return tx, nil
	case params.SignedPSBT != "":
		packet, err := psbtutils.DecodeString(params.SignedPSBT, psbtutils.EncodingBase64)
		if err != nil {
			packet, err = psbtutils.DecodeString(params.SignedPSBT, psbtutils.EncodingHex)
		}
		if err != nil {
			return nil, errors.Wrap(err, "can't decode signed psbt")
		}
		if err := psbt.MaybeFinalizeAll(packet); err != nil {
			return nil, errors.Wrap(err, "can't finalize psbt")
		}
		tx, err := psbt.Extract(packet)
		if err != nil {
			return nil, errors.Wrap(err, "can't extract tx from psbt")
		}
		return tx, nil
	default:
		return nil, errors.Wrap(errs.ArgumentRequired, "signed psbt or tx hex is required")
	}
}

// validateCommitOutputs checks that the signed tx still pays every
// inscription's commit output at its expected vout, script and value. A
// wallet that reorders or edits outputs would otherwise break the stored
// reveal data.
func validateCommitOutputs(tx *wire.MsgTx, inscriptions []*entity.MintInscription) error {
	for _, inscription := range inscriptions {
		if int(inscription.CommitVout) >= len(tx.TxOut) {
			return errors.Wrapf(errs.InvalidArgument, "missing commit output at vout %d", inscription.CommitVout)
		}
		txOut := tx.TxOut[inscription.CommitVout]
		if txOut.Value != inscription.CommitValue {
			return errors.Wrapf(errs.InvalidArgument, "commit output %d value %d does not match expected %d", inscription.CommitVout, txOut.Value, inscription.CommitValue)
		}
		privateKey, err := revealPrivateKey(inscription.RevealPrivateKey)
		if err != nil {
			return errors.WithStack(err)
		}
		expectedPkScript, err := commitPkScript(privateKey, inscription.LeafScript)
		if err != nil {
			return errors.WithStack(err)
		}
		if !bytes.Equal(txOut.PkScript, expectedPkScript) {
			return errors.Wrapf(errs.InvalidArgument, "commit output %d script does not match expected taproot commitment", inscription.CommitVout)
		}
	}
	return nil
}

// failSession marks the session failed and releases its reservations.
func (u *Usecase) failSession(ctx context.Context, sessionId uuid.UUID) error {
	mintDgTx, err := u.mintDg.BeginMintTx(ctx)
	if err != nil {
		return errors.Wrap(err, "can't begin transaction")
	}
	defer func() {
		if err := mintDgTx.Rollback(ctx); err != nil {
			logger.WarnContext(ctx, "failed to rollback transaction", slogx.Error(err))
		}
	}()
	if err := mintDgTx.UpdateMintSessionStatus(ctx, sessionId, entity.MintSessionStatusFailed, ""); err != nil {
		return errors.Wrap(err, "can't update session status")
	}
	if err := mintDgTx.ReleaseUTXOsBySessionId(ctx, sessionId); err != nil {
		return errors.Wrap(err, "can't release utxo reservations")
	}
	return errors.Wrap(mintDgTx.Commit(ctx), "can't commit transaction")
}
