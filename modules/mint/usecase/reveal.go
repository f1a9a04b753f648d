package usecase

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/ordforge/mint-engine/common/errs"
	"github.com/ordforge/mint-engine/modules/mint/inscribe"
	"github.com/ordforge/mint-engine/modules/mint/internal/entity"
	"github.com/ordforge/mint-engine/modules/mint/internal/ordinals"
	"github.com/ordforge/mint-engine/pkg/btcutils"
	"github.com/ordforge/mint-engine/pkg/logger"
	"github.com/ordforge/mint-engine/pkg/logger/slogx"
)

type RevealParams struct {
	SessionId  uuid.UUID
	CommitTxId string
}

type RevealResult struct {
	Session      *entity.MintSession
	Inscriptions []*entity.MintInscription
	Outcome      entity.BatchOutcome
}

// Reveal broadcasts the reveal transaction of every pending inscription in
// the session. It first waits for the commit to become visible to the
// network, then reveals each item independently: one item's failure never
// blocks its siblings. The session lands on completed, completed_partial or
// failed depending on how many items made it out.
func (u *Usecase) Reveal(ctx context.Context, params RevealParams) (*RevealResult, error) {
	session, err := u.mintDg.GetMintSession(ctx, params.SessionId)
	if err != nil {
		return nil, errors.Wrap(err, "can't get mint session")
	}
	commitTxId := session.CommitTxId
	if commitTxId == "" {
		commitTxId = params.CommitTxId
	}
	if commitTxId == "" {
		return nil, errs.WithPublicMessage(errors.Wrap(errs.InvalidState, "session has no broadcast commit"), "")
	}
	if params.CommitTxId != "" && params.CommitTxId != commitTxId {
		return nil, errs.WithPublicMessage(errors.Wrapf(errs.InvalidArgument, "commit txid %q does not match session's %q", params.CommitTxId, commitTxId), "")
	}
	if err := session.Status.ValidateTransition(entity.MintSessionStatusRevealing); err != nil {
		return nil, errs.WithPublicMessage(err, "")
	}

	if err := u.mintDg.UpdateMintSessionStatus(ctx, session.Id, entity.MintSessionStatusRevealing, commitTxId); err != nil {
		return nil, errors.Wrap(err, "can't update session status")
	}
	session.Status = entity.MintSessionStatusRevealing
	session.CommitTxId = commitTxId

	if err := u.waitForTx(ctx, commitTxId); err != nil {
		// session stays revealing, a later call picks up where we left off
		return nil, errs.WithPublicMessage(err, "commit transaction not yet visible")
	}

	inscriptions, err := u.mintDg.GetMintInscriptionsBySessionId(ctx, session.Id)
	if err != nil {
		return nil, errors.Wrap(err, "can't get mint inscriptions")
	}
	receiverPkScript, err := u.receiverPkScript(session)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	var broadcasted bool
	for _, inscription := range inscriptions {
		if inscription.Status == entity.MintInscriptionStatusBroadcast {
			continue
		}
		if broadcasted {
			if err := u.sleep(ctx, u.config.RevealSpacing); err != nil {
				// session stays revealing, the remaining items are picked up
				// by a later call
				return nil, errors.Wrap(err, "reveal pass interrupted")
			}
		}
		u.revealOne(ctx, inscription, commitTxId, receiverPkScript)
		broadcasted = true
	}

	outcome := batchOutcome(inscriptions)
	if err := u.mintDg.UpdateMintSessionStatus(ctx, session.Id, outcome.SessionStatus(), ""); err != nil {
		return nil, errors.Wrap(err, "can't update session status")
	}
	session.Status = outcome.SessionStatus()

	logger.InfoContext(ctx, "reveal pass finished",
		slogx.Stringer("sessionId", session.Id),
		slogx.Int("succeeded", outcome.Succeeded),
		slogx.Int("failed", outcome.Failed),
		slogx.String("sessionStatus", string(session.Status)),
	)
	return &RevealResult{
		Session:      session,
		Inscriptions: inscriptions,
		Outcome:      outcome,
	}, nil
}

// revealOne builds, signs and broadcasts one inscription's reveal and records
// the result on the item. Failures are recorded, not returned: reveal items
// fail independently.
func (u *Usecase) revealOne(ctx context.Context, inscription *entity.MintInscription, commitTxId string, receiverPkScript []byte) {
	inscriptionId, err := u.broadcastReveal(ctx, inscription, commitTxId, receiverPkScript)
	if err != nil {
		logger.WarnContext(ctx, "reveal failed",
			slogx.Stringer("mintInscriptionId", inscription.Id),
			slogx.Error(err),
		)
		inscription.Status = entity.MintInscriptionStatusFailed
		inscription.ErrorMessage = err.Error()
	} else {
		now := u.now()
		inscription.Status = entity.MintInscriptionStatusBroadcast
		inscription.RevealTxId = inscriptionId.TxHash.String()
		inscription.InscriptionId = inscriptionId.String()
		inscription.ErrorMessage = ""
		inscription.RevealedAt = &now
	}
	if err := u.mintDg.UpdateMintInscriptionResult(ctx, inscription); err != nil {
		logger.ErrorContext(ctx, "can't persist reveal result",
			slogx.Stringer("mintInscriptionId", inscription.Id),
			slogx.Error(err),
		)
	}
}

func (u *Usecase) broadcastReveal(ctx context.Context, inscription *entity.MintInscription, commitTxId string, receiverPkScript []byte) (ordinals.InscriptionId, error) {
	privateKey, err := revealPrivateKey(inscription.RevealPrivateKey)
	if err != nil {
		return ordinals.InscriptionId{}, errors.WithStack(err)
	}
	tx, err := inscribe.BuildRevealTx(privateKey, inscription.LeafScript, commitTxId, inscription.CommitVout, inscription.CommitValue, receiverPkScript)
	if err != nil {
		return ordinals.InscriptionId{}, errors.Wrap(err, "can't build reveal tx")
	}
	rawTxHex, err := btcutils.SerializeTxHex(tx)
	if err != nil {
		return ordinals.InscriptionId{}, errors.Wrap(err, "can't serialize reveal tx")
	}
	if _, err := u.bitcoin.BroadcastTx(ctx, rawTxHex); err != nil {
		return ordinals.InscriptionId{}, errors.Wrap(err, "can't broadcast reveal tx")
	}
	// the reveal inscribes at index 0 of its own transaction
	return ordinals.NewInscriptionId(tx.TxHash(), 0), nil
}

// waitForTx polls the mempool datasource until the tx is visible or the
// configured timeout elapses.
func (u *Usecase) waitForTx(ctx context.Context, txid string) error {
	deadline := u.now().Add(u.config.CommitPollTimeout)
	for {
		if _, err := u.bitcoin.Tx(ctx, txid); err == nil {
			return nil
		} else if !errors.Is(err, errs.NotFound) {
			logger.WarnContext(ctx, "can't check tx visibility", slogx.String("txid", txid), slogx.Error(err))
		}
		if u.now().After(deadline) {
			return errors.Wrapf(errs.Timeout, "tx %s not visible after %s", txid, u.config.CommitPollTimeout)
		}
		if err := u.sleep(ctx, u.config.CommitPollInterval); err != nil {
			return errors.WithStack(err)
		}
	}
}

func (u *Usecase) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return errors.WithStack(ctx.Err())
	case <-timer.C:
		return nil
	}
}

func (u *Usecase) receiverPkScript(session *entity.MintSession) ([]byte, error) {
	address, err := btcutils.SafeNewAddress(session.ReceivingAddress, u.config.Network.ChainParams())
	if err != nil {
		return nil, errors.Wrapf(errs.InvalidState, "session receiving address is invalid: %s", err)
	}
	return address.ScriptPubKey(), nil
}

// batchOutcome tallies the session's items into a batch outcome.
func batchOutcome(inscriptions []*entity.MintInscription) entity.BatchOutcome {
	var succeeded, failed int
	for _, inscription := range inscriptions {
		switch inscription.Status {
		case entity.MintInscriptionStatusBroadcast:
			succeeded++
		case entity.MintInscriptionStatusFailed:
			failed++
		}
	}
	return entity.NewBatchOutcome(succeeded, failed)
}
