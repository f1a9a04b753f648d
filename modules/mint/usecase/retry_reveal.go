package usecase

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/ordforge/mint-engine/common/errs"
	"github.com/ordforge/mint-engine/modules/mint/internal/entity"
)

type RetryRevealResult struct {
	Session     *entity.MintSession
	Inscription *entity.MintInscription
	Outcome     entity.BatchOutcome
}

// RetryReveal re-runs the reveal of a single failed inscription from its
// stored commit data, then recomputes the session status from all items.
func (u *Usecase) RetryReveal(ctx context.Context, mintInscriptionId uuid.UUID) (*RetryRevealResult, error) {
	inscription, err := u.mintDg.GetMintInscription(ctx, mintInscriptionId)
	if err != nil {
		return nil, errors.Wrap(err, "can't get mint inscription")
	}
	if inscription.Status != entity.MintInscriptionStatusFailed {
		return nil, errs.WithPublicMessage(errors.Wrapf(errs.InvalidState, "inscription is %q, only failed reveals can be retried", inscription.Status), "")
	}
	session, err := u.mintDg.GetMintSession(ctx, inscription.SessionId)
	if err != nil {
		return nil, errors.Wrap(err, "can't get mint session")
	}
	if session.CommitTxId == "" {
		return nil, errs.WithPublicMessage(errors.Wrap(errs.InvalidState, "session has no broadcast commit"), "")
	}
	if err := session.Status.ValidateTransition(entity.MintSessionStatusRevealing); err != nil {
		return nil, errs.WithPublicMessage(err, "")
	}
	receiverPkScript, err := u.receiverPkScript(session)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	if err := u.mintDg.UpdateMintSessionStatus(ctx, session.Id, entity.MintSessionStatusRevealing, ""); err != nil {
		return nil, errors.Wrap(err, "can't update session status")
	}
	u.revealOne(ctx, inscription, session.CommitTxId, receiverPkScript)

	inscriptions, err := u.mintDg.GetMintInscriptionsBySessionId(ctx, session.Id)
	if err != nil {
		return nil, errors.Wrap(err, "can't get mint inscriptions")
	}
	outcome := batchOutcome(inscriptions)
	if err := u.mintDg.UpdateMintSessionStatus(ctx, session.Id, outcome.SessionStatus(), ""); err != nil {
		return nil, errors.Wrap(err, "can't update session status")
	}
	session.Status = outcome.SessionStatus()

	return &RetryRevealResult{
		Session:     session,
		Inscription: inscription,
		Outcome:     outcome,
	}, nil
}
