package usecase

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/ordforge/mint-engine/modules/mint/internal/entity"
)

type SessionDetail struct {
	Session      *entity.MintSession
	Inscriptions []*entity.MintInscription
}

// GetSession returns the session with its per-item reveal states.
func (u *Usecase) GetSession(ctx context.Context, id uuid.UUID) (*SessionDetail, error) {
	session, err := u.mintDg.GetMintSession(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "can't get mint session")
	}
	inscriptions, err := u.mintDg.GetMintInscriptionsBySessionId(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "can't get mint inscriptions")
	}
	return &SessionDetail{
		Session:      session,
		Inscriptions: inscriptions,
	}, nil
}
