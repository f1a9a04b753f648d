package usecase

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/ordforge/mint-engine/modules/mint/internal/entity"
	"github.com/ordforge/mint-engine/pkg/logger"
	"github.com/ordforge/mint-engine/pkg/logger/slogx"
)

const expireSessionsBatchSize = 100

// ExpireSessions moves pending_signature sessions past their signing deadline
// to expired and releases their UTXO reservations. Abandoned sessions would
// otherwise pin funding UTXOs forever.
func (u *Usecase) ExpireSessions(ctx context.Context) (int, error) {
	sessions, err := u.mintDg.GetExpiredPendingSessions(ctx, u.now(), expireSessionsBatchSize)
	if err != nil {
		return 0, errors.Wrap(err, "can't get expired sessions")
	}

	var expired int
	for _, session := range sessions {
		mintDgTx, err := u.mintDg.BeginMintTx(ctx)
		if err != nil {
			return expired, errors.Wrap(err, "can't begin transaction")
		}
		err = func() error {
			defer func() {
				if err := mintDgTx.Rollback(ctx); err != nil {
					logger.WarnContext(ctx, "failed to rollback transaction", slogx.Error(err))
				}
			}()
			if err := mintDgTx.UpdateMintSessionStatus(ctx, session.Id, entity.MintSessionStatusExpired, ""); err != nil {
				return errors.Wrap(err, "can't update session status")
			}
			if err := mintDgTx.ReleaseUTXOsBySessionId(ctx, session.Id); err != nil {
				return errors.Wrap(err, "can't release utxo reservations")
			}
			return errors.Wrap(mintDgTx.Commit(ctx), "can't commit transaction")
		}()
		if err != nil {
			logger.WarnContext(ctx, "can't expire session", slogx.Stringer("sessionId", session.Id), slogx.Error(err))
			continue
		}
		expired++
	}
	if expired > 0 {
		logger.InfoContext(ctx, "expired abandoned mint sessions", slogx.Int("count", expired))
	}
	return expired, nil
}
