package entity

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/ordforge/mint-engine/common/errs"
	"github.com/shopspring/decimal"
)

type MintSessionStatus string

const (
	MintSessionStatusPendingSignature MintSessionStatus = "pending_signature"
	MintSessionStatusBroadcast        MintSessionStatus = "broadcast"
	MintSessionStatusRevealing        MintSessionStatus = "revealing"
	MintSessionStatusCompleted        MintSessionStatus = "completed"
	MintSessionStatusCompletedPartial MintSessionStatus = "completed_partial"
	MintSessionStatusFailed           MintSessionStatus = "failed"
	MintSessionStatusExpired          MintSessionStatus = "expired"
)

var validSessionTransitions = map[MintSessionStatus][]MintSessionStatus{
	MintSessionStatusPendingSignature: {MintSessionStatusBroadcast, MintSessionStatusExpired, MintSessionStatusFailed},
	MintSessionStatusBroadcast:        {MintSessionStatusRevealing},
	MintSessionStatusRevealing: {
		MintSessionStatusCompleted,
		MintSessionStatusCompletedPartial,
		MintSessionStatusFailed,
	},
	// retrying failed reveals can re-enter revealing
	MintSessionStatusCompletedPartial: {MintSessionStatusRevealing},
	MintSessionStatusFailed:           {MintSessionStatusRevealing},
}

// ValidateTransition reports whether the session status may move to next.
// Out-of-order client calls surface as errs.InvalidState.
func (s MintSessionStatus) ValidateTransition(next MintSessionStatus) error {
	for _, allowed := range validSessionTransitions[s] {
		if allowed == next {
			return nil
		}
	}
	return errors.Wrapf(errs.InvalidState, "invalid session transition from %q to %q", s, next)
}

// MintSession is a single commit/reveal minting flow for a batch of
// inscriptions paid by one commit transaction.
type MintSession struct {
	Id               uuid.UUID
	Status           MintSessionStatus
	MinterAddress    string
	PaymentAddress   string
	PaymentPubKey    string
	ReceivingAddress string
	FeeRate          decimal.Decimal

	// CommitPSBT is the unsigned commit PSBT handed to the client, base64.
	CommitPSBT string
	CommitTxId string

	CommitFee      int64
	TotalRevealFee int64
	TotalPostage   int64

	CreatedAt time.Time
	UpdatedAt time.Time
	ExpiresAt time.Time
}

// IsExpired reports whether the session passed its signing deadline.
func (s MintSession) IsExpired(now time.Time) bool {
	return s.Status == MintSessionStatusPendingSignature && now.After(s.ExpiresAt)
}
