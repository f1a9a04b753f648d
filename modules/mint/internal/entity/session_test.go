package entity

import (
	"testing"
	"time"

	"github.com/ordforge/mint-engine/common/errs"
	"github.com/stretchr/testify/assert"
)

func TestValidateTransition(t *testing.T) {
	testcases := []struct {
		from    MintSessionStatus
		to      MintSessionStatus
		allowed bool
	}{
		{MintSessionStatusPendingSignature, MintSessionStatusBroadcast, true},
		{MintSessionStatusPendingSignature, MintSessionStatusExpired, true},
		{MintSessionStatusPendingSignature, MintSessionStatusFailed, true},
		{MintSessionStatusPendingSignature, MintSessionStatusRevealing, false},
		{MintSessionStatusPendingSignature, MintSessionStatusCompleted, false},
		{MintSessionStatusBroadcast, MintSessionStatusRevealing, true},
		{MintSessionStatusBroadcast, MintSessionStatusBroadcast, false},
		{MintSessionStatusBroadcast, MintSessionStatusCompleted, false},
		{MintSessionStatusRevealing, MintSessionStatusCompleted, true},
		{MintSessionStatusRevealing, MintSessionStatusCompletedPartial, true},
		{MintSessionStatusRevealing, MintSessionStatusFailed, true},
		{MintSessionStatusRevealing, MintSessionStatusBroadcast, false},
		{MintSessionStatusCompletedPartial, MintSessionStatusRevealing, true},
		{MintSessionStatusFailed, MintSessionStatusRevealing, true},
		{MintSessionStatusCompleted, MintSessionStatusRevealing, false},
		{MintSessionStatusExpired, MintSessionStatusBroadcast, false},
	}
	for _, tc := range testcases {
		t.Run(string(tc.from)+"_to_"+string(tc.to), func(t *testing.T) {
			err := tc.from.ValidateTransition(tc.to)
			if tc.allowed {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, errs.InvalidState)
			}
		})
	}
}

func TestSessionIsExpired(t *testing.T) {
	now := time.Now()
	session := MintSession{
		Status:    MintSessionStatusPendingSignature,
		ExpiresAt: now.Add(-time.Minute),
	}
	assert.True(t, session.IsExpired(now))

	session.ExpiresAt = now.Add(time.Minute)
	assert.False(t, session.IsExpired(now))

	// only unsigned sessions expire
	session.Status = MintSessionStatusBroadcast
	session.ExpiresAt = now.Add(-time.Minute)
	assert.False(t, session.IsExpired(now))
}

func TestNewBatchOutcome(t *testing.T) {
	testcases := []struct {
		name      string
		succeeded int
		failed    int
		kind      BatchOutcomeKind
		status    MintSessionStatus
	}{
		{name: "all_succeeded", succeeded: 5, failed: 0, kind: BatchOutcomeCompleted, status: MintSessionStatusCompleted},
		{name: "partial", succeeded: 4, failed: 1, kind: BatchOutcomeCompletedPartial, status: MintSessionStatusCompletedPartial},
		{name: "all_failed", succeeded: 0, failed: 3, kind: BatchOutcomeFailed, status: MintSessionStatusFailed},
		{name: "single_success", succeeded: 1, failed: 0, kind: BatchOutcomeCompleted, status: MintSessionStatusCompleted},
	}
	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			outcome := NewBatchOutcome(tc.succeeded, tc.failed)
			assert.Equal(t, tc.kind, outcome.Kind)
			assert.Equal(t, tc.succeeded, outcome.Succeeded)
			assert.Equal(t, tc.failed, outcome.Failed)
			assert.Equal(t, tc.status, outcome.SessionStatus())
		})
	}
}
