package usecase

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/ordforge/mint-engine/common/errs"
	"github.com/ordforge/mint-engine/modules/mint/inscribe"
	"github.com/ordforge/mint-engine/modules/mint/internal/entity"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedBroadcastSession stores a session in broadcast status with one pending
// inscription per payload, ready to reveal against commitTxId.
func seedBroadcastSession(t *testing.T, u *Usecase, mintDg *fakeMintDg, commitTxId string, payloads ...[]byte) (*entity.MintSession, []*entity.MintInscription) {
	t.Helper()
	now := u.now()
	session := &entity.MintSession{
		Id:               uuid.New(),
		Status:           entity.MintSessionStatusBroadcast,
		MinterAddress:    testMinterAddress,
		PaymentAddress:   testPaymentAddress,
		ReceivingAddress: testMinterAddress,
		FeeRate:          decimal.NewFromInt(1),
		CommitTxId:       commitTxId,
		CreatedAt:        now,
		UpdatedAt:        now,
		ExpiresAt:        now.Add(time.Hour),
	}
	inscriptions := make([]*entity.MintInscription, 0, len(payloads))
	for i, payload := range payloads {
		item, err := inscribe.NewCommitItem(inscribe.InscriptionData{
			OrdinalId:   int64(i + 1),
			ContentType: "image/png",
			Payload:     payload,
		}, session.FeeRate)
		require.NoError(t, err)
		inscriptions = append(inscriptions, &entity.MintInscription{
			Id:               uuid.New(),
			SessionId:        session.Id,
			OrdinalId:        item.OrdinalId,
			ContentType:      item.ContentType,
			PayloadSize:      item.PayloadSize,
			RevealPrivateKey: item.PrivateKey.Serialize(),
			LeafScript:       item.LeafScript,
			CommitVout:       uint32(i),
			CommitValue:      item.Value,
			Status:           entity.MintInscriptionStatusPending,
		})
	}
	mintDg.addSession(session, inscriptions...)
	return session, inscriptions
}

func TestReveal(t *testing.T) {
	u, mintDg, bitcoin, _ := newTestUsecase()
	commitTxId := testTxId(0xcd)
	bitcoin.visibleTxs[commitTxId] = struct{}{}
	session, _ := seedBroadcastSession(t, u, mintDg, commitTxId,
		bytes.Repeat([]byte{0x01}, 500),
		bytes.Repeat([]byte{0x02}, 500),
	)

	result, err := u.Reveal(context.Background(), RevealParams{SessionId: session.Id})
	require.NoError(t, err)

	assert.Equal(t, entity.BatchOutcomeCompleted, result.Outcome.Kind)
	assert.Equal(t, 2, result.Outcome.Succeeded)
	assert.Equal(t, entity.MintSessionStatusCompleted, mintDg.session(session.Id).Status)

	stored, err := mintDg.GetMintInscriptionsBySessionId(context.Background(), session.Id)
	require.NoError(t, err)
	for _, inscription := range stored {
		assert.Equal(t, entity.MintInscriptionStatusBroadcast, inscription.Status)
		assert.NotEmpty(t, inscription.RevealTxId)
		assert.Equal(t, inscription.RevealTxId+"i0", inscription.InscriptionId)
		assert.NotNil(t, inscription.RevealedAt)
	}
}

func TestRevealPartialFailure(t *testing.T) {
	u, mintDg, bitcoin, _ := newTestUsecase()
	commitTxId := testTxId(0xcd)
	bitcoin.visibleTxs[commitTxId] = struct{}{}
	session, _ := seedBroadcastSession(t, u, mintDg, commitTxId,
		bytes.Repeat([]byte{0x01}, 500),
		bytes.Repeat([]byte{0x02}, 500),
		bytes.Repeat([]byte{0x03}, 500),
	)

	// one sibling's broadcast is rejected, the others must still go out
	bitcoin.failBroadcastCalls[2] = errors.New("bad-txns-inputs-missingorspent")

	result, err := u.Reveal(context.Background(), RevealParams{SessionId: session.Id})
	require.NoError(t, err)

	assert.Equal(t, entity.BatchOutcomeCompletedPartial, result.Outcome.Kind)
	assert.Equal(t, 2, result.Outcome.Succeeded)
	assert.Equal(t, 1, result.Outcome.Failed)
	assert.Equal(t, entity.MintSessionStatusCompletedPartial, mintDg.session(session.Id).Status)

	stored, err := mintDg.GetMintInscriptionsBySessionId(context.Background(), session.Id)
	require.NoError(t, err)
	var failed *entity.MintInscription
	for _, inscription := range stored {
		if inscription.Status == entity.MintInscriptionStatusFailed {
			failed = inscription
		}
	}
	require.NotNil(t, failed)
	assert.Contains(t, failed.ErrorMessage, "bad-txns-inputs-missingorspent")
}

func TestRevealStopsOnCancelledContext(t *testing.T) {
	u, mintDg, bitcoin, _ := newTestUsecase()
	u.config.RevealSpacing = 10 * time.Millisecond
	commitTxId := testTxId(0xcd)
	bitcoin.visibleTxs[commitTxId] = struct{}{}
	session, _ := seedBroadcastSession(t, u, mintDg, commitTxId,
		bytes.Repeat([]byte{0x01}, 500),
		bytes.Repeat([]byte{0x02}, 500),
	)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := u.Reveal(ctx, RevealParams{SessionId: session.Id})
	assert.ErrorIs(t, err, context.Canceled)

	// the first item went out, the rest wait for a later call
	stored, err := mintDg.GetMintInscriptionsBySessionId(context.Background(), session.Id)
	require.NoError(t, err)
	assert.Equal(t, entity.MintInscriptionStatusBroadcast, stored[0].Status)
	assert.Equal(t, entity.MintInscriptionStatusPending, stored[1].Status)
	assert.Equal(t, entity.MintSessionStatusRevealing, mintDg.session(session.Id).Status)
}

func TestRevealCommitNotVisible(t *testing.T) {
	u, mintDg, _, _ := newTestUsecase()
	commitTxId := testTxId(0xcd)
	session, _ := seedBroadcastSession(t, u, mintDg, commitTxId, []byte("payload"))

	_, err := u.Reveal(context.Background(), RevealParams{SessionId: session.Id})
	assert.ErrorIs(t, err, errs.Timeout)
	// the session stays revealing so a later call can pick it up
	assert.Equal(t, entity.MintSessionStatusRevealing, mintDg.session(session.Id).Status)
}

func TestRevealCommitTxIdMismatch(t *testing.T) {
	u, mintDg, _, _ := newTestUsecase()
	session, _ := seedBroadcastSession(t, u, mintDg, testTxId(0xcd), []byte("payload"))

	_, err := u.Reveal(context.Background(), RevealParams{
		SessionId:  session.Id,
		CommitTxId: testTxId(0xee),
	})
	assert.ErrorIs(t, err, errs.InvalidArgument)
}

func TestRevealCompletedSessionRejected(t *testing.T) {
	u, mintDg, _, _ := newTestUsecase()
	session, _ := seedBroadcastSession(t, u, mintDg, testTxId(0xcd), []byte("payload"))
	require.NoError(t, mintDg.UpdateMintSessionStatus(context.Background(), session.Id, entity.MintSessionStatusCompleted, ""))

	_, err := u.Reveal(context.Background(), RevealParams{SessionId: session.Id})
	assert.ErrorIs(t, err, errs.InvalidState)
}

func TestRetryReveal(t *testing.T) {
	u, mintDg, bitcoin, _ := newTestUsecase()
	commitTxId := testTxId(0xcd)
	session, inscriptions := seedBroadcastSession(t, u, mintDg, commitTxId, []byte("payload"))

	// the first reveal attempt failed and the session landed on failed
	failedItem := inscriptions[0]
	failedItem.Status = entity.MintInscriptionStatusFailed
	failedItem.ErrorMessage = "mempool rejected"
	require.NoError(t, mintDg.UpdateMintInscriptionResult(context.Background(), failedItem))
	require.NoError(t, mintDg.UpdateMintSessionStatus(context.Background(), session.Id, entity.MintSessionStatusFailed, ""))
	bitcoin.visibleTxs[commitTxId] = struct{}{}

	result, err := u.RetryReveal(context.Background(), failedItem.Id)
	require.NoError(t, err)

	assert.Equal(t, entity.BatchOutcomeCompleted, result.Outcome.Kind)
	assert.Equal(t, entity.MintInscriptionStatusBroadcast, result.Inscription.Status)
	assert.Empty(t, result.Inscription.ErrorMessage)
	assert.Equal(t, entity.MintSessionStatusCompleted, mintDg.session(session.Id).Status)
}

func TestRetryRevealOnlyFailedItems(t *testing.T) {
	u, mintDg, _, _ := newTestUsecase()
	_, inscriptions := seedBroadcastSession(t, u, mintDg, testTxId(0xcd), []byte("payload"))

	_, err := u.RetryReveal(context.Background(), inscriptions[0].Id)
	assert.ErrorIs(t, err, errs.InvalidState)
}
