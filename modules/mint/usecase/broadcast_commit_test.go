package usecase

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ordforge/mint-engine/common/errs"
	"github.com/ordforge/mint-engine/modules/mint/internal/entity"
	"github.com/ordforge/mint-engine/pkg/btcutils"
	"github.com/ordforge/mint-engine/pkg/btcutils/psbtutils"
	"github.com/ordforge/mint-engine/pkg/mempool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createPendingSession runs the real CreateCommit flow and returns the session
// plus the commit transaction hex a signing wallet would hand back.
func createPendingSession(t *testing.T, u *Usecase, mintDg *fakeMintDg, bitcoin *fakeBitcoin, payloads *fakePayloads) (*entity.MintSession, string) {
	t.Helper()
	seedOrdinal(mintDg, payloads, 1, bytes.Repeat([]byte{0x01}, 1000))
	bitcoin.utxos = []mempool.UTXO{confirmedUTXO(testTxId(0xaa), 0, 500_000)}

	result, err := u.CreateCommit(context.Background(), CreateCommitParams{
		OrdinalIds:     []int64{1},
		MinterAddress:  testMinterAddress,
		PaymentAddress: testPaymentAddress,
		FeeRate:        decimal.NewFromInt(2),
	})
	require.NoError(t, err)

	packet, err := psbtutils.DecodeString(result.CommitPSBT)
	require.NoError(t, err)
	txHex, err := btcutils.SerializeTxHex(packet.UnsignedTx)
	require.NoError(t, err)
	return result.Session, txHex
}

func TestBroadcastCommit(t *testing.T) {
	u, mintDg, bitcoin, payloads := newTestUsecase()
	session, txHex := createPendingSession(t, u, mintDg, bitcoin, payloads)

	result, err := u.BroadcastCommit(context.Background(), BroadcastCommitParams{
		SessionId: session.Id,
		TxHex:     txHex,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, result.CommitTxId)
	stored := mintDg.session(session.Id)
	assert.Equal(t, entity.MintSessionStatusBroadcast, stored.Status)
	assert.Equal(t, result.CommitTxId, stored.CommitTxId)
	// the funding outputs are spent now, reservations are gone
	assert.Zero(t, mintDg.reservationCount(session.Id))
}

func TestBroadcastCommitRejected(t *testing.T) {
	u, mintDg, bitcoin, payloads := newTestUsecase()
	session, txHex := createPendingSession(t, u, mintDg, bitcoin, payloads)
	bitcoin.failBroadcastCalls[1] = &mempool.BroadcastError{
		StatusCode: 400,
		Reason:     "bad-txns-inputs-missingorspent",
		Retryable:  false,
	}

	_, err := u.BroadcastCommit(context.Background(), BroadcastCommitParams{
		SessionId: session.Id,
		TxHex:     txHex,
	})
	require.Error(t, err)

	// a fatal rejection fails the session and frees its reservations
	assert.Equal(t, entity.MintSessionStatusFailed, mintDg.session(session.Id).Status)
	assert.Zero(t, mintDg.reservationCount(session.Id))
}

func TestBroadcastCommitAlreadyInMempool(t *testing.T) {
	u, mintDg, bitcoin, payloads := newTestUsecase()
	session, txHex := createPendingSession(t, u, mintDg, bitcoin, payloads)

	// a client retry after a lost response: the node already has the tx,
	// the session must complete the broadcast instead of failing
	bitcoin.failBroadcastCalls[1] = &mempool.BroadcastError{
		StatusCode:   400,
		Reason:       "txn-already-in-mempool",
		AlreadyKnown: true,
	}

	result, err := u.BroadcastCommit(context.Background(), BroadcastCommitParams{
		SessionId: session.Id,
		TxHex:     txHex,
	})
	require.NoError(t, err)

	tx, err := btcutils.DeserializeTxHex(txHex)
	require.NoError(t, err)
	assert.Equal(t, tx.TxHash().String(), result.CommitTxId)

	stored := mintDg.session(session.Id)
	assert.Equal(t, entity.MintSessionStatusBroadcast, stored.Status)
	assert.Equal(t, result.CommitTxId, stored.CommitTxId)
	assert.Zero(t, mintDg.reservationCount(session.Id))
}

func TestBroadcastCommitTransientFailure(t *testing.T) {
	u, mintDg, bitcoin, payloads := newTestUsecase()
	session, txHex := createPendingSession(t, u, mintDg, bitcoin, payloads)
	bitcoin.failBroadcastCalls[1] = &mempool.BroadcastError{
		StatusCode: 502,
		Reason:     "bad gateway",
		Retryable:  true,
	}

	_, err := u.BroadcastCommit(context.Background(), BroadcastCommitParams{
		SessionId: session.Id,
		TxHex:     txHex,
	})
	require.Error(t, err)

	// the session stays signable so the client can re-submit
	assert.Equal(t, entity.MintSessionStatusPendingSignature, mintDg.session(session.Id).Status)
	assert.Equal(t, 1, mintDg.reservationCount(session.Id))
}

func TestBroadcastCommitTamperedOutputs(t *testing.T) {
	u, mintDg, bitcoin, payloads := newTestUsecase()
	session, txHex := createPendingSession(t, u, mintDg, bitcoin, payloads)

	// a wallet that edits the commit output value must be rejected
	tx, err := btcutils.DeserializeTxHex(txHex)
	require.NoError(t, err)
	tx.TxOut[0].Value--
	tamperedHex, err := btcutils.SerializeTxHex(tx)
	require.NoError(t, err)

	_, err = u.BroadcastCommit(context.Background(), BroadcastCommitParams{
		SessionId: session.Id,
		TxHex:     tamperedHex,
	})
	assert.ErrorIs(t, err, errs.InvalidArgument)
	assert.Equal(t, entity.MintSessionStatusPendingSignature, mintDg.session(session.Id).Status)
}

func TestBroadcastCommitExpiredSession(t *testing.T) {
	u, mintDg, bitcoin, payloads := newTestUsecase()
	session, txHex := createPendingSession(t, u, mintDg, bitcoin, payloads)

	u.now = func() time.Time { return session.ExpiresAt.Add(time.Minute) }

	_, err := u.BroadcastCommit(context.Background(), BroadcastCommitParams{
		SessionId: session.Id,
		TxHex:     txHex,
	})
	assert.ErrorIs(t, err, errs.InvalidState)
}

func TestBroadcastCommitRequiresSubmission(t *testing.T) {
	u, mintDg, bitcoin, payloads := newTestUsecase()
	session, _ := createPendingSession(t, u, mintDg, bitcoin, payloads)

	_, err := u.BroadcastCommit(context.Background(), BroadcastCommitParams{SessionId: session.Id})
	assert.ErrorIs(t, err, errs.ArgumentRequired)
}

func TestExpireSessions(t *testing.T) {
	u, mintDg, bitcoin, payloads := newTestUsecase()
	expired, _ := createPendingSession(t, u, mintDg, bitcoin, payloads)

	// a second session still inside its signing window
	live := &entity.MintSession{
		Id:        uuid.New(),
		Status:    entity.MintSessionStatusPendingSignature,
		ExpiresAt: time.Now().Add(time.Hour),
	}
	mintDg.addSession(live)

	u.now = func() time.Time { return expired.ExpiresAt.Add(time.Minute) }

	count, err := u.ExpireSessions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	assert.Equal(t, entity.MintSessionStatusExpired, mintDg.session(expired.Id).Status)
	assert.Zero(t, mintDg.reservationCount(expired.Id))
	assert.Equal(t, entity.MintSessionStatusPendingSignature, mintDg.session(live.Id).Status)
}
