package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/ordforge/mint-engine/common"
	"github.com/ordforge/mint-engine/common/errs"
	"github.com/ordforge/mint-engine/modules/mint/datagateway"
	"github.com/ordforge/mint-engine/modules/mint/internal/entity"
	"github.com/ordforge/mint-engine/pkg/mempool"
	"github.com/samber/lo"
)

// fakeMintDg is an in-memory MintDataGateway. Transactions write through
// immediately, rollback is a no-op.
type fakeMintDg struct {
	mu           sync.Mutex
	sessions     map[uuid.UUID]*entity.MintSession
	inscriptions map[uuid.UUID]*entity.MintInscription
	ordinals     map[int64]*entity.Ordinal

	// reservations is keyed by outpoint, one reservation per funding UTXO.
	reservations map[string]*entity.ReservedUTXO
}

func newFakeMintDg() *fakeMintDg {
	return &fakeMintDg{
		sessions:     make(map[uuid.UUID]*entity.MintSession),
		inscriptions: make(map[uuid.UUID]*entity.MintInscription),
		ordinals:     make(map[int64]*entity.Ordinal),
		reservations: make(map[string]*entity.ReservedUTXO),
	}
}

func (f *fakeMintDg) addOrdinal(ordinal *entity.Ordinal) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ordinals[ordinal.Id] = ordinal
}

func (f *fakeMintDg) addSession(session *entity.MintSession, inscriptions ...*entity.MintInscription) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[session.Id] = lo.ToPtr(*session)
	for _, inscription := range inscriptions {
		f.inscriptions[inscription.Id] = lo.ToPtr(*inscription)
	}
}

func (f *fakeMintDg) session(id uuid.UUID) *entity.MintSession {
	f.mu.Lock()
	defer f.mu.Unlock()
	return lo.ToPtr(*f.sessions[id])
}

func (f *fakeMintDg) reservationCount(sessionId uuid.UUID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int
	for _, reservation := range f.reservations {
		if reservation.SessionId == sessionId {
			count++
		}
	}
	return count
}

func (f *fakeMintDg) addReservation(reservation *entity.ReservedUTXO) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reservations[reservation.Outpoint()] = reservation
}

func (f *fakeMintDg) GetMintSession(_ context.Context, id uuid.UUID) (*entity.MintSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	session, ok := f.sessions[id]
	if !ok {
		return nil, errors.Wrapf(errs.NotFound, "session %s", id)
	}
	return lo.ToPtr(*session), nil
}

func (f *fakeMintDg) GetMintInscriptionsBySessionId(_ context.Context, sessionId uuid.UUID) ([]*entity.MintInscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []*entity.MintInscription
	for _, inscription := range f.inscriptions {
		if inscription.SessionId == sessionId {
			result = append(result, lo.ToPtr(*inscription))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CommitVout < result[j].CommitVout })
	return result, nil
}

func (f *fakeMintDg) GetMintInscription(_ context.Context, id uuid.UUID) (*entity.MintInscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inscription, ok := f.inscriptions[id]
	if !ok {
		return nil, errors.Wrapf(errs.NotFound, "inscription %s", id)
	}
	return lo.ToPtr(*inscription), nil
}

func (f *fakeMintDg) GetOrdinalsByIds(_ context.Context, ids []int64) ([]*entity.Ordinal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	result := make([]*entity.Ordinal, 0, len(ids))
	for _, id := range ids {
		ordinal, ok := f.ordinals[id]
		if !ok {
			return nil, errors.Wrapf(errs.NotFound, "ordinal %d", id)
		}
		result = append(result, ordinal)
	}
	return result, nil
}

func (f *fakeMintDg) GetLiveReservedOutpoints(_ context.Context, excludeSessionId uuid.UUID, now time.Time) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var outpoints []string
	for outpoint, reservation := range f.reservations {
		if reservation.SessionId == excludeSessionId {
			continue
		}
		if reservation.ExpiresAt.After(now) {
			outpoints = append(outpoints, outpoint)
		}
	}
	return outpoints, nil
}

func (f *fakeMintDg) GetExpiredPendingSessions(_ context.Context, now time.Time, limit int32) ([]*entity.MintSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []*entity.MintSession
	for _, session := range f.sessions {
		if session.IsExpired(now) && len(result) < int(limit) {
			result = append(result, lo.ToPtr(*session))
		}
	}
	return result, nil
}

func (f *fakeMintDg) CreateMintSession(_ context.Context, session *entity.MintSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[session.Id] = lo.ToPtr(*session)
	return nil
}

func (f *fakeMintDg) UpdateMintSessionStatus(_ context.Context, id uuid.UUID, status entity.MintSessionStatus, commitTxId string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	session, ok := f.sessions[id]
	if !ok {
		return errors.Wrapf(errs.NotFound, "session %s", id)
	}
	session.Status = status
	if commitTxId != "" {
		session.CommitTxId = commitTxId
	}
	return nil
}

func (f *fakeMintDg) CreateMintInscriptions(_ context.Context, inscriptions []*entity.MintInscription) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, inscription := range inscriptions {
		f.inscriptions[inscription.Id] = lo.ToPtr(*inscription)
	}
	return nil
}

func (f *fakeMintDg) UpdateMintInscriptionResult(_ context.Context, inscription *entity.MintInscription) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inscriptions[inscription.Id] = lo.ToPtr(*inscription)
	return nil
}

func (f *fakeMintDg) ReserveUTXOs(_ context.Context, reservations []*entity.ReservedUTXO) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, reservation := range reservations {
		// a live row conflicts, an expired one is taken over in place
		if existing, ok := f.reservations[reservation.Outpoint()]; ok && existing.ExpiresAt.After(reservation.ReservedAt) {
			return errors.Wrapf(errs.Conflict, "utxo %s already reserved", reservation.Outpoint())
		}
		f.reservations[reservation.Outpoint()] = reservation
	}
	return nil
}

func (f *fakeMintDg) ReleaseUTXOsBySessionId(_ context.Context, sessionId uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for outpoint, reservation := range f.reservations {
		if reservation.SessionId == sessionId {
			delete(f.reservations, outpoint)
		}
	}
	return nil
}

func (f *fakeMintDg) BeginMintTx(context.Context) (datagateway.MintDataGatewayWithTx, error) {
	return &fakeMintDgTx{fakeMintDg: f}, nil
}

type fakeMintDgTx struct {
	*fakeMintDg
}

func (f *fakeMintDgTx) Commit(context.Context) error   { return nil }
func (f *fakeMintDgTx) Rollback(context.Context) error { return nil }

// fakeBitcoin is a scriptable BitcoinGateway.
type fakeBitcoin struct {
	mu sync.Mutex

	utxos            []mempool.UTXO
	blockFeeRates    []mempool.BlockFeeRates
	blockFeeRatesErr error

	// visibleTxs are txids the Tx endpoint knows about.
	visibleTxs map[string]struct{}

	// failBroadcastCalls fails the Nth BroadcastTx call (1-based).
	failBroadcastCalls map[int]error
	broadcastCalls     int
	broadcasted        []string
}

func newFakeBitcoin() *fakeBitcoin {
	return &fakeBitcoin{
		visibleTxs:         make(map[string]struct{}),
		failBroadcastCalls: make(map[int]error),
	}
}

func (f *fakeBitcoin) RecommendedFees(context.Context) (mempool.RecommendedFees, error) {
	return mempool.RecommendedFees{}, nil
}

func (f *fakeBitcoin) BlockFeeRates(context.Context, string) ([]mempool.BlockFeeRates, error) {
	if f.blockFeeRatesErr != nil {
		return nil, f.blockFeeRatesErr
	}
	return f.blockFeeRates, nil
}

func (f *fakeBitcoin) AddressUTXOs(context.Context, string) ([]mempool.UTXO, error) {
	return f.utxos, nil
}

func (f *fakeBitcoin) Tx(_ context.Context, txid string) (mempool.Tx, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.visibleTxs[txid]; !ok {
		return mempool.Tx{}, errors.Wrapf(errs.NotFound, "tx %s", txid)
	}
	return mempool.Tx{TxID: txid}, nil
}

func (f *fakeBitcoin) BroadcastTx(_ context.Context, rawTxHex string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.broadcastCalls++
	if err, ok := f.failBroadcastCalls[f.broadcastCalls]; ok {
		return "", err
	}
	txid := testTxId(byte(f.broadcastCalls))
	f.broadcasted = append(f.broadcasted, rawTxHex)
	f.visibleTxs[txid] = struct{}{}
	return txid, nil
}

// fakePayloads serves inscription payload bytes from memory.
type fakePayloads struct {
	payloads map[string][]byte
}

func (f *fakePayloads) Get(_ context.Context, key string) ([]byte, error) {
	payload, ok := f.payloads[key]
	if !ok {
		return nil, errors.Wrapf(errs.NotFound, "payload %s", key)
	}
	return payload, nil
}

func newTestUsecase() (*Usecase, *fakeMintDg, *fakeBitcoin, *fakePayloads) {
	mintDg := newFakeMintDg()
	bitcoin := newFakeBitcoin()
	payloads := &fakePayloads{payloads: make(map[string][]byte)}
	u := New(mintDg, bitcoin, payloads, Config{
		Network:            common.NetworkMainnet,
		SessionTTL:         30 * time.Minute,
		CommitPollInterval: time.Millisecond,
		CommitPollTimeout:  50 * time.Millisecond,
	})
	return u, mintDg, bitcoin, payloads
}

// testTxId returns a valid 64-hex txid filled with the given byte.
func testTxId(b byte) string {
	const hexdigits = "0123456789abcdef"
	buf := make([]byte, 64)
	for i := range buf {
		if i%2 == 0 {
			buf[i] = hexdigits[b>>4]
		} else {
			buf[i] = hexdigits[b&0x0f]
		}
	}
	return string(buf)
}
