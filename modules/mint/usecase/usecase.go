package usecase

import (
	"context"
	"time"

	"github.com/ordforge/mint-engine/common"
	"github.com/ordforge/mint-engine/modules/mint/datagateway"
	"github.com/ordforge/mint-engine/pkg/mempool"
)

// BitcoinGateway is the subset of the mempool API client the mint flows use.
type BitcoinGateway interface {
	RecommendedFees(ctx context.Context) (mempool.RecommendedFees, error)
	BlockFeeRates(ctx context.Context, interval string) ([]mempool.BlockFeeRates, error)
	AddressUTXOs(ctx context.Context, address string) ([]mempool.UTXO, error)
	Tx(ctx context.Context, txid string) (mempool.Tx, error)
	BroadcastTx(ctx context.Context, rawTxHex string) (string, error)
}

// PayloadStore reads inscription payload bytes by artifact key.
type PayloadStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
}

type Config struct {
	Network common.Network

	// SessionTTL is how long an unsigned session stays signable.
	SessionTTL time.Duration

	// CommitPollInterval/CommitPollTimeout bound the wait for the broadcast
	// commit to become visible to the node before revealing.
	CommitPollInterval time.Duration
	CommitPollTimeout  time.Duration

	// RevealSpacing is the pause between consecutive reveal broadcasts of a
	// batch.
	RevealSpacing time.Duration
}

type Usecase struct {
	mintDg   datagateway.MintDataGateway
	bitcoin  BitcoinGateway
	payloads PayloadStore
	config   Config

	now func() time.Time
}

func New(mintDg datagateway.MintDataGateway, bitcoin BitcoinGateway, payloads PayloadStore, config Config) *Usecase {
	if config.SessionTTL <= 0 {
		config.SessionTTL = 30 * time.Minute
	}
	if config.CommitPollInterval <= 0 {
		config.CommitPollInterval = 3 * time.Second
	}
	if config.CommitPollTimeout <= 0 {
		config.CommitPollTimeout = 60 * time.Second
	}
	return &Usecase{
		mintDg:   mintDg,
		bitcoin:  bitcoin,
		payloads: payloads,
		config:   config,
		now:      time.Now,
	}
}
