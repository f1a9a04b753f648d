package inscribe

import (
	"bytes"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/cockroachdb/errors"
	"github.com/ordforge/mint-engine/common/errs"
	"github.com/ordforge/mint-engine/modules/mint/internal/entity"
	"github.com/ordforge/mint-engine/modules/mint/internal/ordinals"
	"github.com/ordforge/mint-engine/pkg/btcutils"
	"github.com/shopspring/decimal"
)

const (
	// Postage is the satoshi value carried by each inscription output.
	// Taproot dust limit.
	Postage int64 = 330

	// MaxBatchSize is the maximum number of inscriptions per commit.
	MaxBatchSize = 10

	// MaxPayloadSize is the hard cap on a single inscription payload.
	MaxPayloadSize = 390_000

	// WarnPayloadSize flags payloads that are close to the cap in cost
	// breakdowns.
	WarnPayloadSize = 350_000

	// schnorrSigSize is the size of a BIP-340 signature with default sighash.
	schnorrSigSize = 64

	// controlBlockSize is the size of a single-leaf taproot control block.
	controlBlockSize = 33
)

// dummyXOnlyPubKey is used when sizing envelopes without a real key.
var dummyXOnlyPubKey = bytes.Repeat([]byte{0x02}, 32)

// ItemSpec describes one inscription for cost estimation.
type ItemSpec struct {
	ContentType string
	PayloadSize int64
}

// RevealVBytes returns the virtual size of a fully-signed reveal transaction
// for the given envelope leaf script: 1 script-path taproot input, 1 taproot
// postage output.
func RevealVBytes(leafScript []byte) decimal.Decimal {
	tx := wire.NewMsgTx(btcutils.TxVersion)
	txIn := wire.NewTxIn(wire.NewOutPoint(&chainhash.Hash{}, 0), nil, nil)
	txIn.Witness = wire.TxWitness{
		make([]byte, schnorrSigSize),
		leafScript,
		make([]byte, controlBlockSize),
	}
	tx.AddTxIn(txIn)
	// OP_1 <32-byte program>
	taprootPkScript := make([]byte, 34)
	taprootPkScript[0] = 0x51
	taprootPkScript[1] = 0x20
	tx.AddTxOut(wire.NewTxOut(Postage, taprootPkScript))
	return decimal.NewFromInt(btcutils.TxVBytes(tx))
}

// estimateRevealVBytes sizes a reveal for a payload that doesn't exist yet by
// building the envelope around a dummy key and zeroed payload.
func estimateRevealVBytes(contentType string, payloadSize int64) (decimal.Decimal, error) {
	leafScript, err := ordinals.BuildEnvelopeScript(dummyXOnlyPubKey, contentType, make([]byte, payloadSize))
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "can't build envelope script")
	}
	return RevealVBytes(leafScript), nil
}

// CommitVBytes returns the virtual size of the commit transaction for the
// given shape: inputCount inputs of the payment address type, one taproot
// output per inscription and a change output back to the payment address.
func CommitVBytes(paymentAddrType btcutils.AddressType, inputCount, itemCount int) decimal.Decimal {
	paymentSize := btcutils.SizeVBytes(paymentAddrType)
	taprootOut := btcutils.SizeVBytes(btcutils.TransactionP2TR).Output

	total := btcutils.DefaultTxOverheadVBytes +
		paymentSize.Input*float64(inputCount) +
		taprootOut*float64(itemCount) +
		paymentSize.Output // change
	return decimal.NewFromFloat(total)
}

// EstimateCost computes the full cost breakdown of minting the given items at
// the given fee rate. It is a pure function: same inputs, same estimate.
func EstimateCost(items []ItemSpec, feeRate decimal.Decimal, paymentAddrType btcutils.AddressType, inputCount int) (entity.CostEstimate, error) {
	if len(items) == 0 {
		return entity.CostEstimate{}, errors.Wrap(errs.ArgumentRequired, "at least one item is required")
	}
	if len(items) > MaxBatchSize {
		return entity.CostEstimate{}, errors.Wrapf(errs.InvalidArgument, "batch size %d exceeds maximum of %d", len(items), MaxBatchSize)
	}
	if !feeRate.IsPositive() {
		return entity.CostEstimate{}, errors.Wrap(errs.InvalidArgument, "fee rate must be positive")
	}
	if inputCount <= 0 {
		inputCount = 1
	}

	estimate := entity.CostEstimate{
		FeeRate: feeRate,
		Items:   make([]entity.CostEstimateItem, 0, len(items)),
	}
	for i, item := range items {
		if item.PayloadSize <= 0 {
			return entity.CostEstimate{}, errors.Wrapf(errs.InvalidArgument, "item %d: payload size must be positive", i)
		}
		if item.PayloadSize > MaxPayloadSize {
			return entity.CostEstimate{}, errors.Wrapf(errs.InvalidArgument, "item %d: payload size %d exceeds maximum of %d bytes", i, item.PayloadSize, MaxPayloadSize)
		}
		revealVBytes, err := estimateRevealVBytes(item.ContentType, item.PayloadSize)
		if err != nil {
			return entity.CostEstimate{}, errors.Wrapf(err, "item %d", i)
		}
		revealFee := btcutils.FeeForVBytes(feeRate, revealVBytes)
		estimate.Items = append(estimate.Items, entity.CostEstimateItem{
			PayloadSize:  item.PayloadSize,
			RevealVBytes: revealVBytes,
			RevealFee:    revealFee,
			Postage:      Postage,
			CommitValue:  revealFee + Postage,
			OversizeWarn: item.PayloadSize > WarnPayloadSize,
		})
		estimate.TotalRevealFee += revealFee
		estimate.TotalPostage += Postage
		estimate.TotalSizeBytes += item.PayloadSize
	}

	estimate.CommitVBytes = CommitVBytes(paymentAddrType, inputCount, len(items))
	estimate.CommitFee = btcutils.FeeForVBytes(feeRate, estimate.CommitVBytes)
	estimate.Total = estimate.CommitFee + estimate.TotalRevealFee + estimate.TotalPostage
	estimate.TotalBtc = btcutils.SatoshiToBitcoin(estimate.Total)
	return estimate, nil
}
