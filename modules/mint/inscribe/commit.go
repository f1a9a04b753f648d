package inscribe

import (
	"sort"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/cockroachdb/errors"
	"github.com/ordforge/mint-engine/common/errs"
	"github.com/ordforge/mint-engine/modules/mint/internal/entity"
	"github.com/ordforge/mint-engine/modules/mint/internal/ordinals"
	"github.com/ordforge/mint-engine/pkg/btcutils"
	"github.com/shopspring/decimal"
)

// InscriptionData is the content of one inscription to commit.
type InscriptionData struct {
	OrdinalId   int64
	ContentType string
	Payload     []byte
}

// CommitItem holds the per-inscription commit artifacts: the ephemeral key
// that can sign the reveal, the envelope leaf script it commits to, and the
// taproot output paying for the reveal.
type CommitItem struct {
	OrdinalId   int64
	ContentType string
	PayloadSize int64

	PrivateKey *btcec.PrivateKey
	LeafScript []byte
	PkScript   []byte

	RevealFee int64
	Value     int64
}

// NewCommitItem generates a fresh ephemeral keypair for the inscription,
// builds its envelope leaf script and derives the single-leaf taproot commit
// output. The output value covers the item's reveal fee plus postage.
func NewCommitItem(data InscriptionData, feeRate decimal.Decimal) (*CommitItem, error) {
	if len(data.Payload) > MaxPayloadSize {
		return nil, errors.Wrapf(errs.InvalidArgument, "payload size %d exceeds maximum of %d bytes", len(data.Payload), MaxPayloadSize)
	}

	privateKey, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, errors.Wrap(err, "can't generate ephemeral key")
	}

	leafScript, err := ordinals.BuildEnvelopeScript(schnorr.SerializePubKey(privateKey.PubKey()), data.ContentType, data.Payload)
	if err != nil {
		return nil, errors.Wrap(err, "can't build envelope script")
	}

	pkScript, err := CommitPkScript(privateKey.PubKey(), leafScript)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	revealFee := btcutils.FeeForVBytes(feeRate, RevealVBytes(leafScript))
	return &CommitItem{
		OrdinalId:   data.OrdinalId,
		ContentType: data.ContentType,
		PayloadSize: int64(len(data.Payload)),
		PrivateKey:  privateKey,
		LeafScript:  leafScript,
		PkScript:    pkScript,
		RevealFee:   revealFee,
		Value:       revealFee + Postage,
	}, nil
}

// CommitPkScript derives the taproot output script whose script tree is the
// single envelope leaf.
func CommitPkScript(internalKey *btcec.PublicKey, leafScript []byte) ([]byte, error) {
	tapLeaf := txscript.NewBaseTapLeaf(leafScript)
	rootHash := tapLeaf.TapHash()
	outputKey := txscript.ComputeTaprootOutputKey(internalKey, rootHash[:])
	pkScript, err := txscript.PayToTaprootScript(outputKey)
	if err != nil {
		return nil, errors.Wrap(err, "can't build taproot pkScript")
	}
	return pkScript, nil
}

// CommitPSBT is an unsigned commit transaction with its funding selection.
type CommitPSBT struct {
	Packet   *psbt.Packet
	Selected []entity.UTXO
	Fee      int64
	Change   int64
}

// BuildCommitPSBT selects funding UTXOs largest-first and builds the unsigned
// commit PSBT: one taproot output per item in order, then change back to the
// payment address. Each PSBT input carries its witness UTXO so wallets can
// sign offline. Returns *entity.InsufficientFundsError if the candidates
// can't cover outputs plus fee.
func BuildCommitPSBT(items []*CommitItem, candidates []entity.UTXO, paymentAddress btcutils.Address, feeRate decimal.Decimal) (*CommitPSBT, error) {
	if len(items) == 0 {
		return nil, errors.Wrap(errs.ArgumentRequired, "at least one item is required")
	}
	if len(items) > MaxBatchSize {
		return nil, errors.Wrapf(errs.InvalidArgument, "batch size %d exceeds maximum of %d", len(items), MaxBatchSize)
	}

	var outputsValue int64
	for _, item := range items {
		outputsValue += item.Value
	}

	sorted := make([]entity.UTXO, len(candidates))
	copy(sorted, candidates)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Value > sorted[j].Value })

	fee := func(inputCount int) int64 {
		return btcutils.FeeForVBytes(feeRate, CommitVBytes(paymentAddress.Type(), inputCount, len(items)))
	}

	var (
		selected []entity.UTXO
		total    int64
	)
	for _, utxo := range sorted {
		selected = append(selected, utxo)
		total += utxo.Value
		if total >= outputsValue+fee(len(selected)) {
			break
		}
	}
	if len(selected) == 0 || total < outputsValue+fee(len(selected)) {
		return nil, errors.WithStack(&entity.InsufficientFundsError{
			Required:  outputsValue + fee(max(len(selected), 1)),
			Available: total,
		})
	}

	commitFee := fee(len(selected))
	change := total - outputsValue - commitFee

	tx := wire.NewMsgTx(btcutils.TxVersion)
	for _, utxo := range selected {
		txHash, err := chainhash.NewHashFromStr(utxo.TxId)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid utxo txid %q", utxo.TxId)
		}
		tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(txHash, utxo.Vout), nil, nil))
	}
	for _, item := range items {
		tx.AddTxOut(wire.NewTxOut(item.Value, item.PkScript))
	}
	// dust change is folded into the fee
	if change >= int64(paymentAddress.DustLimit()) {
		tx.AddTxOut(wire.NewTxOut(change, paymentAddress.ScriptPubKey()))
	} else {
		commitFee += change
		change = 0
	}

	packet, err := psbt.NewFromUnsignedTx(tx)
	if err != nil {
		return nil, errors.Wrap(err, "can't create psbt from unsigned tx")
	}
	for i, utxo := range selected {
		packet.Inputs[i].WitnessUtxo = wire.NewTxOut(utxo.Value, paymentAddress.ScriptPubKey())
		packet.Inputs[i].SighashType = txscript.SigHashAll
	}

	return &CommitPSBT{
		Packet:   packet,
		Selected: selected,
		Fee:      commitFee,
		Change:   change,
	}, nil
}
