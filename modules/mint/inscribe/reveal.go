package inscribe

import (
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/cockroachdb/errors"
	"github.com/ordforge/mint-engine/pkg/btcutils"
)

// BuildRevealTx builds and signs the reveal transaction for one inscription:
// a single input spending the commit output through the envelope script path,
// and a single postage output to the receiving address. The witness stack is
// [schnorr signature, leaf script, control block].
func BuildRevealTx(privateKey *btcec.PrivateKey, leafScript []byte, commitTxId string, commitVout uint32, commitValue int64, receiverPkScript []byte) (*wire.MsgTx, error) {
	commitHash, err := chainhash.NewHashFromStr(commitTxId)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid commit txid %q", commitTxId)
	}

	tapLeaf := txscript.NewBaseTapLeaf(leafScript)
	tapScriptTree := txscript.AssembleTaprootScriptTree(tapLeaf)
	rootHash := tapScriptTree.RootNode.TapHash()
	outputKey := txscript.ComputeTaprootOutputKey(privateKey.PubKey(), rootHash[:])
	commitPkScript, err := txscript.PayToTaprootScript(outputKey)
	if err != nil {
		return nil, errors.Wrap(err, "can't rebuild commit pkScript")
	}

	tx := wire.NewMsgTx(btcutils.TxVersion)
	tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(commitHash, commitVout), nil, nil))
	tx.AddTxOut(wire.NewTxOut(Postage, receiverPkScript))

	prevFetcher := txscript.NewCannedPrevOutputFetcher(commitPkScript, commitValue)
	sigHashes := txscript.NewTxSigHashes(tx, prevFetcher)
	signature, err := txscript.RawTxInTapscriptSignature(tx, sigHashes, 0, commitValue, commitPkScript, tapLeaf, txscript.SigHashDefault, privateKey)
	if err != nil {
		return nil, errors.Wrap(err, "can't sign reveal input")
	}

	controlBlock := tapScriptTree.LeafMerkleProofs[0].ToControlBlock(privateKey.PubKey())
	controlBlockBytes, err := controlBlock.ToBytes()
	if err != nil {
		return nil, errors.Wrap(err, "can't serialize control block")
	}

	tx.TxIn[0].Witness = wire.TxWitness{signature, leafScript, controlBlockBytes}
	return tx, nil
}
