package btcutils

import (
	"bytes"
	"encoding/hex"

	"github.com/btcsuite/btcd/wire"
	"github.com/cockroachdb/errors"
)

const (
	// TxVersion is the current latest supported transaction version.
	TxVersion = 2

	// MaxTxInSequenceNum is the maximum sequence number the sequence field
	// of a transaction input can be.
	MaxTxInSequenceNum uint32 = 0xffffffff
)

// SerializeTxHex serializes a transaction to raw hex.
func SerializeTxHex(tx *wire.MsgTx) (string, error) {
	var buf bytes.Buffer
	if err := tx.Serialize(&buf); err != nil {
		return "", errors.Wrap(err, "can't serialize tx")
	}
	return hex.EncodeToString(buf.Bytes()), nil
}

// DeserializeTxHex parses a raw hex transaction.
func DeserializeTxHex(rawTxHex string) (*wire.MsgTx, error) {
	raw, err := hex.DecodeString(rawTxHex)
	if err != nil {
		return nil, errors.Wrap(err, "can't decode tx hex")
	}
	tx := wire.NewMsgTx(wire.TxVersion)
	if err := tx.Deserialize(bytes.NewReader(raw)); err != nil {
		return nil, errors.Wrap(err, "can't deserialize tx")
	}
	return tx, nil
}
