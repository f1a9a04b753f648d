package btcutils

import (
	"github.com/btcsuite/btcd/blockchain"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/wire"
	"github.com/shopspring/decimal"
)

// DefaultTxOverheadVBytes is the virtual size of an empty segwit transaction
// (version, marker, flag, in/out counts, locktime).
const DefaultTxOverheadVBytes = 10.5

// TxSizeVBytes holds per-input/per-output virtual sizes for a transaction type.
//
// Reference: https://bitcoinops.org/en/tools/calc-size/
type TxSizeVBytes struct {
	Input  float64
	Output float64
}

var txSizes = map[TransactionType]TxSizeVBytes{
	TransactionP2WPKH: {
		Input:  68,
		Output: 31,
	},
	TransactionP2TR: {
		Input:  57.5,
		Output: 43,
	},
	TransactionP2SH: {
		Input:  91,
		Output: 32,
	},
	TransactionP2PKH: {
		Input:  148,
		Output: 34,
	},
	TransactionP2WSH: {
		Input:  104.5,
		Output: 43,
	},
}

// SizeVBytes returns per-input/per-output virtual sizes for the given
// transaction type. Unknown types fall back to P2PKH, the largest standard
// input size, so fee estimates err on the high side.
func SizeVBytes(txType TransactionType) TxSizeVBytes {
	if size, ok := txSizes[txType]; ok {
		return size
	}
	return txSizes[TransactionP2PKH]
}

// TxVBytes returns the virtual size of the given transaction.
// A fraction of a vByte uses 1 vByte.
func TxVBytes(tx *wire.MsgTx) int64 {
	txWeight := blockchain.GetTransactionWeight(btcutil.NewTx(tx))
	txVBytes := txWeight / 4
	if txWeight%4 > 0 {
		txVBytes += 1
	}
	return txVBytes
}

// FeeForVBytes returns the satoshis fee for the given virtual size at the
// given fee rate (sat/vB, fractional rates supported), rounded up.
func FeeForVBytes(feeRate decimal.Decimal, vBytes decimal.Decimal) int64 {
	return feeRate.Mul(vBytes).Ceil().IntPart()
}
