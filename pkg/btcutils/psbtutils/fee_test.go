package psbtutils

import (
	"testing"

	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/ordforge/mint-engine/pkg/btcutils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPacket(t *testing.T) *psbt.Packet {
	t.Helper()

	// OP_0 <20-byte key hash>
	p2wpkhScript := append([]byte{0x00, 0x14}, make([]byte, 20)...)
	// OP_1 <32-byte program>
	p2trScript := append([]byte{0x51, 0x20}, make([]byte, 32)...)

	tx := wire.NewMsgTx(wire.TxVersion)
	tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&chainhash.Hash{}, 0), nil, nil))
	tx.AddTxOut(wire.NewTxOut(10_000, p2trScript))
	tx.AddTxOut(wire.NewTxOut(5_000, p2wpkhScript))

	packet, err := psbt.NewFromUnsignedTx(tx)
	require.NoError(t, err)
	packet.Inputs[0].WitnessUtxo = wire.NewTxOut(20_000, p2wpkhScript)
	return packet
}

func TestPSBTSize(t *testing.T) {
	size, err := PSBTSize(testPacket(t))
	require.NoError(t, err)

	p2wpkh := btcutils.SizeVBytes(btcutils.TransactionP2WPKH)
	p2tr := btcutils.SizeVBytes(btcutils.TransactionP2TR)
	expected := btcutils.DefaultTxOverheadVBytes + p2wpkh.Input + p2tr.Output + p2wpkh.Output
	assert.Equal(t, expected, size)
}

func TestPSBTSizeMissingWitnessUtxo(t *testing.T) {
	packet := testPacket(t)
	packet.Inputs[0].WitnessUtxo = nil

	_, err := PSBTSize(packet)
	require.Error(t, err)
}

func TestTxFee(t *testing.T) {
	packet := testPacket(t)

	fee, err := TxFee(decimal.NewFromInt(2), packet)
	require.NoError(t, err)

	size, err := PSBTSize(packet)
	require.NoError(t, err)
	assert.Equal(t, btcutils.FeeForVBytes(decimal.NewFromInt(2), decimal.NewFromFloat(size)), fee)
	assert.Positive(t, fee)
}
