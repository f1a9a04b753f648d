package psbtutils

import (
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/cockroachdb/errors"
	"github.com/ordforge/mint-engine/common/errs"
	"github.com/ordforge/mint-engine/pkg/btcutils"
	"github.com/shopspring/decimal"
)

// TxFee returns satoshis fee of a transaction given the fee rate (sat/vB).
func TxFee(feeRate decimal.Decimal, p *psbt.Packet) (int64, error) {
	size, err := PSBTSize(p)
	if err != nil {
		return 0, errors.Wrap(err, "psbt size")
	}
	return btcutils.FeeForVBytes(feeRate, decimal.NewFromFloat(size)), nil
}

// PSBTSize estimates the fully-signed virtual size of the given packet from
// its input/output script types. All inputs must carry a WitnessUtxo.
func PSBTSize(p *psbt.Packet) (float64, error) {
	if err := p.SanityCheck(); err != nil {
		return 0, errors.Wrap(errors.Join(err, errs.InvalidArgument), "psbt sanity check")
	}

	totalSize := btcutils.DefaultTxOverheadVBytes

	for _, input := range p.Inputs {
		if input.WitnessUtxo == nil {
			return 0, errors.Wrap(errs.InvalidArgument, "input missing witness utxo")
		}
		addrType, err := btcutils.GetAddressTypeFromPkScript(input.WitnessUtxo.PkScript)
		if err != nil {
			return 0, errors.Wrap(err, "get address type from pk script")
		}
		totalSize += btcutils.SizeVBytes(addrType).Input
	}

	for _, output := range p.UnsignedTx.TxOut {
		addrType, err := btcutils.GetAddressTypeFromPkScript(output.PkScript)
		if err != nil {
			return 0, errors.Wrap(err, "get address type from pk script")
		}
		totalSize += btcutils.SizeVBytes(addrType).Output
	}

	return totalSize, nil
}
