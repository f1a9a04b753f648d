package usecase

import (
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/cockroachdb/errors"
	"github.com/ordforge/mint-engine/common/errs"
	"github.com/ordforge/mint-engine/modules/mint/inscribe"
)

// revealPrivateKey deserializes a stored ephemeral reveal key.
func revealPrivateKey(serialized []byte) (*btcec.PrivateKey, error) {
	if len(serialized) != btcec.PrivKeyBytesLen {
		return nil, errors.Wrapf(errs.InvalidState, "stored reveal key has invalid length %d", len(serialized))
	}
	privateKey, _ := btcec.PrivKeyFromBytes(serialized)
	return privateKey, nil
}

// commitPkScript rebuilds the taproot commit output script from stored reveal
// data.
func commitPkScript(privateKey *btcec.PrivateKey, leafScript []byte) ([]byte, error) {
	return inscribe.CommitPkScript(privateKey.PubKey(), leafScript)
}
