package entity

import (
	"time"

	"github.com/google/uuid"
)

// UTXO is a confirmed unspent output of the payment address, candidate for
// funding a commit transaction.
type UTXO struct {
	TxId      string
	Vout      uint32
	Value     int64
	Confirmed bool
}

// Outpoint is the "<txid>:<vout>" key of a UTXO.
func (u UTXO) Outpoint() string {
	return outpoint(u.TxId, u.Vout)
}

// ReservedUTXO marks an outpoint as held by a live mint session so concurrent
// sessions can't spend the same funds.
type ReservedUTXO struct {
	SessionId  uuid.UUID
	TxId       string
	Vout       uint32
	Value      int64
	ReservedAt time.Time
	ExpiresAt  time.Time
}

func (u ReservedUTXO) Outpoint() string {
	return outpoint(u.TxId, u.Vout)
}

func outpoint(txid string, vout uint32) string {
	const maxUint32Digits = 10
	b := make([]byte, 0, len(txid)+1+maxUint32Digits)
	b = append(b, txid...)
	b = append(b, ':')
	if vout == 0 {
		b = append(b, '0')
	} else {
		var digits [maxUint32Digits]byte
		i := len(digits)
		for vout > 0 {
			i--
			digits[i] = byte('0' + vout%10)
			vout /= 10
		}
		b = append(b, digits[i:]...)
	}
	return string(b)
}
