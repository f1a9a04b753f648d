package entity

import (
	"time"

	"github.com/google/uuid"
)

type MintInscriptionStatus string

const (
	MintInscriptionStatusPending   MintInscriptionStatus = "pending"
	MintInscriptionStatusBroadcast MintInscriptionStatus = "broadcast"
	MintInscriptionStatusFailed    MintInscriptionStatus = "failed"
)

// MintInscription is one inscription item inside a mint session. It carries
// everything needed to build and re-build its reveal transaction from the
// broadcast commit: the ephemeral key, the committed leaf script and the
// commit output it spends.
type MintInscription struct {
	Id        uuid.UUID
	SessionId uuid.UUID
	OrdinalId int64

	ContentType string
	PayloadSize int64

	// RevealPrivateKey is the serialized ephemeral secp256k1 private key
	// that can sign the reveal script path.
	RevealPrivateKey []byte
	LeafScript       []byte
	CommitVout       uint32
	CommitValue      int64

	Status        MintInscriptionStatus
	RevealTxId    string
	InscriptionId string
	ErrorMessage  string
	RevealedAt    *time.Time
}
