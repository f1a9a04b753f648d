package httphandler

import (
	"time"

	"github.com/google/uuid"
	"github.com/ordforge/mint-engine/common"
	"github.com/ordforge/mint-engine/modules/mint/internal/entity"
	"github.com/ordforge/mint-engine/modules/mint/usecase"
	"github.com/shopspring/decimal"
)

type HttpHandler struct {
	usecase *usecase.Usecase
	network common.Network
}

func New(network common.Network, usecase *usecase.Usecase) *HttpHandler {
	return &HttpHandler{
		usecase: usecase,
		network: network,
	}
}

type HttpResponse[T any] struct {
	Error  *string `json:"error"`
	Result *T      `json:"result,omitempty"`
}

type mintSession struct {
	Id               uuid.UUID       `json:"id"`
	Status           string          `json:"status"`
	MinterAddress    string          `json:"minterAddress"`
	PaymentAddress   string          `json:"paymentAddress"`
	ReceivingAddress string          `json:"receivingAddress"`
	FeeRate          decimal.Decimal `json:"feeRate"`
	CommitTxId       string          `json:"commitTxId,omitempty"`
	CommitFee        int64           `json:"commitFee"`
	TotalRevealFee   int64           `json:"totalRevealFee"`
	TotalPostage     int64           `json:"totalPostage"`
	CreatedAt        time.Time       `json:"createdAt"`
	ExpiresAt        time.Time       `json:"expiresAt"`
}

type mintInscription struct {
	Id            uuid.UUID  `json:"id"`
	OrdinalId     int64      `json:"ordinalId"`
	ContentType   string     `json:"contentType"`
	PayloadSize   int64      `json:"payloadSize"`
	CommitVout    uint32     `json:"commitVout"`
	CommitValue   int64      `json:"commitValue"`
	Status        string     `json:"status"`
	RevealTxId    string     `json:"revealTxId,omitempty"`
	InscriptionId string     `json:"inscriptionId,omitempty"`
	ErrorMessage  string     `json:"errorMessage,omitempty"`
	RevealedAt    *time.Time `json:"revealedAt,omitempty"`
}

func mapMintSessionToResponse(src *entity.MintSession) mintSession {
	return mintSession{
		Id:               src.Id,
		Status:           string(src.Status),
		MinterAddress:    src.MinterAddress,
		PaymentAddress:   src.PaymentAddress,
		ReceivingAddress: src.ReceivingAddress,
		FeeRate:          src.FeeRate,
		CommitTxId:       src.CommitTxId,
		CommitFee:        src.CommitFee,
		TotalRevealFee:   src.TotalRevealFee,
		TotalPostage:     src.TotalPostage,
		CreatedAt:        src.CreatedAt,
		ExpiresAt:        src.ExpiresAt,
	}
}

// the ephemeral reveal key never leaves the server
func mapMintInscriptionToResponse(src *entity.MintInscription) mintInscription {
	return mintInscription{
		Id:            src.Id,
		OrdinalId:     src.OrdinalId,
		ContentType:   src.ContentType,
		PayloadSize:   src.PayloadSize,
		CommitVout:    src.CommitVout,
		CommitValue:   src.CommitValue,
		Status:        string(src.Status),
		RevealTxId:    src.RevealTxId,
		InscriptionId: src.InscriptionId,
		ErrorMessage:  src.ErrorMessage,
		RevealedAt:    src.RevealedAt,
	}
}
