package entity

import (
	"github.com/shopspring/decimal"
)

// FeeHealth grades how reliably sub-1 sat/vB transactions are confirming.
type FeeHealth string

const (
	FeeHealthExcellent FeeHealth = "excellent"
	FeeHealthGood      FeeHealth = "good"
	FeeHealthFair      FeeHealth = "fair"
	FeeHealthPoor      FeeHealth = "poor"
)

// FeeEstimate is the suggested low fee rate with a health grade.
type FeeEstimate struct {
	SuggestedFeeRate decimal.Decimal `json:"suggestedFeeRate"`
	Health           FeeHealth       `json:"health"`
	Message          string          `json:"message,omitempty"`
}

// CostEstimateItem is the per-inscription cost breakdown.
type CostEstimateItem struct {
	PayloadSize  int64           `json:"payloadSize"`
	RevealVBytes decimal.Decimal `json:"revealVBytes"`
	RevealFee    int64           `json:"revealFee"`
	Postage      int64           `json:"postage"`
	CommitValue  int64           `json:"commitValue"`
	OversizeWarn bool            `json:"oversizeWarn"`
}

// CostEstimate is the full mint cost breakdown for a batch at a fee rate.
type CostEstimate struct {
	FeeRate        decimal.Decimal    `json:"feeRate"`
	Items          []CostEstimateItem `json:"items"`
	CommitVBytes   decimal.Decimal    `json:"commitVBytes"`
	CommitFee      int64              `json:"commitFee"`
	TotalRevealFee int64              `json:"totalRevealFee"`
	TotalPostage   int64              `json:"totalPostage"`
	TotalSizeBytes int64              `json:"totalSizeBytes"`
	Total          int64              `json:"total"`
	TotalBtc       float64            `json:"totalBtc"`
}
