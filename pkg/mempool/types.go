package mempool

import (
	"github.com/shopspring/decimal"
)

// RecommendedFees is the mempool recommended fee rates in sat/vB.
type RecommendedFees struct {
	FastestFee  decimal.Decimal `json:"fastestFee"`
	HalfHourFee decimal.Decimal `json:"halfHourFee"`
	HourFee     decimal.Decimal `json:"hourFee"`
	EconomyFee  decimal.Decimal `json:"economyFee"`
	MinimumFee  decimal.Decimal `json:"minimumFee"`
}

// BlockFeeRates is the fee-rate percentile histogram of a mined block.
// AvgFee0 is the lowest fee rate observed in the block.
type BlockFeeRates struct {
	AvgHeight int64           `json:"avgHeight"`
	Timestamp int64           `json:"timestamp"`
	AvgFee0   decimal.Decimal `json:"avgFee_0"`
	AvgFee10  decimal.Decimal `json:"avgFee_10"`
	AvgFee25  decimal.Decimal `json:"avgFee_25"`
	AvgFee50  decimal.Decimal `json:"avgFee_50"`
	AvgFee75  decimal.Decimal `json:"avgFee_75"`
	AvgFee90  decimal.Decimal `json:"avgFee_90"`
	AvgFee100 decimal.Decimal `json:"avgFee_100"`
}

// UTXO is an unspent output of an address.
type UTXO struct {
	TxID   string     `json:"txid"`
	Vout   uint32     `json:"vout"`
	Value  int64      `json:"value"`
	Status UTXOStatus `json:"status"`
}

type UTXOStatus struct {
	Confirmed   bool   `json:"confirmed"`
	BlockHeight int64  `json:"block_height"`
	BlockHash   string `json:"block_hash"`
	BlockTime   int64  `json:"block_time"`
}

// Tx is a subset of the mempool transaction response, enough to tell whether
// the node has seen the transaction and whether it confirmed.
type Tx struct {
	TxID   string   `json:"txid"`
	Status TxStatus `json:"status"`
}

type TxStatus struct {
	Confirmed   bool   `json:"confirmed"`
	BlockHeight int64  `json:"block_height"`
	BlockHash   string `json:"block_hash"`
	BlockTime   int64  `json:"block_time"`
}
