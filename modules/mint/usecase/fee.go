package usecase

import (
	"context"

	"github.com/ordforge/mint-engine/modules/mint/internal/entity"
	"github.com/ordforge/mint-engine/pkg/logger"
	"github.com/ordforge/mint-engine/pkg/logger/slogx"
	"github.com/shopspring/decimal"
)

// feeSampleBlocks is how many recent blocks the estimator samples (~24h).
const feeSampleBlocks = 144

// lowFeeThreshold is the sat/vB rate under which a block counts as having
// confirmed "low fee" transactions.
var lowFeeThreshold = decimal.NewFromInt(1)

// feeSafetyMargin is added on top of the mean observed low fee.
var feeSafetyMargin = decimal.NewFromFloat(0.02)

// fallbackFeeEstimate is returned whenever fee data can't be fetched. Minting
// must never be blocked by estimator unavailability.
var fallbackFeeEstimate = entity.FeeEstimate{
	SuggestedFeeRate: decimal.NewFromInt(1),
	Health:           entity.FeeHealthFair,
	Message:          "fee data unavailable, using conservative default",
}

var feeHealthMessages = map[entity.FeeHealth]string{
	entity.FeeHealthExcellent: "sub-1 sat/vB transactions are confirming reliably",
	entity.FeeHealthGood:      "sub-1 sat/vB transactions are confirming regularly",
	entity.FeeHealthFair:      "sub-1 sat/vB transactions confirm occasionally, expect delays",
	entity.FeeHealthPoor:      "sub-1 sat/vB transactions are rarely confirming, low-fee mints may stall",
}

// EstimateFee suggests a low fee rate and grades how healthy low-fee
// confirmation currently is. The suggestion averages the fee floors of the
// sampled blocks that confirmed sub-threshold transactions, plus a safety
// margin. Datasource failures degrade to a conservative fallback instead of
// an error.
func (u *Usecase) EstimateFee(ctx context.Context) (entity.FeeEstimate, error) {
	blocks, err := u.bitcoin.BlockFeeRates(ctx, "24h")
	if err != nil {
		logger.WarnContext(ctx, "can't fetch block fee rates, falling back to default fee estimate", slogx.Error(err))
		return fallbackFeeEstimate, nil
	}
	if len(blocks) == 0 {
		logger.WarnContext(ctx, "empty block fee rates, falling back to default fee estimate")
		return fallbackFeeEstimate, nil
	}
	if len(blocks) > feeSampleBlocks {
		blocks = blocks[len(blocks)-feeSampleBlocks:]
	}

	var (
		lowBlocks int
		lowFeeSum decimal.Decimal
	)
	for _, block := range blocks {
		if block.AvgFee0.LessThanOrEqual(lowFeeThreshold) {
			lowBlocks++
			lowFeeSum = lowFeeSum.Add(block.AvgFee0)
		}
	}

	health := gradeFeeHealth(lowBlocks, len(blocks))
	if lowBlocks == 0 {
		// no low-fee confirmations in the whole sample, nothing to average
		return entity.FeeEstimate{
			SuggestedFeeRate: fallbackFeeEstimate.SuggestedFeeRate,
			Health:           health,
			Message:          feeHealthMessages[health],
		}, nil
	}
	suggested := lowFeeSum.
		Div(decimal.NewFromInt(int64(lowBlocks))).
		Add(feeSafetyMargin).
		Round(2)
	return entity.FeeEstimate{
		SuggestedFeeRate: suggested,
		Health:           health,
		Message:          feeHealthMessages[health],
	}, nil
}

// gradeFeeHealth maps the fraction of sampled blocks containing low-fee
// transactions to a four-level rating.
func gradeFeeHealth(lowBlocks, totalBlocks int) entity.FeeHealth {
	switch fraction := float64(lowBlocks) / float64(totalBlocks); {
	case fraction >= 0.5:
		return entity.FeeHealthExcellent
	case fraction >= 0.25:
		return entity.FeeHealthGood
	case fraction >= 0.1:
		return entity.FeeHealthFair
	default:
		return entity.FeeHealthPoor
	}
}
