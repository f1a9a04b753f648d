package usecase

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/ordforge/mint-engine/modules/mint/internal/entity"
	"github.com/ordforge/mint-engine/pkg/mempool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func blocksWithFeeFloors(floors ...decimal.Decimal) []mempool.BlockFeeRates {
	blocks := make([]mempool.BlockFeeRates, len(floors))
	for i, floor := range floors {
		blocks[i] = mempool.BlockFeeRates{AvgHeight: int64(i), AvgFee0: floor}
	}
	return blocks
}

func repeatFloors(floor decimal.Decimal, n int) []decimal.Decimal {
	floors := make([]decimal.Decimal, n)
	for i := range floors {
		floors[i] = floor
	}
	return floors
}

func TestEstimateFee(t *testing.T) {
	u, _, bitcoin, _ := newTestUsecase()

	// all 144 blocks confirmed 0.20 sat/vB floors
	bitcoin.blockFeeRates = blocksWithFeeFloors(repeatFloors(decimal.NewFromFloat(0.20), 144)...)

	estimate, err := u.EstimateFee(context.Background())
	require.NoError(t, err)
	// mean 0.20 plus the 0.02 safety margin
	assert.True(t, estimate.SuggestedFeeRate.Equal(decimal.NewFromFloat(0.22)),
		"suggested %s", estimate.SuggestedFeeRate)
	assert.Equal(t, entity.FeeHealthExcellent, estimate.Health)
	assert.NotEmpty(t, estimate.Message)
}

func TestEstimateFeeHealthGrades(t *testing.T) {
	testcases := []struct {
		name      string
		lowBlocks int
		health    entity.FeeHealth
	}{
		{name: "excellent", lowBlocks: 100, health: entity.FeeHealthExcellent},
		{name: "good", lowBlocks: 40, health: entity.FeeHealthGood},
		{name: "fair", lowBlocks: 20, health: entity.FeeHealthFair},
		{name: "poor", lowBlocks: 5, health: entity.FeeHealthPoor},
	}
	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			u, _, bitcoin, _ := newTestUsecase()
			floors := repeatFloors(decimal.NewFromFloat(0.5), tc.lowBlocks)
			floors = append(floors, repeatFloors(decimal.NewFromInt(5), 144-tc.lowBlocks)...)
			bitcoin.blockFeeRates = blocksWithFeeFloors(floors...)

			estimate, err := u.EstimateFee(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tc.health, estimate.Health)
			// the high-floor blocks never leak into the suggestion
			assert.True(t, estimate.SuggestedFeeRate.Equal(decimal.NewFromFloat(0.52)),
				"suggested %s", estimate.SuggestedFeeRate)
		})
	}
}

func TestEstimateFeeAveragesOnlyLowFeeBlocks(t *testing.T) {
	u, _, bitcoin, _ := newTestUsecase()

	// 40 of 144 blocks confirmed 0.20 floors, the rest confirmed well above
	// the low-fee threshold. Only the low blocks feed the suggestion.
	floors := repeatFloors(decimal.NewFromFloat(0.20), 40)
	floors = append(floors, repeatFloors(decimal.NewFromInt(2), 104)...)
	bitcoin.blockFeeRates = blocksWithFeeFloors(floors...)

	estimate, err := u.EstimateFee(context.Background())
	require.NoError(t, err)
	assert.True(t, estimate.SuggestedFeeRate.Equal(decimal.NewFromFloat(0.22)),
		"suggested %s", estimate.SuggestedFeeRate)
	assert.Equal(t, entity.FeeHealthGood, estimate.Health)
}

func TestEstimateFeeNoLowFeeBlocks(t *testing.T) {
	u, _, bitcoin, _ := newTestUsecase()

	bitcoin.blockFeeRates = blocksWithFeeFloors(repeatFloors(decimal.NewFromInt(5), 144)...)

	estimate, err := u.EstimateFee(context.Background())
	require.NoError(t, err)
	assert.True(t, estimate.SuggestedFeeRate.Equal(fallbackFeeEstimate.SuggestedFeeRate),
		"suggested %s", estimate.SuggestedFeeRate)
	assert.Equal(t, entity.FeeHealthPoor, estimate.Health)
}

func TestEstimateFeeSamplesRecentBlocks(t *testing.T) {
	u, _, bitcoin, _ := newTestUsecase()

	// older-than-24h low-fee blocks must not skew the estimate
	floors := repeatFloors(decimal.NewFromFloat(0.5), 20)
	floors = append(floors, repeatFloors(decimal.NewFromInt(1), 144)...)
	bitcoin.blockFeeRates = blocksWithFeeFloors(floors...)

	estimate, err := u.EstimateFee(context.Background())
	require.NoError(t, err)
	assert.True(t, estimate.SuggestedFeeRate.Equal(decimal.NewFromFloat(1.02)),
		"suggested %s", estimate.SuggestedFeeRate)
	assert.Equal(t, entity.FeeHealthExcellent, estimate.Health)
}

func TestEstimateFeeFallback(t *testing.T) {
	t.Run("datasource_error", func(t *testing.T) {
		u, _, bitcoin, _ := newTestUsecase()
		bitcoin.blockFeeRatesErr = errors.New("mempool is down")

		estimate, err := u.EstimateFee(context.Background())
		require.NoError(t, err)
		assert.Equal(t, fallbackFeeEstimate, estimate)
		assert.Equal(t, entity.FeeHealthFair, estimate.Health)
	})

	t.Run("empty_response", func(t *testing.T) {
		u, _, bitcoin, _ := newTestUsecase()
		bitcoin.blockFeeRates = nil

		estimate, err := u.EstimateFee(context.Background())
		require.NoError(t, err)
		assert.Equal(t, fallbackFeeEstimate, estimate)
	})
}
