package arbitrage

import (
	"testing"

	"github.com/crossarb/crossarb/internal/testutil"
	"github.com/crossarb/crossarb/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulateBuyFill_BandLimitsAdmission(t *testing.T) {
	asks := []types.PriceLevel{
		testutil.Level("0.40", "20"),
		testutil.Level("0.41", "200"), // inside 0.40*1.05 = 0.42
		testutil.Level("0.50", "999"), // outside the band
	}

	result, ok := simulateBuyFill(asks)
	require.True(t, ok)

	assert.Equal(t, "220", result.FillableSize.String())
	// (0.40*20 + 0.41*200) / 220
	assert.InDelta(t, 0.409090909, result.AvgFillPrice.InexactFloat64(), 1e-6)
	assert.InDelta(t, 0.009090909, result.Slippage.InexactFloat64(), 1e-6)
}

func TestSimulateSellFill_BandLimitsAdmission(t *testing.T) {
	bids := []types.PriceLevel{
		testutil.Level("0.46", "500"),
		testutil.Level("0.44", "100"), // inside 0.46*0.95 = 0.437
		testutil.Level("0.30", "999"), // outside the band
	}

	result, ok := simulateSellFill(bids)
	require.True(t, ok)

	assert.Equal(t, "600", result.FillableSize.String())
	assert.True(t, result.Slippage.IsPositive())
}

func TestSimulateFill_EmptySide(t *testing.T) {
	_, ok := simulateBuyFill(nil)
	assert.False(t, ok)

	_, ok = simulateSellFill([]types.PriceLevel{})
	assert.False(t, ok)
}

func TestSimulateFill_ZeroSizeLevelsIgnored(t *testing.T) {
	asks := []types.PriceLevel{
		testutil.Level("0.40", "0"),
		testutil.Level("0.41", "100"),
	}

	result, ok := simulateBuyFill(asks)
	require.True(t, ok)
	assert.Equal(t, "100", result.FillableSize.String())
}

func TestSingleLevelHasZeroSlippage(t *testing.T) {
	result, ok := simulateBuyFill([]types.PriceLevel{testutil.Level("0.40", "500")})
	require.True(t, ok)
	assert.True(t, result.Slippage.IsZero())
	assert.Equal(t, "0.4", result.AvgFillPrice.String())
}
