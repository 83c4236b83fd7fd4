package arbitrage

import (
	"github.com/crossarb/crossarb/pkg/types"
	"github.com/shopspring/decimal"
)

//nolint:gochecknoglobals // shared decimal constants
var (
	bandAbove   = decimal.RequireFromString("1.05")
	bandBelow   = decimal.RequireFromString("0.95")
	sizeCapUSD  = decimal.NewFromInt(10000)
	depthTarget = decimal.NewFromInt(1000)
	two         = decimal.NewFromInt(2)
)

// fillResult is the outcome of walking one side of a book.
type fillResult struct {
	AvgFillPrice decimal.Decimal
	FillableSize decimal.Decimal
	Slippage     decimal.Decimal // |avg fill - top of book| per share
}

// simulateBuyFill walks the ask side from the best ask upward, admitting
// levels within a 5% band of the top to bound slippage.
func simulateBuyFill(asks []types.PriceLevel) (fillResult, bool) {
	if len(asks) == 0 {
		return fillResult{}, false
	}
	limit := asks[0].Price.Mul(bandAbove)
	return walkLevels(asks, func(p decimal.Decimal) bool {
		return p.LessThanOrEqual(limit)
	})
}

// simulateSellFill walks the bid side from the best bid downward, admitting
// levels within a 5% band of the top.
func simulateSellFill(bids []types.PriceLevel) (fillResult, bool) {
	if len(bids) == 0 {
		return fillResult{}, false
	}
	limit := bids[0].Price.Mul(bandBelow)
	return walkLevels(bids, func(p decimal.Decimal) bool {
		return p.GreaterThanOrEqual(limit)
	})
}

// walkLevels sums admitted levels and computes the size-weighted average
// fill price. Executable depth is the sum of the returned levels, never a
// venue-published aggregate.
func walkLevels(levels []types.PriceLevel, admit func(decimal.Decimal) bool) (fillResult, bool) {
	top := levels[0].Price
	totalSize := decimal.Zero
	weighted := decimal.Zero

	for _, lvl := range levels {
		if !admit(lvl.Price) {
			break
		}
		if lvl.Size.IsZero() {
			continue
		}
		totalSize = totalSize.Add(lvl.Size)
		weighted = weighted.Add(lvl.Price.Mul(lvl.Size))
	}

	if totalSize.IsZero() {
		return fillResult{}, false
	}

	avg := weighted.Div(totalSize)
	return fillResult{
		AvgFillPrice: avg,
		FillableSize: totalSize,
		Slippage:     avg.Sub(top).Abs(),
	}, true
}

// topDepth returns the cumulative size of the top n levels, for the
// liquidity confidence component.
func topDepth(levels []types.PriceLevel, n int) decimal.Decimal {
	return types.CumulativeSize(levels, n)
}
