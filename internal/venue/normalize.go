package venue

import (
	"sort"
	"time"

	"github.com/crossarb/crossarb/pkg/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

//nolint:gochecknoglobals // shared decimal constant
var one = decimal.NewFromInt(1)

// NormalizeBook re-sorts and validates raw levels into a clean OrderBook.
// Rows with price outside [0,1] or negative size are dropped and counted;
// bid levels that cross the best ask are dropped until the book uncrosses.
func NormalizeBook(
	venue types.Venue,
	externalID string,
	bids, asks []types.PriceLevel,
	timestamp time.Time,
	latencyMS int64,
	logger *zap.Logger,
) *types.OrderBook {
	cleanBids := cleanLevels(venue, bids, logger)
	cleanAsks := cleanLevels(venue, asks, logger)

	sort.Slice(cleanBids, func(i, j int) bool {
		return cleanBids[i].Price.GreaterThan(cleanBids[j].Price)
	})
	sort.Slice(cleanAsks, func(i, j int) bool {
		return cleanAsks[i].Price.LessThan(cleanAsks[j].Price)
	})

	cleanBids = dedupeLevels(cleanBids)
	cleanAsks = dedupeLevels(cleanAsks)

	// Uncross: a bid at or above the best ask is junk data, not an
	// opportunity. Drop the offending bids and count them.
	for len(cleanBids) > 0 && len(cleanAsks) > 0 &&
		cleanBids[0].Price.GreaterThanOrEqual(cleanAsks[0].Price) {
		logger.Warn("crossed-level-dropped",
			zap.String("venue", string(venue)),
			zap.String("external-id", externalID),
			zap.String("bid", cleanBids[0].Price.String()),
			zap.String("ask", cleanAsks[0].Price.String()))
		IntegrityDropsTotal.WithLabelValues(string(venue), "crossed").Inc()
		cleanBids = cleanBids[1:]
	}

	return &types.OrderBook{
		Venue:      venue,
		ExternalID: externalID,
		Bids:       cleanBids,
		Asks:       cleanAsks,
		Timestamp:  timestamp,
		LatencyMS:  latencyMS,
	}
}

func cleanLevels(venue types.Venue, levels []types.PriceLevel, logger *zap.Logger) []types.PriceLevel {
	out := make([]types.PriceLevel, 0, len(levels))
	for _, lvl := range levels {
		if lvl.Price.IsNegative() || lvl.Price.GreaterThan(one) {
			IntegrityDropsTotal.WithLabelValues(string(venue), "price_out_of_range").Inc()
			continue
		}
		if lvl.Size.IsNegative() {
			IntegrityDropsTotal.WithLabelValues(string(venue), "negative_size").Inc()
			continue
		}
		out = append(out, lvl)
	}
	return out
}

// dedupeLevels merges equal-price rows so the sorted sides are strictly
// monotone in price.
func dedupeLevels(levels []types.PriceLevel) []types.PriceLevel {
	if len(levels) < 2 {
		return levels
	}
	out := levels[:1]
	for _, lvl := range levels[1:] {
		last := &out[len(out)-1]
		if lvl.Price.Equal(last.Price) {
			last.Size = last.Size.Add(lvl.Size)
			continue
		}
		out = append(out, lvl)
	}
	return out
}

// ComplementLevels reconstructs the opposite side of a strictly binary
// market: a resting order to buy NO at p is a resting order to sell YES at
// 1-p. Only valid when the venue documents NO as the complement of YES.
func ComplementLevels(levels []types.PriceLevel) []types.PriceLevel {
	out := make([]types.PriceLevel, 0, len(levels))
	for _, lvl := range levels {
		out = append(out, types.PriceLevel{
			Price: one.Sub(lvl.Price),
			Size:  lvl.Size,
		})
	}
	return out
}

// CentsToPrice converts a cent-denominated price (0-100) to [0,1].
func CentsToPrice(cents int64) decimal.Decimal {
	return decimal.NewFromInt(cents).Div(decimal.NewFromInt(100))
}
