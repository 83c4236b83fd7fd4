// Package testutil provides shared fixtures and fakes for package tests.
package testutil

import (
	"time"

	"github.com/crossarb/crossarb/pkg/types"
	"github.com/shopspring/decimal"
)

// Level builds a price level from string decimals.
func Level(price, size string) types.PriceLevel {
	return types.PriceLevel{
		Price: decimal.RequireFromString(price),
		Size:  decimal.RequireFromString(size),
	}
}

// Book builds a normalized order book with the given age relative to now.
func Book(venue types.Venue, externalID string, bids, asks []types.PriceLevel, age time.Duration) *types.OrderBook {
	return &types.OrderBook{
		Venue:      venue,
		ExternalID: externalID,
		Bids:       bids,
		Asks:       asks,
		Timestamp:  time.Now().Add(-age),
		LatencyMS:  50,
	}
}

// Market builds an active binary market.
func Market(venue types.Venue, externalID, question string) types.Market {
	end := time.Now().Add(30 * 24 * time.Hour)
	return types.Market{
		Venue:      venue,
		ExternalID: externalID,
		Question:   question,
		Outcomes:   []string{"YES", "NO"},
		EndDate:    &end,
		Status:     types.MarketActive,
		TickSize:   decimal.RequireFromString("0.01"),
		FeeRate:    venue.TakerFee(),
		URL:        venue.Info().BaseURL + "/" + externalID,
	}
}

// ConfirmedMatch builds a confirmed match between two markets.
func ConfirmedMatch(source, target types.Market, overall float64) types.MarketMatch {
	return types.MarketMatch{
		SourceVenue:      source.Venue,
		SourceExternalID: source.ExternalID,
		TargetVenue:      target.Venue,
		TargetExternalID: target.ExternalID,
		Scores:           types.MatchScores{Semantic: overall, Date: overall, Category: overall, Resolution: overall, Overall: overall},
		Status:           types.MatchConfirmed,
	}
}
