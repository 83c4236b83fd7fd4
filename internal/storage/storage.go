// Package storage persists the entities the core owns: markets, the rolling
// price-snapshot trail, match proposals, and detected opportunities. All
// writes use upsert-by-natural-key so concurrent writers converge; the match
// review status is owned by the external review workflow and is never
// overwritten by the matcher.
package storage

import (
	"context"

	"github.com/crossarb/crossarb/pkg/types"
)

// snapshotTrailLength caps the per-market price trail.
const snapshotTrailLength = 100

// Store is the persistence interface for the core's entities.
type Store interface {
	// UpsertMarket inserts or updates a market by (venue, external_id).
	UpsertMarket(ctx context.Context, market *types.Market) error

	// GetMarket returns one market, or nil when unknown.
	GetMarket(ctx context.Context, venue types.Venue, externalID string) (*types.Market, error)

	// ListActiveMarkets returns all markets with status ACTIVE.
	ListActiveMarkets(ctx context.Context) ([]types.Market, error)

	// UpdateMarketStatus transitions a market's lifecycle status.
	UpdateMarketStatus(ctx context.Context, venue types.Venue, externalID string, status types.MarketStatus) error

	// AppendPriceSnapshot appends to the rolling trail, trimming each
	// market to the most recent snapshotTrailLength rows.
	AppendPriceSnapshot(ctx context.Context, snap types.PriceSnapshot) error

	// UpsertMatch inserts or updates a match proposal by pair key. An
	// existing row keeps its review status; scores, terms, and reason are
	// refreshed in place.
	UpsertMatch(ctx context.Context, match *types.MarketMatch) error

	// ListMatches returns matches with the given status.
	ListMatches(ctx context.Context, status types.MatchStatus) ([]types.MarketMatch, error)

	// CountMatches counts matches with the given status.
	CountMatches(ctx context.Context, status types.MatchStatus) (int, error)

	// MarkMatchesStale transitions every match referencing the market to
	// STALE. Used when a market leaves the ACTIVE state.
	MarkMatchesStale(ctx context.Context, venue types.Venue, externalID string) error

	// InsertOpportunity appends a detected opportunity. Append-only.
	InsertOpportunity(ctx context.Context, opp *types.ArbitrageOpportunity) error

	// ListRecentOpportunities returns the newest opportunities first.
	ListRecentOpportunities(ctx context.Context, limit int) ([]types.ArbitrageOpportunity, error)

	// Close releases the underlying connection.
	Close() error
}
