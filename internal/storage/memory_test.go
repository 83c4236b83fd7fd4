package storage

import (
	"context"
	"testing"
	"time"

	"github.com/crossarb/crossarb/pkg/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func activeMarket(venue types.Venue, id string) types.Market {
	return types.Market{
		Venue:      venue,
		ExternalID: id,
		Question:   "Q?",
		Outcomes:   []string{"YES", "NO"},
		Status:     types.MarketActive,
	}
}

func TestMemoryStore_UpsertMarketByNaturalKey(t *testing.T) {
	store := NewMemoryStore(zap.NewNop())
	ctx := context.Background()

	m := activeMarket(types.VenueKalshi, "KX-1")
	require.NoError(t, store.UpsertMarket(ctx, &m))

	// Second upsert with the same key updates in place.
	m.Question = "Updated?"
	require.NoError(t, store.UpsertMarket(ctx, &m))

	active, err := store.ListActiveMarkets(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "Updated?", active[0].Question)
}

func TestMemoryStore_UpdateMarketStatus(t *testing.T) {
	store := NewMemoryStore(zap.NewNop())
	ctx := context.Background()

	m := activeMarket(types.VenueKalshi, "KX-1")
	require.NoError(t, store.UpsertMarket(ctx, &m))
	require.NoError(t, store.UpdateMarketStatus(ctx, types.VenueKalshi, "KX-1", types.MarketClosed))

	got, err := store.GetMarket(ctx, types.VenueKalshi, "KX-1")
	require.NoError(t, err)
	assert.Equal(t, types.MarketClosed, got.Status)

	active, err := store.ListActiveMarkets(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestMemoryStore_SnapshotTrailTrimmed(t *testing.T) {
	store := NewMemoryStore(zap.NewNop())
	ctx := context.Background()

	for i := 0; i < 120; i++ {
		err := store.AppendPriceSnapshot(ctx, types.PriceSnapshot{
			Venue:      types.VenueKalshi,
			ExternalID: "KX-1",
			YesBid:     decimal.NewNullDecimal(decimal.NewFromInt(int64(i))),
			Timestamp:  time.Now(),
		})
		require.NoError(t, err)
	}

	trail := store.SnapshotTrail(types.VenueKalshi, "KX-1")
	require.Len(t, trail, snapshotTrailLength)
	// Oldest rows were trimmed: the first remaining is snapshot 20.
	assert.Equal(t, "20", trail[0].YesBid.Decimal.String())
}

func TestMemoryStore_UpsertMatchPreservesStatus(t *testing.T) {
	store := NewMemoryStore(zap.NewNop())
	ctx := context.Background()

	match := types.MarketMatch{
		SourceVenue:      types.VenuePolymarket,
		SourceExternalID: "pm-1",
		TargetVenue:      types.VenueKalshi,
		TargetExternalID: "KX-1",
		Scores:           types.MatchScores{Overall: 0.7},
	}
	require.NoError(t, store.UpsertMatch(ctx, &match))

	pending, err := store.ListMatches(ctx, types.MatchPendingReview)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	// External review confirms; the matcher's refresh keeps the status.
	store.SetMatchStatus(match.Key(), types.MatchConfirmed)

	match.Scores.Overall = 0.8
	require.NoError(t, store.UpsertMatch(ctx, &match))

	confirmed, err := store.ListMatches(ctx, types.MatchConfirmed)
	require.NoError(t, err)
	require.Len(t, confirmed, 1)
	assert.InDelta(t, 0.8, confirmed[0].Scores.Overall, 1e-9)
}

func TestMemoryStore_MarkMatchesStale(t *testing.T) {
	store := NewMemoryStore(zap.NewNop())
	ctx := context.Background()

	match := types.MarketMatch{
		SourceVenue:      types.VenuePolymarket,
		SourceExternalID: "pm-1",
		TargetVenue:      types.VenueKalshi,
		TargetExternalID: "KX-1",
	}
	require.NoError(t, store.UpsertMatch(ctx, &match))

	require.NoError(t, store.MarkMatchesStale(ctx, types.VenueKalshi, "KX-1"))

	stale, err := store.ListMatches(ctx, types.MatchStale)
	require.NoError(t, err)
	assert.Len(t, stale, 1)

	n, err := store.CountMatches(ctx, types.MatchPendingReview)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMemoryStore_OpportunitiesAppendOnly(t *testing.T) {
	store := NewMemoryStore(zap.NewNop())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		opp := types.ArbitrageOpportunity{
			ID:         string(rune('a' + i)),
			Status:     types.OpportunityActive,
			DetectedAt: time.Now(),
		}
		require.NoError(t, store.InsertOpportunity(ctx, &opp))
	}

	recent, err := store.ListRecentOpportunities(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	// Newest first.
	assert.Equal(t, "c", recent[0].ID)
	assert.Equal(t, "b", recent[1].ID)
}
