package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/crossarb/crossarb/pkg/types"
	"go.uber.org/zap"
)

// MemoryStore is an in-memory Store used in memory mode and in tests. It
// applies the same natural-key upsert semantics as the postgres store.
type MemoryStore struct {
	logger *zap.Logger

	mu            sync.RWMutex
	markets       map[string]types.Market
	snapshots     map[string][]types.PriceSnapshot
	matches       map[string]types.MarketMatch
	opportunities []types.ArbitrageOpportunity
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(logger *zap.Logger) *MemoryStore {
	return &MemoryStore{
		logger:    logger,
		markets:   make(map[string]types.Market),
		snapshots: make(map[string][]types.PriceSnapshot),
		matches:   make(map[string]types.MarketMatch),
	}
}

// UpsertMarket inserts or updates a market by (venue, external_id).
func (s *MemoryStore) UpsertMarket(ctx context.Context, market *types.Market) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.markets[market.Key()] = *market
	return nil
}

// GetMarket returns one market, or nil when unknown.
func (s *MemoryStore) GetMarket(ctx context.Context, venue types.Venue, externalID string) (*types.Market, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.markets[types.MarketKey(venue, externalID)]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

// ListActiveMarkets returns all ACTIVE markets.
func (s *MemoryStore) ListActiveMarkets(ctx context.Context) ([]types.Market, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.Market, 0, len(s.markets))
	for _, m := range s.markets {
		if m.Status == types.MarketActive {
			out = append(out, m)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Key() < out[j].Key()
	})

	return out, nil
}

// UpdateMarketStatus transitions a market's lifecycle status.
func (s *MemoryStore) UpdateMarketStatus(ctx context.Context, venue types.Venue, externalID string, status types.MarketStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := types.MarketKey(venue, externalID)
	m, ok := s.markets[key]
	if !ok {
		return nil
	}
	m.Status = status
	s.markets[key] = m
	return nil
}

// AppendPriceSnapshot appends to the rolling trail, trimmed per market.
func (s *MemoryStore) AppendPriceSnapshot(ctx context.Context, snap types.PriceSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := types.MarketKey(snap.Venue, snap.ExternalID)
	trail := append(s.snapshots[key], snap)
	if len(trail) > snapshotTrailLength {
		trail = trail[len(trail)-snapshotTrailLength:]
	}
	s.snapshots[key] = trail
	return nil
}

// SnapshotTrail returns the stored trail for a market. Test helper.
func (s *MemoryStore) SnapshotTrail(venue types.Venue, externalID string) []types.PriceSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	trail := s.snapshots[types.MarketKey(venue, externalID)]
	out := make([]types.PriceSnapshot, len(trail))
	copy(out, trail)
	return out
}

// UpsertMatch inserts or updates a match proposal, preserving the review
// status of an existing row.
func (s *MemoryStore) UpsertMatch(ctx context.Context, match *types.MarketMatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := match.Key()
	now := time.Now()

	existing, ok := s.matches[key]
	if !ok {
		stored := *match
		if stored.Status == "" {
			stored.Status = types.MatchPendingReview
		}
		stored.CreatedAt = now
		stored.UpdatedAt = now
		s.matches[key] = stored
		return nil
	}

	existing.Scores = match.Scores
	existing.MatchedTerms = match.MatchedTerms
	existing.ResolutionDiff = match.ResolutionDiff
	existing.MatchReason = match.MatchReason
	existing.Warnings = match.Warnings
	existing.UpdatedAt = now
	s.matches[key] = existing
	return nil
}

// SetMatchStatus transitions a match's review status. This is the entry the
// external review workflow uses; exposed here for tests and tooling.
func (s *MemoryStore) SetMatchStatus(key string, status types.MatchStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.matches[key]
	if !ok {
		return
	}
	m.Status = status
	m.UpdatedAt = time.Now()
	s.matches[key] = m
}

// ListMatches returns matches with the given status.
func (s *MemoryStore) ListMatches(ctx context.Context, status types.MatchStatus) ([]types.MarketMatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.MarketMatch, 0)
	for _, m := range s.matches {
		if m.Status == status {
			out = append(out, m)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Key() < out[j].Key()
	})

	return out, nil
}

// CountMatches counts matches with the given status.
func (s *MemoryStore) CountMatches(ctx context.Context, status types.MatchStatus) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, m := range s.matches {
		if m.Status == status {
			n++
		}
	}
	return n, nil
}

// MarkMatchesStale transitions every match referencing the market to STALE.
func (s *MemoryStore) MarkMatchesStale(ctx context.Context, venue types.Venue, externalID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, m := range s.matches {
		if m.Involves(venue, externalID) && m.Status != types.MatchStale {
			m.Status = types.MatchStale
			m.UpdatedAt = time.Now()
			s.matches[key] = m
		}
	}
	return nil
}

// InsertOpportunity appends a detected opportunity.
func (s *MemoryStore) InsertOpportunity(ctx context.Context, opp *types.ArbitrageOpportunity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.opportunities = append(s.opportunities, *opp)

	s.logger.Info("opportunity-stored",
		zap.String("id", opp.ID),
		zap.String("summary", opp.String()))

	return nil
}

// ListRecentOpportunities returns the newest opportunities first.
func (s *MemoryStore) ListRecentOpportunities(ctx context.Context, limit int) ([]types.ArbitrageOpportunity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.opportunities)
	if limit > n {
		limit = n
	}

	out := make([]types.ArbitrageOpportunity, 0, limit)
	for i := n - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.opportunities[i])
	}
	return out, nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}
