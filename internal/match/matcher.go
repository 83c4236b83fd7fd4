// Package match implements the cross-venue market matcher: a periodic pass
// over all active markets that proposes pairs believed to resolve
// identically. Proposals land as PENDING_REVIEW; the human review workflow
// owns the status from there.
package match

import (
	"context"
	"math"
	"time"

	"github.com/crossarb/crossarb/internal/storage"
	"github.com/crossarb/crossarb/pkg/types"
	"go.uber.org/zap"
)

// endDatePrefilterWindow is the hard prefilter: when both markets carry end
// dates more than this far apart, the pair is never scored.
const endDatePrefilterWindow = 30 * 24 * time.Hour

// Matcher proposes cross-venue market pairs.
type Matcher struct {
	store  storage.Store
	config Config
	logger *zap.Logger
}

// Config holds matcher configuration.
type Config struct {
	Interval        time.Duration
	MinOverallScore float64
	Logger          *zap.Logger
}

// New creates a matcher.
func New(cfg Config, store storage.Store) *Matcher {
	return &Matcher{
		store:  store,
		config: cfg,
		logger: cfg.Logger,
	}
}

// Run executes matching passes on the configured cadence until ctx ends.
func (m *Matcher) Run(ctx context.Context) error {
	m.logger.Info("matcher-starting",
		zap.Duration("interval", m.config.Interval),
		zap.Float64("min-overall", m.config.MinOverallScore))

	ticker := time.NewTicker(m.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("matcher-stopping")
			return ctx.Err()
		case <-ticker.C:
			err := m.RunOnce(ctx)
			if err != nil && ctx.Err() == nil {
				m.logger.Error("matching-pass-failed", zap.Error(err))
			}
		}
	}
}

// RunOnce executes a single matching pass: score every unordered pair of
// active markets across distinct venues and upsert proposals that clear the
// threshold. Deterministic for a fixed market set, so re-running without
// market changes rewrites identical scores.
func (m *Matcher) RunOnce(ctx context.Context) error {
	start := time.Now()

	markets, err := m.store.ListActiveMarkets(ctx)
	if err != nil {
		return err
	}

	idx := buildIDF(markets)

	pairs := 0
	proposals := 0
	for i := 0; i < len(markets); i++ {
		for j := i + 1; j < len(markets); j++ {
			// Interruptible between pairs.
			if ctx.Err() != nil {
				return ctx.Err()
			}

			source := &markets[i]
			target := &markets[j]
			if source.Venue == target.Venue {
				continue
			}
			if skipByEndDate(source, target) {
				PairsPrefilteredTotal.Inc()
				continue
			}

			pairs++
			proposal := m.scorePair(source, target, idx)
			if proposal.Scores.Overall < m.config.MinOverallScore {
				continue
			}

			err = m.store.UpsertMatch(ctx, proposal)
			if err != nil {
				return err
			}
			proposals++
			ProposalsUpsertedTotal.Inc()
		}
	}

	PassDurationSeconds.Observe(time.Since(start).Seconds())
	PairsScoredTotal.Add(float64(pairs))

	m.logger.Info("matching-pass-complete",
		zap.Int("markets", len(markets)),
		zap.Int("pairs-scored", pairs),
		zap.Int("proposals", proposals),
		zap.Duration("took", time.Since(start)))

	return nil
}

// skipByEndDate applies the 30-day hard prefilter.
func skipByEndDate(a, b *types.Market) bool {
	if a.EndDate == nil || b.EndDate == nil {
		return false
	}
	diff := a.EndDate.Sub(*b.EndDate)
	if diff < 0 {
		diff = -diff
	}
	return diff > endDatePrefilterWindow
}

// scorePair computes the four sub-scores and assembles the proposal.
func (m *Matcher) scorePair(source, target *types.Market, idx *idfIndex) *types.MarketMatch {
	semantic := clamp01(semanticScore(source.Question, target.Question, idx))
	date := clamp01(dateScore(source.Question, target.Question))
	category := clamp01(categoryScore(source.Category, target.Category))
	resolution, warnings, diff := resolutionScore(source.ResolutionRules, target.ResolutionRules)
	resolution = clamp01(resolution)

	scores := types.MatchScores{
		Semantic:   semantic,
		Date:       date,
		Category:   category,
		Resolution: resolution,
		Overall: overallScore(MatchScoresInput{
			Semantic:   semantic,
			Date:       date,
			Category:   category,
			Resolution: resolution,
		}),
	}

	terms := matchedTerms(source.Question, target.Question)

	return &types.MarketMatch{
		SourceVenue:      source.Venue,
		SourceExternalID: source.ExternalID,
		TargetVenue:      target.Venue,
		TargetExternalID: target.ExternalID,
		Scores:           scores,
		MatchedTerms:     terms,
		ResolutionDiff:   diff,
		MatchReason:      buildReason(scores, terms),
		Warnings:         warnings,
		Status:           types.MatchPendingReview,
	}
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
