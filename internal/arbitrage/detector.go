// Package arbitrage implements the detector: the fee- and liquidity-aware
// scanner that turns a confirmed cross-venue match and two fresh order books
// into an executable opportunity with a directional strategy, profit
// analysis, confidence score, and execution plan.
package arbitrage

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/crossarb/crossarb/internal/orderbook"
	"github.com/crossarb/crossarb/internal/storage"
	"github.com/crossarb/crossarb/pkg/events"
	"github.com/crossarb/crossarb/pkg/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Confidence weights; property tests recompute the blend from these.
const (
	confWeightFreshness    = 0.35
	confWeightLiquidity    = 0.30
	confWeightMatchQuality = 0.35
)

// Detector scans confirmed matches for executable arbitrage.
type Detector struct {
	books     *orderbook.Store
	store     storage.Store
	publisher events.Publisher
	config    Config
	logger    *zap.Logger
}

// Config holds detector configuration.
type Config struct {
	ScanInterval         time.Duration
	StaleThreshold       time.Duration
	MinSpreadPct         float64
	MinConfidenceScore   float64
	MinExecutableSizeUSD float64
	Logger               *zap.Logger
}

// New creates a detector.
func New(cfg Config, books *orderbook.Store, store storage.Store, publisher events.Publisher) *Detector {
	return &Detector{
		books:     books,
		store:     store,
		publisher: publisher,
		config:    cfg,
		logger:    cfg.Logger,
	}
}

// Run executes scans on the configured cadence until ctx ends. Each
// iteration is independent; a failed scan is logged and the next tick
// retries cleanly.
func (d *Detector) Run(ctx context.Context) error {
	d.logger.Info("detector-starting",
		zap.Duration("interval", d.config.ScanInterval),
		zap.Duration("stale-threshold", d.config.StaleThreshold),
		zap.Float64("min-confidence", d.config.MinConfidenceScore))

	ticker := time.NewTicker(d.config.ScanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("detector-stopping")
			return ctx.Err()
		case <-ticker.C:
			_, err := d.ScanOnce(ctx)
			if err != nil && ctx.Err() == nil {
				d.logger.Error("scan-failed", zap.Error(err))
			}
		}
	}
}

// ScanOnce evaluates every confirmed match against the latest cached books,
// persisting and publishing each opportunity found.
func (d *Detector) ScanOnce(ctx context.Context) ([]*types.ArbitrageOpportunity, error) {
	start := time.Now()

	matches, err := d.store.ListMatches(ctx, types.MatchConfirmed)
	if err != nil {
		return nil, fmt.Errorf("list confirmed matches: %w", err)
	}

	var found []*types.ArbitrageOpportunity
	for i := range matches {
		opp := d.Evaluate(ctx, &matches[i], time.Now())
		if opp == nil {
			continue
		}

		err = d.store.InsertOpportunity(ctx, opp)
		if err != nil {
			d.logger.Error("opportunity-store-failed",
				zap.String("id", opp.ID),
				zap.Error(err))
			continue
		}

		d.publisher.PublishOpportunity(events.OpportunityEvent{
			ID:           opp.ID,
			MatchID:      opp.MatchKey,
			ROI:          opp.Profit.ROI.String(),
			NetProfit:    opp.Profit.NetProfit.String(),
			Confidence:   opp.Confidence.Overall,
			SourceMarket: types.MarketKey(opp.Strategy.BuyVenue, opp.Strategy.BuyExternalID),
			TargetMarket: types.MarketKey(opp.Strategy.SellVenue, opp.Strategy.SellExternalID),
		})

		OpportunitiesDetectedTotal.Inc()
		NetProfitUSD.Observe(opp.Profit.NetProfit.InexactFloat64())

		d.logger.Info("arbitrage-opportunity-detected",
			zap.String("id", opp.ID),
			zap.String("summary", opp.String()))

		found = append(found, opp)
	}

	ScanDurationSeconds.Observe(time.Since(start).Seconds())

	return found, nil
}

// Evaluate runs both directional candidates for one confirmed match and
// returns the better one, or nil when no candidate clears every gate.
func (d *Detector) Evaluate(ctx context.Context, match *types.MarketMatch, now time.Time) *types.ArbitrageOpportunity {
	sourceBook := d.books.GetOrderBook(match.SourceVenue, match.SourceExternalID)
	targetBook := d.books.GetOrderBook(match.TargetVenue, match.TargetExternalID)
	if sourceBook == nil || targetBook == nil {
		RejectionsTotal.WithLabelValues("book_missing").Inc()
		return nil
	}

	staleMS := d.config.StaleThreshold.Milliseconds()
	if sourceBook.AgeMS(now) >= staleMS || targetBook.AgeMS(now) >= staleMS {
		RejectionsTotal.WithLabelValues("stale_data").Inc()
		return nil
	}

	// End dates and venue URLs come from the market rows; books carry only
	// prices.
	sourceMarket, _ := d.store.GetMarket(ctx, match.SourceVenue, match.SourceExternalID)
	targetMarket, _ := d.store.GetMarket(ctx, match.TargetVenue, match.TargetExternalID)

	a := d.evaluateDirection(sourceBook, targetBook, sourceMarket, targetMarket, match, now)
	b := d.evaluateDirection(targetBook, sourceBook, targetMarket, sourceMarket, match, now)

	best := a
	if best == nil || (b != nil && b.Profit.NetProfit.GreaterThan(best.Profit.NetProfit)) {
		best = b
	}
	if best == nil {
		return nil
	}

	best.SourceDataAgeMS = sourceBook.AgeMS(now)
	best.TargetDataAgeMS = targetBook.AgeMS(now)

	return best
}

// evaluateDirection prices "buy YES on buyBook's venue, sell YES on
// sellBook's venue" for one direction.
func (d *Detector) evaluateDirection(
	buyBook, sellBook *types.OrderBook,
	buyMarket, sellMarket *types.Market,
	match *types.MarketMatch,
	now time.Time,
) *types.ArbitrageOpportunity {
	ask, okAsk := buyBook.BestAsk()
	bid, okBid := sellBook.BestBid()
	if !okAsk || !okBid {
		RejectionsTotal.WithLabelValues("side_missing").Inc()
		return nil
	}

	grossSpread := bid.Price.Sub(ask.Price)
	if !grossSpread.IsPositive() {
		RejectionsTotal.WithLabelValues("no_spread").Inc()
		return nil
	}

	buyFee := ask.Price.Mul(buyBook.Venue.TakerFee())
	sellFee := bid.Price.Mul(sellBook.Venue.TakerFee())
	netSpreadPerShare := grossSpread.Sub(buyFee).Sub(sellFee)
	if !netSpreadPerShare.IsPositive() {
		RejectionsTotal.WithLabelValues("fees_exceed_spread").Inc()
		return nil
	}

	spreadPct := netSpreadPerShare.Div(ask.Price).Mul(decimal.NewFromInt(100))
	if spreadPct.InexactFloat64() < d.config.MinSpreadPct {
		RejectionsTotal.WithLabelValues("below_min_spread").Inc()
		return nil
	}

	buyFill, okBuy := simulateBuyFill(buyBook.Asks)
	sellFill, okSell := simulateSellFill(sellBook.Bids)
	if !okBuy || !okSell {
		RejectionsTotal.WithLabelValues("no_depth").Inc()
		return nil
	}

	maxSize := decimal.Min(buyFill.FillableSize, sellFill.FillableSize, sizeCapUSD)
	if maxSize.InexactFloat64() < d.config.MinExecutableSizeUSD {
		RejectionsTotal.WithLabelValues("below_min_size").Inc()
		return nil
	}

	combinedSlippage := buyFill.Slippage.Add(sellFill.Slippage).Div(two)

	netProfit := netSpreadPerShare.Sub(combinedSlippage).Mul(maxSize)
	if !netProfit.IsPositive() {
		RejectionsTotal.WithLabelValues("slippage_exceeds_spread").Inc()
		return nil
	}

	onePlusFee := decimal.NewFromInt(1).Add(buyBook.Venue.TakerFee())
	capital := ask.Price.Mul(maxSize).Mul(onePlusFee)
	roi := netProfit.Div(capital)
	annualized := annualizeROI(roi, expiryOf(buyMarket, sellMarket), now)

	confidence := d.scoreConfidence(buyBook, sellBook, match, now)
	if confidence.Overall < d.config.MinConfidenceScore {
		RejectionsTotal.WithLabelValues("low_confidence").Inc()
		return nil
	}

	totalFees := buyFee.Add(sellFee).Mul(maxSize)

	opp := &types.ArbitrageOpportunity{
		ID:       uuid.New().String(),
		MatchKey: match.Key(),
		Strategy: types.Strategy{
			Action:         types.BuyYesSellYes,
			BuyVenue:       buyBook.Venue,
			BuyExternalID:  buyBook.ExternalID,
			BuyPrice:       ask.Price,
			SellVenue:      sellBook.Venue,
			SellExternalID: sellBook.ExternalID,
			SellPrice:      bid.Price,
			Size:           maxSize,
		},
		Profit: types.ProfitAnalysis{
			GrossSpread:       grossSpread,
			TotalFees:         totalFees,
			EstimatedSlippage: combinedSlippage,
			NetProfit:         netProfit,
			ROI:               roi,
			AnnualizedROI:     annualized,
			MaxExecutableSize: maxSize,
		},
		Confidence: confidence,
		Status:     types.OpportunityActive,
		DetectedAt: now,
	}
	opp.Plan = buildPlan(opp, buyFill, sellFill, buyMarket, sellMarket, buyFee, sellFee)

	return opp
}

// scoreConfidence blends freshness, liquidity, and match quality.
func (d *Detector) scoreConfidence(buyBook, sellBook *types.OrderBook, match *types.MarketMatch, now time.Time) types.Confidence {
	staleMS := float64(d.config.StaleThreshold.Milliseconds())
	maxAge := float64(buyBook.AgeMS(now))
	if age := float64(sellBook.AgeMS(now)); age > maxAge {
		maxAge = age
	}
	freshness := math.Max(0, 1-maxAge/staleMS)

	minDepth := decimal.Min(
		topDepth(buyBook.Bids, 5),
		topDepth(buyBook.Asks, 5),
		topDepth(sellBook.Bids, 5),
		topDepth(sellBook.Asks, 5),
	)
	liquidity := math.Min(1, minDepth.Div(depthTarget).InexactFloat64())

	matchQuality := match.Scores.Overall

	return types.Confidence{
		Overall: confWeightFreshness*freshness +
			confWeightLiquidity*liquidity +
			confWeightMatchQuality*matchQuality,
		Freshness:    freshness,
		Liquidity:    liquidity,
		MatchQuality: matchQuality,
		DataAgeMS:    int64(maxAge),
	}
}

// annualizeROI scales ROI by 365/days-to-expiry, flooring the horizon at one
// day. With no end date on either market the plain ROI is returned.
func annualizeROI(roi decimal.Decimal, expiry *time.Time, now time.Time) decimal.Decimal {
	if expiry == nil {
		return roi
	}
	days := int64(math.Ceil(expiry.Sub(now).Hours() / 24))
	if days < 1 {
		days = 1
	}
	return roi.Mul(decimal.NewFromInt(365)).Div(decimal.NewFromInt(days))
}

func expiryOf(a, b *types.Market) *time.Time {
	if a != nil && a.EndDate != nil {
		return a.EndDate
	}
	if b != nil && b.EndDate != nil {
		return b.EndDate
	}
	return nil
}

// buildPlan assembles the two-step execution plan.
func buildPlan(
	opp *types.ArbitrageOpportunity,
	buyFill, sellFill fillResult,
	buyMarket, sellMarket *types.Market,
	buyFeePerShare, sellFeePerShare decimal.Decimal,
) []types.ExecutionStep {
	size := opp.Profit.MaxExecutableSize
	s := opp.Strategy

	buyCost := buyFill.AvgFillPrice.Mul(size).Add(buyFeePerShare.Mul(size))
	sellProceeds := sellFill.AvgFillPrice.Mul(size).Sub(sellFeePerShare.Mul(size))

	return []types.ExecutionStep{
		{
			Seq:        1,
			Side:       "BUY",
			Venue:      s.BuyVenue,
			ExternalID: s.BuyExternalID,
			Price:      s.BuyPrice,
			Size:       size,
			Slippage:   buyFill.Slippage,
			Fee:        buyFeePerShare.Mul(size),
			NetCost:    buyCost,
			Instruction: fmt.Sprintf("Buy $%s of YES on %s at %s",
				size.StringFixed(2), s.BuyVenue.Info().DisplayName, s.BuyPrice.StringFixed(4)),
			VenueURL: marketURL(buyMarket, s.BuyVenue),
		},
		{
			Seq:        2,
			Side:       "SELL",
			Venue:      s.SellVenue,
			ExternalID: s.SellExternalID,
			Price:      s.SellPrice,
			Size:       size,
			Slippage:   sellFill.Slippage,
			Fee:        sellFeePerShare.Mul(size),
			NetCost:    sellProceeds.Neg(),
			Instruction: fmt.Sprintf("Sell $%s of YES on %s at %s",
				size.StringFixed(2), s.SellVenue.Info().DisplayName, s.SellPrice.StringFixed(4)),
			VenueURL: marketURL(sellMarket, s.SellVenue),
		},
	}
}

func marketURL(m *types.Market, venue types.Venue) string {
	if m != nil && m.URL != "" {
		return m.URL
	}
	return venue.Info().BaseURL
}
