package arbitrage

import (
	"context"
	"testing"
	"time"

	"github.com/crossarb/crossarb/internal/orderbook"
	"github.com/crossarb/crossarb/internal/storage"
	"github.com/crossarb/crossarb/internal/testutil"
	"github.com/crossarb/crossarb/pkg/events"
	"github.com/crossarb/crossarb/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// harness wires a detector over a fake cache and memory store.
type harness struct {
	detector *Detector
	books    *orderbook.Store
	store    *storage.MemoryStore
	match    types.MarketMatch
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	logger := zap.NewNop()

	books := orderbook.New(orderbook.Config{
		Cache:        testutil.NewFakeCache(),
		OrderbookTTL: 10 * time.Second,
		QuoteTTL:     10 * time.Second,
		Logger:       logger,
	})

	store := storage.NewMemoryStore(logger)

	detector := New(Config{
		ScanInterval:         time.Second,
		StaleThreshold:       3000 * time.Millisecond,
		MinSpreadPct:         0.5,
		MinConfidenceScore:   0.6,
		MinExecutableSizeUSD: 10,
		Logger:               logger,
	}, books, store, events.NewLogPublisher(logger))

	ctx := context.Background()
	source := testutil.Market(types.VenuePolymarket, "pm-token", "Will the thing happen?")
	target := testutil.Market(types.VenueKalshi, "KX-THING", "Will the thing happen?")
	require.NoError(t, store.UpsertMarket(ctx, &source))
	require.NoError(t, store.UpsertMarket(ctx, &target))

	m := testutil.ConfirmedMatch(source, target, 0.90)
	require.NoError(t, store.UpsertMatch(ctx, &m))
	store.SetMatchStatus(m.Key(), types.MatchConfirmed)

	return &harness{detector: detector, books: books, store: store, match: m}
}

func TestEvaluate_HappyArb(t *testing.T) {
	h := newHarness(t)

	// Polymarket YES ask 0.40 x 500, Kalshi YES bid 0.46 x 500; taker fees
	// 2% and 1%; both books 500ms old.
	h.books.PutOrderBook(testutil.Book(types.VenuePolymarket, "pm-token",
		[]types.PriceLevel{testutil.Level("0.38", "500")},
		[]types.PriceLevel{testutil.Level("0.40", "500")},
		500*time.Millisecond))
	h.books.PutOrderBook(testutil.Book(types.VenueKalshi, "KX-THING",
		[]types.PriceLevel{testutil.Level("0.46", "500")},
		[]types.PriceLevel{testutil.Level("0.48", "500")},
		500*time.Millisecond))

	opp := h.detector.Evaluate(context.Background(), &h.match, time.Now())
	require.NotNil(t, opp)

	assert.Equal(t, types.OpportunityActive, opp.Status)
	assert.Equal(t, types.BuyYesSellYes, opp.Strategy.Action)
	assert.Equal(t, types.VenuePolymarket, opp.Strategy.BuyVenue)
	assert.Equal(t, types.VenueKalshi, opp.Strategy.SellVenue)

	// gross 0.06, fees 0.40*0.02 + 0.46*0.01 = 0.0126, net/share 0.0474,
	// size 500, zero slippage, net profit 23.70.
	assert.InDelta(t, 0.06, opp.Profit.GrossSpread.InexactFloat64(), 1e-9)
	assert.InDelta(t, 23.70, opp.Profit.NetProfit.InexactFloat64(), 1e-9)
	assert.InDelta(t, 500, opp.Profit.MaxExecutableSize.InexactFloat64(), 1e-9)
	assert.True(t, opp.Profit.EstimatedSlippage.IsZero())

	// confidence: freshness ≈ 0.833, liquidity 0.5, match quality 0.9.
	assert.InDelta(t, 0.833, opp.Confidence.Freshness, 0.01)
	assert.InDelta(t, 0.5, opp.Confidence.Liquidity, 1e-9)
	assert.InDelta(t, 0.9, opp.Confidence.MatchQuality, 1e-9)
	assert.InDelta(t, 0.7566, opp.Confidence.Overall, 0.01)

	// emitted invariants
	assert.True(t, opp.Profit.NetProfit.IsPositive())
	assert.GreaterOrEqual(t, opp.Profit.MaxExecutableSize.InexactFloat64(), 10.0)
	assert.GreaterOrEqual(t, opp.Confidence.Overall, 0.6)
	assert.LessOrEqual(t, opp.SourceDataAgeMS, int64(3000))
	assert.LessOrEqual(t, opp.TargetDataAgeMS, int64(3000))

	require.Len(t, opp.Plan, 2)
	assert.Equal(t, "BUY", opp.Plan[0].Side)
	assert.Equal(t, "SELL", opp.Plan[1].Side)
}

func TestEvaluate_FeesKillSpread(t *testing.T) {
	h := newHarness(t)

	// gross 0.01, fees 0.49*0.02 + 0.50*0.01 = 0.0148: net ≤ 0.
	h.books.PutOrderBook(testutil.Book(types.VenuePolymarket, "pm-token",
		[]types.PriceLevel{testutil.Level("0.47", "500")},
		[]types.PriceLevel{testutil.Level("0.49", "500")},
		500*time.Millisecond))
	h.books.PutOrderBook(testutil.Book(types.VenueKalshi, "KX-THING",
		[]types.PriceLevel{testutil.Level("0.50", "500")},
		[]types.PriceLevel{testutil.Level("0.52", "500")},
		500*time.Millisecond))

	opp := h.detector.Evaluate(context.Background(), &h.match, time.Now())
	assert.Nil(t, opp)
}

func TestEvaluate_StaleDataSkipped(t *testing.T) {
	h := newHarness(t)

	// Same prices as the happy case, but the buy-side book is 4.5s old
	// against a 3s threshold.
	h.books.PutOrderBook(testutil.Book(types.VenuePolymarket, "pm-token",
		[]types.PriceLevel{testutil.Level("0.38", "500")},
		[]types.PriceLevel{testutil.Level("0.40", "500")},
		4500*time.Millisecond))
	h.books.PutOrderBook(testutil.Book(types.VenueKalshi, "KX-THING",
		[]types.PriceLevel{testutil.Level("0.46", "500")},
		[]types.PriceLevel{testutil.Level("0.48", "500")},
		500*time.Millisecond))

	opp := h.detector.Evaluate(context.Background(), &h.match, time.Now())
	assert.Nil(t, opp)
}

func TestEvaluate_DepthLimitedSize(t *testing.T) {
	h := newHarness(t)

	// Buy side: 20 at 0.40 plus 200 at 0.41 (inside the 5% band). Sell side
	// 500 at 0.46. Executable size is min(220, 500).
	h.books.PutOrderBook(testutil.Book(types.VenuePolymarket, "pm-token",
		[]types.PriceLevel{testutil.Level("0.38", "500")},
		[]types.PriceLevel{testutil.Level("0.40", "20"), testutil.Level("0.41", "200")},
		500*time.Millisecond))
	h.books.PutOrderBook(testutil.Book(types.VenueKalshi, "KX-THING",
		[]types.PriceLevel{testutil.Level("0.46", "500")},
		[]types.PriceLevel{testutil.Level("0.48", "500")},
		500*time.Millisecond))

	opp := h.detector.Evaluate(context.Background(), &h.match, time.Now())
	require.NotNil(t, opp)

	assert.InDelta(t, 220, opp.Profit.MaxExecutableSize.InexactFloat64(), 1e-9)

	// avg buy ≈ (0.40*20 + 0.41*200)/220 ≈ 0.4091; per-share slippage
	// ≈ 0.0091, halved when combined with the zero sell slippage.
	assert.InDelta(t, 0.00909/2, opp.Profit.EstimatedSlippage.InexactFloat64(), 0.0001)
	assert.True(t, opp.Profit.NetProfit.IsPositive())
}

func TestEvaluate_MissingBookSkipped(t *testing.T) {
	h := newHarness(t)

	// Only one side cached.
	h.books.PutOrderBook(testutil.Book(types.VenuePolymarket, "pm-token",
		[]types.PriceLevel{testutil.Level("0.38", "500")},
		[]types.PriceLevel{testutil.Level("0.40", "500")},
		500*time.Millisecond))

	opp := h.detector.Evaluate(context.Background(), &h.match, time.Now())
	assert.Nil(t, opp)
}

func TestEvaluate_PicksBetterDirection(t *testing.T) {
	h := newHarness(t)

	// Kalshi is the cheap venue here: buy Kalshi 0.40, sell Polymarket 0.46.
	h.books.PutOrderBook(testutil.Book(types.VenuePolymarket, "pm-token",
		[]types.PriceLevel{testutil.Level("0.46", "500")},
		[]types.PriceLevel{testutil.Level("0.48", "500")},
		500*time.Millisecond))
	h.books.PutOrderBook(testutil.Book(types.VenueKalshi, "KX-THING",
		[]types.PriceLevel{testutil.Level("0.38", "500")},
		[]types.PriceLevel{testutil.Level("0.40", "500")},
		500*time.Millisecond))

	opp := h.detector.Evaluate(context.Background(), &h.match, time.Now())
	require.NotNil(t, opp)

	assert.Equal(t, types.VenueKalshi, opp.Strategy.BuyVenue)
	assert.Equal(t, types.VenuePolymarket, opp.Strategy.SellVenue)
}

func TestEvaluate_LowConfidenceRejected(t *testing.T) {
	logger := zap.NewNop()
	books := orderbook.New(orderbook.Config{
		Cache:        testutil.NewFakeCache(),
		OrderbookTTL: 10 * time.Second,
		QuoteTTL:     10 * time.Second,
		Logger:       logger,
	})
	store := storage.NewMemoryStore(logger)
	detector := New(Config{
		ScanInterval:         time.Second,
		StaleThreshold:       3000 * time.Millisecond,
		MinSpreadPct:         0.5,
		MinConfidenceScore:   0.6,
		MinExecutableSizeUSD: 10,
		Logger:               logger,
	}, books, store, events.NewLogPublisher(logger))

	ctx := context.Background()
	source := testutil.Market(types.VenuePolymarket, "pm-token", "q")
	target := testutil.Market(types.VenueKalshi, "KX-THING", "q")
	require.NoError(t, store.UpsertMarket(ctx, &source))
	require.NoError(t, store.UpsertMarket(ctx, &target))

	// Weak match quality and thin books (20 deep, liquidity 0.02) drag the
	// blend under the floor even though both books are fresh.
	m := testutil.ConfirmedMatch(source, target, 0.10)
	require.NoError(t, store.UpsertMatch(ctx, &m))
	store.SetMatchStatus(m.Key(), types.MatchConfirmed)

	books.PutOrderBook(testutil.Book(types.VenuePolymarket, "pm-token",
		[]types.PriceLevel{testutil.Level("0.38", "20")},
		[]types.PriceLevel{testutil.Level("0.40", "20")},
		100*time.Millisecond))
	books.PutOrderBook(testutil.Book(types.VenueKalshi, "KX-THING",
		[]types.PriceLevel{testutil.Level("0.46", "20")},
		[]types.PriceLevel{testutil.Level("0.48", "20")},
		100*time.Millisecond))

	opp := detector.Evaluate(ctx, &m, time.Now())
	assert.Nil(t, opp)
}

func TestScanOnce_PersistsAndReturns(t *testing.T) {
	h := newHarness(t)

	h.books.PutOrderBook(testutil.Book(types.VenuePolymarket, "pm-token",
		[]types.PriceLevel{testutil.Level("0.38", "500")},
		[]types.PriceLevel{testutil.Level("0.40", "500")},
		500*time.Millisecond))
	h.books.PutOrderBook(testutil.Book(types.VenueKalshi, "KX-THING",
		[]types.PriceLevel{testutil.Level("0.46", "500")},
		[]types.PriceLevel{testutil.Level("0.48", "500")},
		500*time.Millisecond))

	found, err := h.detector.ScanOnce(context.Background())
	require.NoError(t, err)
	require.Len(t, found, 1)

	stored, err := h.store.ListRecentOpportunities(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, found[0].ID, stored[0].ID)
}

func TestConfidenceBlendRecomputable(t *testing.T) {
	h := newHarness(t)

	h.books.PutOrderBook(testutil.Book(types.VenuePolymarket, "pm-token",
		[]types.PriceLevel{testutil.Level("0.38", "500")},
		[]types.PriceLevel{testutil.Level("0.40", "500")},
		500*time.Millisecond))
	h.books.PutOrderBook(testutil.Book(types.VenueKalshi, "KX-THING",
		[]types.PriceLevel{testutil.Level("0.46", "500")},
		[]types.PriceLevel{testutil.Level("0.48", "500")},
		500*time.Millisecond))

	opp := h.detector.Evaluate(context.Background(), &h.match, time.Now())
	require.NotNil(t, opp)

	recomputed := confWeightFreshness*opp.Confidence.Freshness +
		confWeightLiquidity*opp.Confidence.Liquidity +
		confWeightMatchQuality*opp.Confidence.MatchQuality
	assert.InDelta(t, recomputed, opp.Confidence.Overall, 1e-12)
}
