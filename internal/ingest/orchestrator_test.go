package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/crossarb/crossarb/internal/orderbook"
	"github.com/crossarb/crossarb/internal/storage"
	"github.com/crossarb/crossarb/internal/testutil"
	"github.com/crossarb/crossarb/internal/venue"
	"github.com/crossarb/crossarb/pkg/events"
	"github.com/crossarb/crossarb/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// capturePublisher records published events.
type capturePublisher struct {
	opportunities []events.OpportunityEvent
	prices        []events.PriceEvent
	orderbooks    []events.OrderbookEvent
}

func (c *capturePublisher) PublishOpportunity(evt events.OpportunityEvent) {
	c.opportunities = append(c.opportunities, evt)
}

func (c *capturePublisher) PublishPrice(evt events.PriceEvent) {
	c.prices = append(c.prices, evt)
}

func (c *capturePublisher) PublishOrderbook(evt events.OrderbookEvent) {
	c.orderbooks = append(c.orderbooks, evt)
}

type orchHarness struct {
	orch      *Orchestrator
	store     *storage.MemoryStore
	books     *orderbook.Store
	publisher *capturePublisher
	pm        *testutil.FakeAdapter
	kalshi    *testutil.FakeAdapter
}

func newOrchHarness(t *testing.T) *orchHarness {
	t.Helper()
	logger := zap.NewNop()

	books := orderbook.New(orderbook.Config{
		Cache:        testutil.NewFakeCache(),
		OrderbookTTL: 10 * time.Second,
		QuoteTTL:     10 * time.Second,
		Logger:       logger,
	})
	store := storage.NewMemoryStore(logger)
	publisher := &capturePublisher{}

	pm := testutil.NewFakeAdapter(types.VenuePolymarket)
	kalshi := testutil.NewFakeAdapter(types.VenueKalshi)

	orch := New(Config{
		FullSyncInterval: time.Minute,
		RefreshInterval:  time.Minute,
		Logger:           logger,
	}, []venue.Adapter{pm, kalshi}, books, store, publisher)

	return &orchHarness{
		orch:      orch,
		store:     store,
		books:     books,
		publisher: publisher,
		pm:        pm,
		kalshi:    kalshi,
	}
}

func TestFullSync_AllSettled(t *testing.T) {
	h := newOrchHarness(t)
	ctx := context.Background()

	m1 := testutil.Market(types.VenuePolymarket, "pm-1", "Q1?")
	h.pm.SetMarkets([]types.Market{m1}, nil)
	// A failing venue does not block the others.
	h.kalshi.SetMarkets(nil, types.NewVenueError(types.ErrKindTransient, types.VenueKalshi, "fetch", assert.AnError))

	h.orch.FullSync(ctx)

	active, err := h.store.ListActiveMarkets(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "pm-1", active[0].ExternalID)

	stats := h.orch.Stats()
	assert.Equal(t, int64(1), stats.MarketsIngested)
	assert.Equal(t, int64(1), stats.ErrorsCount)
	assert.NotNil(t, stats.LastFullSyncAt)
}

func TestFullSync_ClosesMissingMarketsAfterThreeSyncs(t *testing.T) {
	h := newOrchHarness(t)
	ctx := context.Background()

	m1 := testutil.Market(types.VenueKalshi, "KX-GONE", "Q?")
	h.kalshi.SetMarkets([]types.Market{m1}, nil)
	h.orch.FullSync(ctx)

	// Register a match that should go stale with the market.
	other := testutil.Market(types.VenuePolymarket, "pm-1", "Q?")
	require.NoError(t, h.store.UpsertMarket(ctx, &other))
	match := testutil.ConfirmedMatch(other, m1, 0.9)
	require.NoError(t, h.store.UpsertMatch(ctx, &match))
	h.store.SetMatchStatus(match.Key(), types.MatchConfirmed)

	// The market stops appearing.
	h.kalshi.SetMarkets(nil, nil)
	h.orch.FullSync(ctx)
	h.orch.FullSync(ctx)

	got, err := h.store.GetMarket(ctx, types.VenueKalshi, "KX-GONE")
	require.NoError(t, err)
	assert.Equal(t, types.MarketActive, got.Status, "two absences are not enough")

	h.orch.FullSync(ctx)

	got, err = h.store.GetMarket(ctx, types.VenueKalshi, "KX-GONE")
	require.NoError(t, err)
	assert.Equal(t, types.MarketClosed, got.Status)

	stale, err := h.store.ListMatches(ctx, types.MatchStale)
	require.NoError(t, err)
	assert.Len(t, stale, 1)
}

func TestApplyBook_WritesThroughAndPublishes(t *testing.T) {
	h := newOrchHarness(t)
	ctx := context.Background()

	m := testutil.Market(types.VenueKalshi, "KX-1", "Q?")
	require.NoError(t, h.store.UpsertMarket(ctx, &m))

	book := testutil.Book(types.VenueKalshi, "KX-1",
		[]types.PriceLevel{testutil.Level("0.42", "100")},
		[]types.PriceLevel{testutil.Level("0.45", "100")},
		0)

	h.orch.applyBook(ctx, book)

	// Cache holds the book.
	cached := h.books.GetOrderBook(types.VenueKalshi, "KX-1")
	require.NotNil(t, cached)
	assert.Equal(t, "KX-1", cached.ExternalID)

	// Market row carries the denormalized quote.
	stored, err := h.store.GetMarket(ctx, types.VenueKalshi, "KX-1")
	require.NoError(t, err)
	assert.Equal(t, "0.42", stored.YesBid.Decimal.String())
	assert.Equal(t, "0.435", stored.Midpoint.Decimal.String())

	// Snapshot trail grew.
	assert.Len(t, h.store.SnapshotTrail(types.VenueKalshi, "KX-1"), 1)

	// Push bus saw orderbook + price events.
	require.Len(t, h.publisher.orderbooks, 1)
	require.Len(t, h.publisher.prices, 1)
	assert.Equal(t, "KALSHI", h.publisher.orderbooks[0].Venue)
}

func TestApplyBook_DropsOutOfOrderUpdates(t *testing.T) {
	h := newOrchHarness(t)
	ctx := context.Background()

	m := testutil.Market(types.VenueKalshi, "KX-1", "Q?")
	require.NoError(t, h.store.UpsertMarket(ctx, &m))

	newer := testutil.Book(types.VenueKalshi, "KX-1",
		[]types.PriceLevel{testutil.Level("0.44", "100")},
		[]types.PriceLevel{testutil.Level("0.46", "100")},
		0)
	older := testutil.Book(types.VenueKalshi, "KX-1",
		[]types.PriceLevel{testutil.Level("0.40", "100")},
		[]types.PriceLevel{testutil.Level("0.42", "100")},
		5*time.Second)

	h.orch.applyBook(ctx, newer)
	h.orch.applyBook(ctx, older)

	cached := h.books.GetOrderBook(types.VenueKalshi, "KX-1")
	require.NotNil(t, cached)
	bid, _ := cached.BestBid()
	assert.Equal(t, "0.44", bid.Price.String(), "older update must not overwrite newer")
}

func TestApplyBook_SuppressesEventsWhileOffline(t *testing.T) {
	h := newOrchHarness(t)
	ctx := context.Background()

	m := testutil.Market(types.VenueKalshi, "KX-1", "Q?")
	require.NoError(t, h.store.UpsertMarket(ctx, &m))

	h.kalshi.SetStatus(types.VenueOffline)

	book := testutil.Book(types.VenueKalshi, "KX-1",
		[]types.PriceLevel{testutil.Level("0.42", "100")},
		[]types.PriceLevel{testutil.Level("0.45", "100")},
		0)
	h.orch.applyBook(ctx, book)

	// The cache still updates (data is real), but no events carry the
	// offline venue's tag.
	require.NotNil(t, h.books.GetOrderBook(types.VenueKalshi, "KX-1"))
	assert.Empty(t, h.publisher.orderbooks)
	assert.Empty(t, h.publisher.prices)
}

func TestCoalescer_LatestWinsPerKey(t *testing.T) {
	c := newCoalescer()

	first := testutil.Book(types.VenueKalshi, "KX-1",
		[]types.PriceLevel{testutil.Level("0.40", "100")}, nil, time.Second)
	second := testutil.Book(types.VenueKalshi, "KX-1",
		[]types.PriceLevel{testutil.Level("0.41", "100")}, nil, 0)
	other := testutil.Book(types.VenueKalshi, "KX-2",
		[]types.PriceLevel{testutil.Level("0.50", "100")}, nil, 0)

	c.putBook(first)
	c.putBook(second)
	c.putBook(other)

	books, _ := c.drain()
	require.Len(t, books, 2)

	byKey := make(map[string]*types.OrderBook)
	for _, b := range books {
		byKey[b.Key()] = b
	}
	bid, _ := byKey["KALSHI:KX-1"].BestBid()
	assert.Equal(t, "0.41", bid.Price.String())

	// Drained: next drain is empty.
	books, quotes := c.drain()
	assert.Empty(t, books)
	assert.Empty(t, quotes)
}

func TestRefreshConfirmed_TargetsOnlyMatchedMarkets(t *testing.T) {
	h := newOrchHarness(t)
	ctx := context.Background()

	a := testutil.Market(types.VenuePolymarket, "pm-1", "Q?")
	b := testutil.Market(types.VenueKalshi, "KX-1", "Q?")
	unmatched := testutil.Market(types.VenueKalshi, "KX-LONELY", "Q2?")
	require.NoError(t, h.store.UpsertMarket(ctx, &a))
	require.NoError(t, h.store.UpsertMarket(ctx, &b))
	require.NoError(t, h.store.UpsertMarket(ctx, &unmatched))

	match := testutil.ConfirmedMatch(a, b, 0.9)
	require.NoError(t, h.store.UpsertMatch(ctx, &match))
	h.store.SetMatchStatus(match.Key(), types.MatchConfirmed)

	h.pm.SetBook("pm-1", testutil.Book(types.VenuePolymarket, "pm-1",
		[]types.PriceLevel{testutil.Level("0.40", "100")},
		[]types.PriceLevel{testutil.Level("0.42", "100")}, 0), nil)
	h.kalshi.SetBook("KX-1", testutil.Book(types.VenueKalshi, "KX-1",
		[]types.PriceLevel{testutil.Level("0.44", "100")},
		[]types.PriceLevel{testutil.Level("0.46", "100")}, 0), nil)

	h.orch.refreshConfirmed(ctx)

	assert.ElementsMatch(t, []string{"pm-1"}, h.pm.FetchedBooks)
	assert.ElementsMatch(t, []string{"KX-1"}, h.kalshi.FetchedBooks)

	// Push subscriptions follow the confirmed set.
	assert.Equal(t, []string{"pm-1"}, h.pm.PushIDs())
	assert.Equal(t, []string{"KX-1"}, h.kalshi.PushIDs())
}

func TestRefreshBook_ClosedPropagates(t *testing.T) {
	h := newOrchHarness(t)
	ctx := context.Background()

	m := testutil.Market(types.VenueKalshi, "KX-1", "Q?")
	require.NoError(t, h.store.UpsertMarket(ctx, &m))
	h.kalshi.SetBook("KX-1", nil,
		types.NewVenueError(types.ErrKindClosed, types.VenueKalshi, "fetch_orderbook", nil))

	h.orch.refreshBook(ctx, h.kalshi, "KX-1")

	got, err := h.store.GetMarket(ctx, types.VenueKalshi, "KX-1")
	require.NoError(t, err)
	assert.Equal(t, types.MarketClosed, got.Status)
}
