// Package ingest contains the ingestion orchestrator: it owns the venue
// adapter lifecycles, fans their events into the order book cache and the
// persistent store, and keeps the markets referenced by confirmed matches
// fresh with a targeted refresh loop.
package ingest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/crossarb/crossarb/internal/orderbook"
	"github.com/crossarb/crossarb/internal/storage"
	"github.com/crossarb/crossarb/internal/venue"
	"github.com/crossarb/crossarb/pkg/events"
	"github.com/crossarb/crossarb/pkg/types"
	"go.uber.org/zap"
)

// missingSyncsBeforeClose is how many successive full syncs a market may be
// absent from the venue's active listing before it is marked CLOSED.
const missingSyncsBeforeClose = 3

// Orchestrator coordinates adapters, cache, store, and the push bus.
type Orchestrator struct {
	adapters  map[types.Venue]venue.Adapter
	books     *orderbook.Store
	store     storage.Store
	publisher events.Publisher
	config    Config
	logger    *zap.Logger

	stats     Stats
	coalescer *coalescer

	mu           sync.Mutex
	lastApplied  map[string]time.Time // per market key; rejects out-of-order updates
	missingSyncs map[string]int       // per market key; consecutive absences
	subscribed   map[types.Venue]string

	wg sync.WaitGroup
}

// Config holds orchestrator configuration.
type Config struct {
	FullSyncInterval time.Duration
	RefreshInterval  time.Duration
	Logger           *zap.Logger
}

// New creates an orchestrator over the given adapters.
func New(cfg Config, adapters []venue.Adapter, books *orderbook.Store, store storage.Store, publisher events.Publisher) *Orchestrator {
	byVenue := make(map[types.Venue]venue.Adapter, len(adapters))
	for _, a := range adapters {
		byVenue[a.Venue()] = a
	}

	return &Orchestrator{
		adapters:     byVenue,
		books:        books,
		store:        store,
		publisher:    publisher,
		config:       cfg,
		logger:       cfg.Logger,
		coalescer:    newCoalescer(),
		lastApplied:  make(map[string]time.Time),
		missingSyncs: make(map[string]int),
		subscribed:   make(map[types.Venue]string),
	}
}

// Stats returns the orchestrator's running totals.
func (o *Orchestrator) Stats() StatsSnapshot {
	return o.stats.Snapshot()
}

// Health returns the health snapshots of all adapters.
func (o *Orchestrator) Health() []types.VenueHealth {
	out := make([]types.VenueHealth, 0, len(o.adapters))
	for _, a := range o.adapters {
		out = append(out, a.Health())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Venue < out[j].Venue })
	return out
}

// OnOrderBook implements venue.Sink.
func (o *Orchestrator) OnOrderBook(book *types.OrderBook) {
	o.coalescer.putBook(book)
}

// OnQuote implements venue.Sink.
func (o *Orchestrator) OnQuote(quote *types.Quote) {
	o.coalescer.putQuote(quote)
}

// Run performs the startup full sync and then drives the three loops until
// ctx ends: periodic full sync, targeted refresh, and event fan-in.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.logger.Info("orchestrator-starting",
		zap.Int("adapters", len(o.adapters)),
		zap.Duration("full-sync-interval", o.config.FullSyncInterval),
		zap.Duration("refresh-interval", o.config.RefreshInterval))

	// Startup full sync; a failing venue does not block the rest.
	o.FullSync(ctx)

	o.wg.Add(3)
	go o.fullSyncLoop(ctx)
	go o.refreshLoop(ctx)
	go o.applyLoop(ctx)

	<-ctx.Done()

	o.stopPush()
	o.wg.Wait()

	o.logger.Info("orchestrator-stopped")

	return ctx.Err()
}

func (o *Orchestrator) fullSyncLoop(ctx context.Context) {
	defer o.wg.Done()

	ticker := time.NewTicker(o.config.FullSyncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.FullSync(ctx)
		}
	}
}

// FullSync fetches every enabled venue's active market list in parallel
// with all-settled semantics and reconciles the persistent store.
func (o *Orchestrator) FullSync(ctx context.Context) {
	start := time.Now()

	var wg sync.WaitGroup
	for _, adapter := range o.adapters {
		wg.Add(1)
		go func(a venue.Adapter) {
			defer wg.Done()
			o.syncVenue(ctx, a)
		}(adapter)
	}
	wg.Wait()

	o.stats.lastFullSync.Store(time.Now().UnixMilli())
	FullSyncsTotal.Inc()

	o.logger.Info("full-sync-complete", zap.Duration("took", time.Since(start)))
}

func (o *Orchestrator) syncVenue(ctx context.Context, a venue.Adapter) {
	markets, err := a.FetchActiveMarkets(ctx)
	if err != nil {
		o.stats.errorsCount.Add(1)
		o.logger.Warn("venue-sync-failed",
			zap.String("venue", string(a.Venue())),
			zap.String("kind", string(types.KindOf(err))),
			zap.Error(err))
		return
	}

	seen := make(map[string]bool, len(markets))
	for i := range markets {
		m := &markets[i]
		seen[m.Key()] = true

		err = o.store.UpsertMarket(ctx, m)
		if err != nil {
			o.stats.errorsCount.Add(1)
			o.logger.Error("market-upsert-failed",
				zap.String("key", m.Key()),
				zap.Error(err))
			continue
		}
		o.stats.marketsIngested.Add(1)
	}

	o.reconcileMissing(ctx, a.Venue(), seen)
}

// reconcileMissing closes markets that stopped appearing in the venue's
// active listing for missingSyncsBeforeClose successive syncs, and marks
// their matches stale.
func (o *Orchestrator) reconcileMissing(ctx context.Context, v types.Venue, seen map[string]bool) {
	stored, err := o.store.ListActiveMarkets(ctx)
	if err != nil {
		o.stats.errorsCount.Add(1)
		return
	}

	o.mu.Lock()
	var toClose []types.Market
	for _, m := range stored {
		if m.Venue != v {
			continue
		}
		key := m.Key()
		if seen[key] {
			delete(o.missingSyncs, key)
			continue
		}
		o.missingSyncs[key]++
		if o.missingSyncs[key] >= missingSyncsBeforeClose {
			delete(o.missingSyncs, key)
			toClose = append(toClose, m)
		}
	}
	o.mu.Unlock()

	for _, m := range toClose {
		o.closeMarket(ctx, m.Venue, m.ExternalID, "absent-from-listing")
	}
}

// closeMarket transitions a market to CLOSED and stales its matches.
func (o *Orchestrator) closeMarket(ctx context.Context, v types.Venue, externalID, reason string) {
	o.logger.Info("market-closed",
		zap.String("venue", string(v)),
		zap.String("external-id", externalID),
		zap.String("reason", reason))

	if err := o.store.UpdateMarketStatus(ctx, v, externalID, types.MarketClosed); err != nil {
		o.stats.errorsCount.Add(1)
		return
	}
	if err := o.store.MarkMatchesStale(ctx, v, externalID); err != nil {
		o.stats.errorsCount.Add(1)
	}
	MarketsClosedTotal.WithLabelValues(string(v)).Inc()
}

// refreshLoop re-fetches order books for exactly the markets referenced by
// a CONFIRMED match, and keeps push subscriptions aligned with that set.
func (o *Orchestrator) refreshLoop(ctx context.Context) {
	defer o.wg.Done()

	ticker := time.NewTicker(o.config.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.refreshConfirmed(ctx)
		}
	}
}

func (o *Orchestrator) refreshConfirmed(ctx context.Context) {
	matches, err := o.store.ListMatches(ctx, types.MatchConfirmed)
	if err != nil {
		o.stats.errorsCount.Add(1)
		return
	}

	idsByVenue := make(map[types.Venue]map[string]bool)
	for i := range matches {
		m := &matches[i]
		addID(idsByVenue, m.SourceVenue, m.SourceExternalID)
		addID(idsByVenue, m.TargetVenue, m.TargetExternalID)
	}

	o.syncPushSubscriptions(ctx, idsByVenue)

	var wg sync.WaitGroup
	for v, ids := range idsByVenue {
		adapter, ok := o.adapters[v]
		if !ok {
			continue
		}
		for id := range ids {
			wg.Add(1)
			go func(a venue.Adapter, externalID string) {
				defer wg.Done()
				o.refreshBook(ctx, a, externalID)
			}(adapter, id)
		}
	}
	wg.Wait()
}

func addID(m map[types.Venue]map[string]bool, v types.Venue, id string) {
	if m[v] == nil {
		m[v] = make(map[string]bool)
	}
	m[v][id] = true
}

func (o *Orchestrator) refreshBook(ctx context.Context, a venue.Adapter, externalID string) {
	book, err := a.FetchOrderBook(ctx, externalID)
	if err != nil {
		switch types.KindOf(err) {
		case types.ErrKindClosed:
			o.closeMarket(ctx, a.Venue(), externalID, "venue-reports-closed")
		case types.ErrKindSchema:
			// Deterministic; dropped and counted inside the adapter.
		default:
			o.stats.errorsCount.Add(1)
		}
		return
	}

	o.coalescer.putBook(book)
}

// syncPushSubscriptions (re)subscribes each venue's push stream when the
// confirmed-match id set changes.
func (o *Orchestrator) syncPushSubscriptions(ctx context.Context, idsByVenue map[types.Venue]map[string]bool) {
	for v, adapter := range o.adapters {
		ids := sortedKeys(idsByVenue[v])
		fingerprint := join(ids)

		o.mu.Lock()
		changed := o.subscribed[v] != fingerprint
		if changed {
			o.subscribed[v] = fingerprint
		}
		o.mu.Unlock()

		if !changed || len(ids) == 0 {
			continue
		}

		err := adapter.StartPush(ctx, ids, o)
		if err != nil {
			o.stats.errorsCount.Add(1)
			o.logger.Warn("push-subscribe-failed",
				zap.String("venue", string(v)),
				zap.Error(err))
		}
	}
}

// applyLoop drains the coalescer and applies events to cache and store.
func (o *Orchestrator) applyLoop(ctx context.Context) {
	defer o.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-o.coalescer.notify:
			books, quotes := o.coalescer.drain()
			for _, book := range books {
				o.applyBook(ctx, book)
			}
			for _, quote := range quotes {
				o.applyQuote(ctx, quote)
			}
		}
	}
}

// applyBook validates ordering, writes through to the cache, refreshes the
// market row, appends a snapshot, and notifies the push bus. Events from an
// OFFLINE venue are suppressed.
func (o *Orchestrator) applyBook(ctx context.Context, book *types.OrderBook) {
	if !o.admitTimestamp(book.Key(), book.Timestamp) {
		StaleUpdatesDroppedTotal.WithLabelValues("orderbook").Inc()
		return
	}

	o.books.PutOrderBook(book)
	o.stats.orderbooksUpdated.Add(1)
	OrderbooksAppliedTotal.WithLabelValues(string(book.Venue)).Inc()

	o.refreshMarketFromBook(ctx, book)

	if o.venueOffline(book.Venue) {
		EventsSuppressedTotal.WithLabelValues(string(book.Venue)).Inc()
		return
	}

	o.publisher.PublishOrderbook(events.OrderbookEvent{
		Venue:     string(book.Venue),
		MarketID:  book.ExternalID,
		Timestamp: book.Timestamp,
	})

	if mid, ok := book.Midpoint(); ok {
		o.publisher.PublishPrice(events.PriceEvent{
			Venue:     string(book.Venue),
			MarketID:  book.ExternalID,
			Price:     mid.String(),
			Timestamp: book.Timestamp,
		})
	}
}

func (o *Orchestrator) applyQuote(ctx context.Context, quote *types.Quote) {
	if !o.admitTimestamp(quote.Key(), quote.Timestamp) {
		StaleUpdatesDroppedTotal.WithLabelValues("quote").Inc()
		return
	}

	o.books.PutQuote(quote)
	o.stats.quotesUpdated.Add(1)

	o.upsertQuoteFields(ctx, quote)

	if o.venueOffline(quote.Venue) {
		EventsSuppressedTotal.WithLabelValues(string(quote.Venue)).Inc()
		return
	}

	price := ""
	switch {
	case quote.LastTradePrice.Valid:
		price = quote.LastTradePrice.Decimal.String()
	case quote.BestBid.Valid:
		price = quote.BestBid.Decimal.String()
	}
	if price != "" {
		o.publisher.PublishPrice(events.PriceEvent{
			Venue:     string(quote.Venue),
			MarketID:  quote.ExternalID,
			Price:     price,
			Timestamp: quote.Timestamp,
		})
	}
}

// admitTimestamp enforces per-key source-timestamp ordering: an update older
// than the last applied one for the same key is discarded.
func (o *Orchestrator) admitTimestamp(key string, ts time.Time) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if last, ok := o.lastApplied[key]; ok && ts.Before(last) {
		return false
	}
	o.lastApplied[key] = ts
	return true
}

// refreshMarketFromBook derives top-of-book quote fields from a fresh book
// and upserts them onto the market row, plus a trail snapshot.
func (o *Orchestrator) refreshMarketFromBook(ctx context.Context, book *types.OrderBook) {
	quote := &types.Quote{
		Venue:      book.Venue,
		ExternalID: book.ExternalID,
		Timestamp:  book.Timestamp,
		LatencyMS:  book.LatencyMS,
	}
	if bid, ok := book.BestBid(); ok {
		quote.BestBid.Decimal, quote.BestBid.Valid = bid.Price, true
	}
	if ask, ok := book.BestAsk(); ok {
		quote.BestAsk.Decimal, quote.BestAsk.Valid = ask.Price, true
	}

	o.upsertQuoteFields(ctx, quote)
}

func (o *Orchestrator) upsertQuoteFields(ctx context.Context, quote *types.Quote) {
	market, err := o.store.GetMarket(ctx, quote.Venue, quote.ExternalID)
	if err != nil {
		o.stats.errorsCount.Add(1)
		return
	}
	if market == nil {
		return // book for a market we have not ingested yet
	}

	market.ApplyQuote(quote)
	if err = o.store.UpsertMarket(ctx, market); err != nil {
		o.stats.errorsCount.Add(1)
		return
	}

	err = o.store.AppendPriceSnapshot(ctx, types.PriceSnapshot{
		Venue:      quote.Venue,
		ExternalID: quote.ExternalID,
		YesBid:     quote.BestBid,
		YesAsk:     quote.BestAsk,
		Timestamp:  quote.Timestamp,
	})
	if err != nil {
		o.stats.errorsCount.Add(1)
	}
}

func (o *Orchestrator) venueOffline(v types.Venue) bool {
	adapter, ok := o.adapters[v]
	if !ok {
		return true
	}
	return adapter.Health().Status == types.VenueOffline
}

func (o *Orchestrator) stopPush() {
	for _, adapter := range o.adapters {
		if err := adapter.StopPush(); err != nil {
			o.logger.Warn("push-stop-failed",
				zap.String("venue", string(adapter.Venue())),
				zap.Error(err))
		}
	}
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func join(ids []string) string {
	s := ""
	for _, id := range ids {
		s += id + ","
	}
	return s
}
