package venue

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/crossarb/crossarb/internal/ratelimit"
	"github.com/crossarb/crossarb/pkg/types"
	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const kalshiPageSize = 200

// Kalshi is the adapter for Kalshi. Prices are cent-denominated (1-99) and
// divided by 100 on ingress. Kalshi's book publishes resting YES bids and
// resting NO bids; the YES ask side is reconstructed as the complement of
// the NO bids, which Kalshi documents as equivalent for its strictly binary
// contracts. There is no public push transport, so StartPush runs a polling
// loop paced by the venue gate.
type Kalshi struct {
	client *resty.Client
	gate   *ratelimit.Gate
	health *HealthTracker
	logger *zap.Logger

	apiKey       string
	pollInterval time.Duration

	mu       sync.Mutex
	pollStop context.CancelFunc
	pollWG   sync.WaitGroup
}

// KalshiConfig holds adapter configuration.
type KalshiConfig struct {
	BaseURL      string
	APIKey       string // optional; market data is public
	FetchTimeout time.Duration
	PollInterval time.Duration
	Gate         *ratelimit.Gate
	Logger       *zap.Logger
}

// NewKalshi creates the Kalshi adapter.
func NewKalshi(cfg KalshiConfig) *Kalshi {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.FetchTimeout).
		SetRetryCount(3).
		SetRetryWaitTime(500*time.Millisecond).
		SetRetryMaxWaitTime(5*time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() >= 500
		}).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "crossarb/1.0")

	if cfg.APIKey != "" {
		client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	}

	pollInterval := cfg.PollInterval
	if pollInterval == 0 {
		pollInterval = 2 * time.Second
	}

	return &Kalshi{
		client:       client,
		gate:         cfg.Gate,
		health:       NewHealthTracker(types.VenueKalshi),
		logger:       cfg.Logger,
		apiKey:       cfg.APIKey,
		pollInterval: pollInterval,
	}
}

// Venue returns the adapter's venue tag.
func (k *Kalshi) Venue() types.Venue {
	return types.VenueKalshi
}

// kalshiMarket is one row of the /markets listing.
type kalshiMarket struct {
	Ticker         string `json:"ticker"`
	Title          string `json:"title"`
	Subtitle       string `json:"subtitle"`
	Category       string `json:"category"`
	YesBid         int64  `json:"yes_bid"` // cents
	YesAsk         int64  `json:"yes_ask"` // cents
	LastPrice      int64  `json:"last_price"`
	Volume24h      int64  `json:"volume_24h"`
	ExpirationTime string `json:"expiration_time"`
	RulesPrimary   string `json:"rules_primary"`
	Status         string `json:"status"`
	TickSize       int64  `json:"tick_size"`
}

type kalshiMarketsResponse struct {
	Markets []kalshiMarket `json:"markets"`
	Cursor  string         `json:"cursor"`
}

// FetchActiveMarkets lists open markets, following the cursor until the
// venue stops returning pages.
func (k *Kalshi) FetchActiveMarkets(ctx context.Context) ([]types.Market, error) {
	const op = "fetch_active_markets"

	start := time.Now()
	var rows []kalshiMarket
	cursor := ""

	for {
		if err := k.gate.Acquire(ctx); err != nil {
			return nil, err
		}

		var page kalshiMarketsResponse
		req := k.client.R().
			SetContext(ctx).
			SetQueryParam("status", "open").
			SetQueryParam("limit", strconv.Itoa(kalshiPageSize)).
			SetResult(&page)
		if cursor != "" {
			req.SetQueryParam("cursor", cursor)
		}
		resp, err := req.Get("/markets")
		k.gate.Release()

		if verr := k.classify(op, resp, err); verr != nil {
			return nil, verr
		}

		rows = append(rows, page.Markets...)
		if page.Cursor == "" || len(page.Markets) < kalshiPageSize {
			break
		}
		cursor = page.Cursor
	}

	latency := time.Since(start)
	k.health.RecordSuccess(latency.Milliseconds())
	FetchesTotal.WithLabelValues("KALSHI", op, "ok").Inc()
	FetchLatencySeconds.WithLabelValues("KALSHI", op).Observe(latency.Seconds())

	now := time.Now()
	markets := make([]types.Market, 0, len(rows))
	for _, row := range rows {
		m, ok := k.normalizeMarket(row, now, latency.Milliseconds())
		if !ok {
			SchemaDropsTotal.WithLabelValues("KALSHI").Inc()
			continue
		}
		markets = append(markets, m)
	}

	k.health.SetMarketCount(len(markets))

	k.logger.Debug("kalshi-markets-fetched",
		zap.Int("count", len(markets)),
		zap.Duration("latency", latency))

	return markets, nil
}

func (k *Kalshi) normalizeMarket(row kalshiMarket, now time.Time, latencyMS int64) (types.Market, bool) {
	if row.Ticker == "" || row.Title == "" {
		return types.Market{}, false
	}

	question := row.Title
	if row.Subtitle != "" {
		question = fmt.Sprintf("%s %s", row.Title, row.Subtitle)
	}

	m := types.Market{
		Venue:           types.VenueKalshi,
		ExternalID:      row.Ticker,
		Question:        question,
		Category:        row.Category,
		Outcomes:        []string{"YES", "NO"},
		ResolutionRules: row.RulesPrimary,
		URL:             fmt.Sprintf("%s/%s", types.VenueKalshi.Info().BaseURL, row.Ticker),
		Status:          types.MarketActive,
		FeeRate:         types.VenueKalshi.TakerFee(),
		TickSize:        CentsToPrice(max64(row.TickSize, 1)),
		MinOrderSize:    decimal.NewFromInt(1),
		Volume24h:       decimal.NewFromInt(row.Volume24h),
		LastFetchedAt:   now,
		FetchLatencyMS:  latencyMS,
	}

	if row.Status != "" && row.Status != "open" && row.Status != "active" {
		m.Status = types.MarketClosed
	}
	if t, err := time.Parse(time.RFC3339, row.ExpirationTime); err == nil {
		m.EndDate = &t
	}
	if row.YesBid > 0 {
		m.YesBid = decimal.NewNullDecimal(CentsToPrice(row.YesBid))
	}
	if row.YesAsk > 0 {
		m.YesAsk = decimal.NewNullDecimal(CentsToPrice(row.YesAsk))
	}
	if row.LastPrice > 0 {
		m.LastTradePrice = decimal.NewNullDecimal(CentsToPrice(row.LastPrice))
	}

	return m, true
}

// kalshiBook is the /markets/{ticker}/orderbook response. Each level is a
// [price_cents, contracts] pair of resting bids for that side.
type kalshiBook struct {
	Orderbook struct {
		Yes [][]int64 `json:"yes"`
		No  [][]int64 `json:"no"`
	} `json:"orderbook"`
}

// FetchOrderBook fetches depth for one ticker. YES bids come straight from
// the yes side; YES asks are the complement of the NO bids.
func (k *Kalshi) FetchOrderBook(ctx context.Context, externalID string) (*types.OrderBook, error) {
	const op = "fetch_orderbook"

	if err := k.gate.Acquire(ctx); err != nil {
		return nil, err
	}
	defer k.gate.Release()

	start := time.Now()
	var book kalshiBook
	resp, err := k.client.R().
		SetContext(ctx).
		SetPathParam("ticker", externalID).
		SetResult(&book).
		Get("/markets/{ticker}/orderbook")
	latency := time.Since(start)

	if verr := k.classify(op, resp, err); verr != nil {
		return nil, verr
	}

	k.health.RecordSuccess(latency.Milliseconds())
	FetchesTotal.WithLabelValues("KALSHI", op, "ok").Inc()
	FetchLatencySeconds.WithLabelValues("KALSHI", op).Observe(latency.Seconds())

	bids := k.parseSide(book.Orderbook.Yes)
	asks := ComplementLevels(k.parseSide(book.Orderbook.No))

	return NormalizeBook(
		types.VenueKalshi,
		externalID,
		bids,
		asks,
		time.Now(),
		latency.Milliseconds(),
		k.logger,
	), nil
}

// parseSide converts [price_cents, contracts] pairs into levels. Size is
// USD notional at that price (contracts pay out $1).
func (k *Kalshi) parseSide(raw [][]int64) []types.PriceLevel {
	levels := make([]types.PriceLevel, 0, len(raw))
	for _, pair := range raw {
		if len(pair) != 2 {
			SchemaDropsTotal.WithLabelValues("KALSHI").Inc()
			continue
		}
		price := CentsToPrice(pair[0])
		size := decimal.NewFromInt(pair[1]).Mul(price)
		levels = append(levels, types.PriceLevel{Price: price, Size: size})
	}
	return levels
}

// FetchQuote fetches top-of-book from the single-market endpoint.
func (k *Kalshi) FetchQuote(ctx context.Context, externalID string) (*types.Quote, error) {
	const op = "fetch_quote"

	if err := k.gate.Acquire(ctx); err != nil {
		return nil, err
	}
	defer k.gate.Release()

	start := time.Now()
	var result struct {
		Market kalshiMarket `json:"market"`
	}
	resp, err := k.client.R().
		SetContext(ctx).
		SetPathParam("ticker", externalID).
		SetResult(&result).
		Get("/markets/{ticker}")
	latency := time.Since(start)

	if verr := k.classify(op, resp, err); verr != nil {
		return nil, verr
	}

	k.health.RecordSuccess(latency.Milliseconds())
	FetchesTotal.WithLabelValues("KALSHI", op, "ok").Inc()
	FetchLatencySeconds.WithLabelValues("KALSHI", op).Observe(latency.Seconds())

	row := result.Market
	q := &types.Quote{
		Venue:      types.VenueKalshi,
		ExternalID: externalID,
		Volume24h:  decimal.NewFromInt(row.Volume24h),
		Timestamp:  time.Now(),
		LatencyMS:  latency.Milliseconds(),
	}
	if row.YesBid > 0 {
		q.BestBid = decimal.NewNullDecimal(CentsToPrice(row.YesBid))
	}
	if row.YesAsk > 0 {
		q.BestAsk = decimal.NewNullDecimal(CentsToPrice(row.YesAsk))
	}
	if row.LastPrice > 0 {
		q.LastTradePrice = decimal.NewNullDecimal(CentsToPrice(row.LastPrice))
	}

	return q, nil
}

func (k *Kalshi) classify(op string, resp *resty.Response, err error) error {
	if err != nil {
		k.health.RecordError()
		FetchesTotal.WithLabelValues("KALSHI", op, "error").Inc()
		return types.NewVenueError(types.ErrKindTransient, types.VenueKalshi, op, err)
	}

	code := resp.StatusCode()
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusTooManyRequests:
		k.gate.OnRateLimited()
		k.health.RecordError()
		FetchesTotal.WithLabelValues("KALSHI", op, "rate_limited").Inc()
		return types.NewVenueError(types.ErrKindRateLimited, types.VenueKalshi, op,
			fmt.Errorf("status %d", code))
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		k.health.RecordError()
		FetchesTotal.WithLabelValues("KALSHI", op, "auth").Inc()
		return types.NewVenueError(types.ErrKindAuth, types.VenueKalshi, op,
			fmt.Errorf("status %d", code))
	case code == http.StatusNotFound:
		FetchesTotal.WithLabelValues("KALSHI", op, "closed").Inc()
		return types.NewVenueError(types.ErrKindClosed, types.VenueKalshi, op,
			fmt.Errorf("status %d", code))
	default:
		k.health.RecordError()
		FetchesTotal.WithLabelValues("KALSHI", op, "error").Inc()
		return types.NewVenueError(types.ErrKindTransient, types.VenueKalshi, op,
			fmt.Errorf("status %d: %s", code, resp.String()))
	}
}

// SupportsPush reports that Kalshi has no public push transport; StartPush
// falls back to gated polling.
func (k *Kalshi) SupportsPush() bool {
	return false
}

// StartPush starts (or extends) the polling fallback over the given ids.
// Each cycle fetches every subscribed book through the venue gate, so the
// per-venue pacing and in-flight cap bound the request rate.
func (k *Kalshi) StartPush(ctx context.Context, externalIDs []string, sink Sink) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.pollStop != nil {
		k.pollStop()
		k.pollWG.Wait()
	}

	pollCtx, cancel := context.WithCancel(ctx)
	k.pollStop = cancel

	ids := make([]string, len(externalIDs))
	copy(ids, externalIDs)

	k.pollWG.Add(1)
	go k.pollLoop(pollCtx, ids, sink)

	k.logger.Info("kalshi-poll-fallback-started",
		zap.Int("markets", len(ids)),
		zap.Duration("interval", k.pollInterval))

	return nil
}

func (k *Kalshi) pollLoop(ctx context.Context, ids []string, sink Sink) {
	defer k.pollWG.Done()

	ticker := time.NewTicker(k.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, id := range ids {
				select {
				case <-ctx.Done():
					return
				default:
				}

				book, err := k.FetchOrderBook(ctx, id)
				if err != nil {
					k.logger.Debug("kalshi-poll-fetch-failed",
						zap.String("ticker", id),
						zap.Error(err))
					continue
				}

				PushEventsTotal.WithLabelValues("KALSHI", "orderbook").Inc()
				sink.OnOrderBook(book)
			}
		}
	}
}

// StopPush stops the polling fallback.
func (k *Kalshi) StopPush() error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.pollStop != nil {
		k.pollStop()
		k.pollWG.Wait()
		k.pollStop = nil
	}

	return nil
}

// Health returns a point-in-time health snapshot.
func (k *Kalshi) Health() types.VenueHealth {
	return k.health.Snapshot()
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
