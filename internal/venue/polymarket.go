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
	"github.com/crossarb/crossarb/pkg/websocket"
	"github.com/go-resty/resty/v2"
	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const polymarketPageSize = 500

// Polymarket is the adapter for Polymarket. Markets come from the Gamma API,
// depth from the CLOB API, and live updates from the CLOB market channel
// (true push via WebSocket). Prices are already on the [0,1] grid.
type Polymarket struct {
	gamma  *resty.Client
	clob   *resty.Client
	gate   *ratelimit.Gate
	health *HealthTracker
	logger *zap.Logger

	wsConfig websocket.Config
	mu       sync.Mutex
	push     *websocket.Manager
	pushWG   sync.WaitGroup
}

// PolymarketConfig holds adapter configuration.
type PolymarketConfig struct {
	GammaURL     string
	ClobURL      string
	WSURL        string
	FetchTimeout time.Duration
	Gate         *ratelimit.Gate

	WSDialTimeout           time.Duration
	WSPongTimeout           time.Duration
	WSPingInterval          time.Duration
	WSReconnectInitialDelay time.Duration
	WSReconnectMaxDelay     time.Duration
	WSReconnectBackoffMult  float64
	WSMessageBufferSize     int

	Logger *zap.Logger
}

// NewPolymarket creates the Polymarket adapter.
func NewPolymarket(cfg PolymarketConfig) *Polymarket {
	newClient := func(base string) *resty.Client {
		return resty.New().
			SetBaseURL(base).
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
	}

	return &Polymarket{
		gamma:  newClient(cfg.GammaURL),
		clob:   newClient(cfg.ClobURL),
		gate:   cfg.Gate,
		health: NewHealthTracker(types.VenuePolymarket),
		logger: cfg.Logger,
		wsConfig: websocket.Config{
			URL:                   cfg.WSURL,
			DialTimeout:           cfg.WSDialTimeout,
			PongTimeout:           cfg.WSPongTimeout,
			PingInterval:          cfg.WSPingInterval,
			ReconnectInitialDelay: cfg.WSReconnectInitialDelay,
			ReconnectMaxDelay:     cfg.WSReconnectMaxDelay,
			ReconnectBackoffMult:  cfg.WSReconnectBackoffMult,
			MessageBufferSize:     cfg.WSMessageBufferSize,
			Logger:                cfg.Logger,
		},
	}
}

// Venue returns the adapter's venue tag.
func (p *Polymarket) Venue() types.Venue {
	return types.VenuePolymarket
}

// gammaMarket is the Gamma API market row.
type gammaMarket struct {
	ID               string  `json:"id"`
	Question         string  `json:"question"`
	Description      string  `json:"description"`
	Category         string  `json:"category"`
	Slug             string  `json:"slug"`
	EndDate          string  `json:"endDate"`
	ResolutionSource string  `json:"resolutionSource"`
	Outcomes         string  `json:"outcomes"`     // JSON string: "[\"Yes\",\"No\"]"
	ClobTokenIDs     string  `json:"clobTokenIds"` // JSON string: "[\"tok1\",\"tok2\"]"
	TickSize         string  `json:"orderPriceMinTickSize"`
	MinOrderSize     string  `json:"orderMinSize"`
	BestBid          float64 `json:"bestBid"`
	BestAsk          float64 `json:"bestAsk"`
	Volume24hr       float64 `json:"volume24hr"`
	Closed           bool    `json:"closed"`
	Active           bool    `json:"active"`
}

// FetchActiveMarkets fetches the active binary markets from the Gamma API.
// The YES CLOB token id is the external id: it is the unit the depth and
// push feeds are keyed by.
// The Gamma API pages by offset; the loop follows it until a short page so
// the full tradeable list is ingested, mirroring the Kalshi cursor loop.
func (p *Polymarket) FetchActiveMarkets(ctx context.Context) ([]types.Market, error) {
	const op = "fetch_active_markets"

	start := time.Now()
	var rows []gammaMarket
	offset := 0

	for {
		if err := p.gate.Acquire(ctx); err != nil {
			return nil, err
		}

		var page []gammaMarket
		resp, err := p.gamma.R().
			SetContext(ctx).
			SetQueryParam("closed", "false").
			SetQueryParam("active", "true").
			SetQueryParam("limit", strconv.Itoa(polymarketPageSize)).
			SetQueryParam("offset", strconv.Itoa(offset)).
			SetQueryParam("order", "volume24hr").
			SetQueryParam("ascending", "false").
			SetResult(&page).
			Get("/markets")
		p.gate.Release()

		if verr := p.classify(op, resp, err); verr != nil {
			return nil, verr
		}

		rows = append(rows, page...)
		if len(page) < polymarketPageSize {
			break
		}
		offset += len(page)
	}

	latency := time.Since(start)
	p.health.RecordSuccess(latency.Milliseconds())
	FetchesTotal.WithLabelValues("POLYMARKET", op, "ok").Inc()
	FetchLatencySeconds.WithLabelValues("POLYMARKET", op).Observe(latency.Seconds())

	now := time.Now()
	markets := make([]types.Market, 0, len(rows))
	for _, row := range rows {
		m, ok := p.normalizeMarket(row, now, latency.Milliseconds())
		if !ok {
			SchemaDropsTotal.WithLabelValues("POLYMARKET").Inc()
			continue
		}
		markets = append(markets, m)
	}

	p.health.SetMarketCount(len(markets))

	p.logger.Debug("polymarket-markets-fetched",
		zap.Int("count", len(markets)),
		zap.Duration("latency", latency))

	return markets, nil
}

func (p *Polymarket) normalizeMarket(row gammaMarket, now time.Time, latencyMS int64) (types.Market, bool) {
	var outcomes, tokenIDs []string
	if err := json.Unmarshal([]byte(row.Outcomes), &outcomes); err != nil {
		return types.Market{}, false
	}
	if err := json.Unmarshal([]byte(row.ClobTokenIDs), &tokenIDs); err != nil {
		return types.Market{}, false
	}
	if len(outcomes) != 2 || len(tokenIDs) != 2 || row.Question == "" {
		return types.Market{}, false
	}

	m := types.Market{
		Venue:            types.VenuePolymarket,
		ExternalID:       tokenIDs[0], // YES token
		Question:         row.Question,
		Description:      row.Description,
		Category:         row.Category,
		Outcomes:         []string{"YES", "NO"},
		ResolutionSource: row.ResolutionSource,
		ResolutionRules:  row.Description,
		URL:              fmt.Sprintf("%s/%s", types.VenuePolymarket.Info().BaseURL, row.Slug),
		Status:           types.MarketActive,
		FeeRate:          types.VenuePolymarket.TakerFee(),
		Volume24h:        decimal.NewFromFloat(row.Volume24hr),
		LastFetchedAt:    now,
		FetchLatencyMS:   latencyMS,
	}

	if row.Closed || !row.Active {
		m.Status = types.MarketClosed
	}
	if t, err := time.Parse(time.RFC3339, row.EndDate); err == nil {
		m.EndDate = &t
	}
	if d, err := decimal.NewFromString(row.TickSize); err == nil && !d.IsZero() {
		m.TickSize = d
	} else {
		m.TickSize = decimal.RequireFromString("0.01")
	}
	if d, err := decimal.NewFromString(row.MinOrderSize); err == nil {
		m.MinOrderSize = d
	}
	if row.BestBid > 0 {
		m.YesBid = decimal.NewNullDecimal(decimal.NewFromFloat(row.BestBid))
	}
	if row.BestAsk > 0 {
		m.YesAsk = decimal.NewNullDecimal(decimal.NewFromFloat(row.BestAsk))
	}

	return m, true
}

// clobBook is the CLOB /book response.
type clobBook struct {
	Bids []clobLevel `json:"bids"`
	Asks []clobLevel `json:"asks"`
}

type clobLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// FetchOrderBook fetches the depth for one YES token from the CLOB API.
func (p *Polymarket) FetchOrderBook(ctx context.Context, externalID string) (*types.OrderBook, error) {
	const op = "fetch_orderbook"

	if err := p.gate.Acquire(ctx); err != nil {
		return nil, err
	}
	defer p.gate.Release()

	start := time.Now()
	var book clobBook
	resp, err := p.clob.R().
		SetContext(ctx).
		SetQueryParam("token_id", externalID).
		SetResult(&book).
		Get("/book")
	latency := time.Since(start)

	if verr := p.classify(op, resp, err); verr != nil {
		return nil, verr
	}

	p.health.RecordSuccess(latency.Milliseconds())
	FetchesTotal.WithLabelValues("POLYMARKET", op, "ok").Inc()
	FetchLatencySeconds.WithLabelValues("POLYMARKET", op).Observe(latency.Seconds())

	return p.normalizeClobBook(externalID, &book, time.Now(), latency.Milliseconds()), nil
}

func (p *Polymarket) normalizeClobBook(externalID string, book *clobBook, ts time.Time, latencyMS int64) *types.OrderBook {
	return NormalizeBook(
		types.VenuePolymarket,
		externalID,
		p.parseLevels(book.Bids),
		p.parseLevels(book.Asks),
		ts,
		latencyMS,
		p.logger,
	)
}

func (p *Polymarket) parseLevels(raw []clobLevel) []types.PriceLevel {
	levels := make([]types.PriceLevel, 0, len(raw))
	for _, lvl := range raw {
		price, err := decimal.NewFromString(lvl.Price)
		if err != nil {
			SchemaDropsTotal.WithLabelValues("POLYMARKET").Inc()
			continue
		}
		size, err := decimal.NewFromString(lvl.Size)
		if err != nil {
			SchemaDropsTotal.WithLabelValues("POLYMARKET").Inc()
			continue
		}
		levels = append(levels, types.PriceLevel{Price: price, Size: size})
	}
	return levels
}

// FetchQuote fetches top-of-book via the CLOB price endpoint (one call per
// side); cheaper than pulling full depth.
func (p *Polymarket) FetchQuote(ctx context.Context, externalID string) (*types.Quote, error) {
	const op = "fetch_quote"

	if err := p.gate.Acquire(ctx); err != nil {
		return nil, err
	}
	defer p.gate.Release()

	start := time.Now()
	bid, err := p.fetchPrice(ctx, externalID, "buy")
	if err != nil {
		return nil, err
	}
	ask, err := p.fetchPrice(ctx, externalID, "sell")
	if err != nil {
		return nil, err
	}
	latency := time.Since(start)

	p.health.RecordSuccess(latency.Milliseconds())
	FetchesTotal.WithLabelValues("POLYMARKET", op, "ok").Inc()
	FetchLatencySeconds.WithLabelValues("POLYMARKET", op).Observe(latency.Seconds())

	q := &types.Quote{
		Venue:      types.VenuePolymarket,
		ExternalID: externalID,
		Timestamp:  time.Now(),
		LatencyMS:  latency.Milliseconds(),
	}
	if bid != nil {
		q.BestBid = decimal.NewNullDecimal(*bid)
	}
	if ask != nil {
		q.BestAsk = decimal.NewNullDecimal(*ask)
	}

	return q, nil
}

func (p *Polymarket) fetchPrice(ctx context.Context, externalID, side string) (*decimal.Decimal, error) {
	var result struct {
		Price string `json:"price"`
	}
	resp, err := p.clob.R().
		SetContext(ctx).
		SetQueryParam("token_id", externalID).
		SetQueryParam("side", side).
		SetResult(&result).
		Get("/price")

	if verr := p.classify("fetch_quote", resp, err); verr != nil {
		return nil, verr
	}

	price, err := decimal.NewFromString(result.Price)
	if err != nil {
		return nil, nil // side not quoted
	}
	return &price, nil
}

// classify converts a transport or HTTP failure into a VenueError and
// records it on the health tracker. Returns nil on success.
func (p *Polymarket) classify(op string, resp *resty.Response, err error) error {
	if err != nil {
		p.health.RecordError()
		FetchesTotal.WithLabelValues("POLYMARKET", op, "error").Inc()
		return types.NewVenueError(types.ErrKindTransient, types.VenuePolymarket, op, err)
	}

	code := resp.StatusCode()
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusTooManyRequests:
		p.gate.OnRateLimited()
		p.health.RecordError()
		FetchesTotal.WithLabelValues("POLYMARKET", op, "rate_limited").Inc()
		return types.NewVenueError(types.ErrKindRateLimited, types.VenuePolymarket, op,
			fmt.Errorf("status %d", code))
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		p.health.RecordError()
		FetchesTotal.WithLabelValues("POLYMARKET", op, "auth").Inc()
		return types.NewVenueError(types.ErrKindAuth, types.VenuePolymarket, op,
			fmt.Errorf("status %d", code))
	case code == http.StatusNotFound:
		FetchesTotal.WithLabelValues("POLYMARKET", op, "closed").Inc()
		return types.NewVenueError(types.ErrKindClosed, types.VenuePolymarket, op,
			fmt.Errorf("status %d", code))
	default:
		p.health.RecordError()
		FetchesTotal.WithLabelValues("POLYMARKET", op, "error").Inc()
		return types.NewVenueError(types.ErrKindTransient, types.VenuePolymarket, op,
			fmt.Errorf("status %d: %s", code, resp.String()))
	}
}

// SupportsPush reports that Polymarket has a true push transport.
func (p *Polymarket) SupportsPush() bool {
	return true
}

// pushMessage is one entry of the CLOB market channel frame.
type pushMessage struct {
	EventType string      `json:"event_type"` // "book", "price_change", "last_trade_price"
	AssetID   string      `json:"asset_id"`
	Timestamp string      `json:"timestamp"` // epoch millis as string
	Bids      []clobLevel `json:"bids,omitempty"`
	Asks      []clobLevel `json:"asks,omitempty"`
	Price     string      `json:"price,omitempty"`
}

// StartPush opens the market channel, subscribes to the given token ids, and
// feeds parsed events to the sink until the context ends or StopPush.
func (p *Polymarket) StartPush(ctx context.Context, externalIDs []string, sink Sink) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.push == nil {
		cfg := p.wsConfig
		cfg.Subscribe = func(ids []string, initial bool) interface{} {
			if initial {
				return map[string]interface{}{"assets_ids": ids, "type": "market"}
			}
			return map[string]interface{}{"assets_ids": ids, "operation": "subscribe"}
		}

		mgr := websocket.New(cfg)
		if err := mgr.Start(); err != nil {
			p.health.RecordError()
			return types.NewVenueError(types.ErrKindTransient, types.VenuePolymarket, "start_push", err)
		}
		p.push = mgr

		p.pushWG.Add(1)
		go p.consumeFrames(ctx, mgr, sink)
	}

	return p.push.Subscribe(externalIDs)
}

func (p *Polymarket) consumeFrames(ctx context.Context, mgr *websocket.Manager, sink Sink) {
	defer p.pushWG.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case frame, ok := <-mgr.Frames():
			if !ok {
				return
			}
			p.handleFrame(frame, sink)
		}
	}
}

// handleFrame parses one raw frame. The market channel sends an array of
// messages; anything else is a heartbeat or control message.
func (p *Polymarket) handleFrame(frame []byte, sink Sink) {
	var msgs []pushMessage
	if err := json.Unmarshal(frame, &msgs); err != nil {
		if len(frame) < 10 {
			return // heartbeat
		}
		SchemaDropsTotal.WithLabelValues("POLYMARKET").Inc()
		return
	}

	for i := range msgs {
		msg := &msgs[i]
		ts := p.parsePushTimestamp(msg.Timestamp)

		switch msg.EventType {
		case "book":
			book := NormalizeBook(
				types.VenuePolymarket,
				msg.AssetID,
				p.parseLevels(msg.Bids),
				p.parseLevels(msg.Asks),
				ts,
				0,
				p.logger,
			)
			PushEventsTotal.WithLabelValues("POLYMARKET", "orderbook").Inc()
			sink.OnOrderBook(book)

		case "price_change", "last_trade_price":
			price, err := decimal.NewFromString(msg.Price)
			if err != nil {
				SchemaDropsTotal.WithLabelValues("POLYMARKET").Inc()
				continue
			}
			quote := &types.Quote{
				Venue:          types.VenuePolymarket,
				ExternalID:     msg.AssetID,
				LastTradePrice: decimal.NewNullDecimal(price),
				Timestamp:      ts,
			}
			PushEventsTotal.WithLabelValues("POLYMARKET", "price").Inc()
			sink.OnQuote(quote)
		}
	}
}

func (p *Polymarket) parsePushTimestamp(raw string) time.Time {
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || ms == 0 {
		return time.Now()
	}
	return time.UnixMilli(ms)
}

// StopPush closes the push transport.
func (p *Polymarket) StopPush() error {
	p.mu.Lock()
	mgr := p.push
	p.push = nil
	p.mu.Unlock()

	if mgr == nil {
		return nil
	}

	err := mgr.Close()
	p.pushWG.Wait()
	return err
}

// Health returns a point-in-time health snapshot.
func (p *Polymarket) Health() types.VenueHealth {
	return p.health.Snapshot()
}
