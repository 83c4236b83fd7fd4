// Package venue contains the per-venue adapters: REST and push clients that
// normalize one venue's markets, quotes, and order books into the common
// shape, plus the rolling health tracker shared by all adapters.
package venue

import (
	"context"

	"github.com/crossarb/crossarb/pkg/types"
)

// Sink receives normalized events from an adapter's push (or poll-fallback)
// stream. Implementations must not block: the orchestrator's sink coalesces
// per market key and the adapter fires and forgets.
type Sink interface {
	OnOrderBook(book *types.OrderBook)
	OnQuote(quote *types.Quote)
}

// Adapter is the uniform capability set every venue implements.
//
// Any call may fail with a classified *types.VenueError; TRANSIENT failures
// are already retried (with backoff, capped) inside the adapter before they
// surface.
type Adapter interface {
	// Venue returns the adapter's venue tag.
	Venue() types.Venue

	// FetchActiveMarkets returns the full list of currently tradeable
	// markets, normalized, with FetchLatencyMS populated.
	FetchActiveMarkets(ctx context.Context) ([]types.Market, error)

	// FetchOrderBook returns the top-N depth for one market, or a CLOSED
	// error when the venue no longer lists it.
	FetchOrderBook(ctx context.Context, externalID string) (*types.OrderBook, error)

	// FetchQuote returns top-of-book only; cheaper than FetchOrderBook on
	// venues with a dedicated quote endpoint.
	FetchQuote(ctx context.Context, externalID string) (*types.Quote, error)

	// SupportsPush reports whether StartPush uses a true push transport.
	// Adapters without one implement StartPush as gated polling.
	SupportsPush() bool

	// StartPush subscribes to the given ids and delivers orderbook and
	// price events to sink until StopPush or ctx cancellation.
	StartPush(ctx context.Context, externalIDs []string, sink Sink) error

	// StopPush tears down the push stream. Safe to call when not started.
	StopPush() error

	// Health returns a point-in-time health snapshot.
	Health() types.VenueHealth
}
