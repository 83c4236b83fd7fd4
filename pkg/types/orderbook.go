package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceLevel is a single level of an order book side. Price is in [0,1],
// Size is in USD notional at that price.
type PriceLevel struct {
	Price decimal.Decimal `json:"price"`
	Size  decimal.Decimal `json:"size"`
}

// OrderBook is the normalized depth view for one (venue, external_id) at a
// moment in time. Bids are sorted by price descending, asks ascending; both
// invariants are enforced on ingress by the venue normalizer.
type OrderBook struct {
	Venue      Venue        `json:"venue"`
	ExternalID string       `json:"externalId"`
	Bids       []PriceLevel `json:"bids"`
	Asks       []PriceLevel `json:"asks"`
	Timestamp  time.Time    `json:"timestamp"`
	LatencyMS  int64        `json:"latencyMs"`
}

// Key returns the natural key "<VENUE>:<external_id>".
func (b *OrderBook) Key() string {
	return MarketKey(b.Venue, b.ExternalID)
}

// BestBid returns the highest bid, if any.
func (b *OrderBook) BestBid() (PriceLevel, bool) {
	if len(b.Bids) == 0 {
		return PriceLevel{}, false
	}
	return b.Bids[0], true
}

// BestAsk returns the lowest ask, if any.
func (b *OrderBook) BestAsk() (PriceLevel, bool) {
	if len(b.Asks) == 0 {
		return PriceLevel{}, false
	}
	return b.Asks[0], true
}

// Midpoint returns (best_bid + best_ask) / 2 when both sides are present.
func (b *OrderBook) Midpoint() (decimal.Decimal, bool) {
	bid, okBid := b.BestBid()
	ask, okAsk := b.BestAsk()
	if !okBid || !okAsk {
		return decimal.Zero, false
	}
	return bid.Price.Add(ask.Price).Div(decimal.NewFromInt(2)), true
}

// Spread returns best_ask - best_bid when both sides are present.
func (b *OrderBook) Spread() (decimal.Decimal, bool) {
	bid, okBid := b.BestBid()
	ask, okAsk := b.BestAsk()
	if !okBid || !okAsk {
		return decimal.Zero, false
	}
	return ask.Price.Sub(bid.Price), true
}

// AgeMS returns the book's age relative to now, in milliseconds.
func (b *OrderBook) AgeMS(now time.Time) int64 {
	return now.Sub(b.Timestamp).Milliseconds()
}

// CumulativeSize sums the sizes of the top n levels of a side.
func CumulativeSize(levels []PriceLevel, n int) decimal.Decimal {
	total := decimal.Zero
	for i, lvl := range levels {
		if i >= n {
			break
		}
		total = total.Add(lvl.Size)
	}
	return total
}

// Quote is a lightweight top-of-book view used when a venue's quote endpoint
// is cheaper than its depth endpoint.
type Quote struct {
	Venue          Venue               `json:"venue"`
	ExternalID     string              `json:"externalId"`
	BestBid        decimal.NullDecimal `json:"bestBid"`
	BestAsk        decimal.NullDecimal `json:"bestAsk"`
	LastTradePrice decimal.NullDecimal `json:"lastTradePrice"`
	Volume24h      decimal.Decimal     `json:"volume24h"`
	Timestamp      time.Time           `json:"timestamp"`
	LatencyMS      int64               `json:"latencyMs"`
}

// Key returns the natural key "<VENUE>:<external_id>".
func (q *Quote) Key() string {
	return MarketKey(q.Venue, q.ExternalID)
}
