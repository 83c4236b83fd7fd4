package types

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// MarketStatus is the lifecycle state of a market.
type MarketStatus string

const (
	MarketActive    MarketStatus = "ACTIVE"
	MarketClosed    MarketStatus = "CLOSED"
	MarketResolved  MarketStatus = "RESOLVED"
	MarketCancelled MarketStatus = "CANCELLED"
)

// Market is a binary (YES/NO) contract on a single venue, identified by
// (Venue, ExternalID). Prices are normalized to [0,1] on ingress; the YES and
// NO prices are not required to sum to 1 (venue vig).
type Market struct {
	Venue            Venue           `json:"venue"`
	ExternalID       string          `json:"externalId"`
	Question         string          `json:"question"`
	Description      string          `json:"description,omitempty"`
	Category         string          `json:"category,omitempty"`
	Outcomes         []string        `json:"outcomes"`
	EndDate          *time.Time      `json:"endDate,omitempty"`
	ResolutionSource string          `json:"resolutionSource,omitempty"`
	ResolutionRules  string          `json:"resolutionRules,omitempty"`
	TickSize         decimal.Decimal `json:"tickSize"`
	MinOrderSize     decimal.Decimal `json:"minOrderSize"`
	FeeRate          decimal.Decimal `json:"feeRate"`
	URL              string          `json:"url,omitempty"`
	Status           MarketStatus    `json:"status"`

	// Denormalized latest quote.
	YesBid         decimal.NullDecimal `json:"yesBid"`
	YesAsk         decimal.NullDecimal `json:"yesAsk"`
	Midpoint       decimal.NullDecimal `json:"midpoint"`
	Spread         decimal.NullDecimal `json:"spread"`
	LastTradePrice decimal.NullDecimal `json:"lastTradePrice"`
	Volume24h      decimal.Decimal     `json:"volume24h"`

	LastFetchedAt  time.Time `json:"lastFetchedAt"`
	FetchLatencyMS int64     `json:"fetchLatencyMs"`
}

// Key returns the natural key "<VENUE>:<external_id>".
func (m *Market) Key() string {
	return MarketKey(m.Venue, m.ExternalID)
}

// MarketKey builds the natural key for a (venue, external_id) pair.
func MarketKey(venue Venue, externalID string) string {
	return fmt.Sprintf("%s:%s", venue, externalID)
}

// Binary reports whether the market is a strict two-outcome YES/NO contract.
// Complement reconstruction of the NO side is only permitted for these.
func (m *Market) Binary() bool {
	if len(m.Outcomes) != 2 {
		return false
	}
	return isYes(m.Outcomes[0]) && isNo(m.Outcomes[1]) ||
		isNo(m.Outcomes[0]) && isYes(m.Outcomes[1])
}

func isYes(s string) bool { return s == "YES" || s == "Yes" || s == "yes" }
func isNo(s string) bool  { return s == "NO" || s == "No" || s == "no" }

// ApplyQuote refreshes the denormalized quote fields from a Quote.
func (m *Market) ApplyQuote(q *Quote) {
	m.YesBid = q.BestBid
	m.YesAsk = q.BestAsk
	m.LastTradePrice = q.LastTradePrice
	if !q.Volume24h.IsZero() {
		m.Volume24h = q.Volume24h
	}
	if q.BestBid.Valid && q.BestAsk.Valid {
		two := decimal.NewFromInt(2)
		m.Midpoint = decimal.NewNullDecimal(q.BestBid.Decimal.Add(q.BestAsk.Decimal).Div(two))
		m.Spread = decimal.NewNullDecimal(q.BestAsk.Decimal.Sub(q.BestBid.Decimal))
	}
	m.LastFetchedAt = q.Timestamp
	m.FetchLatencyMS = q.LatencyMS
}

// PriceSnapshot is one row of the rolling per-market price trail.
type PriceSnapshot struct {
	Venue      Venue               `json:"venue"`
	ExternalID string              `json:"externalId"`
	YesBid     decimal.NullDecimal `json:"yesBid"`
	YesAsk     decimal.NullDecimal `json:"yesAsk"`
	Timestamp  time.Time           `json:"timestamp"`
}
