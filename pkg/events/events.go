// Package events defines the typed payloads pushed to the downstream event
// bus (owned by the API collaborator) and the Publisher interface the core
// emits through. One payload type per event kind; no dynamic dispatch.
package events

import "time"

// OpportunityEvent is published when the detector emits a new opportunity.
type OpportunityEvent struct {
	ID           string  `json:"id"`
	MatchID      string  `json:"matchId"`
	ROI          string  `json:"roi"`
	NetProfit    string  `json:"netProfit"`
	Confidence   float64 `json:"confidence"`
	SourceMarket string  `json:"sourceMarket"`
	TargetMarket string  `json:"targetMarket"`
}

// PriceEvent is published when a market's top-of-book price changes.
type PriceEvent struct {
	Venue     string    `json:"venue"`
	MarketID  string    `json:"marketId"`
	Price     string    `json:"price"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderbookEvent is published when a market's depth changes. The payload is
// abbreviated: consumers fetch the book itself from the read API.
type OrderbookEvent struct {
	Venue     string    `json:"venue"`
	MarketID  string    `json:"marketId"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher delivers events to the downstream push bus. Implementations must
// be non-blocking: the hot path never waits on delivery.
type Publisher interface {
	PublishOpportunity(evt OpportunityEvent)
	PublishPrice(evt PriceEvent)
	PublishOrderbook(evt OrderbookEvent)
}
