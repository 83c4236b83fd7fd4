// Package types defines the shared data structures used across all packages.
//
// It is the common vocabulary for the scanner — venues, markets, order books,
// cross-venue matches, and detected opportunities. It has no dependencies on
// internal packages, so it can be imported by any layer.
package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Venue identifies a supported prediction-market venue.
type Venue string

const (
	VenuePolymarket Venue = "POLYMARKET"
	VenueKalshi     Venue = "KALSHI"
)

// AllVenues lists every venue the scanner knows about.
func AllVenues() []Venue {
	return []Venue{VenuePolymarket, VenueKalshi}
}

// FeeSchedule is a venue's static fee structure. All fees are fractions
// (0.02 = 2%). Stored per venue, not per market, unless the venue publishes
// per-market fees on the market record itself.
type FeeSchedule struct {
	TakerFee      decimal.Decimal
	MakerFee      decimal.Decimal
	WinFee        decimal.Decimal
	WithdrawalFee decimal.Decimal
}

// VenueInfo carries display metadata and the fee schedule for a venue.
type VenueInfo struct {
	Venue       Venue
	DisplayName string
	BaseURL     string
	Fees        FeeSchedule
}

//nolint:gochecknoglobals // static venue registry
var venueRegistry = map[Venue]VenueInfo{
	VenuePolymarket: {
		Venue:       VenuePolymarket,
		DisplayName: "Polymarket",
		BaseURL:     "https://polymarket.com/event",
		Fees: FeeSchedule{
			TakerFee:      decimal.RequireFromString("0.02"),
			MakerFee:      decimal.Zero,
			WinFee:        decimal.Zero,
			WithdrawalFee: decimal.Zero,
		},
	},
	VenueKalshi: {
		Venue:       VenueKalshi,
		DisplayName: "Kalshi",
		BaseURL:     "https://kalshi.com/markets",
		Fees: FeeSchedule{
			TakerFee:      decimal.RequireFromString("0.01"),
			MakerFee:      decimal.Zero,
			WinFee:        decimal.Zero,
			WithdrawalFee: decimal.Zero,
		},
	},
}

// Info returns the registry entry for a venue. Unknown venues get a zero
// FeeSchedule, which the detector treats as fee-free.
func (v Venue) Info() VenueInfo {
	info, ok := venueRegistry[v]
	if !ok {
		return VenueInfo{Venue: v, DisplayName: string(v)}
	}
	return info
}

// TakerFee returns the effective taker fee fraction for the venue.
func (v Venue) TakerFee() decimal.Decimal {
	return v.Info().Fees.TakerFee
}

// Valid reports whether the venue is part of the closed set.
func (v Venue) Valid() bool {
	_, ok := venueRegistry[v]
	return ok
}

// VenueStatus is the health classification of a venue adapter.
type VenueStatus string

const (
	VenueHealthy  VenueStatus = "HEALTHY"
	VenueDegraded VenueStatus = "DEGRADED"
	VenueOffline  VenueStatus = "OFFLINE"
)

// VenueHealth is a point-in-time snapshot of an adapter's health tracker.
type VenueHealth struct {
	Venue             Venue       `json:"venue"`
	Status            VenueStatus `json:"status"`
	MarketCount       int         `json:"marketCount"`
	LastFetch         time.Time   `json:"lastFetch"`
	AvgLatencyMS      float64     `json:"avgLatencyMs"`
	ConsecutiveErrors int         `json:"consecutiveErrors"`
}
