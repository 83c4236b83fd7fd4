package types

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func level(price, size string) PriceLevel {
	return PriceLevel{
		Price: decimal.RequireFromString(price),
		Size:  decimal.RequireFromString(size),
	}
}

func TestOrderBookDerivedFields(t *testing.T) {
	book := &OrderBook{
		Venue:      VenueKalshi,
		ExternalID: "KX-1",
		Bids:       []PriceLevel{level("0.42", "100"), level("0.40", "50")},
		Asks:       []PriceLevel{level("0.45", "200")},
		Timestamp:  time.Now().Add(-500 * time.Millisecond),
	}

	bid, ok := book.BestBid()
	require.True(t, ok)
	assert.Equal(t, "0.42", bid.Price.String())

	mid, ok := book.Midpoint()
	require.True(t, ok)
	assert.Equal(t, "0.435", mid.String())

	spread, ok := book.Spread()
	require.True(t, ok)
	assert.Equal(t, "0.03", spread.String())

	age := book.AgeMS(time.Now())
	assert.GreaterOrEqual(t, age, int64(500))
	assert.Less(t, age, int64(2000))

	assert.Equal(t, "KALSHI:KX-1", book.Key())
}

func TestOrderBookEmptySides(t *testing.T) {
	book := &OrderBook{Venue: VenueKalshi, ExternalID: "KX-1"}

	_, ok := book.BestBid()
	assert.False(t, ok)
	_, ok = book.Midpoint()
	assert.False(t, ok)
	_, ok = book.Spread()
	assert.False(t, ok)
}

func TestCumulativeSize(t *testing.T) {
	levels := []PriceLevel{
		level("0.40", "100"),
		level("0.39", "200"),
		level("0.38", "300"),
	}

	assert.Equal(t, "300", CumulativeSize(levels, 2).String())
	assert.Equal(t, "600", CumulativeSize(levels, 5).String())
	assert.Equal(t, "0", CumulativeSize(nil, 5).String())
}

func TestMarketApplyQuote(t *testing.T) {
	m := &Market{Venue: VenueKalshi, ExternalID: "KX-1", Outcomes: []string{"YES", "NO"}}

	q := &Quote{
		Venue:      VenueKalshi,
		ExternalID: "KX-1",
		BestBid:    decimal.NewNullDecimal(decimal.RequireFromString("0.42")),
		BestAsk:    decimal.NewNullDecimal(decimal.RequireFromString("0.45")),
		Volume24h:  decimal.NewFromInt(1000),
		Timestamp:  time.Now(),
		LatencyMS:  80,
	}

	m.ApplyQuote(q)

	assert.Equal(t, "0.435", m.Midpoint.Decimal.String())
	assert.Equal(t, "0.03", m.Spread.Decimal.String())
	assert.Equal(t, int64(80), m.FetchLatencyMS)
	assert.Equal(t, "1000", m.Volume24h.String())
}

func TestMarketBinary(t *testing.T) {
	m := &Market{Outcomes: []string{"Yes", "No"}}
	assert.True(t, m.Binary())

	m = &Market{Outcomes: []string{"Trump", "Harris"}}
	assert.False(t, m.Binary())

	m = &Market{Outcomes: []string{"Yes", "No", "Maybe"}}
	assert.False(t, m.Binary())
}
