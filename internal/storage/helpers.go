package storage

import (
	"database/sql"

	"github.com/crossarb/crossarb/pkg/types"
	"github.com/shopspring/decimal"
)

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func decimalString(d decimal.Decimal) string {
	return d.String()
}

func nullDecimalString(d decimal.NullDecimal) interface{} {
	if !d.Valid {
		return nil
	}
	return d.Decimal.String()
}

// scanMarket scans the matcher-facing subset of market columns. The
// denormalized quote fields live in the cache's hot path and are not needed
// by readers of the persistent row.
func scanMarket(row rowScanner) (*types.Market, error) {
	var m types.Market
	var description, category, resolutionSource, resolutionRules, url sql.NullString
	var endDate, lastFetchedAt sql.NullTime

	err := row.Scan(
		&m.Venue, &m.ExternalID, &m.Question, &description, &category,
		&endDate, &resolutionSource, &resolutionRules, &m.Status, &url,
		&lastFetchedAt, &m.FetchLatencyMS,
	)
	if err != nil {
		return nil, err
	}

	m.Description = description.String
	m.Category = category.String
	m.ResolutionSource = resolutionSource.String
	m.ResolutionRules = resolutionRules.String
	m.URL = url.String
	m.Outcomes = []string{"YES", "NO"}
	if endDate.Valid {
		t := endDate.Time
		m.EndDate = &t
	}
	if lastFetchedAt.Valid {
		m.LastFetchedAt = lastFetchedAt.Time
	}

	return &m, nil
}
