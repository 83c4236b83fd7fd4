package types

import (
	"fmt"
	"time"
)

// MatchStatus is the review state of a proposed cross-venue pair. The matcher
// only writes PENDING_REVIEW proposals; CONFIRMED and REJECTED are set by the
// external review workflow. STALE is set by the core when either market
// leaves the ACTIVE state.
type MatchStatus string

const (
	MatchPendingReview MatchStatus = "PENDING_REVIEW"
	MatchConfirmed     MatchStatus = "CONFIRMED"
	MatchRejected      MatchStatus = "REJECTED"
	MatchStale         MatchStatus = "STALE"
)

// MatchScores are the matcher's sub-scores, each in [0,1]. Overall is the
// weighted blend 0.45*semantic + 0.20*date + 0.10*category + 0.25*resolution.
type MatchScores struct {
	Semantic   float64 `json:"semantic"`
	Date       float64 `json:"date"`
	Category   float64 `json:"category"`
	Resolution float64 `json:"resolution"`
	Overall    float64 `json:"overall"`
}

// MarketMatch is an asserted cross-venue equivalence between two markets.
// Source and target are on distinct venues; the pair key is stable regardless
// of proposal order.
type MarketMatch struct {
	SourceVenue      Venue       `json:"sourceVenue"`
	SourceExternalID string      `json:"sourceExternalId"`
	TargetVenue      Venue       `json:"targetVenue"`
	TargetExternalID string      `json:"targetExternalId"`
	Scores           MatchScores `json:"scores"`
	MatchedTerms     []string    `json:"matchedTerms"`
	ResolutionDiff   *string     `json:"resolutionDiff,omitempty"`
	MatchReason      string      `json:"matchReason"`
	Warnings         []string    `json:"warnings,omitempty"`
	Status           MatchStatus `json:"status"`
	CreatedAt        time.Time   `json:"createdAt"`
	UpdatedAt        time.Time   `json:"updatedAt"`
}

// Key returns the stable pair key. The lexicographically smaller market key
// always comes first so that (a,b) and (b,a) collapse to one row.
func (m *MarketMatch) Key() string {
	a := MarketKey(m.SourceVenue, m.SourceExternalID)
	b := MarketKey(m.TargetVenue, m.TargetExternalID)
	if b < a {
		a, b = b, a
	}
	return fmt.Sprintf("%s|%s", a, b)
}

// Involves reports whether the match references the given market.
func (m *MarketMatch) Involves(venue Venue, externalID string) bool {
	return (m.SourceVenue == venue && m.SourceExternalID == externalID) ||
		(m.TargetVenue == venue && m.TargetExternalID == externalID)
}
