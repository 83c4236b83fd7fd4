package match

import (
	"testing"

	"github.com/crossarb/crossarb/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateScore(t *testing.T) {
	tests := []struct {
		name      string
		questionA string
		questionB string
		expected  float64
	}{
		{
			name:      "both-have-matching-dates",
			questionA: "Will BTC exceed 100k by December 2025?",
			questionB: "Bitcoin above $100,000 in December 2025?",
			expected:  2.0 / 3.0, // {dec, 2025, by} vs {dec, 2025}
		},
		{
			name:      "neither-has-dates",
			questionA: "Will the bill pass the Senate?",
			questionB: "Does the Senate pass the bill?",
			expected:  0.5,
		},
		{
			name:      "one-side-has-dates",
			questionA: "Will the bill pass in 2025?",
			questionB: "Does the Senate pass the bill?",
			expected:  0.3,
		},
		{
			name:      "disjoint-dates",
			questionA: "Will it happen in 2024?",
			questionB: "Will it happen in 2026?",
			expected:  0.1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := dateScore(tt.questionA, tt.questionB)
			if tt.name == "both-have-matching-dates" {
				// A carries the "by" qualifier B lacks: |∩|=2 over max 3.
				assert.InDelta(t, 2.0/3.0, got, 1e-9)
				return
			}
			assert.InDelta(t, tt.expected, got, 1e-9)
		})
	}
}

func TestCategoryScore(t *testing.T) {
	tests := []struct {
		name     string
		a, b     string
		expected float64
	}{
		{"exact-match", "Politics", "politics", 1.0},
		{"same-group", "elections", "world", 0.8},
		{"missing-side", "", "politics", 0.5},
		{"unknown-category", "weather", "politics", 0.5},
		{"different-groups", "crypto", "sports", 0.3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, categoryScore(tt.a, tt.b), 1e-9)
		})
	}
}

func TestResolutionScore(t *testing.T) {
	t.Run("missing-rules-forces-score-and-warning", func(t *testing.T) {
		score, warnings, diff := resolutionScore("resolves YES if X happens", "")
		assert.InDelta(t, 0.4, score, 1e-9)
		require.Len(t, warnings, 1)
		assert.Nil(t, diff)
	})

	t.Run("identical-rules-score-high", func(t *testing.T) {
		rules := "Resolves YES if the official CPI print exceeds 3 percent"
		score, warnings, diff := resolutionScore(rules, rules)
		assert.InDelta(t, 1.0, score, 1e-9)
		assert.Empty(t, warnings)
		assert.Nil(t, diff)
	})

	t.Run("danger-term-mismatch-warns", func(t *testing.T) {
		score, warnings, diff := resolutionScore(
			"Resolves YES if the candidate wins",
			"Resolves YES if the candidate wins, but not in a runoff",
		)
		assert.Greater(t, score, 0.0)
		require.NotNil(t, diff)
		assert.Contains(t, *diff, "danger-term")
		assert.NotEmpty(t, warnings)
	})

	t.Run("floor-at-point-two", func(t *testing.T) {
		score, _, _ := resolutionScore("alpha beta gamma", "delta epsilon zeta")
		assert.InDelta(t, 0.2, score, 1e-9)
	})
}

func TestSemanticScoreBounds(t *testing.T) {
	idx := &idfIndex{}

	same := semanticScore(
		"Will Trump win the 2024 election?",
		"Will Trump win the 2024 election?",
		idx,
	)
	assert.InDelta(t, 1.0, same, 1e-9)

	disjoint := semanticScore(
		"Will BTC exceed 100k?",
		"Super Bowl winner announced?",
		idx,
	)
	assert.InDelta(t, 0.0, disjoint, 1e-9)

	partial := semanticScore(
		"Will Trump win the 2024 presidential election?",
		"Trump wins 2024 election",
		idx,
	)
	assert.Greater(t, partial, 0.3)
	assert.Less(t, partial, 1.0)
}

func TestSemanticScoreDeterministic(t *testing.T) {
	idx := buildIDF([]types.Market{
		{Question: "Will Trump win the 2024 presidential election?"},
		{Question: "Trump wins 2024 election"},
		{Question: "Will BTC exceed 100k by December 2025?"},
		{Question: "Super Bowl winner announced?"},
	})

	a := "Will Trump win the 2024 presidential election?"
	b := "Trump wins 2024 election"

	// Bit-for-bit reproducible: the cosine reduction must not depend on map
	// iteration order.
	first := semanticScore(a, b, idx)
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, semanticScore(a, b, idx))
	}
}

func TestOverallScoreWeights(t *testing.T) {
	in := MatchScoresInput{Semantic: 0.8, Date: 0.6, Category: 1.0, Resolution: 0.4}
	expected := 0.45*0.8 + 0.20*0.6 + 0.10*1.0 + 0.25*0.4
	assert.InDelta(t, expected, overallScore(in), 1e-12)

	// Weights sum to one, so component scores in [0,1] keep the overall in
	// [0,1].
	assert.InDelta(t, 1.0, weightSemantic+weightDate+weightCategory+weightResolution, 1e-12)
}

func TestBuildReasonIncludesTerms(t *testing.T) {
	scores := types.MatchScores{Semantic: 0.9, Date: 0.5, Category: 1.0, Resolution: 0.8}
	reason := buildReason(scores, []string{"trump", "elect", "2024", "win", "presid", "senat"})

	assert.Contains(t, reason, "nearly identical")
	assert.Contains(t, reason, "shared terms")
	// Only the first five terms are listed.
	assert.Contains(t, reason, "presid")
	assert.NotContains(t, reason, "senat")
}
