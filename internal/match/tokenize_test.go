package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected []string
	}{
		{
			name:     "lowercase-stopwords-stemming",
			text:     "Will the candidates debate in October?",
			expected: []string{"will", "candid", "debat", "oct"},
		},
		{
			name:     "synonym-folding-entities",
			text:     "Will Donald Trump win?",
			expected: []string{"will", "trump", "win"},
		},
		{
			name:     "synonym-folding-crypto",
			text:     "Bitcoin above $100k",
			expected: []string{"btc", "abov", "$100k"},
		},
		{
			name:     "polarity-preserved",
			text:     "The bill will not pass",
			expected: []string{"bill", "wont", "pass"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Tokenize(tt.text))
		})
	}
}

func TestExtractDates(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected []string
	}{
		{
			name:     "year-month-qualifier",
			text:     "Will it happen by December 2025?",
			expected: []string{"2025", "by", "dec"},
		},
		{
			name:     "mdy-fragment",
			text:     "Settlement on 11/5/2024",
			expected: []string{"11/5/2024", "2024"},
		},
		{
			name:     "quarter-tag",
			text:     "GDP growth positive in Q3?",
			expected: []string{"q3"},
		},
		{
			name:     "no-dates",
			text:     "Will the bill pass?",
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractDates(tt.text)
			assert.Len(t, got, len(tt.expected))
			for _, want := range tt.expected {
				assert.True(t, got[want], "missing artifact %q in %v", want, got)
			}
		})
	}
}

func TestCountDangerTerms(t *testing.T) {
	assert.Equal(t, 0, countDangerTerms("resolves when the race is called"))
	assert.Equal(t, 3, countDangerTerms("must not resolve except as stated"))
	assert.Equal(t, 2, countDangerTerms("void if cancelled; only official sources count"))
}
