package match

import (
	"regexp"
	"strings"

	"github.com/kljensen/snowball/english"
)

//nolint:gochecknoglobals // compiled once
var (
	wordPattern    = regexp.MustCompile(`[a-z0-9&$%]+`)
	yearPattern    = regexp.MustCompile(`\b(19|20)\d{2}\b`)
	mdyPattern     = regexp.MustCompile(`\b\d{1,2}/\d{1,2}(/\d{2,4})?\b`)
	quarterPattern = regexp.MustCompile(`\bq[1-4]\b`)
	monthPattern   = regexp.MustCompile(`\b(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)\b`)
	qualifierWords = map[string]bool{
		"by": true, "before": true, "after": true, "until": true, "through": true,
	}
)

// Tokenize runs the full pipeline over free text: lowercase, synonym
// folding, word tokenization, stopword removal, Porter stemming. The output
// preserves order and may contain duplicates; callers that want a set build
// one.
func Tokenize(text string) []string {
	folded := foldSynonyms(strings.ToLower(text))

	words := wordPattern.FindAllString(folded, -1)
	tokens := make([]string, 0, len(words))
	for _, w := range words {
		if stopwords[w] {
			continue
		}
		tokens = append(tokens, english.Stem(w, true))
	}

	return tokens
}

// TokenSet returns the distinct tokens of a text.
func TokenSet(text string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range Tokenize(text) {
		set[tok] = true
	}
	return set
}

func foldSynonyms(lower string) string {
	for _, entry := range synonymLexicon {
		lower = strings.ReplaceAll(lower, entry.phrase, entry.canonical)
	}
	return lower
}

// ExtractDates pulls literal date artifacts out of a question string:
// four-digit years, month names, m/d/y fragments, quarter tags, and the
// by/before/after qualifiers that change what a date means.
func ExtractDates(text string) map[string]bool {
	lower := foldSynonyms(strings.ToLower(text))

	artifacts := make(map[string]bool)
	for _, m := range yearPattern.FindAllString(lower, -1) {
		artifacts[m] = true
	}
	for _, m := range mdyPattern.FindAllString(lower, -1) {
		artifacts[m] = true
	}
	for _, m := range quarterPattern.FindAllString(lower, -1) {
		artifacts[m] = true
	}
	for _, m := range monthPattern.FindAllString(lower, -1) {
		artifacts[m] = true
	}
	for _, w := range wordPattern.FindAllString(lower, -1) {
		if qualifierWords[w] {
			artifacts[w] = true
		}
	}

	return artifacts
}

// countDangerTerms counts negation/exclusion/modal words in resolution rules.
// Counted on the raw lowercased words, before stemming.
func countDangerTerms(text string) int {
	n := 0
	for _, w := range wordPattern.FindAllString(strings.ToLower(text), -1) {
		if dangerTerms[w] {
			n++
		}
	}
	return n
}
