package match

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/crossarb/crossarb/pkg/types"
)

// Overall-score weights. Property tests recompute the blend from these.
const (
	weightSemantic   = 0.45
	weightDate       = 0.20
	weightCategory   = 0.10
	weightResolution = 0.25

	jaccardWeight = 0.4
	cosineWeight  = 0.6
)

// idfIndex carries inverse document frequencies built from the full active
// market corpus, so rare terms dominate the cosine blend.
type idfIndex struct {
	docCount int
	docFreq  map[string]int
}

// buildIDF indexes the token sets of every market question in the corpus.
func buildIDF(markets []types.Market) *idfIndex {
	idx := &idfIndex{docFreq: make(map[string]int)}
	for i := range markets {
		idx.docCount++
		for tok := range TokenSet(markets[i].Question) {
			idx.docFreq[tok]++
		}
	}
	return idx
}

func (idx *idfIndex) idf(token string) float64 {
	if idx == nil || idx.docCount == 0 {
		return 1.0
	}
	return math.Log(1.0 + float64(idx.docCount)/float64(1+idx.docFreq[token]))
}

// jaccard computes |A∩B| / |A∪B| over two token sets.
func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	intersection := 0
	for tok := range a {
		if b[tok] {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection

	return float64(intersection) / float64(union)
}

// cosineTFIDF computes the cosine similarity of the TF-IDF vectors of two
// token streams.
func cosineTFIDF(tokensA, tokensB []string, idx *idfIndex) float64 {
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0
	}

	vecA := tfidfVector(tokensA, idx)
	vecB := tfidfVector(tokensB, idx)

	// Float addition is not associative and map iteration order is
	// randomized, so sum in sorted key order: rerunning the matcher over an
	// unchanged market set must reproduce scores bit for bit.
	var dot, normA, normB float64
	for _, tok := range sortedTokens(vecA) {
		wa := vecA[tok]
		if wb, ok := vecB[tok]; ok {
			dot += wa * wb
		}
		normA += wa * wa
	}
	for _, tok := range sortedTokens(vecB) {
		wb := vecB[tok]
		normB += wb * wb
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func sortedTokens(vec map[string]float64) []string {
	toks := make([]string, 0, len(vec))
	for tok := range vec {
		toks = append(toks, tok)
	}
	sort.Strings(toks)
	return toks
}

func tfidfVector(tokens []string, idx *idfIndex) map[string]float64 {
	counts := make(map[string]int)
	for _, tok := range tokens {
		counts[tok]++
	}

	vec := make(map[string]float64, len(counts))
	for tok, n := range counts {
		tf := float64(n) / float64(len(tokens))
		vec[tok] = tf * idx.idf(tok)
	}
	return vec
}

// semanticScore blends Jaccard and TF-IDF cosine over the question texts.
func semanticScore(questionA, questionB string, idx *idfIndex) float64 {
	tokensA := Tokenize(questionA)
	tokensB := Tokenize(questionB)

	setA := toSet(tokensA)
	setB := toSet(tokensB)

	return jaccardWeight*jaccard(setA, setB) + cosineWeight*cosineTFIDF(tokensA, tokensB, idx)
}

// dateScore scores literal date-artifact agreement between two questions.
func dateScore(questionA, questionB string) float64 {
	datesA := ExtractDates(questionA)
	datesB := ExtractDates(questionB)

	switch {
	case len(datesA) == 0 && len(datesB) == 0:
		return 0.5
	case len(datesA) == 0 || len(datesB) == 0:
		return 0.3
	}

	intersection := 0
	for d := range datesA {
		if datesB[d] {
			intersection++
		}
	}
	if intersection == 0 {
		return 0.1
	}

	maxLen := len(datesA)
	if len(datesB) > maxLen {
		maxLen = len(datesB)
	}
	return float64(intersection) / float64(maxLen)
}

// categoryScore scores category agreement via the broad-group clusters.
func categoryScore(categoryA, categoryB string) float64 {
	a := strings.ToLower(strings.TrimSpace(categoryA))
	b := strings.ToLower(strings.TrimSpace(categoryB))

	if a == "" || b == "" {
		return 0.5
	}
	if a == b {
		return 1.0
	}

	groupA, okA := categoryGroups[a]
	groupB, okB := categoryGroups[b]
	if !okA || !okB {
		return 0.5
	}
	if groupA == groupB {
		return 0.8
	}
	return 0.3
}

// resolutionScore scores overlap of the resolution-rules texts and surfaces
// warnings for missing rules or mismatched danger-term counts. The returned
// diff is nil unless the danger counts disagree.
func resolutionScore(rulesA, rulesB string) (score float64, warnings []string, diff *string) {
	if rulesA == "" || rulesB == "" {
		warnings = append(warnings, "resolution rules missing on one side")
		return 0.4, warnings, nil
	}

	setA := TokenSet(rulesA)
	setB := TokenSet(rulesB)

	intersection := 0
	for tok := range setA {
		if setB[tok] {
			intersection++
		}
	}

	maxLen := len(setA)
	if len(setB) > maxLen {
		maxLen = len(setB)
	}

	overlap := 0.0
	if maxLen > 0 {
		overlap = float64(intersection) / float64(maxLen)
	}

	score = math.Max(0.2, overlap)

	dangerA := countDangerTerms(rulesA)
	dangerB := countDangerTerms(rulesB)
	if dangerA != dangerB {
		d := fmt.Sprintf("danger-term count differs: %d vs %d (negations/exclusions/modal constraints)", dangerA, dangerB)
		diff = &d
		warnings = append(warnings, d)
	}

	return score, warnings, diff
}

// matchedTerms returns the sorted intersection of the question token sets.
func matchedTerms(questionA, questionB string) []string {
	setA := TokenSet(questionA)
	setB := TokenSet(questionB)

	var terms []string
	for tok := range setA {
		if setB[tok] {
			terms = append(terms, tok)
		}
	}
	sort.Strings(terms)
	return terms
}

// overallScore applies the fixed weights.
func overallScore(s MatchScoresInput) float64 {
	return weightSemantic*s.Semantic +
		weightDate*s.Date +
		weightCategory*s.Category +
		weightResolution*s.Resolution
}

// MatchScoresInput carries the four sub-scores into the weighted blend.
type MatchScoresInput struct {
	Semantic   float64
	Date       float64
	Category   float64
	Resolution float64
}

func toSet(tokens []string) map[string]bool {
	set := make(map[string]bool, len(tokens))
	for _, tok := range tokens {
		set[tok] = true
	}
	return set
}

// buildReason composes the human-readable match explanation from the
// sub-score bands and up to five matched terms.
func buildReason(scores types.MatchScores, terms []string) string {
	var clauses []string

	switch {
	case scores.Semantic >= 0.8:
		clauses = append(clauses, "question wording is nearly identical")
	case scores.Semantic >= 0.6:
		clauses = append(clauses, "question wording overlaps strongly")
	case scores.Semantic >= 0.4:
		clauses = append(clauses, "question wording overlaps partially")
	default:
		clauses = append(clauses, "question wording overlap is weak")
	}

	switch {
	case scores.Date >= 0.8:
		clauses = append(clauses, "date references agree")
	case scores.Date == 0.5:
		clauses = append(clauses, "neither question names explicit dates")
	case scores.Date <= 0.3:
		clauses = append(clauses, "date references diverge")
	}

	if scores.Category >= 1.0 {
		clauses = append(clauses, "same category")
	} else if scores.Category >= 0.8 {
		clauses = append(clauses, "related categories")
	}

	switch {
	case scores.Resolution >= 0.7:
		clauses = append(clauses, "resolution rules align")
	case scores.Resolution <= 0.4:
		clauses = append(clauses, "resolution rules need review")
	}

	if len(terms) > 0 {
		show := terms
		if len(show) > 5 {
			show = show[:5]
		}
		clauses = append(clauses, fmt.Sprintf("shared terms: %s", strings.Join(show, ", ")))
	}

	return strings.Join(clauses, "; ")
}
