package match

// synonymLexicon folds domain phrases and aliases onto canonical tokens
// before tokenization, so "Donald Trump" on one venue and "Trump" on another
// land on the same term. Entries are applied to the lowercased text as
// substring replacements, in the order listed.
//
//nolint:gochecknoglobals // static lexicon
var synonymLexicon = []struct {
	phrase    string
	canonical string
}{
	// Political entities
	{"donald trump", "trump"},
	{"donald j. trump", "trump"},
	{"kamala harris", "harris"},
	{"joe biden", "biden"},
	{"joseph biden", "biden"},
	{"gavin newsom", "newsom"},
	{"federal reserve", "fed"},
	{"the fed", "fed"},
	{"fomc", "fed"},
	{"supreme court", "scotus"},
	{"united states", "us"},
	{"u.s.", "us"},
	{"united kingdom", "uk"},
	{"european union", "eu"},
	{"democratic party", "democrats"},
	{"republican party", "republicans"},
	{"gop", "republicans"},
	{"presidential election", "election"},

	// Crypto assets
	{"bitcoin", "btc"},
	{"ethereum", "eth"},
	{"solana", "sol"},
	{"dogecoin", "doge"},

	// Tickers and agencies
	{"s&p 500", "spx"},
	{"s&p500", "spx"},
	{"nasdaq 100", "ndx"},
	{"consumer price index", "cpi"},
	{"gross domestic product", "gdp"},
	{"nonfarm payrolls", "nfp"},
	{"bureau of labor statistics", "bls"},
	{"securities and exchange commission", "sec"},

	// Polarity words
	{"will not", "wont"},
	{"won't", "wont"},

	// Months
	{"january", "jan"},
	{"february", "feb"},
	{"march", "mar"},
	{"april", "apr"},
	{"june", "jun"},
	{"july", "jul"},
	{"august", "aug"},
	{"september", "sep"},
	{"sept", "sep"},
	{"october", "oct"},
	{"november", "nov"},
	{"december", "dec"},
}

// stopwords dropped from the token stream. Small on purpose: polarity words
// like "not" are meaningful in this domain and stay.
//
//nolint:gochecknoglobals // static lexicon
var stopwords = map[string]bool{
	"a": true, "an": true, "the": true, "of": true, "in": true,
	"on": true, "at": true, "to": true, "for": true, "and": true,
	"or": true, "is": true, "are": true, "be": true, "been": true,
	"do": true, "does": true, "did": true, "it": true, "its": true,
	"this": true, "that": true, "with": true, "as": true, "if": true,
}

// categoryGroups clusters venue category labels into broad groups for the
// category sub-score.
//
//nolint:gochecknoglobals // static lexicon
var categoryGroups = map[string]string{
	"politics":       "politics",
	"elections":      "politics",
	"us politics":    "politics",
	"world":          "politics",
	"geopolitics":    "politics",
	"crypto":         "crypto",
	"cryptocurrency": "crypto",
	"bitcoin":        "crypto",
	"sports":         "sports",
	"nfl":            "sports",
	"nba":            "sports",
	"soccer":         "sports",
	"economy":        "economy",
	"economics":      "economy",
	"finance":        "economy",
	"financials":     "economy",
	"macro":          "economy",
	"rates":          "economy",
	"entertainment":  "entertainment",
	"culture":        "entertainment",
	"pop culture":    "entertainment",
	"movies":         "entertainment",
	"music":          "entertainment",
}

// dangerTerms are negations, exclusions, and modal constraints in resolution
// rules. A count mismatch between two rule texts is a warning sign that the
// contracts resolve differently.
//
//nolint:gochecknoglobals // static lexicon
var dangerTerms = map[string]bool{
	"not":     true,
	"except":  true,
	"only":    true,
	"void":    true,
	"cancel":  true,
	"must":    true,
	"exclude": true,
}
