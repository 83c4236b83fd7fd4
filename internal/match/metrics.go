package match

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	PairsScoredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crossarb_match_pairs_scored_total",
		Help: "Cross-venue pairs scored by the matcher",
	})

	PairsPrefilteredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crossarb_match_pairs_prefiltered_total",
		Help: "Pairs skipped by the end-date prefilter",
	})

	ProposalsUpsertedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crossarb_match_proposals_upserted_total",
		Help: "Match proposals written or refreshed",
	})

	PassDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "crossarb_match_pass_duration_seconds",
		Help:    "Duration of a full matching pass",
		Buckets: prometheus.DefBuckets,
	})
)
