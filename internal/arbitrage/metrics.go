package arbitrage

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	// OpportunitiesDetectedTotal counts emitted opportunities.
	OpportunitiesDetectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crossarb_opportunities_detected_total",
		Help: "Total arbitrage opportunities detected",
	})

	// RejectionsTotal counts candidates rejected by gate.
	RejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crossarb_candidates_rejected_total",
			Help: "Directional candidates rejected, by reason",
		},
		[]string{"reason"},
	)

	// NetProfitUSD tracks the distribution of emitted net profits.
	NetProfitUSD = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "crossarb_net_profit_usd",
		Help:    "Net profit of emitted opportunities in USD",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12), // 1, 2, 4, ..., 2048
	})

	// ScanDurationSeconds tracks scan latency.
	ScanDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "crossarb_scan_duration_seconds",
		Help:    "Duration of a detector scan over all confirmed matches",
		Buckets: prometheus.DefBuckets,
	})
)
