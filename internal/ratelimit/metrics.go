package ratelimit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	InflightRequests = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "crossarb_gate_inflight_requests",
		Help: "Outstanding requests per venue",
	}, []string{"venue"})

	InflightWaits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crossarb_gate_pacing_waits_total",
		Help: "Requests delayed by the pacing gap",
	}, []string{"venue"})

	RateLimitSignals = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crossarb_gate_rate_limit_signals_total",
		Help: "RATE_LIMITED signals received per venue",
	}, []string{"venue"})
)
