package venue

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	FetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crossarb_venue_fetches_total",
		Help: "Adapter calls by venue, operation, and result",
	}, []string{"venue", "op", "result"})

	FetchLatencySeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "crossarb_venue_fetch_latency_seconds",
		Help:    "Adapter call latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"venue", "op"})

	IntegrityDropsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crossarb_venue_integrity_drops_total",
		Help: "Order book rows dropped on ingress by reason",
	}, []string{"venue", "reason"})

	SchemaDropsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crossarb_venue_schema_drops_total",
		Help: "Records dropped for unexpected payload shape",
	}, []string{"venue"})

	HealthStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "crossarb_venue_health_status",
		Help: "Venue health: 0 healthy, 1 degraded, 2 offline",
	}, []string{"venue"})

	PushEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crossarb_venue_push_events_total",
		Help: "Push or poll-fallback events delivered by venue and kind",
	}, []string{"venue", "kind"})
)
