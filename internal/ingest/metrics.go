package ingest

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	FullSyncsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crossarb_ingest_full_syncs_total",
		Help: "Completed full sync passes",
	})

	OrderbooksAppliedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crossarb_ingest_orderbooks_applied_total",
		Help: "Order books written through to the cache, by venue",
	}, []string{"venue"})

	EventsCoalescedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crossarb_ingest_events_coalesced_total",
		Help: "Events dropped in favor of a newer one for the same market",
	}, []string{"kind"})

	StaleUpdatesDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crossarb_ingest_stale_updates_dropped_total",
		Help: "Updates discarded for arriving out of source-timestamp order",
	}, []string{"kind"})

	EventsSuppressedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crossarb_ingest_events_suppressed_total",
		Help: "Push-bus events suppressed while the venue was offline",
	}, []string{"venue"})

	MarketsClosedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crossarb_ingest_markets_closed_total",
		Help: "Markets transitioned to CLOSED, by venue",
	}, []string{"venue"})
)
