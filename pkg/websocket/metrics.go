package websocket

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	ActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "crossarb_push_active_connections",
		Help: "Number of live push transport connections",
	})

	SubscriptionCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "crossarb_push_subscriptions",
		Help: "Number of externally subscribed market ids",
	})

	FramesReceivedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crossarb_push_frames_received_total",
		Help: "Total raw frames received over push transports",
	})

	FramesDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crossarb_push_frames_dropped_total",
		Help: "Total frames dropped because the consumer buffer was full",
	})

	ReconnectAttemptsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crossarb_push_reconnect_attempts_total",
		Help: "Total reconnection attempts",
	})

	ReconnectFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crossarb_push_reconnect_failures_total",
		Help: "Total failed reconnection attempts",
	})
)
