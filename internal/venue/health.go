package venue

import (
	"sync"
	"time"

	"github.com/crossarb/crossarb/pkg/types"
)

const (
	latencyWindowSize = 100
	degradedThreshold = 3
	offlineThreshold  = 10
)

// HealthTracker keeps a rolling window of call latencies and a consecutive
// error count per adapter, classifying the venue HEALTHY, DEGRADED, or
// OFFLINE. Any success resets the error count and restores HEALTHY.
type HealthTracker struct {
	venue             types.Venue
	mu                sync.Mutex
	latencies         []int64
	next              int
	filled            bool
	consecutiveErrors int
	lastFetch         time.Time
	marketCount       int
}

// NewHealthTracker creates a tracker for one venue.
func NewHealthTracker(venue types.Venue) *HealthTracker {
	return &HealthTracker{
		venue:     venue,
		latencies: make([]int64, latencyWindowSize),
	}
}

// RecordSuccess records a successful call and its latency.
func (h *HealthTracker) RecordSuccess(latencyMS int64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.latencies[h.next] = latencyMS
	h.next = (h.next + 1) % latencyWindowSize
	if h.next == 0 {
		h.filled = true
	}
	h.consecutiveErrors = 0
	h.lastFetch = time.Now()

	HealthStatus.WithLabelValues(string(h.venue)).Set(healthGaugeValue(types.VenueHealthy))
}

// RecordError records a failed call.
func (h *HealthTracker) RecordError() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.consecutiveErrors++

	HealthStatus.WithLabelValues(string(h.venue)).Set(healthGaugeValue(h.statusLocked()))
}

// SetMarketCount records the size of the venue's last full market listing.
func (h *HealthTracker) SetMarketCount(n int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.marketCount = n
}

// Status returns the current health classification.
func (h *HealthTracker) Status() types.VenueStatus {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.statusLocked()
}

func (h *HealthTracker) statusLocked() types.VenueStatus {
	switch {
	case h.consecutiveErrors >= offlineThreshold:
		return types.VenueOffline
	case h.consecutiveErrors >= degradedThreshold:
		return types.VenueDegraded
	default:
		return types.VenueHealthy
	}
}

// Snapshot returns a point-in-time VenueHealth.
func (h *HealthTracker) Snapshot() types.VenueHealth {
	h.mu.Lock()
	defer h.mu.Unlock()

	return types.VenueHealth{
		Venue:             h.venue,
		Status:            h.statusLocked(),
		MarketCount:       h.marketCount,
		LastFetch:         h.lastFetch,
		AvgLatencyMS:      h.avgLatencyLocked(),
		ConsecutiveErrors: h.consecutiveErrors,
	}
}

func (h *HealthTracker) avgLatencyLocked() float64 {
	n := h.next
	if h.filled {
		n = latencyWindowSize
	}
	if n == 0 {
		return 0
	}

	var sum int64
	for i := 0; i < n; i++ {
		sum += h.latencies[i]
	}
	return float64(sum) / float64(n)
}

func healthGaugeValue(s types.VenueStatus) float64 {
	switch s {
	case types.VenueHealthy:
		return 0
	case types.VenueDegraded:
		return 1
	default:
		return 2
	}
}
