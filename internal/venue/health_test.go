package venue

import (
	"testing"

	"github.com/crossarb/crossarb/pkg/types"
	"github.com/stretchr/testify/assert"
)

func TestHealthTracker_Transitions(t *testing.T) {
	h := NewHealthTracker(types.VenueKalshi)

	assert.Equal(t, types.VenueHealthy, h.Status())

	// Two errors: still healthy.
	h.RecordError()
	h.RecordError()
	assert.Equal(t, types.VenueHealthy, h.Status())

	// Third consecutive error degrades.
	h.RecordError()
	assert.Equal(t, types.VenueDegraded, h.Status())

	// Tenth consecutive error takes the venue offline.
	for i := 0; i < 7; i++ {
		h.RecordError()
	}
	assert.Equal(t, types.VenueOffline, h.Status())

	// Any success restores healthy and resets the counter.
	h.RecordSuccess(42)
	assert.Equal(t, types.VenueHealthy, h.Status())
	assert.Equal(t, 0, h.Snapshot().ConsecutiveErrors)
}

func TestHealthTracker_RollingLatency(t *testing.T) {
	h := NewHealthTracker(types.VenuePolymarket)

	h.RecordSuccess(100)
	h.RecordSuccess(200)
	h.RecordSuccess(300)

	snap := h.Snapshot()
	assert.InDelta(t, 200, snap.AvgLatencyMS, 1e-9)
	assert.False(t, snap.LastFetch.IsZero())

	// Window keeps the most recent 100 samples.
	for i := 0; i < 150; i++ {
		h.RecordSuccess(1000)
	}
	assert.InDelta(t, 1000, h.Snapshot().AvgLatencyMS, 1e-9)
}

func TestHealthTracker_MarketCount(t *testing.T) {
	h := NewHealthTracker(types.VenueKalshi)
	h.SetMarketCount(37)
	assert.Equal(t, 37, h.Snapshot().MarketCount)
}
