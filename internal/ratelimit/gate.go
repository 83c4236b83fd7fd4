// Package ratelimit implements the per-venue concurrency gate: a bounded
// number of in-flight requests plus optional inter-request pacing. On a
// RATE_LIMITED signal the pacing widens exponentially for a cool-off period.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/crossarb/crossarb/pkg/types"
	"go.uber.org/zap"
)

const (
	pacingWidenFactor = 2.0
	maxPacingFactor   = 16.0
	coolOffPeriod     = 30 * time.Second
)

// Gate bounds concurrent requests to one venue and paces them.
type Gate struct {
	venue       types.Venue
	slots       chan struct{}
	baseGap     time.Duration
	logger      *zap.Logger
	mu          sync.Mutex
	lastRelease time.Time
	widenFactor float64
	coolOffEnds time.Time
}

// Config holds gate configuration for one venue.
type Config struct {
	Venue       types.Venue
	MaxInflight int           // at most this many outstanding requests
	PacingGap   time.Duration // minimum gap between request starts; 0 disables pacing
	Logger      *zap.Logger
}

// New creates a gate. MaxInflight must be at least 1.
func New(cfg Config) (*Gate, error) {
	if cfg.MaxInflight < 1 {
		return nil, fmt.Errorf("max inflight must be >= 1, got %d", cfg.MaxInflight)
	}

	return &Gate{
		venue:       cfg.Venue,
		slots:       make(chan struct{}, cfg.MaxInflight),
		baseGap:     cfg.PacingGap,
		logger:      cfg.Logger,
		widenFactor: 1.0,
	}, nil
}

// Acquire blocks until a request slot is free and the pacing gap has
// elapsed, or the context is cancelled. Every successful Acquire must be
// paired with a Release.
func (g *Gate) Acquire(ctx context.Context) error {
	select {
	case g.slots <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	wait := g.pacingWait()
	if wait > 0 {
		InflightWaits.WithLabelValues(string(g.venue)).Inc()
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			<-g.slots
			return ctx.Err()
		}
	}

	g.mu.Lock()
	g.lastRelease = time.Now()
	g.mu.Unlock()

	InflightRequests.WithLabelValues(string(g.venue)).Inc()

	return nil
}

// Release frees a request slot.
func (g *Gate) Release() {
	<-g.slots
	InflightRequests.WithLabelValues(string(g.venue)).Dec()
}

// OnRateLimited widens the pacing gap exponentially and starts a cool-off
// window. Safe to call from any goroutine.
func (g *Gate) OnRateLimited() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.widenFactor *= pacingWidenFactor
	if g.widenFactor > maxPacingFactor {
		g.widenFactor = maxPacingFactor
	}
	g.coolOffEnds = time.Now().Add(coolOffPeriod)

	RateLimitSignals.WithLabelValues(string(g.venue)).Inc()

	g.logger.Warn("rate-limit-pacing-widened",
		zap.String("venue", string(g.venue)),
		zap.Float64("factor", g.widenFactor),
		zap.Duration("cool-off", coolOffPeriod))
}

// pacingWait computes how long the caller must wait before starting the next
// request, and decays the widen factor once the cool-off window has passed.
func (g *Gate) pacingWait() time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.widenFactor > 1.0 && time.Now().After(g.coolOffEnds) {
		g.widenFactor = 1.0
		g.logger.Info("rate-limit-pacing-restored", zap.String("venue", string(g.venue)))
	}

	gap := time.Duration(float64(g.baseGap) * g.widenFactor)
	if gap == 0 {
		return 0
	}

	elapsed := time.Since(g.lastRelease)
	if elapsed >= gap {
		return 0
	}
	return gap - elapsed
}

// CurrentGap exposes the effective pacing gap; used by health reporting.
func (g *Gate) CurrentGap() time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()
	return time.Duration(float64(g.baseGap) * g.widenFactor)
}
