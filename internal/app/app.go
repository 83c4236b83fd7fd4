// Package app wires the scanner together: configuration, storage, cache,
// venue adapters, the ingestion orchestrator, the matcher, the detector,
// and the HTTP surface.
package app

import (
	"context"
	"sync"

	"github.com/crossarb/crossarb/internal/arbitrage"
	"github.com/crossarb/crossarb/internal/ingest"
	"github.com/crossarb/crossarb/internal/match"
	"github.com/crossarb/crossarb/internal/orderbook"
	"github.com/crossarb/crossarb/internal/storage"
	"github.com/crossarb/crossarb/pkg/cache"
	"github.com/crossarb/crossarb/pkg/config"
	"github.com/crossarb/crossarb/pkg/healthprobe"
	"github.com/crossarb/crossarb/pkg/httpserver"
	"go.uber.org/zap"
)

// App is the main application orchestrator.
type App struct {
	cfg           *config.Config
	logger        *zap.Logger
	healthChecker *healthprobe.HealthChecker
	httpServer    *httpserver.Server
	appCache      cache.Cache
	books         *orderbook.Store
	store         storage.Store
	orchestrator  *ingest.Orchestrator
	matcher       *match.Matcher
	detector      *arbitrage.Detector
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
}
