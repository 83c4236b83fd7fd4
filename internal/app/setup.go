package app

import (
	"context"
	"fmt"

	"github.com/crossarb/crossarb/internal/arbitrage"
	"github.com/crossarb/crossarb/internal/ingest"
	"github.com/crossarb/crossarb/internal/match"
	"github.com/crossarb/crossarb/internal/orderbook"
	"github.com/crossarb/crossarb/internal/ratelimit"
	"github.com/crossarb/crossarb/internal/storage"
	"github.com/crossarb/crossarb/internal/venue"
	"github.com/crossarb/crossarb/pkg/cache"
	"github.com/crossarb/crossarb/pkg/config"
	"github.com/crossarb/crossarb/pkg/events"
	"github.com/crossarb/crossarb/pkg/healthprobe"
	"github.com/crossarb/crossarb/pkg/httpserver"
	"go.uber.org/zap"
)

// New creates a fully wired application instance.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	ctx, cancel := context.WithCancel(context.Background())

	healthChecker := healthprobe.New()

	appCache, err := setupCache(logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup cache: %w", err)
	}

	books := orderbook.New(orderbook.Config{
		Cache:        appCache,
		OrderbookTTL: cfg.OrderbookTTL,
		QuoteTTL:     cfg.QuoteTTL,
		Logger:       logger,
	})

	store, err := setupStorage(cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup storage: %w", err)
	}

	adapters, err := SetupAdapters(cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup adapters: %w", err)
	}

	publisher := events.NewLogPublisher(logger)

	orchestrator := ingest.New(ingest.Config{
		FullSyncInterval: cfg.FullSyncInterval,
		RefreshInterval:  cfg.IngestionInterval,
		Logger:           logger,
	}, adapters, books, store, publisher)

	matcher := match.New(match.Config{
		Interval:        cfg.MatchingInterval,
		MinOverallScore: cfg.MatchMinOverallScore,
		Logger:          logger,
	}, store)

	detector := arbitrage.New(arbitrage.Config{
		ScanInterval:         cfg.ArbScanInterval,
		StaleThreshold:       cfg.OrderbookStaleThreshold,
		MinSpreadPct:         cfg.MinArbitrageSpreadPct,
		MinConfidenceScore:   cfg.MinConfidenceScore,
		MinExecutableSizeUSD: cfg.MinExecutableSizeUSD,
		Logger:               logger,
	}, books, store, publisher)

	httpServer := httpserver.New(&httpserver.Config{
		Port:          cfg.HTTPPort,
		Logger:        logger,
		HealthChecker: healthChecker,
		Orchestrator:  orchestrator,
		Store:         store,
		Books:         books,
	})

	return &App{
		cfg:           cfg,
		logger:        logger,
		healthChecker: healthChecker,
		httpServer:    httpServer,
		appCache:      appCache,
		books:         books,
		store:         store,
		orchestrator:  orchestrator,
		matcher:       matcher,
		detector:      detector,
		ctx:           ctx,
		cancel:        cancel,
	}, nil
}

func setupCache(logger *zap.Logger) (cache.Cache, error) {
	return cache.NewRistrettoCache(&cache.RistrettoConfig{
		NumCounters: 100000, // 10x expected max items
		MaxCost:     10000,  // orderbooks + quotes + memoized responses
		BufferItems: 64,
		Logger:      logger,
	})
}

func setupStorage(cfg *config.Config, logger *zap.Logger) (storage.Store, error) {
	if cfg.StorageMode == "postgres" {
		pg, err := storage.NewPostgresStore(&storage.PostgresConfig{
			Host:     cfg.PostgresHost,
			Port:     cfg.PostgresPort,
			User:     cfg.PostgresUser,
			Password: cfg.PostgresPass,
			Database: cfg.PostgresDB,
			SSLMode:  cfg.PostgresSSL,
			Logger:   logger,
		})
		if err != nil {
			return nil, fmt.Errorf("create postgres store: %w", err)
		}
		return pg, nil
	}

	return storage.NewMemoryStore(logger), nil
}

// SetupAdapters builds the enabled venue adapters with their gates. Shared
// with the one-shot CLI commands.
func SetupAdapters(cfg *config.Config, logger *zap.Logger) ([]venue.Adapter, error) {
	var adapters []venue.Adapter

	if cfg.EnablePolymarket {
		gate, err := ratelimit.New(ratelimit.Config{
			Venue:       "POLYMARKET",
			MaxInflight: cfg.PolymarketMaxInflight,
			Logger:      logger,
		})
		if err != nil {
			return nil, fmt.Errorf("polymarket gate: %w", err)
		}

		adapters = append(adapters, venue.NewPolymarket(venue.PolymarketConfig{
			GammaURL:                cfg.PolymarketGammaURL,
			ClobURL:                 cfg.PolymarketClobURL,
			WSURL:                   cfg.PolymarketWSURL,
			FetchTimeout:            cfg.FetchTimeout,
			Gate:                    gate,
			WSDialTimeout:           cfg.WSDialTimeout,
			WSPongTimeout:           cfg.WSPongTimeout,
			WSPingInterval:          cfg.WSPingInterval,
			WSReconnectInitialDelay: cfg.WSReconnectInitialDelay,
			WSReconnectMaxDelay:     cfg.WSReconnectMaxDelay,
			WSReconnectBackoffMult:  cfg.WSReconnectBackoffMult,
			WSMessageBufferSize:     cfg.WSMessageBufferSize,
			Logger:                  logger,
		}))
	}

	if cfg.EnableKalshi {
		gate, err := ratelimit.New(ratelimit.Config{
			Venue:       "KALSHI",
			MaxInflight: cfg.KalshiMaxInflight,
			PacingGap:   cfg.KalshiPacingGap,
			Logger:      logger,
		})
		if err != nil {
			return nil, fmt.Errorf("kalshi gate: %w", err)
		}

		adapters = append(adapters, venue.NewKalshi(venue.KalshiConfig{
			BaseURL:      cfg.KalshiAPIURL,
			FetchTimeout: cfg.FetchTimeout,
			PollInterval: cfg.IngestionInterval,
			Gate:         gate,
			Logger:       logger,
		}))
	}

	if len(adapters) == 0 {
		return nil, fmt.Errorf("no venues enabled")
	}

	return adapters, nil
}
