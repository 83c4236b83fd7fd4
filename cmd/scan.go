package cmd

import (
	"context"
	"fmt"

	"github.com/crossarb/crossarb/internal/arbitrage"
	"github.com/crossarb/crossarb/internal/orderbook"
	"github.com/crossarb/crossarb/internal/storage"
	"github.com/crossarb/crossarb/pkg/cache"
	"github.com/crossarb/crossarb/pkg/config"
	"github.com/crossarb/crossarb/pkg/events"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run one detector pass over confirmed matches",
	Long: `Runs a single arbitrage scan against the configured store and exits.
Useful for verifying detector gates and fee math against live state without
starting the full daemon. Requires STORAGE_MODE=postgres to see confirmed
matches from a running deployment.`,
	RunE: runScan,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := config.NewLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	appCache, err := cache.NewRistrettoCache(&cache.RistrettoConfig{
		NumCounters: 100000,
		MaxCost:     10000,
		BufferItems: 64,
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("create cache: %w", err)
	}
	defer appCache.Close()

	books := orderbook.New(orderbook.Config{
		Cache:        appCache,
		OrderbookTTL: cfg.OrderbookTTL,
		QuoteTTL:     cfg.QuoteTTL,
		Logger:       logger,
	})

	var store storage.Store
	if cfg.StorageMode == "postgres" {
		store, err = storage.NewPostgresStore(&storage.PostgresConfig{
			Host:     cfg.PostgresHost,
			Port:     cfg.PostgresPort,
			User:     cfg.PostgresUser,
			Password: cfg.PostgresPass,
			Database: cfg.PostgresDB,
			SSLMode:  cfg.PostgresSSL,
			Logger:   logger,
		})
		if err != nil {
			return fmt.Errorf("connect storage: %w", err)
		}
	} else {
		store = storage.NewMemoryStore(logger)
	}
	defer store.Close()

	detector := arbitrage.New(arbitrage.Config{
		ScanInterval:         cfg.ArbScanInterval,
		StaleThreshold:       cfg.OrderbookStaleThreshold,
		MinSpreadPct:         cfg.MinArbitrageSpreadPct,
		MinConfidenceScore:   cfg.MinConfidenceScore,
		MinExecutableSizeUSD: cfg.MinExecutableSizeUSD,
		Logger:               logger,
	}, books, store, events.NewLogPublisher(logger))

	found, err := detector.ScanOnce(context.Background())
	if err != nil {
		return fmt.Errorf("scan: %w", err)
	}

	fmt.Printf("scan complete: %d opportunities\n", len(found))
	for _, opp := range found {
		fmt.Println(" ", opp.String())
	}

	return nil
}
