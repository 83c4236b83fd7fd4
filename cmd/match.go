package cmd

import (
	"context"
	"fmt"

	"github.com/crossarb/crossarb/internal/match"
	"github.com/crossarb/crossarb/internal/storage"
	"github.com/crossarb/crossarb/pkg/config"
	"github.com/crossarb/crossarb/pkg/types"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Run one matching pass over active markets",
	Long: `Runs a single cross-venue matching pass against the configured store,
writes the resulting proposals, and prints the pending-review queue size.`,
	RunE: runMatch,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(matchCmd)
}

func runMatch(cmd *cobra.Command, args []string) error {
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

	matcher := match.New(match.Config{
		Interval:        cfg.MatchingInterval,
		MinOverallScore: cfg.MatchMinOverallScore,
		Logger:          logger,
	}, store)

	ctx := context.Background()
	err = matcher.RunOnce(ctx)
	if err != nil {
		return fmt.Errorf("matching pass: %w", err)
	}

	pending, err := store.CountMatches(ctx, types.MatchPendingReview)
	if err != nil {
		return fmt.Errorf("count pending: %w", err)
	}

	fmt.Printf("matching pass complete: %d proposals pending review\n", pending)

	return nil
}
