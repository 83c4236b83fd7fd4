package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/crossarb/crossarb/internal/app"
	"github.com/crossarb/crossarb/pkg/config"
	"github.com/crossarb/crossarb/pkg/types"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var marketsCmd = &cobra.Command{
	Use:   "markets [venue]",
	Short: "List a venue's active markets",
	Long: `Fetches and prints the active market list from one venue's adapter,
normalized to the common shape. With no argument, lists every enabled venue.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runMarkets,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(marketsCmd)
}

func runMarkets(cmd *cobra.Command, args []string) error {
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

	adapters, err := app.SetupAdapters(cfg, logger)
	if err != nil {
		return fmt.Errorf("setup adapters: %w", err)
	}

	var filter types.Venue
	if len(args) == 1 {
		filter = types.Venue(strings.ToUpper(args[0]))
		if !filter.Valid() {
			return fmt.Errorf("unknown venue %q", args[0])
		}
	}

	ctx := context.Background()
	for _, adapter := range adapters {
		if filter != "" && adapter.Venue() != filter {
			continue
		}

		markets, err := adapter.FetchActiveMarkets(ctx)
		if err != nil {
			return fmt.Errorf("fetch %s markets: %w", adapter.Venue(), err)
		}

		fmt.Printf("%s: %d active markets\n", adapter.Venue(), len(markets))
		for i := range markets {
			m := &markets[i]
			end := "-"
			if m.EndDate != nil {
				end = m.EndDate.Format("2006-01-02")
			}
			bid, ask := "-", "-"
			if m.YesBid.Valid {
				bid = m.YesBid.Decimal.StringFixed(2)
			}
			if m.YesAsk.Valid {
				ask = m.YesAsk.Decimal.StringFixed(2)
			}
			fmt.Printf("  %-30s bid=%-5s ask=%-5s end=%-11s %s\n",
				truncate(m.ExternalID, 30), bid, ask, end, truncate(m.Question, 60))
		}
	}

	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
