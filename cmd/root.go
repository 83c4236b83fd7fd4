// Package cmd holds the CLI entrypoints.
package cmd

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var rootCmd = &cobra.Command{
	Use:   "crossarb",
	Short: "Cross-venue prediction-market arbitrage scanner",
	Long: `crossarb continuously ingests binary prediction-market contracts from
multiple venues, proposes cross-venue equivalences for review, and scans
confirmed pairs for executable arbitrage after fees and slippage.

It never places trades: detected opportunities are persisted and pushed
downstream with a full execution plan.`,
}

// Execute runs the root command. Called once from main.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	cobra.OnInitialize(func() {
		// Optional .env for local development; real deployments set the
		// environment directly.
		_ = godotenv.Load()
	})
}
