package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnv_Defaults(t *testing.T) {
	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.True(t, cfg.EnablePolymarket)
	assert.True(t, cfg.EnableKalshi)

	assert.Equal(t, 5000*time.Millisecond, cfg.PriceStaleThreshold)
	assert.Equal(t, 3000*time.Millisecond, cfg.OrderbookStaleThreshold)
	assert.InDelta(t, 0.5, cfg.MinArbitrageSpreadPct, 1e-9)
	assert.InDelta(t, 0.6, cfg.MinConfidenceScore, 1e-9)
	assert.InDelta(t, 10, cfg.MinExecutableSizeUSD, 1e-9)

	assert.Equal(t, 2*time.Second, cfg.IngestionInterval)
	assert.Equal(t, time.Second, cfg.ArbScanInterval)
	assert.Equal(t, time.Minute, cfg.MatchingInterval)
	assert.Equal(t, 5*time.Minute, cfg.FullSyncInterval)

	assert.Equal(t, 10*time.Second, cfg.OrderbookTTL)
	assert.Equal(t, "memory", cfg.StorageMode)
}

func TestLoadFromEnv_MillisOverrides(t *testing.T) {
	t.Setenv("ORDERBOOK_STALE_THRESHOLD_MS", "1500")
	t.Setenv("ARBITRAGE_SCAN_INTERVAL_MS", "250")
	t.Setenv("MATCHING_INTERVAL_MS", "30000")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, 1500*time.Millisecond, cfg.OrderbookStaleThreshold)
	assert.Equal(t, 250*time.Millisecond, cfg.ArbScanInterval)
	assert.Equal(t, 30*time.Second, cfg.MatchingInterval)
}

func TestLoadFromEnv_BadValueFallsBackToDefault(t *testing.T) {
	t.Setenv("MIN_CONFIDENCE_SCORE", "not-a-number")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.InDelta(t, 0.6, cfg.MinConfidenceScore, 1e-9)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "no-venues-enabled",
			mutate:  func(c *Config) { c.EnablePolymarket = false; c.EnableKalshi = false },
			wantErr: "at least one venue",
		},
		{
			name:    "confidence-out-of-range",
			mutate:  func(c *Config) { c.MinConfidenceScore = 1.5 },
			wantErr: "MIN_CONFIDENCE_SCORE",
		},
		{
			name:    "zero-min-size",
			mutate:  func(c *Config) { c.MinExecutableSizeUSD = 0 },
			wantErr: "MIN_EXECUTABLE_SIZE_USD",
		},
		{
			name:    "bad-storage-mode",
			mutate:  func(c *Config) { c.StorageMode = "sqlite" },
			wantErr: "STORAGE_MODE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadFromEnv()
			require.NoError(t, err)

			tt.mutate(cfg)
			err = cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestVenueToggles(t *testing.T) {
	t.Setenv("ENABLE_KALSHI", "false")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.True(t, cfg.EnablePolymarket)
	assert.False(t, cfg.EnableKalshi)
}
