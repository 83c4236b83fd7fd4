package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration. It is constructed once at
// startup from environment variables and validated; components receive the
// values they need, never the environment.
type Config struct {
	// Application
	LogLevel string
	HTTPPort string

	// Venue endpoints
	PolymarketGammaURL string
	PolymarketClobURL  string
	PolymarketWSURL    string
	KalshiAPIURL       string

	// Venue enablement and quotas
	EnablePolymarket       bool
	EnableKalshi           bool
	PolymarketRateLimitMin int
	KalshiRateLimitMin     int
	PolymarketMaxInflight  int
	KalshiMaxInflight      int
	KalshiPacingGap        time.Duration

	// Freshness
	PriceStaleThreshold     time.Duration
	OrderbookStaleThreshold time.Duration

	// Detector gates
	MinArbitrageSpreadPct float64
	MinConfidenceScore    float64
	MinExecutableSizeUSD  float64

	// Cadences
	IngestionInterval time.Duration
	FullSyncInterval  time.Duration
	ArbScanInterval   time.Duration
	MatchingInterval  time.Duration

	// Matcher
	MatchMinOverallScore float64

	// Cache
	OrderbookTTL time.Duration
	QuoteTTL     time.Duration

	// WebSocket push
	WSDialTimeout           time.Duration
	WSPongTimeout           time.Duration
	WSPingInterval          time.Duration
	WSReconnectInitialDelay time.Duration
	WSReconnectMaxDelay     time.Duration
	WSReconnectBackoffMult  float64
	WSMessageBufferSize     int

	// HTTP fetch
	FetchTimeout time.Duration

	// Shutdown
	ShutdownGracePeriod time.Duration

	// Storage
	StorageMode  string // "postgres" or "memory"
	PostgresHost string
	PostgresPort string
	PostgresUser string
	PostgresPass string
	PostgresDB   string
	PostgresSSL  string
}

// LoadFromEnv loads configuration from environment variables with defaults.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		// Application defaults
		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),
		HTTPPort: getEnvOrDefault("HTTP_PORT", "8080"),

		// Venue endpoint defaults
		PolymarketGammaURL: getEnvOrDefault("POLYMARKET_GAMMA_API_URL", "https://gamma-api.polymarket.com"),
		PolymarketClobURL:  getEnvOrDefault("POLYMARKET_CLOB_API_URL", "https://clob.polymarket.com"),
		PolymarketWSURL:    getEnvOrDefault("POLYMARKET_WS_URL", "wss://ws-subscriptions-clob.polymarket.com/ws/market"),
		KalshiAPIURL:       getEnvOrDefault("KALSHI_API_URL", "https://api.elections.kalshi.com/trade-api/v2"),

		// Venue enablement and quota defaults
		EnablePolymarket:       getBoolOrDefault("ENABLE_POLYMARKET", true),
		EnableKalshi:           getBoolOrDefault("ENABLE_KALSHI", true),
		PolymarketRateLimitMin: getIntOrDefault("POLYMARKET_RATE_LIMIT_PER_MIN", 300),
		KalshiRateLimitMin:     getIntOrDefault("KALSHI_RATE_LIMIT_PER_MIN", 100),
		PolymarketMaxInflight:  getIntOrDefault("POLYMARKET_MAX_INFLIGHT", 10),
		KalshiMaxInflight:      getIntOrDefault("KALSHI_MAX_INFLIGHT", 5),
		KalshiPacingGap:        getMillisOrDefault("KALSHI_PACING_GAP_MS", 100*time.Millisecond),

		// Freshness defaults
		PriceStaleThreshold:     getMillisOrDefault("PRICE_STALE_THRESHOLD_MS", 5000*time.Millisecond),
		OrderbookStaleThreshold: getMillisOrDefault("ORDERBOOK_STALE_THRESHOLD_MS", 3000*time.Millisecond),

		// Detector gate defaults
		MinArbitrageSpreadPct: getFloat64OrDefault("MIN_ARBITRAGE_SPREAD_PCT", 0.5),
		MinConfidenceScore:    getFloat64OrDefault("MIN_CONFIDENCE_SCORE", 0.6),
		MinExecutableSizeUSD:  getFloat64OrDefault("MIN_EXECUTABLE_SIZE_USD", 10),

		// Cadence defaults
		IngestionInterval: getMillisOrDefault("INGESTION_INTERVAL_MS", 2000*time.Millisecond),
		FullSyncInterval:  getMillisOrDefault("FULL_SYNC_INTERVAL_MS", 5*time.Minute),
		ArbScanInterval:   getMillisOrDefault("ARBITRAGE_SCAN_INTERVAL_MS", 1000*time.Millisecond),
		MatchingInterval:  getMillisOrDefault("MATCHING_INTERVAL_MS", 60000*time.Millisecond),

		// Matcher defaults
		MatchMinOverallScore: getFloat64OrDefault("MATCH_MIN_OVERALL_SCORE", 0.65),

		// Cache defaults
		OrderbookTTL: getMillisOrDefault("ORDERBOOK_CACHE_TTL_MS", 10*time.Second),
		QuoteTTL:     getMillisOrDefault("QUOTE_CACHE_TTL_MS", 10*time.Second),

		// WebSocket defaults
		WSDialTimeout:           getDurationOrDefault("WS_DIAL_TIMEOUT", 10*time.Second),
		WSPongTimeout:           getDurationOrDefault("WS_PONG_TIMEOUT", 15*time.Second),
		WSPingInterval:          getDurationOrDefault("WS_PING_INTERVAL", 10*time.Second),
		WSReconnectInitialDelay: getDurationOrDefault("WS_RECONNECT_INITIAL_DELAY", 1*time.Second),
		WSReconnectMaxDelay:     getDurationOrDefault("WS_RECONNECT_MAX_DELAY", 30*time.Second),
		WSReconnectBackoffMult:  getFloat64OrDefault("WS_RECONNECT_BACKOFF_MULTIPLIER", 2.0),
		WSMessageBufferSize:     getIntOrDefault("WS_MESSAGE_BUFFER_SIZE", 1000),

		// HTTP fetch defaults
		FetchTimeout: getDurationOrDefault("FETCH_TIMEOUT", 15*time.Second),

		// Shutdown defaults
		ShutdownGracePeriod: getDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 30*time.Second),

		// Storage defaults
		StorageMode:  getEnvOrDefault("STORAGE_MODE", "memory"),
		PostgresHost: getEnvOrDefault("POSTGRES_HOST", "localhost"),
		PostgresPort: getEnvOrDefault("POSTGRES_PORT", "5432"),
		PostgresUser: getEnvOrDefault("POSTGRES_USER", "crossarb"),
		PostgresPass: getEnvOrDefault("POSTGRES_PASSWORD", "crossarb"),
		PostgresDB:   getEnvOrDefault("POSTGRES_DB", "crossarb"),
		PostgresSSL:  getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
	}

	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that configuration values are valid.
func (c *Config) Validate() error {
	if c.HTTPPort == "" {
		return fmt.Errorf("HTTP_PORT cannot be empty")
	}

	if !c.EnablePolymarket && !c.EnableKalshi {
		return fmt.Errorf("at least one venue must be enabled")
	}

	if c.MinConfidenceScore < 0 || c.MinConfidenceScore > 1 {
		return fmt.Errorf("MIN_CONFIDENCE_SCORE must be in [0,1], got %f", c.MinConfidenceScore)
	}

	if c.MatchMinOverallScore < 0 || c.MatchMinOverallScore > 1 {
		return fmt.Errorf("MATCH_MIN_OVERALL_SCORE must be in [0,1], got %f", c.MatchMinOverallScore)
	}

	if c.MinExecutableSizeUSD <= 0 {
		return fmt.Errorf("MIN_EXECUTABLE_SIZE_USD must be positive, got %f", c.MinExecutableSizeUSD)
	}

	if c.OrderbookStaleThreshold <= 0 {
		return fmt.Errorf("ORDERBOOK_STALE_THRESHOLD_MS must be positive")
	}

	if c.StorageMode != "postgres" && c.StorageMode != "memory" {
		return fmt.Errorf("STORAGE_MODE must be 'postgres' or 'memory', got %q", c.StorageMode)
	}

	return nil
}

func getEnvOrDefault(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intVal, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intVal
}

func getFloat64OrDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	floatVal, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}

	return floatVal
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	boolVal, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}

	return boolVal
}

// getMillisOrDefault reads an integer number of milliseconds, matching the
// *_MS naming convention of the tunables.
func getMillisOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	ms, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return time.Duration(ms) * time.Millisecond
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}

	return duration
}
