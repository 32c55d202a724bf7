// Package config provides configuration loading and management for the application.
package config

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// HTTP server port
	Port string

	// Base URLs for the upstream data providers
	CoinGeckoURL     string
	DexScreenerURL   string
	BirdeyeURL       string
	SolanaTrackerURL string

	// API keys for providers that require them
	APIKeys map[string]string

	// Per-provider fetch timeout inside the fan-out
	ProviderTimeout time.Duration

	// Overall request timeout for one analysis run
	RequestTimeout time.Duration

	// Sanity bounds applied during reconciliation
	MaxMarketCapUSD   float64
	MaxVolumeMultiple float64

	// Consensus tuning
	ConsensusWeights    string // "default" (0.40/0.40/0.20) or "legacy" (0.40/0.35/0.25)
	VarianceThreshold   float64
	DisagreementPenalty int

	// Public endpoint rate limiting
	RateLimitRPS   float64
	RateLimitBurst int

	// Circuit breaker over provider health
	EnableBreaker     bool
	BreakerMinSources int
	BreakerResetDelay time.Duration

	// Result export webhook (disabled when URL empty)
	WebhookURL    string
	WebhookAPIKey string
	ExportBatch   int

	// Optional response signing
	EnableSigning bool

	// OpenTelemetry endpoint for observability
	OtelEndpoint string
}

// Load creates a new Config from environment variables. A .env file in the
// working directory is honored when present.
func Load() Config {
	_ = godotenv.Load()

	apiKeys := map[string]string{}
	if raw := os.Getenv("API_KEYS"); raw != "" {
		_ = json.Unmarshal([]byte(raw), &apiKeys)
	}

	return Config{
		Port:             GetEnvOrDefault("PORT", "8080"),
		CoinGeckoURL:     GetEnvOrDefault("COINGECKO_URL", "https://api.coingecko.com/api/v3"),
		DexScreenerURL:   GetEnvOrDefault("DEXSCREENER_URL", "https://api.dexscreener.com"),
		BirdeyeURL:       GetEnvOrDefault("BIRDEYE_URL", "https://public-api.birdeye.so"),
		SolanaTrackerURL: GetEnvOrDefault("SOLANATRACKER_URL", "https://data.solanatracker.io"),
		APIKeys:          apiKeys,

		ProviderTimeout: GetEnvAsDuration("PROVIDER_TIMEOUT", 8*time.Second),
		RequestTimeout:  GetEnvAsDuration("REQUEST_TIMEOUT", 15*time.Second),

		MaxMarketCapUSD:   GetEnvAsFloat("MAX_MARKET_CAP_USD", 10e12), // $10T ceiling
		MaxVolumeMultiple: GetEnvAsFloat("MAX_VOLUME_MULTIPLE", 10.0),

		ConsensusWeights:    strings.ToLower(GetEnvOrDefault("CONSENSUS_WEIGHTS", "default")),
		VarianceThreshold:   GetEnvAsFloat("CONSENSUS_VARIANCE_THRESHOLD", 400.0),
		DisagreementPenalty: GetEnvAsInt("CONSENSUS_DISAGREEMENT_PENALTY", 10),

		RateLimitRPS:   GetEnvAsFloat("RATE_LIMIT_RPS", 10.0),
		RateLimitBurst: GetEnvAsInt("RATE_LIMIT_BURST", 20),

		EnableBreaker:     GetEnvAsBool("ENABLE_CIRCUIT_BREAKER", true),
		BreakerMinSources: GetEnvAsInt("BREAKER_MIN_SOURCES", 1),
		BreakerResetDelay: GetEnvAsDuration("BREAKER_RESET_DELAY", 5*time.Minute),

		WebhookURL:    os.Getenv("WEBHOOK_URL"),
		WebhookAPIKey: os.Getenv("WEBHOOK_API_KEY"),
		ExportBatch:   GetEnvAsInt("EXPORT_BATCH_SIZE", 50),

		EnableSigning: GetEnvAsBool("ENABLE_RESULT_SIGNING", false),

		OtelEndpoint: GetEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}
}

// GetEnv retrieves an environment variable and whether it exists
func GetEnv(key string) (string, bool) {
	value, exists := os.LookupEnv(key)
	return value, exists
}

// GetEnvOrDefault retrieves an environment variable or returns the default value if not set
func GetEnvOrDefault(key, defaultValue string) string {
	if value, exists := GetEnv(key); exists {
		return value
	}
	return defaultValue
}

// GetEnvAsInt retrieves an environment variable as an integer with a default value
func GetEnvAsInt(key string, defaultValue int) int {
	if value, exists := GetEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// GetEnvAsFloat retrieves an environment variable as a float with a default value
func GetEnvAsFloat(key string, defaultValue float64) float64 {
	if value, exists := GetEnv(key); exists {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// GetEnvAsBool retrieves an environment variable as a boolean with a default value
func GetEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := GetEnv(key); exists {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// GetEnvAsDuration retrieves an environment variable as a duration with a default value
func GetEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := GetEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
