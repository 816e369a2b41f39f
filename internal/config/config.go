// Package config provides configuration loading and management for the application.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration. It is read once at startup and
// passed by value into the components that need it.
type Config struct {
	// HTTP server port
	Port string

	// Hex-encoded private key for the transfer dispatcher. Optional for
	// estimation-only deployments; its absence fails dispatcher construction,
	// not estimation.
	PrivateKey string

	// Base URL of the CoinGecko price API
	CoinGeckoURL string

	// OpenTelemetry endpoint for observability
	OtelEndpoint string

	// Per-request estimation deadline
	RequestTimeout time.Duration

	// Deadline for establishing an RPC connection to a network
	DialTimeout time.Duration

	// Circuit breaker settings for per-network RPC health
	EnableCircuitBreaker bool
	BreakerFailureCount  int
	BreakerCooldown      time.Duration

	// Prometheus metrics toggle
	EnableMetrics bool

	// Token-bucket rate limiting; disabled when RateLimitRPS is zero
	RateLimitRPS   float64
	RateLimitBurst int
}

// Load creates a new Config from environment variables.
func Load() Config {
	return Config{
		Port:                 GetEnvOrDefault("PORT", "8080"),
		PrivateKey:           os.Getenv("PRIVATE_KEY"),
		CoinGeckoURL:         GetEnvOrDefault("COINGECKO_URL", "https://api.coingecko.com"),
		OtelEndpoint:         GetEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		RequestTimeout:       GetEnvAsDuration("REQUEST_TIMEOUT", 15*time.Second),
		DialTimeout:          GetEnvAsDuration("RPC_DIAL_TIMEOUT", 10*time.Second),
		EnableCircuitBreaker: GetEnvAsBool("ENABLE_CIRCUIT_BREAKER", false),
		BreakerFailureCount:  GetEnvAsInt("BREAKER_FAILURE_COUNT", 5),
		BreakerCooldown:      GetEnvAsDuration("BREAKER_COOLDOWN", 1*time.Minute),
		EnableMetrics:        GetEnvAsBool("ENABLE_METRICS", true),
		RateLimitRPS:         GetEnvAsFloat("RATE_LIMIT_RPS", 0),
		RateLimitBurst:       GetEnvAsInt("RATE_LIMIT_BURST", 20),
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
