package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds application configuration
type Config struct {
	ServerPort       string
	EndpointsFile    string
	RateLimitEnabled bool
	RateLimitRPM     int
	BypassToken      string
	AllowedOrigins   string
	EnableHSTS       bool
	ServerDebugMode  bool
	OTELEnabled      bool
	OTELEndpoint     string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		ServerPort:       getEnv("SERVER_PORT", "8080"),
		EndpointsFile:    getEnv("ENDPOINTS_FILE", ""),
		RateLimitEnabled: getEnvBool("RATE_LIMIT_ENABLED", true),
		RateLimitRPM:     getEnvInt("RATE_LIMIT_RPM", 60),
		BypassToken:      getEnv("BYPASS_TOKEN", ""),
		AllowedOrigins:   getEnv("ALLOWED_ORIGINS", ""),
		EnableHSTS:       getEnvBool("ENABLE_HSTS", false),
		ServerDebugMode:  getEnvBool("SERVER_DEBUG_MODE", false),
		OTELEnabled:      getEnvBool("OTEL_ENABLED", false),
		OTELEndpoint:     getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}

	if cfg.EndpointsFile == "" {
		return nil, fmt.Errorf("ENDPOINTS_FILE is required")
	}

	if cfg.RateLimitEnabled && cfg.RateLimitRPM <= 0 {
		return nil, fmt.Errorf("RATE_LIMIT_RPM must be positive when rate limiting is enabled, got %d", cfg.RateLimitRPM)
	}

	return cfg, nil
}

// RateLimitPolicy is the rate-limiting configuration consumed by the gate.
// Immutable after load.
type RateLimitPolicy struct {
	Enabled     bool
	RPM         int
	BypassToken string
}

// Policy derives the gate's rate-limit policy from the loaded configuration.
func (c *Config) Policy() RateLimitPolicy {
	return RateLimitPolicy{
		Enabled:     c.RateLimitEnabled,
		RPM:         c.RateLimitRPM,
		BypassToken: c.BypassToken,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
