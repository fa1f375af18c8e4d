// Package config provides configuration loading using koanf.
// Precedence: environment variables override compiled defaults.
package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"

	"github.com/finbase/finance-ledger/internal/domain"
)

// Config holds all service configuration.
type Config struct {
	// Environment identifier: "local", "dev", "prod"
	Environment string `koanf:"environment"`

	// Logging configuration
	LogLevel  string `koanf:"log_level"`
	LogFormat string `koanf:"log_format"`

	// Service configuration
	Ledger LedgerConfig `koanf:"ledger"`

	// Infrastructure configurations
	DynamoDB DynamoDBConfig `koanf:"dynamodb"`
	Redis    RedisConfig    `koanf:"redis"`
	AWS      AWSConfig      `koanf:"aws"`

	// Auth configuration
	Auth AuthConfig `koanf:"auth"`

	// OpenTelemetry configuration
	OTEL OTELConfig `koanf:"otel"`
}

// LedgerConfig holds the ledger service configuration.
type LedgerConfig struct {
	HTTPPort int `koanf:"http_port"`
	GRPCPort int `koanf:"grpc_port"`

	// RateLimit is the number of requests allowed per client IP per window.
	RateLimit       int           `koanf:"rate_limit"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
}

// DynamoDBConfig holds DynamoDB configuration.
type DynamoDBConfig struct {
	Endpoint string        `koanf:"endpoint"` // Empty for production (uses default AWS endpoint)
	Timeout  time.Duration `koanf:"timeout"`
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Addr     string        `koanf:"addr"` // Required in production
	Password string        `koanf:"password"`
	DB       int           `koanf:"db"`
	Timeout  time.Duration `koanf:"timeout"`
}

// AWSConfig holds AWS SDK configuration.
type AWSConfig struct {
	Region   string `koanf:"region"`
	Endpoint string `koanf:"endpoint"` // LocalStack endpoint for development
}

// AuthConfig holds access token configuration.
type AuthConfig struct {
	// TokenSecret signs HS256 access tokens. Required in production;
	// an ephemeral secret is generated when empty in local environment.
	TokenSecret string        `koanf:"token_secret"`
	TokenTTL    time.Duration `koanf:"token_ttl"`
}

// OTELConfig holds OpenTelemetry configuration.
type OTELConfig struct {
	Endpoint    string `koanf:"endpoint"` // Empty disables OTLP export
	ServiceName string `koanf:"service_name"`
}

// defaults returns a Config with compiled default values.
func defaults() *Config {
	return &Config{
		Environment: "local",
		LogLevel:    "info",
		LogFormat:   "json",

		Ledger: LedgerConfig{
			HTTPPort:        8080,
			GRPCPort:        9090,
			RateLimit:       domain.RequestRateLimit,
			RateLimitWindow: domain.RequestRateWindow,
		},

		DynamoDB: DynamoDBConfig{
			Timeout: domain.DynamoDBTimeout,
		},
		Redis: RedisConfig{
			Addr:    "localhost:6379",
			DB:      0,
			Timeout: domain.RedisTimeout,
		},
		AWS: AWSConfig{
			Region: "us-east-1",
		},
		Auth: AuthConfig{
			TokenTTL: domain.AccessTokenLifetime,
		},
	}
}

// Load loads configuration following the precedence:
// 1. Environment variables (highest)
// 2. Compiled defaults (lowest)
//
// Required keys missing → startup failure; optional keys fall back to defaults.
func Load(ctx context.Context) (*Config, error) {
	k := koanf.New(".")

	// Start with compiled defaults
	cfg := defaults()

	// Load environment variables.
	// Prefix: none (we use full names like LEDGER_HTTP_PORT)
	err := k.Load(env.Provider("", ".", envKey), nil)
	if err != nil {
		return nil, fmt.Errorf("load env vars: %w", err)
	}

	// Unmarshal into config struct
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// Validate required fields
	if err := validateRequired(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// envSections are the config sections addressable from the environment.
// Only the section prefix nests; the remainder of the variable name is the
// leaf key verbatim, so multi-word leaves like LEDGER_HTTP_PORT map to
// ledger.http_port rather than ledger.http.port.
var envSections = map[string]bool{
	"ledger":   true,
	"dynamodb": true,
	"redis":    true,
	"aws":      true,
	"auth":     true,
	"otel":     true,
}

// envKey maps an environment variable name to a koanf config path.
func envKey(s string) string {
	key := strings.ToLower(s)
	if section, rest, ok := strings.Cut(key, "_"); ok && envSections[section] {
		return section + "." + rest
	}
	return key
}

// validateRequired checks that required configuration is present.
func validateRequired(cfg *Config) error {
	// In local environment, everything has a sensible default or an
	// ephemeral substitute.
	if cfg.Environment == "local" {
		return nil
	}

	if cfg.Environment == "prod" {
		if cfg.Redis.Addr == "" {
			return fmt.Errorf("%w: redis.addr", domain.ErrConfigRequired)
		}
		if cfg.Auth.TokenSecret == "" {
			return fmt.Errorf("%w: auth.token_secret", domain.ErrConfigRequired)
		}
	}

	return nil
}

// IsLocal returns true if running in local development environment.
func (c *Config) IsLocal() bool {
	return c.Environment == "local"
}

// IsProd returns true if running in production environment.
func (c *Config) IsProd() bool {
	return c.Environment == "prod"
}
