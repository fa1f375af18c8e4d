package config_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finbase/finance-ledger/internal/config"
	"github.com/finbase/finance-ledger/internal/domain"
)

func TestDefaults(t *testing.T) {
	cfg, err := config.Load(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "local", cfg.Environment)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)

	// Service defaults
	assert.Equal(t, 8080, cfg.Ledger.HTTPPort)
	assert.Equal(t, 9090, cfg.Ledger.GRPCPort)
	assert.Equal(t, domain.RequestRateLimit, cfg.Ledger.RateLimit)
	assert.Equal(t, domain.RequestRateWindow, cfg.Ledger.RateLimitWindow)

	// Infrastructure defaults
	assert.Equal(t, domain.DynamoDBTimeout, cfg.DynamoDB.Timeout)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 0, cfg.Redis.DB)
	assert.Equal(t, domain.RedisTimeout, cfg.Redis.Timeout)
	assert.Equal(t, "us-east-1", cfg.AWS.Region)

	// Auth defaults
	assert.Empty(t, cfg.Auth.TokenSecret)
	assert.Equal(t, domain.AccessTokenLifetime, cfg.Auth.TokenTTL)
}

func TestIsLocal(t *testing.T) {
	tests := []struct {
		name string
		env  string
		want bool
	}{
		{"local returns true", "local", true},
		{"prod returns false", "prod", false},
		{"dev returns false", "dev", false},
		{"empty returns false", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{Environment: tt.env}

			assert.Equal(t, tt.want, cfg.IsLocal())
		})
	}
}

func TestIsProd(t *testing.T) {
	tests := []struct {
		name string
		env  string
		want bool
	}{
		{"prod returns true", "prod", true},
		{"local returns false", "local", false},
		{"dev returns false", "dev", false},
		{"empty returns false", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{Environment: tt.env}

			assert.Equal(t, tt.want, cfg.IsProd())
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("LEDGER_HTTP_PORT", "8000")
	t.Setenv("LEDGER_RATE_LIMIT_WINDOW", "30s")
	t.Setenv("AUTH_TOKEN_SECRET", "test-secret-0123456789abcdef0123")
	t.Setenv("REDIS_ADDR", "redis.internal:6379")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := config.Load(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 8000, cfg.Ledger.HTTPPort)
	assert.Equal(t, 30*time.Second, cfg.Ledger.RateLimitWindow)
	assert.Equal(t, "test-secret-0123456789abcdef0123", cfg.Auth.TokenSecret)
	assert.Equal(t, "redis.internal:6379", cfg.Redis.Addr)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestValidateRequired_LocalAllowsMissingFields(t *testing.T) {
	t.Setenv("ENVIRONMENT", "local")

	cfg, err := config.Load(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "local", cfg.Environment)
}

func TestValidateRequired_ProdRequiresTokenSecret(t *testing.T) {
	t.Setenv("ENVIRONMENT", "prod")

	_, err := config.Load(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConfigRequired)
}

func TestValidateRequired_ProdStartsWithSecretFromEnv(t *testing.T) {
	t.Setenv("ENVIRONMENT", "prod")
	t.Setenv("AUTH_TOKEN_SECRET", "s3cret")
	t.Setenv("LEDGER_HTTP_PORT", "8000")

	cfg, err := config.Load(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "s3cret", cfg.Auth.TokenSecret)
	assert.Equal(t, 8000, cfg.Ledger.HTTPPort)
}
