package main

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/finbase/finance-ledger/internal/auth"
	"github.com/finbase/finance-ledger/internal/config"
	"github.com/finbase/finance-ledger/internal/domain"
	"github.com/finbase/finance-ledger/internal/dynamo"
	"github.com/finbase/finance-ledger/internal/ledger/adapter"
	"github.com/finbase/finance-ledger/internal/ledger/app"
	"github.com/finbase/finance-ledger/internal/ledger/port"
	"github.com/finbase/finance-ledger/internal/redis"
	"github.com/finbase/finance-ledger/internal/server"
)

// Table names match the LocalStack init script (scripts/localstack-init.sh).
const (
	accountsTable = "accounts"
	recordsTable  = "financial_records"
)

// JWT issuer/audience match the domain convention.
const (
	jwtIssuer   = "finance-ledger"
	jwtAudience = "ledger-api"
)

// setup is the ledger service composition root. It creates infrastructure
// clients, adapters, the ledger service, and registers the HTTP routes with
// CORS, rate limiting, and request logging.
func setup(ctx context.Context, deps server.SetupDeps) (func(context.Context) error, error) {
	cfg := deps.Config
	logger := deps.Logger

	// 1. Infrastructure clients.
	dynamoClient, err := dynamo.NewClient(ctx, dynamo.Config{
		Endpoint: cfg.DynamoDB.Endpoint,
		Region:   cfg.AWS.Region,
		Timeout:  cfg.DynamoDB.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("ledger setup: create dynamo client: %w", err)
	}

	redisClient := redis.NewClient(redis.Config{
		Addr:         cfg.Redis.Addr,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		ReadTimeout:  cfg.Redis.Timeout,
		WriteTimeout: cfg.Redis.Timeout,
	})

	// 2. Adapters.
	clock := domain.RealClock{}
	accountStore := adapter.NewAccountStore(dynamoClient.DB, accountsTable)
	recordStore := adapter.NewRecordStore(dynamoClient.DB, recordsTable)
	rateLimiter := adapter.NewRateLimiter(redisClient.RDB)

	// 3. Token issuer (environment-dependent secret).
	secret, err := tokenSecret(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("ledger setup: token secret: %w", err)
	}

	issuer := auth.NewTokenIssuer(auth.TokenIssuerConfig{
		Secret:   secret,
		TTL:      cfg.Auth.TokenTTL,
		Issuer:   jwtIssuer,
		Audience: jwtAudience,
		Clock:    clock,
	})

	// 4. Ledger service.
	svc := app.NewLedgerService(app.LedgerServiceConfig{
		AccountStore: accountStore,
		RecordStore:  recordStore,
		Issuer:       issuer,
		Clock:        clock,
		Logger:       logger,
	})

	// 5. HTTP routes behind the shared middleware stack.
	apiMux := http.NewServeMux()
	port.NewLedgerHandler(svc, issuer).Register(apiMux)

	deps.HTTPMux.Handle("/v1/", port.Chain(apiMux,
		port.RequestLogger(logger),
		port.CORS,
		port.RateLimit(rateLimiter, cfg.Ledger.RateLimit, int(cfg.Ledger.RateLimitWindow.Seconds()), logger),
	))

	logger.InfoContext(ctx, "ledger service initialized")

	cleanup := func(_ context.Context) error {
		return redisClient.Close()
	}

	return cleanup, nil
}

// tokenSecret returns the signing secret for access tokens.
// Local: generates an ephemeral secret when none is configured, so restarts
// invalidate outstanding tokens.
func tokenSecret(cfg *config.Config, logger *slog.Logger) ([]byte, error) {
	if cfg.Auth.TokenSecret != "" {
		return []byte(cfg.Auth.TokenSecret), nil
	}
	if !cfg.IsLocal() {
		return nil, fmt.Errorf("auth.token_secret is required outside local: %w", domain.ErrConfigRequired)
	}

	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("generate ephemeral secret: %w", err)
	}
	logger.Info("using ephemeral token secret for local development")
	return secret, nil
}
