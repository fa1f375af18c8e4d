package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"

	"github.com/finbase/finance-ledger/internal/domain"
	"github.com/finbase/finance-ledger/internal/observability"
)

// AccessAccountResult is returned by AccessAccount on success.
type AccessAccountResult struct {
	Account      Account
	AccessToken  string
	TokenExpiry  time.Time
	IsNewAccount bool
}

// AccessAccount resolves the account for a CPF, creating it on first access,
// and mints an access token scoped to that account. The CPF is validated and
// canonicalized before any lookup, so formatted and bare inputs resolve to
// the same account.
func (s *LedgerService) AccessAccount(ctx context.Context, cpf string) (*AccessAccountResult, error) {
	ctx, span := tracer.Start(ctx, "ledger.access_account")
	defer span.End()

	logger := observability.WithTraceID(ctx, s.logger)

	parsed, err := domain.NewCPF(cpf)
	if err != nil {
		validationFailuresTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("field", "cpf")))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	isNew := false
	account, err := s.accountStore.FindByCPF(ctx, parsed.String())
	switch {
	case err == nil:
		// Existing account.
	case errors.Is(err, domain.ErrNotFound):
		now := domain.NowRFC3339(s.clock)
		created := Account{
			AccountID: uuid.NewString(),
			CPF:       parsed.String(),
			CreatedAt: now,
			UpdatedAt: now,
		}
		if createErr := s.accountStore.Create(ctx, created); createErr != nil {
			// Lost a race with a concurrent first access; re-read the winner.
			if errors.Is(createErr, domain.ErrAlreadyExists) {
				account, err = s.accountStore.FindByCPF(ctx, parsed.String())
				if err != nil {
					span.RecordError(err)
					span.SetStatus(codes.Error, err.Error())
					return nil, fmt.Errorf("find account after create race: %w", err)
				}
				break
			}
			span.RecordError(createErr)
			span.SetStatus(codes.Error, createErr.Error())
			return nil, fmt.Errorf("create account: %w", createErr)
		}
		account = &created
		isNew = true
		accountsCreatedTotal.Add(ctx, 1)
		logger.InfoContext(ctx, "account created", "account_id", created.AccountID)
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("find account by cpf: %w", err)
	}

	minted, err := s.issuer.Mint(account.AccountID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("mint access token: %w", err)
	}

	accountAccessTotal.Add(ctx, 1, metric.WithAttributes(attribute.Bool("new_account", isNew)))
	span.SetAttributes(attribute.String("account.id", account.AccountID))

	return &AccessAccountResult{
		Account:      *account,
		AccessToken:  minted.Token,
		TokenExpiry:  minted.ExpiresAt,
		IsNewAccount: isNew,
	}, nil
}
