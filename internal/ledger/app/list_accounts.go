package app

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// ListAccountsResult is returned by ListAccounts on success. Total is the
// count before the offset/limit window is applied; Offset and Limit echo the
// normalized values actually used.
type ListAccountsResult struct {
	Accounts []Account
	Total    int
	Offset   int
	Limit    int
}

// ListAccounts returns a page of all accounts ordered as stored.
func (s *LedgerService) ListAccounts(ctx context.Context, offset, limit int) (*ListAccountsResult, error) {
	ctx, span := tracer.Start(ctx, "ledger.list_accounts")
	defer span.End()

	offset, limit = normalizePage(offset, limit)
	span.SetAttributes(
		attribute.Int("page.offset", offset),
		attribute.Int("page.limit", limit),
	)

	accounts, err := s.accountStore.List(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("list accounts: %w", err)
	}

	return &ListAccountsResult{
		Accounts: pageWindow(accounts, offset, limit),
		Total:    len(accounts),
		Offset:   offset,
		Limit:    limit,
	}, nil
}
