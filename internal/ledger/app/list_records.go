package app

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/finbase/finance-ledger/internal/domain"
)

// ListRecordsResult is returned by ListRecords on success. Total counts the
// account's active records before the offset/limit window is applied.
type ListRecordsResult struct {
	Records   []Record
	Total     int
	Offset    int
	Limit     int
	AccountID string
}

// ListRecords returns a page of the active financial records belonging to
// the given account. Deactivated records never appear.
func (s *LedgerService) ListRecords(ctx context.Context, accountID string, offset, limit int) (*ListRecordsResult, error) {
	ctx, span := tracer.Start(ctx, "ledger.list_records")
	defer span.End()

	offset, limit = normalizePage(offset, limit)
	span.SetAttributes(
		attribute.String("account.id", accountID),
		attribute.Int("page.offset", offset),
		attribute.Int("page.limit", limit),
	)

	if _, err := s.accountStore.GetByID(ctx, accountID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("account %s: %w", accountID, domain.ErrNotFound)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("get account: %w", err)
	}

	records, err := s.recordStore.ListByAccount(ctx, accountID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("list records: %w", err)
	}

	return &ListRecordsResult{
		Records:   pageWindow(records, offset, limit),
		Total:     len(records),
		Offset:    offset,
		Limit:     limit,
		AccountID: accountID,
	}, nil
}
