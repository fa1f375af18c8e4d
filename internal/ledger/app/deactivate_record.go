package app

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/finbase/finance-ledger/internal/domain"
	"github.com/finbase/finance-ledger/internal/observability"
)

// DeactivateRecord soft-deletes an active record owned by the given account.
// The record stays in storage but disappears from listings, and a repeated
// deactivation fails with ErrNotFound.
func (s *LedgerService) DeactivateRecord(ctx context.Context, accountID, recordID string) (*Record, error) {
	ctx, span := tracer.Start(ctx, "ledger.deactivate_record")
	defer span.End()
	span.SetAttributes(attribute.String("record.id", recordID))

	logger := observability.WithTraceID(ctx, s.logger)

	current, err := s.recordStore.GetByID(ctx, recordID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("record %s: %w", recordID, domain.ErrNotFound)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("get record: %w", err)
	}
	if !current.Active {
		return nil, fmt.Errorf("record %s: %w", recordID, domain.ErrNotFound)
	}
	if current.AccountID != accountID {
		span.SetStatus(codes.Error, "record owned by another account")
		return nil, fmt.Errorf("record %s: %w", recordID, domain.ErrForbidden)
	}

	deactivated, err := s.recordStore.Deactivate(ctx, recordID, domain.NowRFC3339(s.clock))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("record %s: %w", recordID, domain.ErrNotFound)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("deactivate record: %w", err)
	}

	recordsDeactivatedTotal.Add(ctx, 1)
	logger.InfoContext(ctx, "record deactivated",
		"record_id", recordID, "account_id", accountID)

	return deactivated, nil
}
