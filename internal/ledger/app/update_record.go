package app

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"

	"github.com/finbase/finance-ledger/internal/domain"
	"github.com/finbase/finance-ledger/internal/observability"
)

// UpdateRecordParams holds the partial update for a financial record. Nil
// fields keep their stored values; a non-nil empty SettledDate or Note
// clears the field.
type UpdateRecordParams struct {
	Type          *string
	Category      *string
	Amount        *float64
	PaymentMethod *string
	Description   *string
	DueDate       *string
	SettledDate   *string
	Status        *string
	Note          *string
}

// UpdateRecord applies a partial update to an active record owned by the
// given account. Updating a record owned by another account fails with
// ErrForbidden; deactivated records are invisible and fail with ErrNotFound.
func (s *LedgerService) UpdateRecord(ctx context.Context, accountID, recordID string, params UpdateRecordParams) (*Record, error) {
	ctx, span := tracer.Start(ctx, "ledger.update_record")
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

	merged := *current
	if params.Type != nil {
		merged.Type = *params.Type
	}
	if params.Category != nil {
		merged.Category = *params.Category
	}
	if params.Amount != nil {
		merged.Amount = *params.Amount
	}
	if params.PaymentMethod != nil {
		merged.PaymentMethod = *params.PaymentMethod
	}
	if params.Description != nil {
		merged.Description = *params.Description
	}
	if params.DueDate != nil {
		merged.DueDate = *params.DueDate
	}
	if params.SettledDate != nil {
		merged.SettledDate = *params.SettledDate
	}
	if params.Status != nil {
		merged.Status = *params.Status
	}
	if params.Note != nil {
		merged.Note = *params.Note
	}

	if err := validateRecordFields(merged.Type, merged.Status, merged.Amount, merged.Category,
		merged.PaymentMethod, merged.Description, merged.Note); err != nil {
		validationFailuresTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", "update_record")))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if merged.DueDate == "" {
		validationFailuresTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("field", "due_date")))
		return nil, domain.ErrMissingDueDate
	}
	if err := validateDates(merged.DueDate, merged.SettledDate); err != nil {
		validationFailuresTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("field", "date")))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	merged.UpdatedAt = domain.NowRFC3339(s.clock)

	updated, err := s.recordStore.Update(ctx, merged)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// Deactivated between the read and the conditional write.
			return nil, fmt.Errorf("record %s: %w", recordID, domain.ErrNotFound)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("update record: %w", err)
	}

	recordsUpdatedTotal.Add(ctx, 1)
	logger.InfoContext(ctx, "record updated",
		"record_id", recordID, "account_id", accountID)

	return updated, nil
}
