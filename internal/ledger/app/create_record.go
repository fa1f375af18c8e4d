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

const dateLayout = "2006-01-02"

// CreateRecordParams holds the inputs for a new financial record. Status
// defaults to pending when empty; SettledDate may be empty.
type CreateRecordParams struct {
	AccountID     string
	Type          string
	Category      string
	Amount        float64
	PaymentMethod string
	Description   string
	DueDate       string
	SettledDate   string
	Status        string
	Note          string
}

// CreateRecord validates the inputs, confirms the owning account exists, and
// persists a new active financial record.
func (s *LedgerService) CreateRecord(ctx context.Context, params CreateRecordParams) (*Record, error) {
	ctx, span := tracer.Start(ctx, "ledger.create_record")
	defer span.End()

	logger := observability.WithTraceID(ctx, s.logger)

	if params.Status == "" {
		params.Status = string(domain.RecordStatusPending)
	}

	if err := validateRecordFields(params.Type, params.Status, params.Amount, params.Category,
		params.PaymentMethod, params.Description, params.Note); err != nil {
		validationFailuresTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", "create_record")))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if params.DueDate == "" {
		validationFailuresTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("field", "due_date")))
		return nil, domain.ErrMissingDueDate
	}
	if err := validateDates(params.DueDate, params.SettledDate); err != nil {
		validationFailuresTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("field", "date")))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if _, err := s.accountStore.GetByID(ctx, params.AccountID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("account %s: %w", params.AccountID, domain.ErrNotFound)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("get account: %w", err)
	}

	now := domain.NowRFC3339(s.clock)
	record := Record{
		RecordID:      uuid.NewString(),
		AccountID:     params.AccountID,
		Type:          params.Type,
		Category:      params.Category,
		Amount:        params.Amount,
		PaymentMethod: params.PaymentMethod,
		Description:   params.Description,
		DueDate:       params.DueDate,
		SettledDate:   params.SettledDate,
		Status:        params.Status,
		Note:          params.Note,
		Active:        true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.recordStore.Create(ctx, record); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("create record: %w", err)
	}

	recordsCreatedTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("type", record.Type)))
	span.SetAttributes(attribute.String("record.id", record.RecordID))
	logger.InfoContext(ctx, "record created",
		"record_id", record.RecordID, "account_id", record.AccountID, "type", record.Type)

	return &record, nil
}

// validateRecordFields checks the enumerated and bounded fields shared by
// create and update.
func validateRecordFields(recordType, status string, amount float64, category, paymentMethod, description, note string) error {
	if !domain.IsValidRecordType(domain.RecordType(recordType)) {
		return fmt.Errorf("record type %q: %w", recordType, domain.ErrInvalidType)
	}
	if !domain.IsValidRecordStatus(domain.RecordStatus(status)) {
		return fmt.Errorf("status %q: %w", status, domain.ErrInvalidStatus)
	}
	if amount <= 0 {
		return fmt.Errorf("amount must be positive: %w", domain.ErrInvalidAmount)
	}
	if category == "" {
		return fmt.Errorf("category is required: %w", domain.ErrInvalidInput)
	}
	if len(category) > domain.MaxCategoryLength {
		return fmt.Errorf("category exceeds %d characters: %w", domain.MaxCategoryLength, domain.ErrInvalidInput)
	}
	if paymentMethod == "" {
		return fmt.Errorf("payment method is required: %w", domain.ErrInvalidInput)
	}
	if len(paymentMethod) > domain.MaxPaymentMethodLength {
		return fmt.Errorf("payment method exceeds %d characters: %w", domain.MaxPaymentMethodLength, domain.ErrInvalidInput)
	}
	if len(description) > domain.MaxDescriptionLength {
		return fmt.Errorf("description exceeds %d characters: %w", domain.MaxDescriptionLength, domain.ErrInvalidInput)
	}
	if len(note) > domain.MaxNoteLength {
		return fmt.Errorf("note exceeds %d characters: %w", domain.MaxNoteLength, domain.ErrInvalidInput)
	}
	return nil
}

// validateDates checks that dueDate, and settledDate when present, are
// calendar dates in YYYY-MM-DD form.
func validateDates(dueDate, settledDate string) error {
	if _, err := time.Parse(dateLayout, dueDate); err != nil {
		return fmt.Errorf("due date %q: %w", dueDate, domain.ErrInvalidInput)
	}
	if settledDate != "" {
		if _, err := time.Parse(dateLayout, settledDate); err != nil {
			return fmt.Errorf("settled date %q: %w", settledDate, domain.ErrInvalidInput)
		}
	}
	return nil
}
