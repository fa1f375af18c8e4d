package app

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/finbase/finance-ledger/internal/auth"
	"github.com/finbase/finance-ledger/internal/domain"
)

var tracer = otel.Tracer("ledger/app")

var (
	accountsCreatedTotal    metric.Int64Counter
	accountAccessTotal      metric.Int64Counter
	recordsCreatedTotal     metric.Int64Counter
	recordsUpdatedTotal     metric.Int64Counter
	recordsDeactivatedTotal metric.Int64Counter
	validationFailuresTotal metric.Int64Counter
)

func init() {
	m := otel.Meter("ledger/app")

	accountsCreatedTotal, _ = m.Int64Counter("ledger_accounts_created_total",
		metric.WithDescription("Total accounts created"))
	accountAccessTotal, _ = m.Int64Counter("ledger_account_access_total",
		metric.WithDescription("Total account access requests"))
	recordsCreatedTotal, _ = m.Int64Counter("ledger_records_created_total",
		metric.WithDescription("Total financial records created"))
	recordsUpdatedTotal, _ = m.Int64Counter("ledger_records_updated_total",
		metric.WithDescription("Total financial records updated"))
	recordsDeactivatedTotal, _ = m.Int64Counter("ledger_records_deactivated_total",
		metric.WithDescription("Total financial records deactivated"))
	validationFailuresTotal, _ = m.Int64Counter("ledger_validation_failures_total",
		metric.WithDescription("Total input validation failures"))
}

// Account represents a CPF-keyed account.
// Structurally mirrors the adapter record; the wiring layer converts between them.
type Account struct {
	AccountID string
	CPF       string
	CreatedAt string
	UpdatedAt string
}

// Record represents a financial record belonging to an account.
// SettledDate is an empty string when the record has not been settled.
type Record struct {
	RecordID      string
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
	Active        bool
	CreatedAt     string
	UpdatedAt     string
}

// AccountStore persists and retrieves accounts.
type AccountStore interface {
	GetByID(ctx context.Context, accountID string) (*Account, error)
	FindByCPF(ctx context.Context, cpf string) (*Account, error)
	Create(ctx context.Context, account Account) error
	List(ctx context.Context) ([]Account, error)
}

// RecordStore persists and retrieves financial records.
type RecordStore interface {
	Create(ctx context.Context, record Record) error
	GetByID(ctx context.Context, recordID string) (*Record, error)
	ListByAccount(ctx context.Context, accountID string) ([]Record, error)
	Update(ctx context.Context, record Record) (*Record, error)
	Deactivate(ctx context.Context, recordID, updatedAt string) (*Record, error)
}

// LedgerServiceConfig holds the dependencies for LedgerService.
type LedgerServiceConfig struct {
	AccountStore AccountStore
	RecordStore  RecordStore
	Issuer       *auth.TokenIssuer
	Clock        domain.Clock
	Logger       *slog.Logger
}

// LedgerService orchestrates the account and financial record flows.
type LedgerService struct {
	accountStore AccountStore
	recordStore  RecordStore
	issuer       *auth.TokenIssuer
	clock        domain.Clock
	logger       *slog.Logger
}

// NewLedgerService creates a new LedgerService with the given dependencies.
func NewLedgerService(cfg LedgerServiceConfig) *LedgerService {
	return &LedgerService{
		accountStore: cfg.AccountStore,
		recordStore:  cfg.RecordStore,
		issuer:       cfg.Issuer,
		clock:        cfg.Clock,
		logger:       cfg.Logger,
	}
}
