package domain

import "time"

// Normative limits for the ledger API. These are compiled defaults;
// the rate limit and pagination values can be overridden via configuration.
const (
	// Rate limiting (per client IP, fixed window)
	RequestRateLimit  = 30
	RequestRateWindow = 60 * time.Second

	// Pagination
	DefaultPageSize = 10
	MaxPageSize     = 100

	// Field length caps
	MaxCategoryLength      = 100
	MaxPaymentMethodLength = 100
	MaxDescriptionLength   = 500
	MaxNoteLength          = 500

	// Token configuration
	AccessTokenLifetime = 1 * time.Hour

	// Timeout contracts for infrastructure calls
	DynamoDBTimeout = 5 * time.Second
	RedisTimeout    = 2 * time.Second

	// Graceful shutdown
	ShutdownDrainDelay      = 1 * time.Second
	ShutdownHTTPTimeout     = 10 * time.Second
	ShutdownOTELTimeout     = 5 * time.Second
	GracefulShutdownTimeout = 30 * time.Second
)

// RecordType classifies a financial record as money in or money out.
type RecordType string

const (
	RecordTypeIncome  RecordType = "income"
	RecordTypeExpense RecordType = "expense"
)

// IsValidRecordType checks if a record type is supported.
func IsValidRecordType(rt RecordType) bool {
	return rt == RecordTypeIncome || rt == RecordTypeExpense
}

// RecordStatus represents the settlement state of a financial record.
type RecordStatus string

const (
	RecordStatusPending  RecordStatus = "pending"
	RecordStatusPaid     RecordStatus = "paid"
	RecordStatusOverdue  RecordStatus = "overdue"
	RecordStatusCanceled RecordStatus = "canceled"
)

// IsValidRecordStatus checks if a record status is valid.
func IsValidRecordStatus(rs RecordStatus) bool {
	switch rs {
	case RecordStatusPending, RecordStatusPaid, RecordStatusOverdue, RecordStatusCanceled:
		return true
	}
	return false
}
