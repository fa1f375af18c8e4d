package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/finbase/finance-ledger/internal/domain"
)

func TestIsValidRecordType(t *testing.T) {
	assert.True(t, domain.IsValidRecordType(domain.RecordTypeIncome))
	assert.True(t, domain.IsValidRecordType(domain.RecordTypeExpense))
	assert.False(t, domain.IsValidRecordType("transfer"))
	assert.False(t, domain.IsValidRecordType(""))
}

func TestIsValidRecordStatus(t *testing.T) {
	valid := []domain.RecordStatus{
		domain.RecordStatusPending,
		domain.RecordStatusPaid,
		domain.RecordStatusOverdue,
		domain.RecordStatusCanceled,
	}
	for _, rs := range valid {
		assert.True(t, domain.IsValidRecordStatus(rs), "status %q should be valid", rs)
	}

	assert.False(t, domain.IsValidRecordStatus("settled"))
	assert.False(t, domain.IsValidRecordStatus(""))
}
