// Package domain contains pure business logic and types.
// No external dependencies allowed - this is the innermost ring of Clean Architecture.
package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// AccountID is a value object representing a unique account identifier.
// Always valid in memory - use NewAccountID to construct.
type AccountID struct {
	value string
}

// NewAccountID creates an AccountID from a raw string, validating it is a valid UUID.
func NewAccountID(raw string) (AccountID, error) {
	if raw == "" {
		return AccountID{}, ErrEmptyID
	}
	if _, err := uuid.Parse(raw); err != nil {
		return AccountID{}, fmt.Errorf("invalid account ID %q: %w", raw, ErrInvalidID)
	}
	return AccountID{value: raw}, nil
}

// MustAccountID creates an AccountID, panicking on invalid input. Use only in tests.
func MustAccountID(raw string) AccountID {
	id, err := NewAccountID(raw)
	if err != nil {
		panic(err)
	}
	return id
}

// GenerateAccountID creates a new random AccountID.
func GenerateAccountID() AccountID {
	return AccountID{value: uuid.NewString()}
}

func (id AccountID) String() string { return id.value }
func (id AccountID) IsZero() bool   { return id.value == "" }

// RecordID is a value object representing a unique financial record identifier.
type RecordID struct {
	value string
}

// NewRecordID creates a RecordID from a raw string, validating it is a valid UUID.
func NewRecordID(raw string) (RecordID, error) {
	if raw == "" {
		return RecordID{}, ErrEmptyID
	}
	if _, err := uuid.Parse(raw); err != nil {
		return RecordID{}, fmt.Errorf("invalid record ID %q: %w", raw, ErrInvalidID)
	}
	return RecordID{value: raw}, nil
}

// MustRecordID creates a RecordID, panicking on invalid input. Use only in tests.
func MustRecordID(raw string) RecordID {
	id, err := NewRecordID(raw)
	if err != nil {
		panic(err)
	}
	return id
}

// GenerateRecordID creates a new random RecordID.
func GenerateRecordID() RecordID {
	return RecordID{value: uuid.NewString()}
}

func (id RecordID) String() string { return id.value }
func (id RecordID) IsZero() bool   { return id.value == "" }
