package domain

import (
	"fmt"
	"strings"
)

// CPF is a value object representing a Brazilian taxpayer registry number
// in canonical 11-digit form. Always valid in memory — use NewCPF to construct.
type CPF struct {
	value string
}

// NewCPF creates a CPF from a raw string. Formatting characters (dots,
// dashes, spaces) are stripped before validation. A CPF must be exactly
// 11 digits, must not be a single repeated digit, and both check digits
// must verify.
func NewCPF(raw string) (CPF, error) {
	digits := stripNonDigits(raw)
	if len(digits) != 11 {
		return CPF{}, fmt.Errorf("CPF must have 11 digits, got %d: %w", len(digits), ErrInvalidCPF)
	}
	if allSameDigit(digits) {
		return CPF{}, fmt.Errorf("CPF %q is a repeated digit sequence: %w", digits, ErrInvalidCPF)
	}
	if !checkDigitsValid(digits) {
		return CPF{}, fmt.Errorf("CPF check digits do not verify: %w", ErrInvalidCPF)
	}
	return CPF{value: digits}, nil
}

// MustCPF creates a CPF, panicking on invalid input. Use only in tests.
func MustCPF(raw string) CPF {
	c, err := NewCPF(raw)
	if err != nil {
		panic(err)
	}
	return c
}

func (c CPF) String() string { return c.value }
func (c CPF) IsZero() bool   { return c.value == "" }

// stripNonDigits removes every non-digit rune from s.
func stripNonDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// allSameDigit reports whether s consists of a single repeated digit
// (e.g. "00000000000"), which passes the check-digit arithmetic but is
// not a valid CPF.
func allSameDigit(s string) bool {
	for i := 1; i < len(s); i++ {
		if s[i] != s[0] {
			return false
		}
	}
	return true
}

// checkDigitsValid verifies the two CPF check digits. The first digit is
// computed over the first nine digits with weights 10..2, the second over
// the first ten with weights 11..2; each digit is (sum*10 mod 11) mod 10.
func checkDigitsValid(digits string) bool {
	sum1 := 0
	for i := 0; i < 9; i++ {
		sum1 += int(digits[i]-'0') * (10 - i)
	}
	digit1 := (sum1 * 10 % 11) % 10

	sum2 := 0
	for i := 0; i < 10; i++ {
		sum2 += int(digits[i]-'0') * (11 - i)
	}
	digit2 := (sum2 * 10 % 11) % 10

	return digit1 == int(digits[9]-'0') && digit2 == int(digits[10]-'0')
}
