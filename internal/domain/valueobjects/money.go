// Package valueobjects - Money is the price/cost value object of the catalog.
//
// SOLID Principles:
// - SRP: Money knows how to be Money (parsing, arithmetic, comparison, formatting)
// - OCP: Can extend with new operations without modifying existing code
package valueobjects

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

// Scale is the number of decimal places kept by the store (numeric(19,4)).
const Scale = 4

// Money represents a monetary amount in the catalog currency.
// Uses big.Rat for arbitrary precision to avoid floating-point errors.
//
// Value Object Pattern:
// - Immutable: All operations return new Money instances
// - The zero value is a valid zero amount
type Money struct {
	amount *big.Rat
}

// Common domain errors for Money operations
var (
	ErrInvalidAmount = errors.New("invalid amount format")
)

// NewMoney creates a Money instance from a decimal string (e.g., "100.50", "-0.001").
// Range rules (e.g. non-negative prices) are validation concerns, not construction ones.
func NewMoney(amountStr string) (Money, error) {
	amount := new(big.Rat)
	if _, ok := amount.SetString(strings.TrimSpace(amountStr)); !ok {
		return Money{}, fmt.Errorf("%w: %s", ErrInvalidAmount, amountStr)
	}
	return Money{amount: amount}, nil
}

// MustMoney is NewMoney for literals known to be valid. Panics otherwise.
func MustMoney(amountStr string) Money {
	m, err := NewMoney(amountStr)
	if err != nil {
		panic(err)
	}
	return m
}

// MoneyFromFloat creates Money from the shortest decimal representation of f.
func MoneyFromFloat(f float64) Money {
	m, err := NewMoney(strconv.FormatFloat(f, 'f', -1, 64))
	if err != nil {
		return Zero()
	}
	return m
}

// Zero creates a zero money amount.
func Zero() Money {
	return Money{amount: new(big.Rat)}
}

func (m Money) rat() *big.Rat {
	if m.amount == nil {
		return new(big.Rat)
	}
	return m.amount
}

// Amount returns the amount as a big.Rat.
// Returns a copy to maintain immutability.
func (m Money) Amount() *big.Rat {
	return new(big.Rat).Set(m.rat())
}

// Decimal renders the amount with exactly Scale decimal places (storage format).
func (m Money) Decimal() string {
	return m.rat().FloatString(Scale)
}

// String returns the amount without insignificant trailing zeros.
// Example: "999.9", "1059.31", "0"
func (m Money) String() string {
	s := m.Decimal()
	if strings.Contains(s, ".") {
		s = strings.TrimRight(s, "0")
		s = strings.TrimSuffix(s, ".")
	}
	if s == "-0" {
		return "0"
	}
	return s
}

// Float64 returns the amount as float64.
// WARNING: Use only for display and range checks, not for calculations!
func (m Money) Float64() float64 {
	f, _ := m.rat().Float64()
	return f
}

// Add returns a new Money with the sum of two amounts.
func (m Money) Add(other Money) Money {
	return Money{amount: new(big.Rat).Add(m.rat(), other.rat())}
}

// Subtract returns a new Money with the difference.
func (m Money) Subtract(other Money) Money {
	return Money{amount: new(big.Rat).Sub(m.rat(), other.rat())}
}

// Multiply returns a new Money multiplied by a factor.
func (m Money) Multiply(factor *big.Rat) Money {
	return Money{amount: new(big.Rat).Mul(m.rat(), factor)}
}

// IsZero returns true if the amount is zero.
func (m Money) IsZero() bool {
	return m.rat().Sign() == 0
}

// IsNegative returns true if the amount is below zero.
func (m Money) IsNegative() bool {
	return m.rat().Sign() < 0
}

// Cmp compares two amounts (-1, 0, +1).
func (m Money) Cmp(other Money) int {
	return m.rat().Cmp(other.rat())
}

// GreaterThan checks if this money is greater than another.
func (m Money) GreaterThan(other Money) bool {
	return m.Cmp(other) > 0
}

// LessThan checks if this money is less than another.
func (m Money) LessThan(other Money) bool {
	return m.Cmp(other) < 0
}

// Equals checks if two money values are equal at storage precision.
func (m Money) Equals(other Money) bool {
	return m.Decimal() == other.Decimal()
}

// MarshalJSON renders the amount as a JSON number.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts a JSON number or a quoted decimal string.
func (m *Money) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*m = Zero()
		return nil
	}
	text := string(data)
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
	}
	parsed, err := NewMoney(text)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
