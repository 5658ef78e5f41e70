// Package moneypkg provides the monetary value object used across the app.
package moneypkg

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// ErrNegativeAmount indicates a negative monetary amount.
	ErrNegativeAmount = errors.New("negative amount")
	// ErrInvalidCurrency indicates a malformed currency code.
	ErrInvalidCurrency = errors.New("currency must be a 3-letter uppercase code")
	// ErrCurrencyMismatch indicates arithmetic between different currencies.
	ErrCurrencyMismatch = errors.New("currency mismatch")
	// ErrInvalidQuantity indicates a non-positive multiplication factor.
	ErrInvalidQuantity = errors.New("quantity must be positive")
)

// Money holds an amount in minor units (e.g. cents) with its currency code.
// The zero value is 0 units of no currency; construct values with New.
type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// New returns Money after validating amount and currency.
func New(amount int64, currency string) (Money, error) {
	if amount < 0 {
		return Money{}, ErrNegativeAmount
	}

	if !validCurrencyCode(currency) {
		return Money{}, ErrInvalidCurrency
	}

	return Money{Amount: amount, Currency: currency}, nil
}

// Zero returns zero units of the given currency.
func Zero(currency string) (Money, error) {
	return New(0, currency)
}

func validCurrencyCode(currency string) bool {
	if len(currency) != 3 {
		return false
	}

	for i := 0; i < len(currency); i++ {
		if currency[i] < 'A' || currency[i] > 'Z' {
			return false
		}
	}

	return true
}

// SameCurrency returns nil if both values share one currency.
func (m Money) SameCurrency(other Money) error {
	if m.Currency != other.Currency {
		return ErrCurrencyMismatch
	}

	return nil
}

// Add returns the sum of two values of the same currency.
func (m Money) Add(other Money) (Money, error) {
	if err := m.SameCurrency(other); err != nil {
		return Money{}, err
	}

	return New(m.Amount+other.Amount, m.Currency)
}

// Mul returns the value multiplied by a positive quantity.
func (m Money) Mul(quantity int32) (Money, error) {
	if quantity <= 0 {
		return Money{}, ErrInvalidQuantity
	}

	return New(m.Amount*int64(quantity), m.Currency)
}

// Div splits the value by n using banker's rounding on the minor units.
func (m Money) Div(n int64) (Money, error) {
	if n <= 0 {
		return Money{}, ErrInvalidQuantity
	}

	part := decimal.NewFromInt(m.Amount).
		DivRound(decimal.NewFromInt(n), 10).
		RoundBank(0)

	return New(part.IntPart(), m.Currency)
}

// Equal reports whether two values have the same amount and currency.
func (m Money) Equal(other Money) bool {
	return m.Amount == other.Amount && m.Currency == other.Currency
}

// IsZero reports whether the amount is zero.
func (m Money) IsZero() bool {
	return m.Amount == 0
}

// String renders the value for logs, e.g. "1000 USD".
func (m Money) String() string {
	return fmt.Sprintf("%d %s", m.Amount, m.Currency)
}
