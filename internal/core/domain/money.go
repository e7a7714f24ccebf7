package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Money is an immutable amount in a single currency. Equality is by value.
type Money struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

// NewMoney validates and builds a Money value. The amount must be
// non-negative and the currency a 3-letter ISO-4217 code.
func NewMoney(amount decimal.Decimal, currency string) (Money, error) {
	if amount.IsNegative() {
		return Money{}, fmt.Errorf("money amount must not be negative, got %s", amount)
	}
	if len(currency) != 3 {
		return Money{}, fmt.Errorf("currency must be a 3-letter ISO code, got %q", currency)
	}
	for _, r := range currency {
		if r < 'A' || r > 'Z' {
			return Money{}, fmt.Errorf("currency must be uppercase letters, got %q", currency)
		}
	}
	return Money{Amount: amount, Currency: currency}, nil
}

// MustMoney builds a Money value or panics. Intended for tests and constants.
func MustMoney(amount string, currency string) Money {
	m, err := NewMoney(decimal.RequireFromString(amount), currency)
	if err != nil {
		panic(err)
	}
	return m
}

// Add returns the sum of two Money values of the same currency.
func (m Money) Add(o Money) (Money, error) {
	if m.Currency != o.Currency {
		return Money{}, fmt.Errorf("currency mismatch: %s vs %s", m.Currency, o.Currency)
	}
	return Money{Amount: m.Amount.Add(o.Amount), Currency: m.Currency}, nil
}

// Sub returns the difference of two Money values of the same currency.
// The result may not be negative.
func (m Money) Sub(o Money) (Money, error) {
	if m.Currency != o.Currency {
		return Money{}, fmt.Errorf("currency mismatch: %s vs %s", m.Currency, o.Currency)
	}
	res := m.Amount.Sub(o.Amount)
	if res.IsNegative() {
		return Money{}, fmt.Errorf("subtraction result is negative: %s - %s", m.Amount, o.Amount)
	}
	return Money{Amount: res, Currency: m.Currency}, nil
}

// Equals reports value equality.
func (m Money) Equals(o Money) bool {
	return m.Currency == o.Currency && m.Amount.Equal(o.Amount)
}

// GreaterThan reports whether m exceeds o. Both must share a currency;
// mismatched currencies are never comparable and report false.
func (m Money) GreaterThan(o Money) bool {
	return m.Currency == o.Currency && m.Amount.GreaterThan(o.Amount)
}

// IsZero reports whether the amount is exactly zero.
func (m Money) IsZero() bool {
	return m.Amount.IsZero()
}

// IsPositive reports whether the amount is strictly positive.
func (m Money) IsPositive() bool {
	return m.Amount.IsPositive()
}

func (m Money) String() string {
	return m.Amount.String() + " " + m.Currency
}
