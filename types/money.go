// Package types provides the value types shared across Grain.
package types

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Money is a fixed-point decimal amount tagged with an ISO 4217 code.
// Arithmetic between two values panics unless both carry the same currency.
//
// Amounts keep full decimal precision; Round snaps them to the currency's
// minor unit (pence for GBP, none for JPY).
type Money struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"` // upper-case ISO 4217: "GBP", "EUR"
}

// New returns amount in currency.
func New(amount decimal.Decimal, currency string) Money {
	return Money{Amount: amount, Currency: normalize(currency)}
}

// Parse reads a decimal string such as "10.00" into Money.
func Parse(amount, currency string) (Money, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return Money{}, fmt.Errorf("money: parse %q: %w", amount, err)
	}
	return New(d, currency), nil
}

// MustParse is like Parse but panics on error. Use for fixtures.
func MustParse(amount, currency string) Money {
	m, err := Parse(amount, currency)
	if err != nil {
		panic(err)
	}
	return m
}

// FromMinor builds Money from an integer count of minor units.
func FromMinor(minor int64, currency string) Money {
	cur := normalize(currency)
	return Money{Amount: decimal.New(minor, -int32(Fraction(cur))), Currency: cur}
}

// GBP creates Money in pounds sterling from pence.
func GBP(pence int64) Money { return FromMinor(pence, "GBP") }

// EUR creates Money in euros from cents.
func EUR(cents int64) Money { return FromMinor(cents, "EUR") }

// USD creates Money in US dollars from cents.
func USD(cents int64) Money { return FromMinor(cents, "USD") }

// JPY creates Money in yen.
func JPY(yen int64) Money { return FromMinor(yen, "JPY") }

// Zero returns zero in currency.
func Zero(currency string) Money { return Money{Amount: decimal.Zero, Currency: normalize(currency)} }

// Add returns m + other. Panics if currencies differ.
func (m Money) Add(other Money) Money {
	m.assertSameCurrency(other)
	return Money{Amount: m.Amount.Add(other.Amount), Currency: m.Currency}
}

// Subtract returns m - other. Panics if currencies differ.
func (m Money) Subtract(other Money) Money {
	m.assertSameCurrency(other)
	return Money{Amount: m.Amount.Sub(other.Amount), Currency: m.Currency}
}

// Mul scales m by a quantity.
func (m Money) Mul(qty float64) Money {
	return Money{Amount: m.Amount.Mul(decimal.NewFromFloat(qty)), Currency: m.Currency}
}

// Div divides m by a quantity. Panics on zero.
func (m Money) Div(qty float64) Money {
	if qty == 0 {
		panic("money: division by zero")
	}
	return Money{Amount: m.Amount.Div(decimal.NewFromFloat(qty)), Currency: m.Currency}
}

// Negate returns -m.
func (m Money) Negate() Money {
	return Money{Amount: m.Amount.Neg(), Currency: m.Currency}
}

// Abs returns |m|.
func (m Money) Abs() Money {
	return Money{Amount: m.Amount.Abs(), Currency: m.Currency}
}

// Round snaps m to the currency's minor unit.
func (m Money) Round() Money {
	return Money{Amount: m.Amount.Round(int32(Fraction(m.Currency))), Currency: m.Currency}
}

// IsZero reports whether the amount is zero.
func (m Money) IsZero() bool { return m.Amount.IsZero() }

// IsPositive reports whether the amount is greater than zero.
func (m Money) IsPositive() bool { return m.Amount.IsPositive() }

// IsNegative reports whether the amount is less than zero.
func (m Money) IsNegative() bool { return m.Amount.IsNegative() }

// Equal reports numeric equality in the same currency; 10 equals 10.00.
func (m Money) Equal(other Money) bool {
	return m.Currency == other.Currency && m.Amount.Equal(other.Amount)
}

// LessThan panics if currencies differ.
func (m Money) LessThan(other Money) bool {
	m.assertSameCurrency(other)
	return m.Amount.LessThan(other.Amount)
}

// GreaterThan panics if currencies differ.
func (m Money) GreaterThan(other Money) bool {
	m.assertSameCurrency(other)
	return m.Amount.GreaterThan(other.Amount)
}

// SameCurrency reports whether m and other can be combined.
func (m Money) SameCurrency(other Money) bool { return m.Currency == other.Currency }

// FormatMajor renders the rounded amount without a symbol: "10.00", "100".
func (m Money) FormatMajor() string {
	return m.Amount.StringFixed(int32(Fraction(m.Currency)))
}

// String renders the rounded amount with the currency's symbol, e.g. "£10.00".
func (m Money) String() string {
	cur := money.New(0, m.Currency).Currency()
	minor := m.Amount.Shift(int32(cur.Fraction)).Round(0)
	return cur.Formatter().Format(minor.IntPart())
}

// MarshalJSON adds a display string next to the exact amount.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Amount   string `json:"amount"`
		Currency string `json:"currency"`
		Display  string `json:"display"`
	}{
		Amount:   m.Amount.String(),
		Currency: m.Currency,
		Display:  m.String(),
	})
}

// UnmarshalJSON accepts the MarshalJSON form; display is ignored.
func (m *Money) UnmarshalJSON(data []byte) error {
	var raw struct {
		Amount   decimal.Decimal `json:"amount"`
		Currency string          `json:"currency"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("money: unmarshal: %w", err)
	}
	*m = New(raw.Amount, raw.Currency)
	return nil
}

func (m Money) assertSameCurrency(other Money) {
	if m.Currency != other.Currency {
		panic(fmt.Sprintf("money: currency mismatch: %s != %s", m.Currency, other.Currency))
	}
}

// Fraction returns the number of minor-unit digits of currency, 2 if unknown.
func Fraction(currency string) int {
	cur := money.GetCurrency(normalize(currency))
	if cur == nil {
		return 2
	}
	return cur.Fraction
}

// Sum adds values in currency. An empty list sums to Zero(currency).
func Sum(currency string, values ...Money) Money {
	total := Zero(currency)
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}

func normalize(currency string) string {
	return strings.ToUpper(strings.TrimSpace(currency))
}
