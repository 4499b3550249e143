package valueobject

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// Currency is an ISO 4217 currency code
type Currency string

// ParseCurrency validates an ISO 4217 code and returns its canonical form
func ParseCurrency(code string) (Currency, error) {
	unit, err := currency.ParseISO(strings.TrimSpace(code))
	if err != nil {
		return "", fmt.Errorf("invalid currency code %q: %w", code, err)
	}
	return Currency(unit.String()), nil
}

// Scale returns the number of minor-unit digits for the currency (2 for EUR,
// 0 for JPY). Unknown codes fall back to 2.
func (c Currency) Scale() int32 {
	unit, err := currency.ParseISO(string(c))
	if err != nil {
		return 2
	}
	scale, _ := currency.Standard.Rounding(unit)
	return int32(scale)
}

func (c Currency) String() string {
	return string(c)
}

// ExchangeRate converts document-currency amounts into base currency
type ExchangeRate struct {
	rate decimal.Decimal
}

// NewExchangeRate rejects zero and negative rates
func NewExchangeRate(rate decimal.Decimal) (ExchangeRate, error) {
	if !rate.IsPositive() {
		return ExchangeRate{}, errors.New("exchange rate must be positive")
	}
	return ExchangeRate{rate: rate}, nil
}

// IdentityRate is the rate of a document already in base currency
func IdentityRate() ExchangeRate {
	return ExchangeRate{rate: decimal.NewFromInt(1)}
}

// Decimal returns the raw multiplier
func (r ExchangeRate) Decimal() decimal.Decimal {
	if r.rate.IsZero() {
		return decimal.NewFromInt(1)
	}
	return r.rate
}

// ToBase multiplies a document-currency amount by the rate
func (r ExchangeRate) ToBase(amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(r.Decimal())
}

// Money is an immutable amount in a specific currency. An empty or unknown
// currency rounds at two decimals.
type Money struct {
	amount   decimal.Decimal
	currency Currency
}

// NewMoney creates Money in the given currency
func NewMoney(amount decimal.Decimal, cur Currency) Money {
	return Money{amount: amount, currency: cur}
}

func (m Money) Amount() decimal.Decimal { return m.amount }
func (m Money) Currency() Currency      { return m.currency }

// Round rounds half-even to the currency's minor unit
func (m Money) Round() Money {
	return Money{amount: m.amount.RoundBank(m.currency.Scale()), currency: m.currency}
}

// Format renders the amount at the currency's minor-unit scale
func (m Money) Format() string {
	return m.amount.StringFixed(m.currency.Scale())
}

func (m Money) String() string {
	return m.Format() + " " + string(m.currency)
}
