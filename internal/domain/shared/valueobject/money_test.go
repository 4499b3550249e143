package valueobject

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCurrency(t *testing.T) {
	t.Run("accepts ISO codes case-insensitively", func(t *testing.T) {
		c, err := ParseCurrency("aed")
		require.NoError(t, err)
		assert.Equal(t, Currency("AED"), c)
	})

	t.Run("rejects unknown codes", func(t *testing.T) {
		_, err := ParseCurrency("XX1")
		assert.Error(t, err)
	})
}

func TestCurrencyScale(t *testing.T) {
	assert.Equal(t, int32(2), Currency("EUR").Scale())
	assert.Equal(t, int32(0), Currency("JPY").Scale())
}

func TestExchangeRate(t *testing.T) {
	_, err := NewExchangeRate(decimal.Zero)
	assert.Error(t, err)

	rate, err := NewExchangeRate(decimal.RequireFromString("3.6725"))
	require.NoError(t, err)
	assert.True(t, rate.ToBase(decimal.NewFromInt(100)).Equal(decimal.RequireFromString("367.25")))

	var unset ExchangeRate
	assert.True(t, unset.Decimal().Equal(decimal.NewFromInt(1)))
}

func TestMoney(t *testing.T) {
	tests := []struct {
		amount    string
		currency  Currency
		rounded   string
		formatted string
	}{
		{"4.16625", "USD", "4.17", "4.17"},
		{"10.125", "USD", "10.12", "10.13"},
		{"10.135", "EUR", "10.14", "10.14"},
		{"1234.5", "JPY", "1234", "1235"},
		{"0.005", "", "0", "0.01"},
		{"7", "EUR", "7", "7.00"},
	}
	for _, tt := range tests {
		t.Run(tt.amount+" "+string(tt.currency), func(t *testing.T) {
			m := NewMoney(decimal.RequireFromString(tt.amount), tt.currency)
			rounded := m.Round()
			assert.True(t, rounded.Amount().Equal(decimal.RequireFromString(tt.rounded)), rounded.Amount().String())
			assert.Equal(t, tt.currency, rounded.Currency())
			assert.Equal(t, tt.formatted, m.Format())
		})
	}

	assert.Equal(t, "140.25 USD", NewMoney(decimal.RequireFromString("140.25"), "USD").String())
}
