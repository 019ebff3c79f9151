package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestWeightingPercentageAmount(t *testing.T) {
	w := Weighting{
		CurrencyName:   "USD",
		CurrencyAmount: decimal.NewFromInt(150),
		Percentage:     decimal.NewFromInt(30),
	}
	require.True(t, w.PercentageAmount().Equal(decimal.NewFromInt(45)))

	// 100 / 100 * 33.3333333 truncates at four decimal places
	w = Weighting{
		CurrencyAmount: decimal.NewFromInt(100),
		Percentage:     decimal.RequireFromString("33.3333333"),
	}
	require.Equal(t, "33.3333", w.PercentageAmount().String())
}

func TestMoneyAmountString(t *testing.T) {
	m := NewMoney(decimal.RequireFromString("12.34567"), CurrencyVen)
	require.Equal(t, "12.3456", m.AmountString(), "amount is truncated, not rounded")
}

func TestMoneyDivideByZeroLeavesAmount(t *testing.T) {
	m := NewMoney(decimal.NewFromInt(10), "USD")
	require.True(t, m.DivideBy(decimal.Zero).Amount.Equal(decimal.NewFromInt(10)))
}
