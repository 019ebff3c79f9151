package domain

import "github.com/shopspring/decimal"

// Currency is a ticker such as "VEN", "USD" or a composite asset ticker.
type Currency string

// CurrencyVen is the base ledger currency every asset is priced against.
const CurrencyVen Currency = "VEN"

// Money is an amount in a specific currency.
type Money struct {
	Amount   decimal.Decimal
	Currency Currency
}

func NewMoney(amount decimal.Decimal, currency Currency) Money {
	return Money{Amount: amount, Currency: currency}
}

func (m Money) MultiplyBy(rate decimal.Decimal) Money {
	return Money{Amount: m.Amount.Mul(rate), Currency: m.Currency}
}

// DivideBy returns the amount divided by the given rate. A zero divisor
// leaves the amount untouched, mirroring the historical ledger behavior.
func (m Money) DivideBy(rate decimal.Decimal) Money {
	if rate.IsZero() {
		return m
	}
	return Money{Amount: m.Amount.Div(rate), Currency: m.Currency}
}

// AmountString renders the amount truncated (not rounded) to four decimal
// places, the precision historical ledger rows were recorded with.
func (m Money) AmountString() string {
	return m.Amount.Truncate(4).StringFixed(4)
}

func (m Money) String() string {
	return m.Amount.Truncate(10).String() + " " + string(m.Currency)
}
