package exchange

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/ultracore/internal/domain"
)

// CurrencyRate is the amount of one currency obtainable for 1 Ven.
type CurrencyRate struct {
	CurrencyName  string
	RatePerOneVen decimal.Decimal
}

// RatesProvider supplies the Ven rate table the exchange converts against.
type RatesProvider interface {
	RatesPerOneVen() []CurrencyRate
}

// StaticRatesProvider serves a fixed rate table, typically loaded from
// configuration.
type StaticRatesProvider struct {
	rates []CurrencyRate
}

func NewStaticRatesProvider(rates []CurrencyRate) *StaticRatesProvider {
	return &StaticRatesProvider{rates: rates}
}

func (p *StaticRatesProvider) RatesPerOneVen() []CurrencyRate {
	return p.rates
}

// Exchange converts between Ven, real currencies and composite asset
// currencies. All conversions go through the per-one-Ven rate table.
type Exchange struct {
	rates RatesProvider
}

func New(rates RatesProvider) *Exchange {
	return &Exchange{rates: rates}
}

// ConvertToVen converts any currency amount to Ven.
// If 1 VEN = 2 GBP then 1 GBP = 0.5 VEN.
func (e *Exchange) ConvertToVen(m domain.Money) domain.Money {
	if m.Currency == domain.CurrencyVen {
		return m
	}

	return domain.NewMoney(m.DivideBy(e.rateForOneVen(m.Currency)).Amount, domain.CurrencyVen)
}

// ConvertFromVenToOther converts a Ven amount to another currency.
// If 1 VEN = 2 GBP then 10 VEN = 20 GBP.
func (e *Exchange) ConvertFromVenToOther(m domain.Money, to domain.Currency) domain.Money {
	if m.Currency != domain.CurrencyVen {
		return m
	}

	return domain.NewMoney(m.MultiplyBy(e.rateForOneVen(to)).Amount, to)
}

// ConvertUltraToUltra converts between two non-Ven currencies through Ven.
func (e *Exchange) ConvertUltraToUltra(from domain.Money, to domain.Currency) (domain.Money, error) {
	if from.Currency == domain.CurrencyVen || to == domain.CurrencyVen {
		return domain.Money{}, errors.New("both currencies must be non-Ven")
	}

	return e.ConvertFromVenToOther(e.ConvertToVen(from), to), nil
}

// VenAmountForOneAsset is the Ven price of one unit of the asset. Assets
// priced with a single custom weighting carry the Ven amount directly;
// basket assets go through the rate table.
func (e *Exchange) VenAmountForOneAsset(a *domain.Asset) decimal.Decimal {
	if a.WeightingType != domain.WeightingTypeCurrencyCombo && a.IsWithOneWeighting() {
		return a.Weightings[0].CurrencyAmount
	}

	return e.ConvertToVen(domain.NewMoney(decimal.NewFromInt(1), a.Currency())).Amount
}

// rateForOneVen resolves the rate for a currency, tolerating the historical
// "u"-prefixed asset tickers (uUSD resolves against USD and vice versa).
// Unknown currencies convert 1:1.
func (e *Exchange) rateForOneVen(c domain.Currency) decimal.Decimal {
	ticker := strings.ToLower(string(c))
	candidates := []string{ticker, "u" + ticker, strings.TrimPrefix(ticker, "u")}

	for _, rate := range e.rates.RatesPerOneVen() {
		name := strings.ToLower(rate.CurrencyName)
		for _, candidate := range candidates {
			if name == candidate {
				return rate.RatePerOneVen
			}
		}
	}

	return decimal.NewFromInt(1)
}
