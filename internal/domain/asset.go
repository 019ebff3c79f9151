package domain

import "github.com/shopspring/decimal"

// WeightingType tells how an asset is priced.
type WeightingType string

const (
	// WeightingTypeCurrencyCombo prices the asset off a weighted basket of
	// real currencies.
	WeightingTypeCurrencyCombo WeightingType = "currency_combo"
	// WeightingTypeCustomVen prices the asset with a single fixed Ven amount
	// stored as its only weighting.
	WeightingTypeCustomVen WeightingType = "custom_ven_amount"
)

// Weighting is one component of an asset's currency basket. Percentages
// across an asset's weightings sum to 100.
type Weighting struct {
	CurrencyName   string          `json:"currency_name"`
	CurrencyAmount decimal.Decimal `json:"currency_amount"`
	Percentage     decimal.Decimal `json:"percentage"`
}

// PercentageAmount is the portion of the currency amount this weighting
// contributes, truncated to the ledger's four decimal places.
func (w Weighting) PercentageAmount() decimal.Decimal {
	return w.CurrencyAmount.Div(decimal.NewFromInt(100)).Mul(w.Percentage).Truncate(4)
}

// Asset is a synthetic instrument backed by a weighted currency basket
// (or a fixed custom Ven price).
type Asset struct {
	ID              int64           `json:"id"`
	Title           string          `json:"title"`
	TickerSymbol    string          `json:"ticker_symbol"`
	NumAssets       decimal.Decimal `json:"num_assets"`
	AuthorityUserID int64           `json:"authority_user_id"`
	WeightingType   WeightingType   `json:"weighting_type"`
	Weightings      []Weighting     `json:"weightings"`
}

// Currency returns the ticker the asset trades under.
func (a *Asset) Currency() Currency {
	return Currency(a.TickerSymbol)
}

// IsWithOneWeighting reports whether the asset is priced by a single
// weighting, the shape custom-Ven-priced assets are stored in.
func (a *Asset) IsWithOneWeighting() bool {
	return len(a.Weightings) == 1
}
