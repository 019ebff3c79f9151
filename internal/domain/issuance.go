package domain

import "github.com/shopspring/decimal"

// IssuanceRecord tracks one minting event of an asset by an authority user,
// with the quantity still unconsumed. Records are ordered by ID, which is
// the issuance order.
type IssuanceRecord struct {
	ID                     int64           `json:"id"`
	AssetID                int64           `json:"asset_id"`
	UserID                 int64           `json:"user_id"`
	OriginalQuantityIssued decimal.Decimal `json:"original_quantity_issued"`
	RemainingQuantity      decimal.Decimal `json:"remaining_asset_quantity"`
}

// IssuerAllocation is the slice of one issuer's remaining stock allotted to
// a request. Computed per call by a selection strategy, never persisted.
type IssuerAllocation struct {
	AuthorityUserID        int64
	OriginalQuantityIssued decimal.Decimal
	RemainingQuantity      decimal.Decimal
	// UsableQuantity is the portion of RemainingQuantity allotted to the
	// current request.
	UsableQuantity decimal.Decimal
}
