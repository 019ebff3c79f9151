package domain

import "github.com/pkg/errors"

// Business rule violations surfaced to callers of the purchase/sell entry
// points or recorded as order rejections. Wrapped with detail at call sites;
// match with errors.Is.
var (
	ErrInsufficientVenBalance        = errors.New("insufficient ven balance")
	ErrInsufficientAssetAvailability = errors.New("insufficient asset availability")
	ErrInsufficientAssetBalance      = errors.New("insufficient asset balance")
	ErrInsufficientIssuerStock       = errors.New("issuers cannot cover the required quantity")

	ErrAssetNotFound  = errors.New("asset not found")
	ErrWalletNotFound = errors.New("wallet not found")
	ErrOrderNotFound  = errors.New("order not found")
)
