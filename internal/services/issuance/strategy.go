package issuance

import (
	"math/rand"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/ultracore/internal/domain"
)

// SelectionStrategy decides which issuers' stock covers a purchase. The
// returned allocations always sum to exactly the required quantity; a strategy
// that cannot cover the request fails instead of returning a partial fill.
type SelectionStrategy interface {
	Select(assetID int64, requiredQuantity decimal.Decimal) ([]domain.IssuerAllocation, error)
}

type issuanceHistory interface {
	RecordsForAsset(assetID int64) []domain.IssuanceRecord
	RecordsCovering(assetID int64, required decimal.Decimal) []domain.IssuanceRecord
}

// FirstIssuerFirstServed consumes issuer stock in issuance order: the oldest
// record is drained first, then the next, taking partial amounts as needed.
type FirstIssuerFirstServed struct {
	history issuanceHistory
}

func NewFirstIssuerFirstServed(history issuanceHistory) *FirstIssuerFirstServed {
	return &FirstIssuerFirstServed{history: history}
}

func (s *FirstIssuerFirstServed) Select(assetID int64, requiredQuantity decimal.Decimal) ([]domain.IssuerAllocation, error) {
	if !requiredQuantity.IsPositive() {
		return nil, errors.New("required quantity must be greater than zero")
	}

	var allocations []domain.IssuerAllocation
	left := requiredQuantity
	for _, rec := range s.history.RecordsForAsset(assetID) {
		if !left.IsPositive() {
			break
		}
		if !rec.RemainingQuantity.IsPositive() {
			continue
		}

		usable := decimal.Min(rec.RemainingQuantity, left)
		allocations = append(allocations, domain.IssuerAllocation{
			AuthorityUserID:        rec.UserID,
			OriginalQuantityIssued: rec.OriginalQuantityIssued,
			RemainingQuantity:      rec.RemainingQuantity,
			UsableQuantity:         usable,
		})
		left = left.Sub(usable)
	}

	if left.IsPositive() {
		return nil, errors.Wrapf(domain.ErrInsufficientIssuerStock,
			"issuers of asset %d are short %s units", assetID, left)
	}

	return allocations, nil
}

// RandomWithFallback picks one random issuer whose remaining stock alone
// covers the whole request. When no single issuer can, it delegates to the
// fallback strategy.
type RandomWithFallback struct {
	history  issuanceHistory
	fallback SelectionStrategy
}

func NewRandomWithFallback(history issuanceHistory, fallback SelectionStrategy) *RandomWithFallback {
	return &RandomWithFallback{history: history, fallback: fallback}
}

func (s *RandomWithFallback) Select(assetID int64, requiredQuantity decimal.Decimal) ([]domain.IssuerAllocation, error) {
	if !requiredQuantity.IsPositive() {
		return nil, errors.New("required quantity must be greater than zero")
	}

	candidates := s.history.RecordsCovering(assetID, requiredQuantity)
	if len(candidates) == 0 {
		return s.fallback.Select(assetID, requiredQuantity)
	}

	rec := candidates[rand.Intn(len(candidates))]
	return []domain.IssuerAllocation{{
		AuthorityUserID:        rec.UserID,
		OriginalQuantityIssued: rec.OriginalQuantityIssued,
		RemainingQuantity:      rec.RemainingQuantity,
		UsableQuantity:         requiredQuantity,
	}}, nil
}
