package domain

import (
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// Side tells whether an order buys or sells an asset.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// OrderStatus is the lifecycle state of an order. Rejected and processed
// orders are terminal and are never picked up by the matcher again.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusRejected  OrderStatus = "rejected"
	OrderStatusProcessed OrderStatus = "processed"
)

// Order is a buy or sell intent against an asset, priced in Ven per one unit.
// The matcher is the only component allowed to advance SettledSoFar and
// MatchAttempts; status transitions belong to the matcher, the fallback
// settler and the engine.
type Order struct {
	ID            int64           `json:"id"`
	UserID        int64           `json:"user_id"`
	AssetID       int64           `json:"asset_id"`
	Side          Side            `json:"side"`
	OfferingRate  decimal.Decimal `json:"offering_rate"`
	Amount        decimal.Decimal `json:"amount"`
	SettledSoFar  decimal.Decimal `json:"settled_amount_so_far"`
	Status        OrderStatus     `json:"status"`
	MatchAttempts int             `json:"num_match_attempts"`
	// MarketRate is the Ven rate for one asset at the time the order was
	// placed, kept for audit only.
	MarketRate decimal.Decimal `json:"market_rate"`
	// Notes carries the human-readable rejection reason, if any.
	Notes string `json:"notes,omitempty"`
}

// NewPendingOrder builds a not-yet-persisted (ID 0) pending order.
func NewPendingOrder(side Side, userID, assetID int64, offeringRate, amount decimal.Decimal) (*Order, error) {
	if side != SideBuy && side != SideSell {
		return nil, errors.Errorf("invalid order side %q", side)
	}
	if userID == 0 {
		return nil, errors.New("invalid user id provided")
	}
	if assetID == 0 {
		return nil, errors.New("invalid asset id provided")
	}
	if !offeringRate.IsPositive() {
		return nil, errors.New("invalid offering rate provided, rate must be greater than zero")
	}
	if amount.IsZero() {
		return nil, errors.New("invalid amount provided")
	}

	return &Order{
		UserID:       userID,
		AssetID:      assetID,
		Side:         side,
		OfferingRate: offeringRate,
		Amount:       amount,
		SettledSoFar: decimal.Zero,
		Status:       OrderStatusPending,
	}, nil
}

// Remaining returns the quantity still unsettled.
func (o *Order) Remaining() decimal.Decimal {
	return o.Amount.Sub(o.SettledSoFar)
}

// Terminal reports whether the order has reached a final status.
func (o *Order) Terminal() bool {
	return o.Status == OrderStatusProcessed || o.Status == OrderStatusRejected
}

// Matches reports whether counter can settle against this order.
// A buy matches a sell only when the buyer offers strictly more Ven per unit
// than the seller asks; equal rates never match. The crossing spread is where
// the system profit comes from, there is no clearing price negotiation.
func (o *Order) Matches(counter *Order) bool {
	if o.Terminal() || counter.Terminal() {
		return false
	}
	if o.AssetID != counter.AssetID {
		// selling YEN to get USD is not a match within one asset
		return false
	}
	if o.UserID == counter.UserID {
		// never match two orders of the same user
		return false
	}
	if !counter.Remaining().IsPositive() {
		return false
	}

	if o.Side == SideBuy {
		return counter.Side == SideSell && o.OfferingRate.GreaterThan(counter.OfferingRate)
	}
	return counter.Side == SideBuy && o.OfferingRate.LessThan(counter.OfferingRate)
}

func (o *Order) String() string {
	b, _ := json.Marshal(o)
	return string(b)
}

// MatchedOrderPair is one settlement event between a buy and a sell order.
// Pairs are append-only: recorded once by the matcher, never updated.
type MatchedOrderPair struct {
	BuyOrder      *Order
	SellOrder     *Order
	SettledAmount decimal.Decimal
}
