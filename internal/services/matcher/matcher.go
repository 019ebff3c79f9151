package matcher

import (
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vadiminshakov/ultracore/internal/domain"
)

type orderStore interface {
	Pending() (buys, sells []*domain.Order)
	IncrementMatchAttempts(id int64) error
	UpdateSettlement(id int64, settledSoFar decimal.Decimal, status domain.OrderStatus) error
}

type settlementJournal interface {
	Add(orderID, matchedOrderID int64, amount decimal.Decimal) error
}

// TradingOrderMatcher pairs pending buy and sell orders. It runs two passes
// over the same in-memory snapshot: every sell order looks for a buy, then
// every buy order looks for a sell, so progress made in the first pass is
// visible to the second. Within a pass candidates are scanned in placement
// order and the first eligible one wins, there is no best-price search.
type TradingOrderMatcher struct {
	orders      orderStore
	settlements settlementJournal
	logger      *zap.Logger
}

func NewTradingOrderMatcher(orders orderStore, settlements settlementJournal, logger *zap.Logger) *TradingOrderMatcher {
	return &TradingOrderMatcher{orders: orders, settlements: settlements, logger: logger}
}

// Match runs one matching round over all pending orders.
func (m *TradingOrderMatcher) Match() error {
	buys, sells := m.orders.Pending()

	for _, sell := range sells {
		if err := m.matchOne(sell, buys); err != nil {
			m.logger.Error("failed to match sell order", zap.Int64("order", sell.ID), zap.Error(err))
		}
	}
	for _, buy := range buys {
		if err := m.matchOne(buy, sells); err != nil {
			m.logger.Error("failed to match buy order", zap.Int64("order", buy.ID), zap.Error(err))
		}
	}

	return nil
}

// matchOne settles the order against the first eligible candidate. The
// attempt counter moves whether or not a candidate is found, it is the
// fallback settler's eligibility clock.
func (m *TradingOrderMatcher) matchOne(order *domain.Order, candidates []*domain.Order) error {
	if order.Terminal() {
		return nil
	}

	if err := m.orders.IncrementMatchAttempts(order.ID); err != nil {
		return errors.Wrap(err, "increment match attempts")
	}
	order.MatchAttempts++

	for _, counter := range candidates {
		if !order.Matches(counter) {
			continue
		}

		settled := decimal.Min(order.Remaining(), counter.Remaining())
		order.SettledSoFar = order.SettledSoFar.Add(settled)
		counter.SettledSoFar = counter.SettledSoFar.Add(settled)
		if !counter.Remaining().IsPositive() {
			counter.Status = domain.OrderStatusProcessed
		}

		if err := m.orders.UpdateSettlement(counter.ID, counter.SettledSoFar, counter.Status); err != nil {
			return errors.Wrap(err, "update counter order")
		}
		if err := m.settlements.Add(order.ID, counter.ID, settled); err != nil {
			return errors.Wrap(err, "record settlement")
		}

		m.logger.Debug("orders matched",
			zap.Int64("order", order.ID),
			zap.Int64("counter", counter.ID),
			zap.String("amount", settled.String()))
		break
	}

	if !order.Remaining().IsPositive() {
		order.Status = domain.OrderStatusProcessed
	}
	return errors.Wrap(m.orders.UpdateSettlement(order.ID, order.SettledSoFar, order.Status), "update order")
}
