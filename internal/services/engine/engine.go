package engine

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vadiminshakov/ultracore/internal/domain"
	"github.com/vadiminshakov/ultracore/internal/storage/settlements"
)

type orderMatcher interface {
	Match() error
}

type fallbackSettler interface {
	Execute() error
}

type orderReader interface {
	Get(id int64) (*domain.Order, error)
}

type settlementReader interface {
	LastID() uint64
	RowsAfter(after uint64) ([]settlements.Row, error)
}

type walletStore interface {
	GetUserWallet(userID, assetID int64) (*domain.Wallet, error)
	Credit(w *domain.Wallet, amount decimal.Decimal, meta domain.TxMetadata) error
	Debit(w *domain.Wallet, amount decimal.Decimal, meta domain.TxMetadata) error
}

type venLedger interface {
	SendVen(fromUserID, toUserID int64, amount decimal.Decimal, message string, isSystemSkim bool) error
}

// MatchEngine drives one full cycle: it notes the settlement watermark, runs
// the matcher, moves asset and Ven balances for every settlement recorded
// past the watermark, then hands the leftovers to the fallback settler. Rows
// before the watermark were settled in an earlier cycle and are never
// replayed.
type MatchEngine struct {
	matcher      orderMatcher
	settler      fallbackSettler
	orders       orderReader
	settlements  settlementReader
	wallets      walletStore
	ven          venLedger
	logger       *zap.Logger
	systemUserID int64
}

func NewMatchEngine(
	m orderMatcher,
	settler fallbackSettler,
	orders orderReader,
	settlementLog settlementReader,
	wallets walletStore,
	ven venLedger,
	logger *zap.Logger,
	systemUserID int64,
) *MatchEngine {
	return &MatchEngine{
		matcher:      m,
		settler:      settler,
		orders:       orders,
		settlements:  settlementLog,
		wallets:      wallets,
		ven:          ven,
		logger:       logger,
		systemUserID: systemUserID,
	}
}

// Execute runs one matching and settlement cycle.
func (e *MatchEngine) Execute() error {
	watermark := e.settlements.LastID()
	e.logger.Debug("starting match cycle", zap.Uint64("settlement_watermark", watermark))

	if err := e.matcher.Match(); err != nil {
		return errors.Wrap(err, "match orders")
	}

	rows, err := e.settlements.RowsAfter(watermark)
	if err != nil {
		return errors.Wrap(err, "read new settlements")
	}
	for _, row := range rows {
		if err := e.settlePair(row); err != nil {
			e.logger.Error("failed to settle matched pair",
				zap.Uint64("settlement", row.ID), zap.Error(err))
		}
	}

	return errors.Wrap(e.settler.Execute(), "fallback settlement")
}

// settlePair moves the settled asset amount from seller to buyer and the Ven
// payment the other way. The trade settles at the buyer's rate; whatever the
// buyer paid above the seller's asking rate is skimmed into the system
// account.
func (e *MatchEngine) settlePair(row settlements.Row) error {
	first, err := e.orders.Get(row.OrderID)
	if err != nil {
		return errors.Wrap(err, "resolve order")
	}
	second, err := e.orders.Get(row.MatchedOrderID)
	if err != nil {
		return errors.Wrap(err, "resolve matched order")
	}

	var buy, sell *domain.Order
	switch {
	case first.Side == domain.SideBuy && second.Side == domain.SideSell:
		buy, sell = first, second
	case first.Side == domain.SideSell && second.Side == domain.SideBuy:
		buy, sell = second, first
	default:
		return errors.Errorf("settlement %d links two %s orders", row.ID, first.Side)
	}

	meta := domain.PairMetadata(domain.MatchedOrderPair{
		BuyOrder:      buy,
		SellOrder:     sell,
		SettledAmount: row.Amount,
	})

	buyerWallet, err := e.wallets.GetUserWallet(buy.UserID, buy.AssetID)
	if err != nil {
		return errors.Wrap(err, "resolve buyer wallet")
	}
	sellerWallet, err := e.wallets.GetUserWallet(sell.UserID, sell.AssetID)
	if err != nil {
		return errors.Wrap(err, "resolve seller wallet")
	}

	if err := e.wallets.Credit(buyerWallet, row.Amount, meta); err != nil {
		return errors.Wrap(err, "credit buyer")
	}
	if err := e.wallets.Debit(sellerWallet, row.Amount, meta); err != nil {
		return errors.Wrap(err, "debit seller")
	}

	buyerTotal := buy.OfferingRate.Mul(row.Amount)
	if err := e.ven.SendVen(buy.UserID, sell.UserID, buyerTotal, "An order placed on the exchange", false); err != nil {
		return errors.Wrap(err, "transfer ven to seller")
	}

	profit := buyerTotal.Sub(sell.OfferingRate.Mul(row.Amount))
	if profit.IsPositive() {
		message := fmt.Sprintf("Profit made from an order placed on the exchange. buy order: %d, sell order: %d", buy.ID, sell.ID)
		if err := e.ven.SendVen(sell.UserID, e.systemUserID, profit, message, true); err != nil {
			return errors.Wrap(err, "skim spread")
		}
		e.logger.Debug("spread skimmed",
			zap.Int64("buy", buy.ID),
			zap.Int64("sell", sell.ID),
			zap.String("profit", profit.String()))
	}

	return nil
}
