package settler

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vadiminshakov/ultracore/internal/domain"
)

type orderStore interface {
	Pending() (buys, sells []*domain.Order)
	Process(id int64) error
	Reject(id int64, reason string) error
}

type assetStore interface {
	GetByID(id int64) (*domain.Asset, error)
	DeductTotalQuantity(id int64, quantity decimal.Decimal) error
}

type walletStore interface {
	GetUserWallet(userID, assetID int64) (*domain.Wallet, error)
	Credit(w *domain.Wallet, amount decimal.Decimal, meta domain.TxMetadata) error
	Debit(w *domain.Wallet, amount decimal.Decimal, meta domain.TxMetadata) error
}

type venLedger interface {
	WalletOf(userID int64) (*domain.VenWallet, error)
	SendVen(fromUserID, toUserID int64, amount decimal.Decimal, message string, isSystemSkim bool) error
}

type issuanceStore interface {
	DeductRemaining(issuerID, assetID int64, quantity decimal.Decimal) error
}

type selectionStrategy interface {
	Select(assetID int64, requiredQuantity decimal.Decimal) ([]domain.IssuerAllocation, error)
}

type rater interface {
	VenAmountForOneAsset(a *domain.Asset) decimal.Decimal
}

// IssuerFallbackSettler settles orders the matcher keeps failing to pair.
// Buy orders are filled off issuer stock at the current market rate, sell
// orders are bought back into the system account. An order becomes eligible
// once its match attempts reach the configured threshold.
type IssuerFallbackSettler struct {
	orders       orderStore
	assets       assetStore
	wallets      walletStore
	ven          venLedger
	issuance     issuanceStore
	strategy     selectionStrategy
	exchange     rater
	logger       *zap.Logger
	threshold    int
	systemUserID int64
}

func NewIssuerFallbackSettler(
	orders orderStore,
	assets assetStore,
	wallets walletStore,
	ven venLedger,
	issuanceStore issuanceStore,
	strategy selectionStrategy,
	exchange rater,
	logger *zap.Logger,
	threshold int,
	systemUserID int64,
) *IssuerFallbackSettler {
	return &IssuerFallbackSettler{
		orders:       orders,
		assets:       assets,
		wallets:      wallets,
		ven:          ven,
		issuance:     issuanceStore,
		strategy:     strategy,
		exchange:     exchange,
		logger:       logger,
		threshold:    threshold,
		systemUserID: systemUserID,
	}
}

// Execute runs one fallback round over all still-pending orders. Failures are
// isolated per order: a broken order is logged and the round carries on.
func (s *IssuerFallbackSettler) Execute() error {
	buys, sells := s.orders.Pending()

	for _, buy := range buys {
		if buy.MatchAttempts < s.threshold {
			continue
		}
		if err := s.settleBuy(buy); err != nil {
			s.logger.Error("fallback buy settlement failed", zap.Int64("order", buy.ID), zap.Error(err))
		}
	}
	for _, sell := range sells {
		if sell.MatchAttempts < s.threshold {
			continue
		}
		if err := s.settleSell(sell); err != nil {
			s.logger.Error("fallback sell settlement failed", zap.Int64("order", sell.ID), zap.Error(err))
		}
	}

	return nil
}

// settleBuy fills the whole requested amount off issuer stock. A missing Ven
// wallet or an uncoverable cost rejects the order; missing issuer liquidity
// only postpones it to a later round.
func (s *IssuerFallbackSettler) settleBuy(buy *domain.Order) error {
	asset, err := s.assets.GetByID(buy.AssetID)
	if err != nil {
		s.logger.Warn("asset of buy order not found, skipping", zap.Int64("order", buy.ID), zap.Int64("asset", buy.AssetID))
		return nil
	}

	venWallet, err := s.ven.WalletOf(buy.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrWalletNotFound) {
			return s.orders.Reject(buy.ID, "Cannot find the Ven wallet of the buyer")
		}
		return errors.Wrap(err, "resolve ven wallet")
	}

	rate := s.exchange.VenAmountForOneAsset(asset)
	total := rate.Mul(buy.Amount)
	if total.GreaterThan(venWallet.Balance) {
		return s.orders.Reject(buy.ID, fmt.Sprintf(
			"Current Ven balance of %s is not sufficient to buy assets worth %s Ven", venWallet.Balance, total))
	}
	if asset.NumAssets.Sub(buy.Amount).IsNegative() {
		return s.orders.Reject(buy.ID, fmt.Sprintf(
			"Available asset quantity %s is not sufficient to cover the order", asset.NumAssets))
	}

	allocations, err := s.strategy.Select(asset.ID, buy.Amount)
	if err != nil || len(allocations) == 0 {
		// no issuer can serve this order right now, retry next round
		s.logger.Warn("no issuer allocations for buy order, postponing",
			zap.Int64("order", buy.ID), zap.Error(err))
		return nil
	}

	meta := domain.NewTxMetadata()
	meta.BuyOrderID = buy.ID
	meta.AssetAmountInVen = total
	meta.VenAmountForOneAsset = rate
	meta.AssetAmountForOneVen = domain.NewMoney(decimal.NewFromInt(1), asset.Currency()).DivideBy(rate).AmountString()
	meta.WeightingConfig = asset.Weightings

	wallet, err := s.wallets.GetUserWallet(buy.UserID, asset.ID)
	if err != nil {
		return errors.Wrap(err, "resolve buyer wallet")
	}
	if err := s.wallets.Credit(wallet, buy.Amount, meta); err != nil {
		return errors.Wrap(err, "credit buyer wallet")
	}
	if err := s.assets.DeductTotalQuantity(asset.ID, buy.Amount); err != nil {
		return errors.Wrap(err, "deduct global asset quantity")
	}

	for _, alloc := range allocations {
		if err := s.issuance.DeductRemaining(alloc.AuthorityUserID, asset.ID, alloc.UsableQuantity); err != nil {
			return errors.Wrapf(err, "deduct stock of issuer %d", alloc.AuthorityUserID)
		}
		message := fmt.Sprintf("Issued %s assets against buy order %d", alloc.UsableQuantity, buy.ID)
		if err := s.ven.SendVen(buy.UserID, alloc.AuthorityUserID, rate.Mul(alloc.UsableQuantity), message, false); err != nil {
			return errors.Wrapf(err, "pay issuer %d", alloc.AuthorityUserID)
		}
	}

	s.logger.Info("buy order settled against issuers",
		zap.Int64("order", buy.ID),
		zap.Int("issuers", len(allocations)),
		zap.String("amount", buy.Amount.String()))
	return errors.Wrap(s.orders.Process(buy.ID), "process buy order")
}

// settleSell buys the seller out into the system account. Sell orders hold
// no funds at placement, so the committed debit happens here, guarded by the
// available balance.
func (s *IssuerFallbackSettler) settleSell(sell *domain.Order) error {
	asset, err := s.assets.GetByID(sell.AssetID)
	if err != nil {
		s.logger.Warn("asset of sell order not found, skipping", zap.Int64("order", sell.ID), zap.Int64("asset", sell.AssetID))
		return nil
	}

	wallet, err := s.wallets.GetUserWallet(sell.UserID, asset.ID)
	if err != nil {
		return errors.Wrap(err, "resolve seller wallet")
	}
	if wallet.AvailableBalance.Sub(sell.Amount).IsNegative() {
		return s.orders.Reject(sell.ID, fmt.Sprintf(
			"Current asset balance of %s is not sufficient to sell %s assets", wallet.AvailableBalance, sell.Amount))
	}

	rate := s.exchange.VenAmountForOneAsset(asset)
	total := rate.Mul(sell.Amount)

	meta := domain.NewTxMetadata()
	meta.SellOrderID = sell.ID
	meta.AssetAmountInVen = total
	meta.VenAmountForOneAsset = rate
	meta.AssetAmountForOneVen = domain.NewMoney(decimal.NewFromInt(1), asset.Currency()).DivideBy(rate).AmountString()
	meta.WeightingConfig = asset.Weightings

	if err := s.wallets.Debit(wallet, sell.Amount, meta); err != nil {
		return errors.Wrap(err, "debit seller wallet")
	}

	systemWallet, err := s.wallets.GetUserWallet(s.systemUserID, asset.ID)
	if err != nil {
		return errors.Wrap(err, "resolve system wallet")
	}
	if err := s.wallets.Credit(systemWallet, sell.Amount, meta); err != nil {
		return errors.Wrap(err, "credit system wallet")
	}

	message := fmt.Sprintf("Bought back %s assets against sell order %d", sell.Amount, sell.ID)
	if err := s.ven.SendVen(s.systemUserID, sell.UserID, total, message, false); err != nil {
		return errors.Wrap(err, "pay seller")
	}

	s.logger.Info("sell order bought back into the system account",
		zap.Int64("order", sell.ID),
		zap.String("amount", sell.Amount.String()))
	return errors.Wrap(s.orders.Process(sell.ID), "process sell order")
}
