package wallets

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vadiminshakov/ultracore/internal/domain"
)

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

type orderStore interface {
	Add(o *domain.Order) error
}

// Handler is the user-facing wallet API: direct purchases against issuer
// stock, direct sells awaiting operator confirmation, gifts between users and
// exchange order placement. Unlike the background settlers, every operation
// here fails synchronously with a descriptive error.
type Handler struct {
	assets   assetStore
	wallets  walletStore
	ven      venLedger
	issuance issuanceStore
	strategy selectionStrategy
	exchange rater
	orders   orderStore
	logger   *zap.Logger
}

func NewHandler(
	assets assetStore,
	wallets walletStore,
	ven venLedger,
	issuanceStore issuanceStore,
	strategy selectionStrategy,
	exchange rater,
	orders orderStore,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		assets:   assets,
		wallets:  wallets,
		ven:      ven,
		issuance: issuanceStore,
		strategy: strategy,
		exchange: exchange,
		orders:   orders,
		logger:   logger,
	}
}

// Purchase buys amount units directly off issuer stock at the current market
// rate, paying each contributing issuer its share in Ven.
func (h *Handler) Purchase(userID int64, assetID int64, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return errors.New("purchase amount must be greater than zero")
	}

	asset, err := h.assets.GetByID(assetID)
	if err != nil {
		return err
	}

	venWallet, err := h.ven.WalletOf(userID)
	if err != nil {
		return errors.Wrapf(err, "user %d has no Ven to pay with", userID)
	}

	rate := h.exchange.VenAmountForOneAsset(asset)
	total := rate.Mul(amount)
	if total.GreaterThan(venWallet.Balance) {
		return errors.Wrapf(domain.ErrInsufficientVenBalance,
			"current Ven balance of %s is not sufficient to buy assets worth %s Ven", venWallet.Balance, total)
	}
	if asset.NumAssets.Sub(amount).IsNegative() {
		return errors.Wrapf(domain.ErrInsufficientAssetAvailability,
			"only %s units of %s are available", asset.NumAssets, asset.TickerSymbol)
	}

	allocations, err := h.strategy.Select(asset.ID, amount)
	if err != nil {
		return errors.Wrap(err, "select issuers")
	}

	meta := domain.NewTxMetadata()
	meta.AssetAmountInVen = total
	meta.VenAmountForOneAsset = rate
	meta.AssetAmountForOneVen = domain.NewMoney(decimal.NewFromInt(1), asset.Currency()).DivideBy(rate).AmountString()
	meta.WeightingConfig = asset.Weightings

	wallet, err := h.wallets.GetUserWallet(userID, asset.ID)
	if err != nil {
		return errors.Wrap(err, "resolve buyer wallet")
	}
	if err := h.wallets.Credit(wallet, amount, meta); err != nil {
		return errors.Wrap(err, "credit buyer wallet")
	}
	if err := h.assets.DeductTotalQuantity(asset.ID, amount); err != nil {
		return errors.Wrap(err, "deduct global asset quantity")
	}

	for _, alloc := range allocations {
		if err := h.issuance.DeductRemaining(alloc.AuthorityUserID, asset.ID, alloc.UsableQuantity); err != nil {
			return errors.Wrapf(err, "deduct stock of issuer %d", alloc.AuthorityUserID)
		}
		message := fmt.Sprintf("Direct purchase of %s %s assets", alloc.UsableQuantity, asset.TickerSymbol)
		if err := h.ven.SendVen(userID, alloc.AuthorityUserID, rate.Mul(alloc.UsableQuantity), message, false); err != nil {
			return errors.Wrapf(err, "pay issuer %d", alloc.AuthorityUserID)
		}
	}

	h.logger.Info("direct purchase completed",
		zap.Int64("user", userID),
		zap.Int64("asset", asset.ID),
		zap.String("amount", amount.String()))
	return nil
}

// Sell places a pending sell-back of amount units. The units leave the
// available balance immediately but the committed balance is untouched until
// an operator confirms the payout.
func (h *Handler) Sell(userID int64, assetID int64, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return errors.New("sell amount must be greater than zero")
	}

	asset, err := h.assets.GetByID(assetID)
	if err != nil {
		return err
	}

	wallet, err := h.wallets.GetUserWallet(userID, asset.ID)
	if err != nil {
		return errors.Wrap(err, "resolve seller wallet")
	}
	if wallet.AvailableBalance.Sub(amount).IsNegative() {
		return errors.Wrapf(domain.ErrInsufficientAssetBalance,
			"available balance of %s is not sufficient to sell %s assets", wallet.AvailableBalance, amount)
	}

	rate := h.exchange.VenAmountForOneAsset(asset)
	meta := domain.NewTxMetadata()
	meta.Commit = false
	meta.AssetAmountInVen = rate.Mul(amount)
	meta.VenAmountForOneAsset = rate
	meta.WeightingConfig = asset.Weightings

	return errors.Wrap(h.wallets.Debit(wallet, amount, meta), "hold sold assets")
}

// Gift moves amount units from one user to another. Both ledger rows carry
// the transfer message and link back to the other party.
func (h *Handler) Gift(senderUserID, receiverUserID, assetID int64, amount decimal.Decimal, message string) error {
	if !amount.IsPositive() {
		return errors.New("gift amount must be greater than zero")
	}
	if senderUserID == receiverUserID {
		return errors.New("cannot gift assets to yourself")
	}

	if _, err := h.assets.GetByID(assetID); err != nil {
		return err
	}

	senderWallet, err := h.wallets.GetUserWallet(senderUserID, assetID)
	if err != nil {
		return errors.Wrap(err, "resolve sender wallet")
	}
	if senderWallet.AvailableBalance.Sub(amount).IsNegative() {
		return errors.Wrapf(domain.ErrInsufficientAssetBalance,
			"available balance of %s is not sufficient to gift %s assets", senderWallet.AvailableBalance, amount)
	}

	receiverWallet, err := h.wallets.GetUserWallet(receiverUserID, assetID)
	if err != nil {
		return errors.Wrap(err, "resolve receiver wallet")
	}

	creditMeta := domain.NewTxMetadata()
	creditMeta.IsTransfer = true
	creditMeta.TransferMessage = message
	creditMeta.TransferRelatedUser = senderUserID
	if err := h.wallets.Credit(receiverWallet, amount, creditMeta); err != nil {
		return errors.Wrap(err, "credit receiver")
	}

	debitMeta := domain.NewTxMetadata()
	debitMeta.IsTransfer = true
	debitMeta.TransferMessage = message
	debitMeta.TransferRelatedUser = receiverUserID
	return errors.Wrap(h.wallets.Debit(senderWallet, amount, debitMeta), "debit sender")
}

// PlaceBuyOrder enters a buy order into the exchange book. No funds are
// reserved at placement; the engine checks cover at settlement time.
func (h *Handler) PlaceBuyOrder(userID, assetID int64, offeringRate, amount decimal.Decimal) (*domain.Order, error) {
	return h.placeOrder(domain.SideBuy, userID, assetID, offeringRate, amount)
}

// PlaceSellOrder enters a sell order into the exchange book.
func (h *Handler) PlaceSellOrder(userID, assetID int64, offeringRate, amount decimal.Decimal) (*domain.Order, error) {
	return h.placeOrder(domain.SideSell, userID, assetID, offeringRate, amount)
}

func (h *Handler) placeOrder(side domain.Side, userID, assetID int64, offeringRate, amount decimal.Decimal) (*domain.Order, error) {
	asset, err := h.assets.GetByID(assetID)
	if err != nil {
		return nil, err
	}

	order, err := domain.NewPendingOrder(side, userID, assetID, offeringRate, amount)
	if err != nil {
		return nil, err
	}
	order.MarketRate = h.exchange.VenAmountForOneAsset(asset)

	if err := h.orders.Add(order); err != nil {
		return nil, errors.Wrap(err, "store order")
	}

	h.logger.Info("order placed",
		zap.Int64("order", order.ID),
		zap.String("side", string(side)),
		zap.Int64("user", userID),
		zap.String("rate", offeringRate.String()),
		zap.String("amount", amount.String()))
	return order, nil
}
