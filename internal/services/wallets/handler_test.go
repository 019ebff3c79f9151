package wallets

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vadiminshakov/ultracore/internal/domain"
	"github.com/vadiminshakov/ultracore/internal/services/exchange"
	issuancestrategy "github.com/vadiminshakov/ultracore/internal/services/issuance"
	assetstore "github.com/vadiminshakov/ultracore/internal/storage/assets"
	issuancestore "github.com/vadiminshakov/ultracore/internal/storage/issuance"
	orderstore "github.com/vadiminshakov/ultracore/internal/storage/orders"
	venstore "github.com/vadiminshakov/ultracore/internal/storage/ven"
	walletstore "github.com/vadiminshakov/ultracore/internal/storage/wallets"
)

type handlerFixture struct {
	handler  *Handler
	orders   *orderstore.Store
	wallets  *walletstore.Store
	ven      *venstore.Ledger
	issuance *issuancestore.Store
	assets   *assetstore.Store
	assetID  int64
}

// newHandlerFixture wires a handler over real stores with one custom-Ven
// asset priced at 2 Ven per unit.
func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()

	orders, err := orderstore.NewStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { orders.Close() })

	assets, err := assetstore.NewStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { assets.Close() })

	wallets, err := walletstore.NewStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { wallets.Close() })

	ven, err := venstore.NewLedger(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { ven.Close() })

	issuance, err := issuancestore.NewStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { issuance.Close() })

	asset := &domain.Asset{
		Title:         "Gold backed",
		TickerSymbol:  "uGOLD",
		NumAssets:     decimal.NewFromInt(1000),
		WeightingType: domain.WeightingTypeCustomVen,
		Weightings: []domain.Weighting{
			{CurrencyName: "VEN", CurrencyAmount: decimal.NewFromInt(2), Percentage: decimal.NewFromInt(100)},
		},
	}
	require.NoError(t, assets.Save(asset))

	rates := exchange.New(exchange.NewStaticRatesProvider(nil))
	strategy := issuancestrategy.NewFirstIssuerFirstServed(issuance)
	h := NewHandler(assets, wallets, ven, issuance, strategy, rates, orders, zap.NewNop())

	return &handlerFixture{
		handler:  h,
		orders:   orders,
		wallets:  wallets,
		ven:      ven,
		issuance: issuance,
		assets:   assets,
		assetID:  asset.ID,
	}
}

func TestPurchasePaysIssuersAndCreditsBuyer(t *testing.T) {
	f := newHandlerFixture(t)
	require.NoError(t, f.ven.Deposit(1, decimal.NewFromInt(100)))
	_, err := f.issuance.Issue(f.assetID, 50, decimal.NewFromInt(100))
	require.NoError(t, err)

	require.NoError(t, f.handler.Purchase(1, f.assetID, decimal.NewFromInt(10)))

	wallet, err := f.wallets.GetUserWallet(1, f.assetID)
	require.NoError(t, err)
	require.True(t, wallet.Balance.Equal(decimal.NewFromInt(10)))
	require.True(t, wallet.AvailableBalance.Equal(decimal.NewFromInt(10)))

	asset, err := f.assets.GetByID(f.assetID)
	require.NoError(t, err)
	require.True(t, asset.NumAssets.Equal(decimal.NewFromInt(990)))

	// 10 units at 2 Ven each
	buyer, err := f.ven.WalletOf(1)
	require.NoError(t, err)
	require.True(t, buyer.Balance.Equal(decimal.NewFromInt(80)))

	issuer, err := f.ven.WalletOf(50)
	require.NoError(t, err)
	require.True(t, issuer.Balance.Equal(decimal.NewFromInt(20)))

	recs := f.issuance.RecordsForAsset(f.assetID)
	require.True(t, recs[0].RemainingQuantity.Equal(decimal.NewFromInt(90)))
}

func TestPurchaseFailsOnInsufficientVen(t *testing.T) {
	f := newHandlerFixture(t)
	require.NoError(t, f.ven.Deposit(1, decimal.NewFromInt(5)))
	_, err := f.issuance.Issue(f.assetID, 50, decimal.NewFromInt(100))
	require.NoError(t, err)

	err = f.handler.Purchase(1, f.assetID, decimal.NewFromInt(10))
	require.ErrorIs(t, err, domain.ErrInsufficientVenBalance)
}

func TestPurchaseFailsWithoutIssuerStock(t *testing.T) {
	f := newHandlerFixture(t)
	require.NoError(t, f.ven.Deposit(1, decimal.NewFromInt(100)))

	err := f.handler.Purchase(1, f.assetID, decimal.NewFromInt(10))
	require.ErrorIs(t, err, domain.ErrInsufficientIssuerStock)

	// nothing moved
	wallet, err := f.wallets.GetUserWallet(1, f.assetID)
	require.NoError(t, err)
	require.True(t, wallet.Balance.IsZero())
}

func TestSellHoldsAvailableBalanceOnly(t *testing.T) {
	f := newHandlerFixture(t)

	wallet, err := f.wallets.GetUserWallet(2, f.assetID)
	require.NoError(t, err)
	require.NoError(t, f.wallets.Credit(wallet, decimal.NewFromInt(50), domain.NewTxMetadata()))

	require.NoError(t, f.handler.Sell(2, f.assetID, decimal.NewFromInt(20)))

	wallet, err = f.wallets.GetUserWallet(2, f.assetID)
	require.NoError(t, err)
	require.True(t, wallet.Balance.Equal(decimal.NewFromInt(50)), "committed balance waits for operator confirmation")
	require.True(t, wallet.AvailableBalance.Equal(decimal.NewFromInt(30)))
}

func TestSellFailsBeyondAvailableBalance(t *testing.T) {
	f := newHandlerFixture(t)

	wallet, err := f.wallets.GetUserWallet(2, f.assetID)
	require.NoError(t, err)
	require.NoError(t, f.wallets.Credit(wallet, decimal.NewFromInt(10), domain.NewTxMetadata()))

	err = f.handler.Sell(2, f.assetID, decimal.NewFromInt(20))
	require.ErrorIs(t, err, domain.ErrInsufficientAssetBalance)
}

func TestGiftMovesAssetsWithTransferMetadata(t *testing.T) {
	f := newHandlerFixture(t)

	senderWallet, err := f.wallets.GetUserWallet(2, f.assetID)
	require.NoError(t, err)
	require.NoError(t, f.wallets.Credit(senderWallet, decimal.NewFromInt(50), domain.NewTxMetadata()))

	require.NoError(t, f.handler.Gift(2, 3, f.assetID, decimal.NewFromInt(15), "happy birthday"))

	senderWallet, err = f.wallets.GetUserWallet(2, f.assetID)
	require.NoError(t, err)
	require.True(t, senderWallet.Balance.Equal(decimal.NewFromInt(35)))

	receiverWallet, err := f.wallets.GetUserWallet(3, f.assetID)
	require.NoError(t, err)
	require.True(t, receiverWallet.Balance.Equal(decimal.NewFromInt(15)))

	receiverTxs := f.wallets.TransactionsOf(3)
	require.Len(t, receiverTxs, 1)
	require.True(t, receiverTxs[0].Metadata.IsTransfer)
	require.Equal(t, "happy birthday", receiverTxs[0].Metadata.TransferMessage)
	require.Equal(t, int64(2), receiverTxs[0].Metadata.TransferRelatedUser)

	senderTxs := f.wallets.TransactionsOf(2)
	require.Equal(t, int64(3), senderTxs[0].Metadata.TransferRelatedUser)
}

func TestGiftToSelfFails(t *testing.T) {
	f := newHandlerFixture(t)
	err := f.handler.Gift(2, 2, f.assetID, decimal.NewFromInt(5), "")
	require.Error(t, err)
}

func TestPlaceOrdersSnapshotMarketRate(t *testing.T) {
	f := newHandlerFixture(t)

	buy, err := f.handler.PlaceBuyOrder(1, f.assetID, decimal.NewFromInt(4), decimal.NewFromInt(80))
	require.NoError(t, err)
	require.NotZero(t, buy.ID)
	require.True(t, buy.MarketRate.Equal(decimal.NewFromInt(2)))

	sell, err := f.handler.PlaceSellOrder(2, f.assetID, decimal.NewFromInt(3), decimal.NewFromInt(100))
	require.NoError(t, err)
	require.Equal(t, buy.ID+1, sell.ID)

	buys, sells := f.orders.Pending()
	require.Len(t, buys, 1)
	require.Len(t, sells, 1)
}

func TestPlaceOrderValidation(t *testing.T) {
	f := newHandlerFixture(t)

	_, err := f.handler.PlaceBuyOrder(1, f.assetID, decimal.Zero, decimal.NewFromInt(10))
	require.Error(t, err)

	_, err = f.handler.PlaceBuyOrder(1, 42, decimal.NewFromInt(2), decimal.NewFromInt(10))
	require.ErrorIs(t, err, domain.ErrAssetNotFound)
}
