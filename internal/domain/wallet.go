package domain

import "github.com/shopspring/decimal"

// Wallet holds a user's balance of one asset. Balance is the committed
// ledger value; AvailableBalance additionally reflects pending movements,
// so a sell order awaiting operator confirmation lowers AvailableBalance
// without touching Balance.
type Wallet struct {
	ID               int64           `json:"id"`
	UserID           int64           `json:"user_id"`
	AssetID          int64           `json:"asset_id"`
	Balance          decimal.Decimal `json:"balance"`
	AvailableBalance decimal.Decimal `json:"available_balance"`
	PublicKey        string          `json:"public_key"`
}

// TxMetadata travels with every credit/debit and is captured verbatim on the
// transaction row. NewTxMetadata sets Commit, the default; a pending
// (uncommitted) movement is created by flipping Commit to false.
type TxMetadata struct {
	Commit               bool            `json:"commit"`
	BuyOrderID           int64           `json:"buy_order_id,omitempty"`
	SellOrderID          int64           `json:"sell_order_id,omitempty"`
	AssetAmountInVen     decimal.Decimal `json:"asset_amount_in_ven"`
	AssetAmountForOneVen string          `json:"asset_amount_for_one_ven,omitempty"`
	VenAmountForOneAsset decimal.Decimal `json:"ven_amount_for_one_asset"`
	WeightingConfig      []Weighting     `json:"weighting_config,omitempty"`
	IsTransfer           bool            `json:"is_transfer,omitempty"`
	TransferMessage      string          `json:"transfer_message,omitempty"`
	TransferRelatedUser  int64           `json:"transfer_related_user,omitempty"`
	WithdrawalFee        decimal.Decimal `json:"asset_amount_for_withdrawal_fee,omitempty"`
	ExchangeFee          decimal.Decimal `json:"asset_amount_for_exchange_fee,omitempty"`
}

// NewTxMetadata returns metadata for a committed movement.
func NewTxMetadata() TxMetadata {
	return TxMetadata{Commit: true}
}

// PairMetadata builds the metadata recorded on both wallet movements of a
// matched pair. Ven figures use the buyer's rate: that is the rate the trade
// actually settles at.
func PairMetadata(pair MatchedOrderPair) TxMetadata {
	meta := NewTxMetadata()
	meta.BuyOrderID = pair.BuyOrder.ID
	meta.SellOrderID = pair.SellOrder.ID
	meta.VenAmountForOneAsset = pair.BuyOrder.OfferingRate
	meta.AssetAmountInVen = pair.BuyOrder.OfferingRate.Mul(pair.SettledAmount)
	return meta
}

// WalletTransaction is one append-only ledger row. Rows are never updated or
// deleted; the committed rows of a wallet always sum to its balance.
type WalletTransaction struct {
	ID          int64           `json:"id"`
	UserID      int64           `json:"user_id"`
	WalletID    int64           `json:"wallet_id"`
	AssetAmount decimal.Decimal `json:"asset_amount"` // positive=credit, negative=debit
	Balance     decimal.Decimal `json:"balance"`      // snapshot after applying
	IsCommitted bool            `json:"is_committed"`
	Metadata    TxMetadata      `json:"meta_data"`
}

// VenWallet is a user's balance in the base ledger currency.
type VenWallet struct {
	UserID  int64           `json:"user_id"`
	Balance decimal.Decimal `json:"balance"`
}
