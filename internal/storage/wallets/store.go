package wallets

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/gowal"
	"github.com/vadiminshakov/ultracore/internal/domain"
)

const (
	segmentLimit = 1000
	maxSegments  = 100

	walletKeyPrefix = "wallet_"
	txKeyPrefix     = "wtx_"
)

type walletKey struct {
	userID  int64
	assetID int64
}

// TransactionRecord pairs a transaction row with its journal index for
// resumable streaming.
type TransactionRecord struct {
	Index       uint64
	Transaction domain.WalletTransaction
}

// Store is the wallet ledger: one wallet per (user, asset), lazily created,
// and an append-only transaction journal. It is the only component allowed
// to mutate asset balances.
//
// Every credit/debit is atomic: the journal row is written first and the
// balance only moves once the row is durable, so a failed append leaves the
// wallet untouched.
type Store struct {
	wal          *gowal.Wal
	mu           sync.RWMutex
	wallets      map[walletKey]*domain.Wallet
	byID         map[int64]*domain.Wallet
	transactions []TransactionRecord
	lastWalletID int64
}

// NewStore opens the wallet WAL under dir and rebuilds wallets by replaying
// creations and transaction rows.
func NewStore(dir string) (*Store, error) {
	cfg := gowal.Config{
		Dir:              dir,
		Prefix:           "wallets_",
		SegmentThreshold: segmentLimit,
		MaxSegments:      maxSegments,
		IsInSyncDiskMode: true,
	}

	wal, err := gowal.NewWAL(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "init wallet WAL")
	}

	s := &Store{
		wal:     wal,
		wallets: make(map[walletKey]*domain.Wallet),
		byID:    make(map[int64]*domain.Wallet),
	}

	idx := uint64(0)
	for msg := range wal.Iterator() {
		idx++
		switch {
		case strings.HasPrefix(msg.Key, walletKeyPrefix):
			var w domain.Wallet
			if err := json.Unmarshal(msg.Value, &w); err != nil {
				return nil, errors.Wrap(err, "decode wallet snapshot")
			}
			w.Balance = decimal.Zero
			w.AvailableBalance = decimal.Zero
			s.wallets[walletKey{w.UserID, w.AssetID}] = &w
			s.byID[w.ID] = &w
			if w.ID > s.lastWalletID {
				s.lastWalletID = w.ID
			}
		case strings.HasPrefix(msg.Key, txKeyPrefix):
			var tx domain.WalletTransaction
			if err := json.Unmarshal(msg.Value, &tx); err != nil {
				return nil, errors.Wrap(err, "decode wallet transaction")
			}
			s.transactions = append(s.transactions, TransactionRecord{Index: idx, Transaction: tx})
			if w, ok := s.byID[tx.WalletID]; ok {
				w.AvailableBalance = w.AvailableBalance.Add(tx.AssetAmount)
				if tx.IsCommitted {
					w.Balance = w.Balance.Add(tx.AssetAmount)
				}
			}
		}
	}

	return s, nil
}

// GetUserWallet returns the wallet of a user for an asset, provisioning a
// zero-balance wallet with a fresh public key when none exists yet.
func (s *Store) GetUserWallet(userID, assetID int64) (*domain.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if w, ok := s.wallets[walletKey{userID, assetID}]; ok {
		cp := *w
		return &cp, nil
	}

	w := &domain.Wallet{
		ID:               s.lastWalletID + 1,
		UserID:           userID,
		AssetID:          assetID,
		Balance:          decimal.Zero,
		AvailableBalance: decimal.Zero,
		PublicKey:        uuid.NewString(),
	}

	payload, err := json.Marshal(w)
	if err != nil {
		return nil, errors.Wrap(err, "marshal wallet")
	}
	key := fmt.Sprintf("%s%d", walletKeyPrefix, w.ID)
	if err := s.wal.Write(s.wal.CurrentIndex()+1, key, payload); err != nil {
		return nil, errors.Wrap(err, "journal wallet")
	}

	s.lastWalletID = w.ID
	s.wallets[walletKey{userID, assetID}] = w
	s.byID[w.ID] = w

	cp := *w
	return &cp, nil
}

// GetUserWalletByPublicKey resolves a wallet by its opaque public key.
func (s *Store) GetUserWalletByPublicKey(publicKey string) (*domain.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, w := range s.byID {
		if w.PublicKey == publicKey {
			cp := *w
			return &cp, nil
		}
	}

	return nil, errors.Wrapf(domain.ErrWalletNotFound, "public key %s", publicKey)
}

// Credit adds amount to the wallet. AvailableBalance always moves; Balance
// only moves when the metadata marks the movement committed. The passed
// wallet is refreshed with the resulting balances.
func (s *Store) Credit(w *domain.Wallet, amount decimal.Decimal, meta domain.TxMetadata) error {
	return s.apply(w, amount, meta)
}

// Debit removes amount from the wallet with the same commit semantics as
// Credit.
func (s *Store) Debit(w *domain.Wallet, amount decimal.Decimal, meta domain.TxMetadata) error {
	return s.apply(w, amount.Neg(), meta)
}

func (s *Store) apply(w *domain.Wallet, signedAmount decimal.Decimal, meta domain.TxMetadata) error {
	if w == nil {
		return errors.New("nil wallet")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.byID[w.ID]
	if !ok {
		return errors.Wrapf(domain.ErrWalletNotFound, "wallet %d", w.ID)
	}

	balance := stored.Balance
	if meta.Commit {
		balance = balance.Add(signedAmount)
	}
	availableBalance := stored.AvailableBalance.Add(signedAmount)

	idx := s.wal.CurrentIndex() + 1
	tx := domain.WalletTransaction{
		ID:          int64(idx),
		UserID:      stored.UserID,
		WalletID:    stored.ID,
		AssetAmount: signedAmount,
		Balance:     balance,
		IsCommitted: meta.Commit,
		Metadata:    meta,
	}

	payload, err := json.Marshal(tx)
	if err != nil {
		return errors.Wrap(err, "marshal wallet transaction")
	}
	key := fmt.Sprintf("%s%d", txKeyPrefix, stored.ID)
	if err := s.wal.Write(idx, key, payload); err != nil {
		// balance not touched yet, nothing to roll back
		return errors.Wrap(err, "journal wallet transaction")
	}

	stored.Balance = balance
	stored.AvailableBalance = availableBalance
	s.transactions = append(s.transactions, TransactionRecord{Index: idx, Transaction: tx})

	w.Balance = balance
	w.AvailableBalance = availableBalance
	return nil
}

// TransactionsOf returns the transaction rows of a user, newest first.
func (s *Store) TransactionsOf(userID int64) []domain.WalletTransaction {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var txs []domain.WalletTransaction
	for i := len(s.transactions) - 1; i >= 0; i-- {
		if s.transactions[i].Transaction.UserID == userID {
			txs = append(txs, s.transactions[i].Transaction)
		}
	}

	return txs
}

// TransactionsAfter returns transaction rows journaled after the given
// index, ascending. Used by the dashboard stream.
func (s *Store) TransactionsAfter(index uint64) []TransactionRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var records []TransactionRecord
	for _, rec := range s.transactions {
		if rec.Index > index {
			records = append(records, rec)
		}
	}

	return records
}

// Close closes the underlying WAL.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.wal.Close()
}
