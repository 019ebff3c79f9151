package ven

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/gowal"
	"github.com/vadiminshakov/ultracore/internal/domain"
)

const (
	segmentLimit = 1000
	maxSegments  = 100

	transferKeyPrefix = "ventx_"
)

// Transfer is one Ven movement between two users. FromUserID 0 marks a
// deposit minted into the ledger.
type Transfer struct {
	FromUserID   int64           `json:"from"`
	ToUserID     int64           `json:"to"`
	Amount       decimal.Decimal `json:"amount"`
	Message      string          `json:"message,omitempty"`
	IsSystemSkim bool            `json:"is_system_skim,omitempty"`
}

// Ledger keeps every user's Ven balance and an append-only transfer log.
// A user has a Ven wallet only after a first deposit; the fallback settler
// treats a missing wallet as a hard rejection.
type Ledger struct {
	wal      *gowal.Wal
	mu       sync.RWMutex
	balances map[int64]decimal.Decimal
}

// NewLedger opens the Ven WAL under dir and replays the transfer log.
func NewLedger(dir string) (*Ledger, error) {
	cfg := gowal.Config{
		Dir:              dir,
		Prefix:           "ven_",
		SegmentThreshold: segmentLimit,
		MaxSegments:      maxSegments,
		IsInSyncDiskMode: true,
	}

	wal, err := gowal.NewWAL(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "init ven WAL")
	}

	l := &Ledger{wal: wal, balances: make(map[int64]decimal.Decimal)}
	for msg := range wal.Iterator() {
		if !strings.HasPrefix(msg.Key, transferKeyPrefix) {
			continue
		}
		var t Transfer
		if err := json.Unmarshal(msg.Value, &t); err != nil {
			return nil, errors.Wrap(err, "decode ven transfer")
		}
		l.applyTransfer(t)
	}

	return l, nil
}

func (l *Ledger) applyTransfer(t Transfer) {
	if t.FromUserID != 0 {
		l.balances[t.FromUserID] = l.balances[t.FromUserID].Sub(t.Amount)
	}
	l.balances[t.ToUserID] = l.balances[t.ToUserID].Add(t.Amount)
}

func (l *Ledger) journal(t Transfer) error {
	payload, err := json.Marshal(t)
	if err != nil {
		return errors.Wrap(err, "marshal ven transfer")
	}

	key := fmt.Sprintf("%s%d_%d", transferKeyPrefix, t.FromUserID, t.ToUserID)
	return errors.Wrap(l.wal.Write(l.wal.CurrentIndex()+1, key, payload), "journal ven transfer")
}

// WalletOf returns the Ven wallet of a user. A user who never received Ven
// has no wallet.
func (l *Ledger) WalletOf(userID int64) (*domain.VenWallet, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	balance, ok := l.balances[userID]
	if !ok {
		return nil, errors.Wrapf(domain.ErrWalletNotFound, "ven wallet of user %d", userID)
	}

	return &domain.VenWallet{UserID: userID, Balance: balance}, nil
}

// Deposit mints amount into the user's Ven wallet, creating it if needed.
func (l *Ledger) Deposit(userID int64, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return errors.New("deposit amount must be greater than zero")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	t := Transfer{ToUserID: userID, Amount: amount, Message: "deposit"}
	if err := l.journal(t); err != nil {
		return err
	}

	l.applyTransfer(t)
	return nil
}

// SendVen moves amount from one user to another, failing when the sender's
// balance cannot cover it.
func (l *Ledger) SendVen(fromUserID, toUserID int64, amount decimal.Decimal, message string, isSystemSkim bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	balance, ok := l.balances[fromUserID]
	if !ok {
		return errors.Wrapf(domain.ErrWalletNotFound, "ven wallet of user %d", fromUserID)
	}
	if balance.Sub(amount).IsNegative() {
		return errors.Wrapf(domain.ErrInsufficientVenBalance,
			"balance %s cannot cover %s", balance, amount)
	}

	t := Transfer{
		FromUserID:   fromUserID,
		ToUserID:     toUserID,
		Amount:       amount,
		Message:      message,
		IsSystemSkim: isSystemSkim,
	}
	if err := l.journal(t); err != nil {
		return err
	}

	l.applyTransfer(t)
	return nil
}

// Close closes the underlying WAL.
func (l *Ledger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.wal.Close()
}
