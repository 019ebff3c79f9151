package ven

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/vadiminshakov/ultracore/internal/domain"
)

func TestDepositCreatesWallet(t *testing.T) {
	l, err := NewLedger(t.TempDir())
	require.NoError(t, err)
	defer l.Close()

	_, err = l.WalletOf(1)
	require.ErrorIs(t, err, domain.ErrWalletNotFound)

	require.NoError(t, l.Deposit(1, decimal.NewFromInt(100)))

	w, err := l.WalletOf(1)
	require.NoError(t, err)
	require.True(t, w.Balance.Equal(decimal.NewFromInt(100)))

	require.Error(t, l.Deposit(1, decimal.Zero))
	require.Error(t, l.Deposit(1, decimal.NewFromInt(-5)))
}

func TestSendVen(t *testing.T) {
	l, err := NewLedger(t.TempDir())
	require.NoError(t, err)
	defer l.Close()

	require.NoError(t, l.Deposit(1, decimal.NewFromInt(100)))
	require.NoError(t, l.SendVen(1, 2, decimal.NewFromInt(30), "payment", false))

	sender, err := l.WalletOf(1)
	require.NoError(t, err)
	require.True(t, sender.Balance.Equal(decimal.NewFromInt(70)))

	receiver, err := l.WalletOf(2)
	require.NoError(t, err)
	require.True(t, receiver.Balance.Equal(decimal.NewFromInt(30)))
}

func TestSendVenInsufficientBalance(t *testing.T) {
	l, err := NewLedger(t.TempDir())
	require.NoError(t, err)
	defer l.Close()

	require.NoError(t, l.Deposit(1, decimal.NewFromInt(10)))

	err = l.SendVen(1, 2, decimal.NewFromInt(20), "too much", false)
	require.ErrorIs(t, err, domain.ErrInsufficientVenBalance)

	err = l.SendVen(3, 2, decimal.NewFromInt(1), "no wallet", false)
	require.ErrorIs(t, err, domain.ErrWalletNotFound)

	// failed transfers leave balances untouched
	sender, err := l.WalletOf(1)
	require.NoError(t, err)
	require.True(t, sender.Balance.Equal(decimal.NewFromInt(10)))
}

func TestLedgerRecovery(t *testing.T) {
	dir := t.TempDir()

	l, err := NewLedger(dir)
	require.NoError(t, err)
	require.NoError(t, l.Deposit(1, decimal.NewFromInt(100)))
	require.NoError(t, l.SendVen(1, 2, decimal.NewFromInt(25), "payment", false))
	require.NoError(t, l.Close())

	reopened, err := NewLedger(dir)
	require.NoError(t, err)
	defer reopened.Close()

	sender, err := reopened.WalletOf(1)
	require.NoError(t, err)
	require.True(t, sender.Balance.Equal(decimal.NewFromInt(75)))

	receiver, err := reopened.WalletOf(2)
	require.NoError(t, err)
	require.True(t, receiver.Balance.Equal(decimal.NewFromInt(25)))
}
