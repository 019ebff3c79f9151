package wallets

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/vadiminshakov/ultracore/internal/domain"
)

func TestGetUserWalletProvisionsOnce(t *testing.T) {
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)
	defer s.Close()

	w, err := s.GetUserWallet(1, 1)
	require.NoError(t, err)
	require.NotEmpty(t, w.PublicKey)
	require.True(t, w.Balance.IsZero())

	again, err := s.GetUserWallet(1, 1)
	require.NoError(t, err)
	require.Equal(t, w.ID, again.ID)
	require.Equal(t, w.PublicKey, again.PublicKey)

	other, err := s.GetUserWallet(1, 2)
	require.NoError(t, err)
	require.NotEqual(t, w.ID, other.ID, "one wallet per user and asset")
}

func TestCreditDebitCommitted(t *testing.T) {
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)
	defer s.Close()

	w, err := s.GetUserWallet(1, 1)
	require.NoError(t, err)

	require.NoError(t, s.Credit(w, decimal.NewFromInt(100), domain.NewTxMetadata()))
	require.True(t, w.Balance.Equal(decimal.NewFromInt(100)), "passed wallet is refreshed")
	require.True(t, w.AvailableBalance.Equal(decimal.NewFromInt(100)))

	require.NoError(t, s.Debit(w, decimal.NewFromInt(30), domain.NewTxMetadata()))
	require.True(t, w.Balance.Equal(decimal.NewFromInt(70)))
	require.True(t, w.AvailableBalance.Equal(decimal.NewFromInt(70)))
}

func TestPendingDebitLeavesCommittedBalance(t *testing.T) {
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)
	defer s.Close()

	w, err := s.GetUserWallet(1, 1)
	require.NoError(t, err)
	require.NoError(t, s.Credit(w, decimal.NewFromInt(100), domain.NewTxMetadata()))

	meta := domain.NewTxMetadata()
	meta.Commit = false
	require.NoError(t, s.Debit(w, decimal.NewFromInt(40), meta))

	require.True(t, w.Balance.Equal(decimal.NewFromInt(100)))
	require.True(t, w.AvailableBalance.Equal(decimal.NewFromInt(60)))
}

func TestCommittedRowsSumToBalance(t *testing.T) {
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)
	defer s.Close()

	w, err := s.GetUserWallet(1, 1)
	require.NoError(t, err)
	require.NoError(t, s.Credit(w, decimal.NewFromInt(100), domain.NewTxMetadata()))
	require.NoError(t, s.Debit(w, decimal.NewFromInt(30), domain.NewTxMetadata()))

	pending := domain.NewTxMetadata()
	pending.Commit = false
	require.NoError(t, s.Debit(w, decimal.NewFromInt(10), pending))

	sum := decimal.Zero
	for _, tx := range s.TransactionsOf(1) {
		if tx.IsCommitted {
			sum = sum.Add(tx.AssetAmount)
		}
	}
	require.True(t, sum.Equal(w.Balance))
}

func TestRecoveryReplaysWalletsAndTransactions(t *testing.T) {
	dir := t.TempDir()

	s, err := NewStore(dir)
	require.NoError(t, err)

	w, err := s.GetUserWallet(1, 1)
	require.NoError(t, err)
	require.NoError(t, s.Credit(w, decimal.NewFromInt(100), domain.NewTxMetadata()))

	pending := domain.NewTxMetadata()
	pending.Commit = false
	require.NoError(t, s.Debit(w, decimal.NewFromInt(40), pending))
	publicKey := w.PublicKey
	require.NoError(t, s.Close())

	reopened, err := NewStore(dir)
	require.NoError(t, err)
	defer reopened.Close()

	w, err = reopened.GetUserWallet(1, 1)
	require.NoError(t, err)
	require.Equal(t, publicKey, w.PublicKey)
	require.True(t, w.Balance.Equal(decimal.NewFromInt(100)))
	require.True(t, w.AvailableBalance.Equal(decimal.NewFromInt(60)))
	require.Len(t, reopened.TransactionsOf(1), 2)
}

func TestTransactionsAfterForStreaming(t *testing.T) {
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)
	defer s.Close()

	w, err := s.GetUserWallet(1, 1)
	require.NoError(t, err)
	require.NoError(t, s.Credit(w, decimal.NewFromInt(1), domain.NewTxMetadata()))
	require.NoError(t, s.Credit(w, decimal.NewFromInt(2), domain.NewTxMetadata()))
	require.NoError(t, s.Credit(w, decimal.NewFromInt(3), domain.NewTxMetadata()))

	all := s.TransactionsAfter(0)
	require.Len(t, all, 3)

	rest := s.TransactionsAfter(all[0].Index)
	require.Len(t, rest, 2)
	require.True(t, rest[0].Transaction.AssetAmount.Equal(decimal.NewFromInt(2)))
}
