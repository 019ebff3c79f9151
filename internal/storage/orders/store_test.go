package orders

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/vadiminshakov/ultracore/internal/domain"
)

func newOrder(t *testing.T, side domain.Side, userID int64) *domain.Order {
	t.Helper()
	o, err := domain.NewPendingOrder(side, userID, 1, decimal.NewFromInt(2), decimal.NewFromInt(10))
	require.NoError(t, err)
	return o
}

func TestAddAssignsSequentialIDs(t *testing.T) {
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)
	defer s.Close()

	first := newOrder(t, domain.SideBuy, 1)
	second := newOrder(t, domain.SideSell, 2)
	require.NoError(t, s.Add(first))
	require.NoError(t, s.Add(second))

	require.Equal(t, int64(1), first.ID)
	require.Equal(t, int64(2), second.ID)
}

func TestPendingSplitsSidesInPlacementOrder(t *testing.T) {
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)
	defer s.Close()

	b1 := newOrder(t, domain.SideBuy, 1)
	s1 := newOrder(t, domain.SideSell, 2)
	b2 := newOrder(t, domain.SideBuy, 3)
	require.NoError(t, s.Add(b1))
	require.NoError(t, s.Add(s1))
	require.NoError(t, s.Add(b2))

	require.NoError(t, s.Reject(b2.ID, "test rejection"))

	buys, sells := s.Pending()
	require.Len(t, buys, 1)
	require.Len(t, sells, 1)
	require.Equal(t, b1.ID, buys[0].ID)
	require.Equal(t, s1.ID, sells[0].ID)
}

func TestRejectKeepsReason(t *testing.T) {
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)
	defer s.Close()

	o := newOrder(t, domain.SideBuy, 1)
	require.NoError(t, s.Add(o))
	require.NoError(t, s.Reject(o.ID, "no funds"))

	got, err := s.Get(o.ID)
	require.NoError(t, err)
	require.Equal(t, domain.OrderStatusRejected, got.Status)
	require.Equal(t, "no funds", got.Notes)
}

func TestUpdateSettlementAndRecovery(t *testing.T) {
	dir := t.TempDir()

	s, err := NewStore(dir)
	require.NoError(t, err)

	o := newOrder(t, domain.SideSell, 2)
	require.NoError(t, s.Add(o))
	require.NoError(t, s.IncrementMatchAttempts(o.ID))
	require.NoError(t, s.UpdateSettlement(o.ID, decimal.NewFromInt(4), domain.OrderStatusPending))
	require.NoError(t, s.Close())

	reopened, err := NewStore(dir)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Get(o.ID)
	require.NoError(t, err)
	require.Equal(t, 1, got.MatchAttempts)
	require.True(t, got.SettledSoFar.Equal(decimal.NewFromInt(4)))
	require.Equal(t, domain.OrderStatusPending, got.Status)

	// ids keep growing after recovery
	next := newOrder(t, domain.SideBuy, 3)
	require.NoError(t, reopened.Add(next))
	require.Equal(t, o.ID+1, next.ID)
}

func TestGetUnknownOrder(t *testing.T) {
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Get(42)
	require.ErrorIs(t, err, domain.ErrOrderNotFound)
}
