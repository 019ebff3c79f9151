package matcher

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vadiminshakov/ultracore/internal/domain"
	"github.com/vadiminshakov/ultracore/internal/storage/orders"
	"github.com/vadiminshakov/ultracore/internal/storage/settlements"
)

func newMatcher(t *testing.T) (*TradingOrderMatcher, *orders.Store, *settlements.Journal) {
	t.Helper()

	orderStore, err := orders.NewStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { orderStore.Close() })

	journal, err := settlements.NewJournal(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { journal.Close() })

	return NewTradingOrderMatcher(orderStore, journal, zap.NewNop()), orderStore, journal
}

func placeOrder(t *testing.T, store *orders.Store, side domain.Side, userID int64, rate, amount int64) *domain.Order {
	t.Helper()
	o, err := domain.NewPendingOrder(side, userID, 1, decimal.NewFromInt(rate), decimal.NewFromInt(amount))
	require.NoError(t, err)
	require.NoError(t, store.Add(o))
	return o
}

func TestMatchPartialFillLeavesRemainder(t *testing.T) {
	m, store, journal := newMatcher(t)

	buy := placeOrder(t, store, domain.SideBuy, 1, 4, 80)
	sell := placeOrder(t, store, domain.SideSell, 2, 3, 100)

	require.NoError(t, m.Match())

	gotBuy, err := store.Get(buy.ID)
	require.NoError(t, err)
	require.Equal(t, domain.OrderStatusProcessed, gotBuy.Status)
	require.True(t, gotBuy.SettledSoFar.Equal(decimal.NewFromInt(80)))

	gotSell, err := store.Get(sell.ID)
	require.NoError(t, err)
	require.Equal(t, domain.OrderStatusPending, gotSell.Status)
	require.True(t, gotSell.SettledSoFar.Equal(decimal.NewFromInt(80)))
	require.True(t, gotSell.Remaining().Equal(decimal.NewFromInt(20)))
	require.Equal(t, 1, gotSell.MatchAttempts)

	rows, err := journal.RowsAfter(0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.True(t, rows[0].Amount.Equal(decimal.NewFromInt(80)))
	require.Equal(t, sell.ID, rows[0].OrderID)
	require.Equal(t, buy.ID, rows[0].MatchedOrderID)
}

func TestMatchOneBuyAgainstTwoSells(t *testing.T) {
	m, store, journal := newMatcher(t)

	sellA := placeOrder(t, store, domain.SideSell, 2, 3, 60)
	sellB := placeOrder(t, store, domain.SideSell, 3, 3, 50)
	buy := placeOrder(t, store, domain.SideBuy, 1, 4, 100)

	require.NoError(t, m.Match())

	gotBuy, err := store.Get(buy.ID)
	require.NoError(t, err)
	require.Equal(t, domain.OrderStatusProcessed, gotBuy.Status)
	require.True(t, gotBuy.SettledSoFar.Equal(decimal.NewFromInt(100)))

	gotA, err := store.Get(sellA.ID)
	require.NoError(t, err)
	require.Equal(t, domain.OrderStatusProcessed, gotA.Status)
	require.True(t, gotA.SettledSoFar.Equal(decimal.NewFromInt(60)))

	gotB, err := store.Get(sellB.ID)
	require.NoError(t, err)
	require.Equal(t, domain.OrderStatusPending, gotB.Status)
	require.True(t, gotB.SettledSoFar.Equal(decimal.NewFromInt(40)))
	require.True(t, gotB.Remaining().Equal(decimal.NewFromInt(10)))

	rows, err := journal.RowsAfter(0)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.True(t, rows[0].Amount.Equal(decimal.NewFromInt(60)))
	require.True(t, rows[1].Amount.Equal(decimal.NewFromInt(40)))
}

func TestMatchEqualRatesLeavesBookUntouched(t *testing.T) {
	m, store, journal := newMatcher(t)

	buy := placeOrder(t, store, domain.SideBuy, 1, 3, 50)
	sell := placeOrder(t, store, domain.SideSell, 2, 3, 50)

	require.NoError(t, m.Match())

	gotBuy, err := store.Get(buy.ID)
	require.NoError(t, err)
	require.Equal(t, domain.OrderStatusPending, gotBuy.Status)
	require.True(t, gotBuy.SettledSoFar.IsZero())
	require.Equal(t, 1, gotBuy.MatchAttempts, "attempts move even without a match")

	gotSell, err := store.Get(sell.ID)
	require.NoError(t, err)
	require.Equal(t, 1, gotSell.MatchAttempts)

	rows, err := journal.RowsAfter(0)
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestMatchAttemptsAccumulateAcrossRounds(t *testing.T) {
	m, store, _ := newMatcher(t)

	sell := placeOrder(t, store, domain.SideSell, 2, 5, 10)

	require.NoError(t, m.Match())
	require.NoError(t, m.Match())
	require.NoError(t, m.Match())

	got, err := store.Get(sell.ID)
	require.NoError(t, err)
	require.Equal(t, 3, got.MatchAttempts)
	require.Equal(t, domain.OrderStatusPending, got.Status)
}

func TestMatchSkipsOrdersOfSameUser(t *testing.T) {
	m, store, journal := newMatcher(t)

	placeOrder(t, store, domain.SideBuy, 1, 4, 50)
	placeOrder(t, store, domain.SideSell, 1, 3, 50)

	require.NoError(t, m.Match())

	rows, err := journal.RowsAfter(0)
	require.NoError(t, err)
	require.Empty(t, rows)
}
