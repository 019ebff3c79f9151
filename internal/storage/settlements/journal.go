package settlements

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/gowal"
)

const (
	segmentLimit = 1000
	maxSegments  = 100

	rowKeyPrefix = "settlement_"
)

// Row is one immutable settlement record linking the order that was being
// matched with its counter-order. The WAL index is the row id, so ids are
// strictly ascending in insertion order.
type Row struct {
	ID             uint64          `json:"id"`
	OrderID        int64           `json:"order_id"`
	MatchedOrderID int64           `json:"matched_order_id"`
	Amount         decimal.Decimal `json:"asset_amount"`
}

// Journal is the append-only settlement log. The engine watermarks against
// LastID and replays RowsAfter to apply each settlement exactly once.
type Journal struct {
	wal *gowal.Wal
	mu  sync.RWMutex
}

// NewJournal opens the settlement WAL under dir.
func NewJournal(dir string) (*Journal, error) {
	cfg := gowal.Config{
		Dir:              dir,
		Prefix:           "settlements_",
		SegmentThreshold: segmentLimit,
		MaxSegments:      maxSegments,
		IsInSyncDiskMode: true,
	}

	wal, err := gowal.NewWAL(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "init settlement WAL")
	}

	return &Journal{wal: wal}, nil
}

// Add appends a settlement of amount for orderID against matchedOrderID.
func (j *Journal) Add(orderID, matchedOrderID int64, amount decimal.Decimal) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	id := j.wal.CurrentIndex() + 1
	payload, err := json.Marshal(Row{
		ID:             id,
		OrderID:        orderID,
		MatchedOrderID: matchedOrderID,
		Amount:         amount,
	})
	if err != nil {
		return errors.Wrap(err, "marshal settlement row")
	}

	key := fmt.Sprintf("%s%d", rowKeyPrefix, orderID)
	return errors.Wrap(j.wal.Write(id, key, payload), "journal settlement")
}

// LastID returns the id of the most recent settlement row, 0 when empty.
func (j *Journal) LastID() uint64 {
	j.mu.RLock()
	defer j.mu.RUnlock()

	return j.wal.CurrentIndex()
}

// RowsAfter returns all settlement rows with id > after, ascending.
func (j *Journal) RowsAfter(after uint64) ([]Row, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	current := j.wal.CurrentIndex()
	if current <= after {
		return nil, nil
	}

	rows := make([]Row, 0, current-after)
	for idx := after + 1; idx <= current; idx++ {
		key, payload, err := j.wal.Get(idx)
		if err != nil || !strings.HasPrefix(key, rowKeyPrefix) {
			continue
		}
		var row Row
		if err := json.Unmarshal(payload, &row); err != nil {
			return nil, errors.Wrap(err, "decode settlement row")
		}
		rows = append(rows, row)
	}

	return rows, nil
}

// Close closes the underlying WAL.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	return j.wal.Close()
}
