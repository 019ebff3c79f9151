package orders

import (
	"encoding/json"
	"fmt"
	"sort"
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

	orderKeyPrefix = "order_"
)

// Store keeps every buy/sell order ever placed. State lives in memory and is
// journaled to a WAL as full order snapshots; the latest snapshot per order
// wins on recovery. Orders are never deleted, only driven to a terminal
// status.
type Store struct {
	wal    *gowal.Wal
	mu     sync.RWMutex
	orders map[int64]*domain.Order
	lastID int64
}

// NewStore opens the order WAL under dir and replays it.
func NewStore(dir string) (*Store, error) {
	cfg := gowal.Config{
		Dir:              dir,
		Prefix:           "orders_",
		SegmentThreshold: segmentLimit,
		MaxSegments:      maxSegments,
		IsInSyncDiskMode: true,
	}

	wal, err := gowal.NewWAL(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "init order WAL")
	}

	s := &Store{wal: wal, orders: make(map[int64]*domain.Order)}
	for msg := range wal.Iterator() {
		if !strings.HasPrefix(msg.Key, orderKeyPrefix) {
			continue
		}
		var o domain.Order
		if err := json.Unmarshal(msg.Value, &o); err != nil {
			return nil, errors.Wrap(err, "decode order snapshot")
		}
		s.orders[o.ID] = &o
		if o.ID > s.lastID {
			s.lastID = o.ID
		}
	}

	return s, nil
}

func (s *Store) persist(o *domain.Order) error {
	payload, err := json.Marshal(o)
	if err != nil {
		return errors.Wrap(err, "marshal order")
	}

	nextIndex := s.wal.CurrentIndex() + 1
	key := fmt.Sprintf("%s%d", orderKeyPrefix, o.ID)
	return errors.Wrap(s.wal.Write(nextIndex, key, payload), "journal order")
}

// Add persists a new order and assigns its id.
func (s *Store) Add(o *domain.Order) error {
	if o == nil {
		return errors.New("nil order")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *o
	stored.ID = s.lastID + 1
	if err := s.persist(&stored); err != nil {
		return err
	}

	s.lastID = stored.ID
	s.orders[stored.ID] = &stored
	o.ID = stored.ID
	return nil
}

// Get returns a copy of the order.
func (s *Store) Get(id int64) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[id]
	if !ok {
		return nil, errors.Wrapf(domain.ErrOrderNotFound, "order %d", id)
	}

	cp := *o
	return &cp, nil
}

// Pending returns copies of all pending orders split by side, ascending by
// id. Insertion order is the matcher's time priority.
func (s *Store) Pending() (buys, sells []*domain.Order) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, o := range s.orders {
		if o.Status != domain.OrderStatusPending {
			continue
		}
		cp := *o
		if o.Side == domain.SideBuy {
			buys = append(buys, &cp)
		} else {
			sells = append(sells, &cp)
		}
	}

	sort.Slice(buys, func(i, j int) bool { return buys[i].ID < buys[j].ID })
	sort.Slice(sells, func(i, j int) bool { return sells[i].ID < sells[j].ID })
	return buys, sells
}

// IncrementMatchAttempts bumps the attempt counter used for fallback
// eligibility.
func (s *Store) IncrementMatchAttempts(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[id]
	if !ok {
		return errors.Wrapf(domain.ErrOrderNotFound, "order %d", id)
	}

	updated := *o
	updated.MatchAttempts++
	if err := s.persist(&updated); err != nil {
		return err
	}

	*o = updated
	return nil
}

// UpdateSettlement records matching progress for an order.
func (s *Store) UpdateSettlement(id int64, settledSoFar decimal.Decimal, status domain.OrderStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[id]
	if !ok {
		return errors.Wrapf(domain.ErrOrderNotFound, "order %d", id)
	}

	updated := *o
	updated.SettledSoFar = settledSoFar
	updated.Status = status
	if err := s.persist(&updated); err != nil {
		return err
	}

	*o = updated
	return nil
}

// Process marks an order fully settled.
func (s *Store) Process(id int64) error {
	return s.setStatus(id, domain.OrderStatusProcessed, "")
}

// Reject terminates an order with a human-readable reason.
func (s *Store) Reject(id int64, reason string) error {
	return s.setStatus(id, domain.OrderStatusRejected, reason)
}

func (s *Store) setStatus(id int64, status domain.OrderStatus, notes string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[id]
	if !ok {
		return errors.Wrapf(domain.ErrOrderNotFound, "order %d", id)
	}

	updated := *o
	updated.Status = status
	if notes != "" {
		updated.Notes = notes
	}
	if err := s.persist(&updated); err != nil {
		return err
	}

	*o = updated
	return nil
}

// Close closes the underlying WAL.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.wal.Close()
}
