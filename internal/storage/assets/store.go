package assets

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

	assetKeyPrefix = "asset_"
)

// Store keeps the asset catalog together with the globally available
// quantity of each asset.
type Store struct {
	wal    *gowal.Wal
	mu     sync.RWMutex
	assets map[int64]*domain.Asset
	lastID int64
}

// NewStore opens the asset WAL under dir and replays it.
func NewStore(dir string) (*Store, error) {
	cfg := gowal.Config{
		Dir:              dir,
		Prefix:           "assets_",
		SegmentThreshold: segmentLimit,
		MaxSegments:      maxSegments,
		IsInSyncDiskMode: true,
	}

	wal, err := gowal.NewWAL(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "init asset WAL")
	}

	s := &Store{wal: wal, assets: make(map[int64]*domain.Asset)}
	for msg := range wal.Iterator() {
		if !strings.HasPrefix(msg.Key, assetKeyPrefix) {
			continue
		}
		var a domain.Asset
		if err := json.Unmarshal(msg.Value, &a); err != nil {
			return nil, errors.Wrap(err, "decode asset snapshot")
		}
		s.assets[a.ID] = &a
		if a.ID > s.lastID {
			s.lastID = a.ID
		}
	}

	return s, nil
}

func (s *Store) persist(a *domain.Asset) error {
	payload, err := json.Marshal(a)
	if err != nil {
		return errors.Wrap(err, "marshal asset")
	}

	key := fmt.Sprintf("%s%d", assetKeyPrefix, a.ID)
	return errors.Wrap(s.wal.Write(s.wal.CurrentIndex()+1, key, payload), "journal asset")
}

// Save persists an asset, assigning an id to new ones.
func (s *Store) Save(a *domain.Asset) error {
	if a == nil {
		return errors.New("nil asset")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *a
	if stored.ID == 0 {
		stored.ID = s.lastID + 1
	}
	if err := s.persist(&stored); err != nil {
		return err
	}

	if stored.ID > s.lastID {
		s.lastID = stored.ID
	}
	s.assets[stored.ID] = &stored
	a.ID = stored.ID
	return nil
}

// GetByID returns a copy of the asset.
func (s *Store) GetByID(id int64) (*domain.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.assets[id]
	if !ok {
		return nil, errors.Wrapf(domain.ErrAssetNotFound, "asset %d", id)
	}

	cp := *a
	cp.Weightings = append([]domain.Weighting(nil), a.Weightings...)
	return &cp, nil
}

// DeductTotalQuantity lowers the globally available quantity of the asset,
// e.g. after crediting units bought off an issuer allotment.
func (s *Store) DeductTotalQuantity(id int64, quantity decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.assets[id]
	if !ok {
		return errors.Wrapf(domain.ErrAssetNotFound, "asset %d", id)
	}

	updated := *a
	updated.NumAssets = a.NumAssets.Sub(quantity)
	if err := s.persist(&updated); err != nil {
		return err
	}

	*a = updated
	return nil
}

// Close closes the underlying WAL.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.wal.Close()
}
