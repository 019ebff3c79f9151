package issuance

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

	recordKeyPrefix = "issuance_"
)

// Store tracks the minting history of every asset: who issued how much and
// what remains consumable. Record ids grow with issuance order, which is the
// order the first-issuer strategy consumes them in.
type Store struct {
	wal     *gowal.Wal
	mu      sync.RWMutex
	records map[int64]*domain.IssuanceRecord
	lastID  int64
}

// NewStore opens the issuance WAL under dir and replays it. The latest
// snapshot per record wins, so remaining quantities survive restarts.
func NewStore(dir string) (*Store, error) {
	cfg := gowal.Config{
		Dir:              dir,
		Prefix:           "issuance_",
		SegmentThreshold: segmentLimit,
		MaxSegments:      maxSegments,
		IsInSyncDiskMode: true,
	}

	wal, err := gowal.NewWAL(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "init issuance WAL")
	}

	s := &Store{wal: wal, records: make(map[int64]*domain.IssuanceRecord)}
	for msg := range wal.Iterator() {
		if !strings.HasPrefix(msg.Key, recordKeyPrefix) {
			continue
		}
		var rec domain.IssuanceRecord
		if err := json.Unmarshal(msg.Value, &rec); err != nil {
			return nil, errors.Wrap(err, "decode issuance record")
		}
		s.records[rec.ID] = &rec
		if rec.ID > s.lastID {
			s.lastID = rec.ID
		}
	}

	return s, nil
}

func (s *Store) persist(rec *domain.IssuanceRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrap(err, "marshal issuance record")
	}

	key := fmt.Sprintf("%s%d", recordKeyPrefix, rec.ID)
	return errors.Wrap(s.wal.Write(s.wal.CurrentIndex()+1, key, payload), "journal issuance record")
}

// Issue records a minting of quantity units of assetID by issuerID.
func (s *Store) Issue(assetID, issuerID int64, quantity decimal.Decimal) (*domain.IssuanceRecord, error) {
	if !quantity.IsPositive() {
		return nil, errors.New("issuance quantity must be greater than zero")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec := &domain.IssuanceRecord{
		ID:                     s.lastID + 1,
		AssetID:                assetID,
		UserID:                 issuerID,
		OriginalQuantityIssued: quantity,
		RemainingQuantity:      quantity,
	}
	if err := s.persist(rec); err != nil {
		return nil, err
	}

	s.lastID = rec.ID
	s.records[rec.ID] = rec

	cp := *rec
	return &cp, nil
}

// RecordsForAsset returns copies of the asset's issuance records, oldest
// first.
func (s *Store) RecordsForAsset(assetID int64) []domain.IssuanceRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var recs []domain.IssuanceRecord
	for _, rec := range s.records {
		if rec.AssetID == assetID {
			recs = append(recs, *rec)
		}
	}

	sort.Slice(recs, func(i, j int) bool { return recs[i].ID < recs[j].ID })
	return recs
}

// RecordsCovering returns the asset's issuance records whose remaining
// quantity alone exceeds the required quantity, oldest first.
func (s *Store) RecordsCovering(assetID int64, required decimal.Decimal) []domain.IssuanceRecord {
	var recs []domain.IssuanceRecord
	for _, rec := range s.RecordsForAsset(assetID) {
		if rec.RemainingQuantity.GreaterThan(required) {
			recs = append(recs, rec)
		}
	}

	return recs
}

// DeductRemaining consumes quantity from the issuer's allotment for the
// asset, oldest records first.
func (s *Store) DeductRemaining(issuerID, assetID int64, quantity decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ids []int64
	for id, rec := range s.records {
		if rec.UserID == issuerID && rec.AssetID == assetID {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	left := quantity
	for _, id := range ids {
		if !left.IsPositive() {
			break
		}
		rec := s.records[id]
		if !rec.RemainingQuantity.IsPositive() {
			continue
		}

		take := decimal.Min(rec.RemainingQuantity, left)
		updated := *rec
		updated.RemainingQuantity = rec.RemainingQuantity.Sub(take)
		if err := s.persist(&updated); err != nil {
			return err
		}
		*rec = updated
		left = left.Sub(take)
	}

	if left.IsPositive() {
		return errors.Wrapf(domain.ErrInsufficientIssuerStock,
			"issuer %d has no %s units of asset %d left to deduct", issuerID, left, assetID)
	}

	return nil
}

// Close closes the underlying WAL.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.wal.Close()
}
