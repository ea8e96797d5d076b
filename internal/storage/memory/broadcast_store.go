// Package memory provides an in-memory BroadcastStore, usable both as a
// process-lifetime backend and as a test double.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"broadcast-tracker/internal/storage"
)

// BroadcastStore is an in-memory implementation of storage.BroadcastStore.
type BroadcastStore struct {
	mu   sync.RWMutex
	data map[string]*storage.BroadcastRecord // keyed by broadcast_id
}

// NewBroadcastStore creates a new in-memory broadcast store.
func NewBroadcastStore() *BroadcastStore {
	return &BroadcastStore{
		data: make(map[string]*storage.BroadcastRecord),
	}
}

// InsertBroadcast adds a record; a duplicate broadcast id is a no-op.
func (s *BroadcastStore) InsertBroadcast(_ context.Context, rec storage.BroadcastRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[rec.BroadcastID]; exists {
		return nil
	}

	if rec.InsertedAt.IsZero() {
		rec.InsertedAt = time.Now().UTC()
	}
	recCopy := rec
	s.data[rec.BroadcastID] = &recCopy
	return nil
}

// UpdateOutcome fills one offset's outcome pair; an already-set pair stays
// untouched.
func (s *BroadcastStore) UpdateOutcome(_ context.Context, broadcastID string, offset storage.Offset, variancePct decimal.Decimal, won bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, exists := s.data[broadcastID]
	if !exists {
		return storage.ErrNotFound
	}

	if rec.OutcomeAt(offset).Set() {
		return nil
	}

	v := variancePct
	w := won
	rec.SetOutcomeAt(offset, storage.Outcome{VariancePct: &v, Won: &w})
	return nil
}

// ListKnownIDs returns all stored broadcast ids.
func (s *BroadcastStore) ListKnownIDs(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// ListRecentBroadcasts returns up to limit records, newest first.
func (s *BroadcastStore) ListRecentBroadcasts(_ context.Context, limit int) ([]storage.BroadcastRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := s.snapshot(func(*storage.BroadcastRecord) bool { return true })
	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// ListBroadcastsBetween returns records within a creation-time window,
// oldest first.
func (s *BroadcastStore) ListBroadcastsBetween(_ context.Context, from, to time.Time) ([]storage.BroadcastRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := s.snapshot(func(rec *storage.BroadcastRecord) bool {
		return !rec.CreatedAt.Before(from) && rec.CreatedAt.Before(to)
	})
	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt.Before(records[j].CreatedAt)
	})
	return records, nil
}

// ListPendingOutcomes returns records created before the cutoff with at
// least one unset outcome, oldest first.
func (s *BroadcastStore) ListPendingOutcomes(_ context.Context, createdBefore time.Time) ([]storage.BroadcastRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := s.snapshot(func(rec *storage.BroadcastRecord) bool {
		return rec.CreatedAt.Before(createdBefore) && len(rec.PendingOffsets()) > 0
	})
	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt.Before(records[j].CreatedAt)
	})
	return records, nil
}

// CountBroadcasts counts stored records.
func (s *BroadcastStore) CountBroadcasts(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.data)), nil
}

// Get returns a copy of one record, for tests and inspection.
func (s *BroadcastStore) Get(broadcastID string) (storage.BroadcastRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, exists := s.data[broadcastID]
	if !exists {
		return storage.BroadcastRecord{}, false
	}
	return *rec, true
}

// snapshot copies matching records; callers must hold at least a read lock.
func (s *BroadcastStore) snapshot(match func(*storage.BroadcastRecord) bool) []storage.BroadcastRecord {
	records := make([]storage.BroadcastRecord, 0, len(s.data))
	for _, rec := range s.data {
		if match(rec) {
			records = append(records, *rec)
		}
	}
	return records
}

var _ storage.BroadcastStore = (*BroadcastStore)(nil)
