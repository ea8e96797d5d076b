// Package dedup tracks which broadcast identifiers have already been
// processed. State is process-lifetime; losing it on restart only risks
// re-processing, which the sink's idempotent insert absorbs.
package dedup

import (
	"context"
	"sync"
)

// KnownIDLister yields previously persisted identifiers for rehydration.
type KnownIDLister interface {
	ListKnownIDs(ctx context.Context) ([]string, error)
}

// Store answers membership queries over seen broadcast ids. Safe for
// concurrent use by the ingestion loop and verification tasks.
type Store struct {
	mu   sync.RWMutex
	seen map[string]struct{}
}

// NewStore creates an empty dedup store.
func NewStore() *Store {
	return &Store{seen: make(map[string]struct{})}
}

// Seen reports whether the id has been marked.
func (s *Store) Seen(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.seen[id]
	return ok
}

// MarkSeen records the id.
func (s *Store) MarkSeen(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen[id] = struct{}{}
}

// Len returns the number of tracked ids.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.seen)
}

// Rehydrate populates the store from previously persisted identifiers.
func (s *Store) Rehydrate(ctx context.Context, lister KnownIDLister) (int, error) {
	ids, err := lister.ListKnownIDs(ctx)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		s.seen[id] = struct{}{}
	}
	return len(ids), nil
}
