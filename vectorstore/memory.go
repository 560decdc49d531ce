package vectorstore

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore is an in-memory Store for tests. Behavior can be overridden
// per-method via function fields, in which case the override fully replaces
// the default.
type MemoryStore struct {
	// UpsertFunc is called by Upsert if set.
	UpsertFunc func(ctx context.Context, records []Record) error

	// GetFunc is called by Get if set.
	GetFunc func(ctx context.Context, ids []string) ([]string, error)

	// HeartbeatFunc is called by Heartbeat if set.
	HeartbeatFunc func(ctx context.Context) error

	mu      sync.Mutex
	ready   bool
	records map[string]Record
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]Record),
	}
}

// EnsureCollection marks the store ready. Idempotent.
func (s *MemoryStore) EnsureCollection(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = true
	return nil
}

// Upsert inserts the given records, rejecting duplicate ids.
func (s *MemoryStore) Upsert(ctx context.Context, records []Record) error {
	if s.UpsertFunc != nil {
		return s.UpsertFunc(ctx, records)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		return ErrCollectionNotReady
	}
	for _, r := range records {
		if _, exists := s.records[r.ID]; exists {
			return fmt.Errorf("%w: %s", ErrDuplicateID, r.ID)
		}
	}
	for _, r := range records {
		s.records[r.ID] = r
	}
	return nil
}

// Get returns the subset of ids present in the store, in input order.
func (s *MemoryStore) Get(ctx context.Context, ids []string) ([]string, error) {
	if s.GetFunc != nil {
		return s.GetFunc(ctx, ids)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		return nil, ErrCollectionNotReady
	}
	var existing []string
	for _, id := range ids {
		if _, ok := s.records[id]; ok {
			existing = append(existing, id)
		}
	}
	return existing, nil
}

// Count returns the number of stored records.
func (s *MemoryStore) Count(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		return 0, ErrCollectionNotReady
	}
	return len(s.records), nil
}

// Delete removes the given ids; unknown ids are ignored.
func (s *MemoryStore) Delete(ctx context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		return ErrCollectionNotReady
	}
	for _, id := range ids {
		delete(s.records, id)
	}
	return nil
}

// DeleteByDocument removes every record whose metadata source is docID and
// returns the number removed.
func (s *MemoryStore) DeleteByDocument(ctx context.Context, docID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		return 0, ErrCollectionNotReady
	}
	removed := 0
	for id, r := range s.records {
		if r.Metadata.Source == docID {
			delete(s.records, id)
			removed++
		}
	}
	return removed, nil
}

// Heartbeat reports the store alive unless overridden.
func (s *MemoryStore) Heartbeat(ctx context.Context) error {
	if s.HeartbeatFunc != nil {
		return s.HeartbeatFunc(ctx)
	}
	return nil
}

// Record returns the stored record for id, if present. Test helper.
func (s *MemoryStore) Record(id string) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[id]
	return r, ok
}
