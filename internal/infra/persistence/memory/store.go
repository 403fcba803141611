// Package memory provides an in-memory catalog store used for tests and
// ephemeral environments. The SQL drivers reuse it as their read mirror.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"datasetmd/internal/catalog"
)

var _ catalog.Store = (*Store)(nil)

// Store keeps records in a map guarded by a RWMutex. Records are deep copied
// on the way in and out.
type Store struct {
	mu      sync.RWMutex
	records map[string]catalog.Record
	now     func() time.Time
}

// NewStore constructs an empty store.
func NewStore() *Store {
	return &Store{
		records: make(map[string]catalog.Record),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Prepare validates rec and stamps its timestamps against any existing record
// without storing it.
func (s *Store) Prepare(rec catalog.Record) (catalog.Record, error) {
	rec.ID = strings.TrimSpace(rec.ID)
	if rec.ID == "" {
		return catalog.Record{}, fmt.Errorf("record id required")
	}
	cp, err := catalog.Clone(rec)
	if err != nil {
		return catalog.Record{}, err
	}
	now := s.now()
	s.mu.RLock()
	existing, ok := s.records[cp.ID]
	s.mu.RUnlock()
	cp.CreatedAt = now
	if ok {
		cp.CreatedAt = existing.CreatedAt
	}
	cp.UpdatedAt = now
	return cp, nil
}

// Commit stores a record returned by Prepare.
func (s *Store) Commit(rec catalog.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.ID] = rec
}

// Put creates or replaces a record.
func (s *Store) Put(_ context.Context, rec catalog.Record) (catalog.Record, error) {
	prepared, err := s.Prepare(rec)
	if err != nil {
		return catalog.Record{}, err
	}
	s.Commit(prepared)
	return catalog.Clone(prepared)
}

// Get returns a copy of the record with id.
func (s *Store) Get(_ context.Context, id string) (catalog.Record, error) {
	s.mu.RLock()
	rec, ok := s.records[id]
	s.mu.RUnlock()
	if !ok {
		return catalog.Record{}, fmt.Errorf("%s: %w", id, catalog.ErrNotFound)
	}
	return catalog.Clone(rec)
}

// List returns copies of all records ordered by ID.
func (s *Store) List(_ context.Context) ([]catalog.Record, error) {
	s.mu.RLock()
	ids := make([]string, 0, len(s.records))
	for id := range s.records {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	sort.Strings(ids)
	out := make([]catalog.Record, 0, len(ids))
	for _, id := range ids {
		rec, err := s.Get(context.Background(), id)
		if err != nil {
			// removed concurrently
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// Delete removes id and reports whether it existed.
func (s *Store) Delete(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[id]; !ok {
		return false, nil
	}
	delete(s.records, id)
	return true, nil
}

// Has reports whether id is stored.
func (s *Store) Has(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.records[id]
	return ok
}

// ImportState replaces the contents of the store with records.
func (s *Store) ImportState(records []catalog.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[string]catalog.Record, len(records))
	for _, rec := range records {
		s.records[rec.ID] = rec
	}
}

// Close is a no-op.
func (s *Store) Close() error { return nil }
