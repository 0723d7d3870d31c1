package captain

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore keeps the latest progress per record in memory.
type MemoryStore struct {
	mutex     sync.RWMutex
	records   map[string]*Progress
	upserts   int
	finalizes int
	failNext  error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: map[string]*Progress{}}
}

// FailNext makes the next Upsert or Finalize return err.
func (s *MemoryStore) FailNext(err error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.failNext = err
}

func (s *MemoryStore) Upsert(ctx context.Context, id string, progress *Progress) error {
	return s.write(id, progress, false)
}

func (s *MemoryStore) Finalize(ctx context.Context, id string, progress *Progress) error {
	return s.write(id, progress, true)
}

func (s *MemoryStore) write(id string, progress *Progress, final bool) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if err := s.failNext; err != nil {
		s.failNext = nil
		return err
	}
	if existing, ok := s.records[id]; ok && existing.Status == StatusCompleted {
		return fmt.Errorf("record %s already finalized", id)
	}
	copied := *progress
	copied.Data = progress.Data.Clone()
	s.records[id] = &copied
	if final {
		s.finalizes++
	} else {
		s.upserts++
	}
	return nil
}

// Get returns a copy of the latest progress for a record.
func (s *MemoryStore) Get(id string) (*Progress, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	p, ok := s.records[id]
	if !ok {
		return nil, fmt.Errorf("progress %s: %w", id, ErrNotFound)
	}
	copied := *p
	copied.Data = p.Data.Clone()
	return &copied, nil
}

// Counts returns how many upserts and finalizes succeeded.
func (s *MemoryStore) Counts() (upserts, finalizes int) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.upserts, s.finalizes
}
