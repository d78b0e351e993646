package logging

import (
	"context"
	"sync"
)

// MemoryStore keeps records in memory. Used by one-shot CLI commands and tests.
type MemoryStore struct {
	mu   sync.RWMutex
	recs []DecisionRecord
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (s *MemoryStore) Append(_ context.Context, rec DecisionRecord) error {
	s.mu.Lock()
	s.recs = append(s.recs, rec)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Query(_ context.Context, q LogQuery) ([]DecisionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var res []DecisionRecord
	for _, r := range s.recs {
		if q.Matches(r) {
			res = append(res, r)
		}
	}
	return q.finish(res), nil
}

func (s *MemoryStore) Close() error { return nil }
