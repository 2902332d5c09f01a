package summarycache

import (
	"context"
	"sync"

	"github.com/STRATINT/stockcast/internal/models"
)

// MemoryStore is an unbounded in-process Store. It backs the LRU when no
// durable tier is configured, so evicted keys are still never regenerated.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[models.SummaryKey]models.SummaryEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[models.SummaryKey]models.SummaryEntry)}
}

func (s *MemoryStore) Load(_ context.Context, key models.SummaryKey) (models.SummaryEntry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[key]
	return entry, ok, nil
}

// Save keeps the first entry stored for a key.
func (s *MemoryStore) Save(_ context.Context, entry models.SummaryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[entry.Key()]; !ok {
		s.entries[entry.Key()] = entry
	}
	return nil
}

// Len returns the number of stored entries.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
