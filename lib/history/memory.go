package history

import (
	"context"
	"sync"
)

// MemoryStore keeps watch history in process memory. Used when no durable
// backend is configured and as a fake in tests.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]Progress
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]Progress)}
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (Progress, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.items[id]
	return copyProgress(p), ok, nil
}

func (s *MemoryStore) Set(ctx context.Context, id string, progress Progress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[id] = copyProgress(progress)
	return nil
}

func (s *MemoryStore) All(ctx context.Context) (map[string]Progress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]Progress, len(s.items))
	for id, p := range s.items {
		out[id] = copyProgress(p)
	}
	return out, nil
}

func copyProgress(p Progress) Progress {
	if p.DurationSeconds != nil {
		d := *p.DurationSeconds
		p.DurationSeconds = &d
	}
	return p
}
