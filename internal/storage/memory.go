package storage

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore is an in-memory Store used in tests and as the fallback when
// no database path is configured.
type MemoryStore struct {
	mu sync.RWMutex
	m  map[string][]byte

	// MaxValueSize, when > 0, rejects writes larger than the limit. Tests
	// use it to simulate storage quota errors.
	MaxValueSize int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{m: make(map[string][]byte)}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.m[key]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value []byte) error {
	if s.MaxValueSize > 0 && len(value) > s.MaxValueSize {
		return fmt.Errorf("storage: value for %q exceeds quota (%d > %d)", key, len(value), s.MaxValueSize)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	v := make([]byte, len(value))
	copy(v, value)
	s.m[key] = v
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
	return nil
}
