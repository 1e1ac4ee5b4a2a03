package memstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/samirrijal/campfinder/internal/core/ports"
)

// Store is an in-memory ports.KeyValueStore with an optional byte quota
// across all values, mimicking browser storage limits.
type Store struct {
	mu       sync.RWMutex
	data     map[string][]byte
	used     int
	capacity int
}

// New creates a Store. capacity <= 0 means unbounded.
func New(capacity int) *Store {
	return &Store{data: make(map[string][]byte), capacity: capacity}
}

func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (s *Store) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	used := s.used - len(s.data[key]) + len(value)
	if s.capacity > 0 && used > s.capacity {
		return fmt.Errorf("set %s (%d bytes): %w", key, len(value), ports.ErrQuotaExceeded)
	}
	s.data[key] = append([]byte(nil), value...)
	s.used = used
	return nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.used -= len(s.data[key])
	delete(s.data, key)
	return nil
}

// Used returns the number of bytes held.
func (s *Store) Used() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.used
}
