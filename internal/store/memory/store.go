// Package memory implements domain.KVStore with a mutex-guarded map, for
// tests, examples, and single-process deployments that don't need
// durability across restarts.
package memory

import (
	"context"
	"sync"

	"github.com/wmgateway/gateway/domain"
)

// Store is an in-memory domain.KVStore.
type Store struct {
	mu   sync.RWMutex
	data map[domain.Hash][]byte
}

// New creates an empty Store.
func New() *Store {
	return &Store{data: make(map[domain.Hash][]byte)}
}

var _ domain.KVStore = (*Store)(nil)

// Get returns the value stored under key, if any.
func (s *Store) Get(_ context.Context, key domain.Hash) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

// Put writes value under key, overwriting any existing value.
func (s *Store) Put(_ context.Context, key domain.Hash, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = append([]byte(nil), value...)
	return nil
}
