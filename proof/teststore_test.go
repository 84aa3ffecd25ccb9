package proof

import (
	"context"
	"sync"

	"github.com/wmgateway/gateway/domain"
)

type testStore struct {
	mu   sync.Mutex
	data map[domain.Hash][]byte
}

func newTestStore() *testStore {
	return &testStore{data: make(map[domain.Hash][]byte)}
}

func (s *testStore) Get(_ context.Context, key domain.Hash) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *testStore) Put(_ context.Context, key domain.Hash, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = append([]byte(nil), value...)
	return nil
}
