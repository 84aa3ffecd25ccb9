package epoch

import (
	"context"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/wmgateway/gateway/codec"
	"github.com/wmgateway/gateway/domain"
)

type memStore struct {
	mu   sync.Mutex
	data map[domain.Hash][]byte
}

func newMemStore() *memStore {
	return &memStore{data: make(map[domain.Hash][]byte)}
}

func (m *memStore) Get(_ context.Context, key domain.Hash) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memStore) Put(_ context.Context, key domain.Hash, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func operatorSetBlob(t *testing.T, n int) []byte {
	t.Helper()
	ops := make([]common.Address, n)
	weights := make([]*big.Int, n)
	for i := 0; i < n; i++ {
		ops[i] = common.BigToAddress(big.NewInt(int64(i + 1)))
		weights[i] = big.NewInt(1)
	}
	blob, err := codec.EncodeOperatorSet(domain.OperatorSet{
		Operators: ops,
		Weights:   weights,
		Threshold: big.NewInt(int64(n)),
	})
	if err != nil {
		t.Fatalf("EncodeOperatorSet: %v", err)
	}
	return blob
}

func TestRegistry_RegisterAndLookup(t *testing.T) {
	ctx := context.Background()
	r := New(newMemStore(), nil, nil)

	blob := operatorSetBlob(t, 2)
	e, err := r.Register(ctx, blob)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if e != 1 {
		t.Errorf("epoch = %d, want 1", e)
	}

	got, err := r.Lookup(ctx, blob)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if got != e {
		t.Errorf("Lookup = %d, want %d", got, e)
	}

	current, err := r.CurrentEpoch(ctx)
	if err != nil {
		t.Fatalf("CurrentEpoch: %v", err)
	}
	if current != 1 {
		t.Errorf("CurrentEpoch = %d, want 1", current)
	}
}

func TestRegistry_DuplicateRejected(t *testing.T) {
	ctx := context.Background()
	r := New(newMemStore(), nil, nil)
	blob := operatorSetBlob(t, 1)

	if _, err := r.Register(ctx, blob); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	if _, err := r.Register(ctx, blob); err == nil {
		t.Error("expected error registering duplicate operator set")
	}
}

func TestRegistry_InvalidSetRejected(t *testing.T) {
	ctx := context.Background()
	r := New(newMemStore(), nil, nil)

	blob, err := codec.EncodeOperatorSet(domain.OperatorSet{
		Operators: nil,
		Weights:   nil,
		Threshold: big.NewInt(1),
	})
	if err != nil {
		t.Fatalf("EncodeOperatorSet: %v", err)
	}
	if _, err := r.Register(ctx, blob); err == nil {
		t.Error("expected error registering empty operator set")
	}
}

func TestRegistry_IsFresh(t *testing.T) {
	ctx := context.Background()
	r := New(newMemStore(), nil, nil)

	var lastEpoch domain.Epoch
	for i := 0; i < 20; i++ {
		blob := operatorSetBlob(t, i+1)
		e, err := r.Register(ctx, blob)
		if err != nil {
			t.Fatalf("Register #%d: %v", i, err)
		}
		lastEpoch = e
	}

	fresh, err := r.IsFresh(ctx, lastEpoch)
	if err != nil {
		t.Fatalf("IsFresh: %v", err)
	}
	if !fresh {
		t.Error("most recent epoch should be fresh")
	}

	stale, err := r.IsFresh(ctx, 1)
	if err != nil {
		t.Fatalf("IsFresh: %v", err)
	}
	if stale {
		t.Error("epoch 1 should be stale after 20 rotations with retention 16")
	}

	fresh2, err := r.IsFresh(ctx, 0)
	if err != nil {
		t.Fatalf("IsFresh(0): %v", err)
	}
	if fresh2 {
		t.Error("epoch 0 (unregistered) must never be fresh")
	}
}
