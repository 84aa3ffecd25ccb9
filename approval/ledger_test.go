package approval

import (
	"context"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"

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

func TestLedger_ExecutedIdempotent(t *testing.T) {
	ctx := context.Background()
	l := New(newMemStore())
	id := domain.CommandID{0x01}

	executed, err := l.IsExecuted(ctx, id)
	if err != nil {
		t.Fatalf("IsExecuted: %v", err)
	}
	if executed {
		t.Error("unexpected executed=true before SetExecuted")
	}

	if err := l.SetExecuted(ctx, id); err != nil {
		t.Fatalf("SetExecuted: %v", err)
	}

	executed, err = l.IsExecuted(ctx, id)
	if err != nil {
		t.Fatalf("IsExecuted: %v", err)
	}
	if !executed {
		t.Error("expected executed=true after SetExecuted")
	}

	if err := l.SetExecuted(ctx, id); err != nil {
		t.Fatalf("SetExecuted (second call): %v", err)
	}
}

func TestLedger_ConsumeApprovalSingleUse(t *testing.T) {
	ctx := context.Background()
	l := New(newMemStore())
	id := domain.CommandID{0x02}
	destAddr := common.HexToAddress("0x03")
	payloadHash := domain.Hash{0x04}

	ok, err := l.ConsumeApproval(ctx, id, "ethereum", "0xabc", destAddr, payloadHash)
	if err != nil {
		t.Fatalf("ConsumeApproval (unapproved): %v", err)
	}
	if ok {
		t.Error("expected ConsumeApproval to fail before SetApproved")
	}

	if err := l.SetApproved(ctx, id, "ethereum", "0xabc", destAddr, payloadHash); err != nil {
		t.Fatalf("SetApproved: %v", err)
	}

	approved, err := l.IsApproved(ctx, id, "ethereum", "0xabc", destAddr, payloadHash)
	if err != nil {
		t.Fatalf("IsApproved: %v", err)
	}
	if !approved {
		t.Error("expected IsApproved=true after SetApproved")
	}

	ok, err = l.ConsumeApproval(ctx, id, "ethereum", "0xabc", destAddr, payloadHash)
	if err != nil {
		t.Fatalf("ConsumeApproval (first): %v", err)
	}
	if !ok {
		t.Error("expected first ConsumeApproval to succeed")
	}

	ok, err = l.ConsumeApproval(ctx, id, "ethereum", "0xabc", destAddr, payloadHash)
	if err != nil {
		t.Fatalf("ConsumeApproval (second): %v", err)
	}
	if ok {
		t.Error("expected second ConsumeApproval to fail, approval already consumed")
	}
}

func TestLedger_DifferentParamsDontCollide(t *testing.T) {
	ctx := context.Background()
	l := New(newMemStore())
	id := domain.CommandID{0x05}
	destAddr := common.HexToAddress("0x06")
	payloadHash := domain.Hash{0x07}

	if err := l.SetApproved(ctx, id, "ethereum", "0xabc", destAddr, payloadHash); err != nil {
		t.Fatalf("SetApproved: %v", err)
	}

	approved, err := l.IsApproved(ctx, id, "polygon", "0xabc", destAddr, payloadHash)
	if err != nil {
		t.Fatalf("IsApproved: %v", err)
	}
	if approved {
		t.Error("approval must be scoped to the exact sourceChain it was approved for")
	}
}
