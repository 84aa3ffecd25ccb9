package memory

import (
	"context"
	"testing"

	"github.com/wmgateway/gateway/domain"
)

func TestStore_GetPutRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := New()
	key := domain.Hash{0x01}

	if _, ok, err := s.Get(ctx, key); err != nil || ok {
		t.Fatalf("Get on empty store: ok=%v err=%v", ok, err)
	}

	if err := s.Put(ctx, key, []byte("value")); err != nil {
		t.Fatalf("Put: %v", err)
	}

	v, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if string(v) != "value" {
		t.Errorf("Get = %q, want value", v)
	}
}

func TestStore_PutCopiesValue(t *testing.T) {
	ctx := context.Background()
	s := New()
	key := domain.Hash{0x02}
	buf := []byte("mutable")

	if err := s.Put(ctx, key, buf); err != nil {
		t.Fatalf("Put: %v", err)
	}
	buf[0] = 'X'

	v, _, err := s.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(v) != "mutable" {
		t.Errorf("Get = %q, want mutable (store must copy on write)", v)
	}
}
