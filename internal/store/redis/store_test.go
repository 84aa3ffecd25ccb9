package redis

import (
	"testing"

	"github.com/wmgateway/gateway/domain"
)

func TestStore_RedisKeyNamespacing(t *testing.T) {
	s := &Store{prefix: "gw:"}
	key := domain.Hash{0xab}

	got := s.redisKey(key)
	want := "gw:" + key.Hex()
	if got != want {
		t.Errorf("redisKey = %s, want %s", got, want)
	}
}

func TestStore_RedisKeyEmptyPrefix(t *testing.T) {
	s := &Store{}
	key := domain.Hash{0xcd}

	if got := s.redisKey(key); got != key.Hex() {
		t.Errorf("redisKey = %s, want %s", got, key.Hex())
	}
}
