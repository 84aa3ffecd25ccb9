// Package redis implements domain.KVStore using go-redis/v9, for
// deployments that need the approval ledger and epoch registry to survive
// a gatewayd restart without a full SQL deployment.
package redis

import (
	"context"
	"crypto/tls"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/wmgateway/gateway/domain"
)

// Config holds connection parameters for the Redis-backed store.
type Config struct {
	Addr       string
	Password   string
	DB         int
	PoolSize   int
	MaxRetries int
	TLSEnabled bool

	// KeyPrefix namespaces this store's keys, so a single Redis instance
	// can back more than one gatewayd deployment.
	KeyPrefix string
}

// Store wraps a go-redis client as a domain.KVStore.
type Store struct {
	rdb    *redis.Client
	prefix string
}

var _ domain.KVStore = (*Store)(nil)

// New creates a Store, pinging Redis to verify connectivity before
// returning.
func New(ctx context.Context, cfg Config) (*Store, error) {
	opts := &redis.Options{
		Addr:       cfg.Addr,
		Password:   cfg.Password,
		DB:         cfg.DB,
		PoolSize:   cfg.PoolSize,
		MaxRetries: cfg.MaxRetries,
	}
	if cfg.TLSEnabled {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}

	return &Store{rdb: rdb, prefix: cfg.KeyPrefix}, nil
}

// Close releases the underlying Redis connection pool.
func (s *Store) Close() error {
	return s.rdb.Close()
}

func (s *Store) redisKey(key domain.Hash) string {
	return s.prefix + key.Hex()
}

// Get returns the value stored under key, if any.
func (s *Store) Get(ctx context.Context, key domain.Hash) ([]byte, bool, error) {
	v, err := s.rdb.Get(ctx, s.redisKey(key)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis: get: %w", err)
	}
	return v, true, nil
}

// Put writes value under key with no expiration; the gateway's own ledger
// semantics, not Redis TTLs, decide when a key stops mattering.
func (s *Store) Put(ctx context.Context, key domain.Hash, value []byte) error {
	if err := s.rdb.Set(ctx, s.redisKey(key), value, 0).Err(); err != nil {
		return fmt.Errorf("redis: set: %w", err)
	}
	return nil
}
