// Package db declares the key-value store surface used by the catalog and the embedding cache.
package db

import (
	"context"
	"time"
)

// Store is the facade opened by the composition root.
// Consumers declare the narrow sub-interface they need.
type Store interface {
	Pinger
	HashStore
	KVStore
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HashSetItem holds a single key+fields pair for pipelined HSET.
type HashSetItem struct {
	Key    string
	Fields map[string]string
}

// HashStore holds catalog records, one hash per attribute or entity.
type HashStore interface {
	HSetMulti(ctx context.Context, items []HashSetItem) error
	// HGetAllMulti returns one map per key, empty for missing keys.
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	DelMulti(ctx context.Context, keys []string) error
	// Scan returns the distinct keys matching pattern, sorted.
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// KVStore holds opaque cached values.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
