package db

import (
	"context"
	"time"
)

// Store is the database facade used by the composition root.
type Store interface {
	Pinger
	KVStore
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// KVSetItem holds a single key+value pair for pipelined SET.
type KVSetItem struct {
	Key   string
	Value []byte
}

// KVStore provides simple key-value operations.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// GetMulti returns one value per key; missing keys yield nil entries.
	GetMulti(ctx context.Context, keys []string) ([][]byte, error)
	// SetMulti stores every item; ttl <= 0 means no expiry.
	SetMulti(ctx context.Context, items []KVSetItem, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}
