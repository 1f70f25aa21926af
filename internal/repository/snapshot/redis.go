package snapshot

import (
	"context"
	"errors"
	"fmt"

	"github.com/aaronbrezel/mcp-census/internal/db"
)

// kvStore is the consumer interface for the Redis snapshot store (ISP).
type kvStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// RedisStore keeps the snapshot as a single blob so several processes can share one index.
type RedisStore struct {
	kv  kvStore
	key string
}

// NewRedisStore creates a store that reads and writes key.
func NewRedisStore(kv kvStore, key string) *RedisStore {
	return &RedisStore{kv: kv, key: key}
}

// Location returns the key the snapshot lives under.
func (s *RedisStore) Location() string {
	return "redis:" + s.key
}

// Load reads the snapshot. A missing key yields ErrSnapshotNotFound.
func (s *RedisStore) Load(ctx context.Context) (*Snapshot, error) {
	data, err := s.kv.Get(ctx, s.key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("get snapshot: %w", err)
	}
	return Unmarshal(data)
}

// Save overwrites the stored snapshot.
func (s *RedisStore) Save(ctx context.Context, snap *Snapshot) error {
	data, err := Marshal(snap)
	if err != nil {
		return err
	}
	if err := s.kv.Set(ctx, s.key, data); err != nil {
		return fmt.Errorf("set snapshot: %w", err)
	}
	return nil
}
