// Package cache provides the Redis-backed qualification count cache.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/audience-report/internal/service/qualification"
)

// CountStore caches qualification count snapshots in Redis under a
// configuration-hash key with a TTL. Entries are advisory: a stale entry is
// impossible because a targeting change produces a new key, and a missing or
// expired entry simply forces recomputation.
type CountStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCountStore creates a count cache on the given Redis client.
func NewCountStore(client *redis.Client, ttl time.Duration) *CountStore {
	return &CountStore{client: client, ttl: ttl}
}

func (s *CountStore) key(hash string) string {
	return fmt.Sprintf("qualification:counts:%s", hash)
}

// Get returns the cached counts for the key, reporting whether a value was
// present.
func (s *CountStore) Get(ctx context.Context, key string) (*qualification.QualifiedCounts, bool, error) {
	raw, err := s.client.Get(ctx, s.key(key)).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get cached counts: %w", err)
	}

	var counts qualification.QualifiedCounts
	if err := json.Unmarshal([]byte(raw), &counts); err != nil {
		return nil, false, fmt.Errorf("decode cached counts: %w", err)
	}
	return &counts, true, nil
}

// Set stores the counts under the key with the configured TTL.
func (s *CountStore) Set(ctx context.Context, key string, counts qualification.QualifiedCounts) error {
	raw, err := json.Marshal(counts)
	if err != nil {
		return fmt.Errorf("encode counts: %w", err)
	}
	if err := s.client.Set(ctx, s.key(key), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("set cached counts: %w", err)
	}
	return nil
}
