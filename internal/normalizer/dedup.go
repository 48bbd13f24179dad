package normalizer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisDeduper tracks seen identity keys in Redis via SET NX, which makes
// MarkSeen a single atomic round trip. Keys are hashed so arbitrary
// organization keys can't produce oversized or unsafe Redis keys, and carry
// a TTL so the dedup set doesn't grow unbounded: a signal older than the
// window would re-apply, but the registry's append-only signal store keeps
// ingestion idempotent at the batch horizon that matters.
type RedisDeduper struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisDeduper creates a Redis-backed deduper. A non-positive ttl
// defaults to 30 days.
func NewRedisDeduper(client *redis.Client, ttl time.Duration) *RedisDeduper {
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &RedisDeduper{client: client, ttl: ttl}
}

// MarkSeen records the identity key, reporting whether it already existed.
func (d *RedisDeduper) MarkSeen(ctx context.Context, identityKey string) (bool, error) {
	sum := sha256.Sum256([]byte(identityKey))
	key := fmt.Sprintf("signal:seen:%s", hex.EncodeToString(sum[:16]))
	set, err := d.client.SetNX(ctx, key, 1, d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("dedup setnx: %w", err)
	}
	return !set, nil
}

// MemoryDeduper is an in-process deduper for tests and single-node dev runs.
type MemoryDeduper struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewMemoryDeduper creates an empty in-memory deduper.
func NewMemoryDeduper() *MemoryDeduper {
	return &MemoryDeduper{seen: make(map[string]struct{})}
}

// MarkSeen records the identity key, reporting whether it already existed.
func (d *MemoryDeduper) MarkSeen(_ context.Context, identityKey string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.seen[identityKey]; ok {
		return true, nil
	}
	d.seen[identityKey] = struct{}{}
	return false, nil
}
