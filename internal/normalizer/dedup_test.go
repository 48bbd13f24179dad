package normalizer

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisDeduper(t *testing.T) (*RedisDeduper, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisDeduper(client, time.Hour), mr
}

func TestRedisDeduperMarkSeen(t *testing.T) {
	d, _ := newRedisDeduper(t)
	ctx := context.Background()

	seen, err := d.MarkSeen(ctx, "acme.com|breach|feed|1700000000")
	require.NoError(t, err)
	assert.False(t, seen)

	seen, err = d.MarkSeen(ctx, "acme.com|breach|feed|1700000000")
	require.NoError(t, err)
	assert.True(t, seen)

	seen, err = d.MarkSeen(ctx, "acme.com|breach|feed|1700000060")
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestRedisDeduperExpiry(t *testing.T) {
	d, mr := newRedisDeduper(t)
	ctx := context.Background()

	_, err := d.MarkSeen(ctx, "key")
	require.NoError(t, err)

	mr.FastForward(2 * time.Hour)

	seen, err := d.MarkSeen(ctx, "key")
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestMemoryDeduperConcurrentFirstSeen(t *testing.T) {
	d := NewMemoryDeduper()
	ctx := context.Background()

	const workers = 20
	var firsts atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seen, err := d.MarkSeen(ctx, "same-key")
			assert.NoError(t, err)
			if !seen {
				firsts.Add(1)
			}
		}()
	}
	wg.Wait()

	// Exactly one caller observes the key as new.
	assert.Equal(t, int32(1), firsts.Load())
}
