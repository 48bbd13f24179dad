package distlock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLockClient(t *testing.T) *redis.Client {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client
}

func TestRedisLockMutualExclusion(t *testing.T) {
	client := newLockClient(t)
	ctx := context.Background()

	first := NewRedisLock(client, "scoring-cycle", time.Minute)
	second := NewRedisLock(client, "scoring-cycle", time.Minute)

	ok, err := first.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, first.Release(ctx))

	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLockReleaseOnlyByOwner(t *testing.T) {
	client := newLockClient(t)
	ctx := context.Background()

	owner := NewRedisLock(client, "scoring-cycle", time.Minute)
	stranger := NewRedisLock(client, "scoring-cycle", time.Minute)

	ok, err := owner.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	// A non-owner release is a no-op: the owner's lock survives.
	require.NoError(t, stranger.Release(ctx))

	ok, err = stranger.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisLockExtend(t *testing.T) {
	client := newLockClient(t)
	ctx := context.Background()

	lock := NewRedisLock(client, "scoring-cycle", time.Minute)
	ok, err := lock.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, lock.Extend(ctx, 10*time.Minute))

	// Still held after the extension.
	other := NewRedisLock(client, "scoring-cycle", time.Minute)
	ok, err = other.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}
