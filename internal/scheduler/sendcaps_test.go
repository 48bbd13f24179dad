package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCaps(t *testing.T, limits CapLimits) *SendCaps {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewSendCaps(client, limits)
}

var capDay = time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)

func TestReserveEnforcesPerContactCap(t *testing.T) {
	caps := newTestCaps(t, CapLimits{Daily: 100, PerOrg: 10, PerContact: 1})
	ctx := context.Background()

	verdict, err := caps.Reserve(ctx, "acme.com", "pat@acme.com", capDay)
	require.NoError(t, err)
	assert.Equal(t, CapAllowed, verdict)

	verdict, err = caps.Reserve(ctx, "acme.com", "pat@acme.com", capDay)
	require.NoError(t, err)
	assert.Equal(t, CapContactExceeded, verdict)

	// A different contact at the same org is unaffected.
	verdict, err = caps.Reserve(ctx, "acme.com", "lee@acme.com", capDay)
	require.NoError(t, err)
	assert.Equal(t, CapAllowed, verdict)
}

func TestReserveEnforcesPerOrgCap(t *testing.T) {
	caps := newTestCaps(t, CapLimits{Daily: 100, PerOrg: 3, PerContact: 1})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		verdict, err := caps.Reserve(ctx, "acme.com", fmt.Sprintf("c%d@acme.com", i), capDay)
		require.NoError(t, err)
		assert.Equal(t, CapAllowed, verdict)
	}

	verdict, err := caps.Reserve(ctx, "acme.com", "c4@acme.com", capDay)
	require.NoError(t, err)
	assert.Equal(t, CapOrgExceeded, verdict)
}

func TestReserveDenialConsumesNothing(t *testing.T) {
	caps := newTestCaps(t, CapLimits{Daily: 2, PerOrg: 2, PerContact: 1})
	ctx := context.Background()

	_, err := caps.Reserve(ctx, "acme.com", "pat@acme.com", capDay)
	require.NoError(t, err)

	// Contact cap denies; the daily and org counters must not move.
	verdict, err := caps.Reserve(ctx, "acme.com", "pat@acme.com", capDay)
	require.NoError(t, err)
	assert.Equal(t, CapContactExceeded, verdict)

	verdict, err = caps.Reserve(ctx, "acme.com", "lee@acme.com", capDay)
	require.NoError(t, err)
	assert.Equal(t, CapAllowed, verdict)
}

func TestReserveDailyCapUnderConcurrency(t *testing.T) {
	const daily = 500
	caps := newTestCaps(t, CapLimits{Daily: daily, PerOrg: daily + 1, PerContact: 1})
	ctx := context.Background()

	var allowed, denied atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < daily+1; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			verdict, err := caps.Reserve(ctx, "acme.com", fmt.Sprintf("c%d@acme.com", i), capDay)
			assert.NoError(t, err)
			if verdict == CapAllowed {
				allowed.Add(1)
			} else {
				denied.Add(1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(daily), allowed.Load())
	assert.Equal(t, int64(1), denied.Load())
}

func TestReserveCountersResetNextDay(t *testing.T) {
	caps := newTestCaps(t, CapLimits{Daily: 1, PerOrg: 1, PerContact: 1})
	ctx := context.Background()

	verdict, err := caps.Reserve(ctx, "acme.com", "pat@acme.com", capDay)
	require.NoError(t, err)
	assert.Equal(t, CapAllowed, verdict)

	verdict, err = caps.Reserve(ctx, "acme.com", "pat@acme.com", capDay)
	require.NoError(t, err)
	assert.Equal(t, CapDailyExceeded, verdict)

	// Day keys are independent; the next day starts fresh.
	verdict, err = caps.Reserve(ctx, "acme.com", "pat@acme.com", capDay.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, CapAllowed, verdict)
}
