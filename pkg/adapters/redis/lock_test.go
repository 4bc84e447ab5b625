package redis_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/pacer/pkg/adapters/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisLocker_LockUnlock(t *testing.T) {
	mr, client := newClient(t)
	locker := redis.NewLocker(client, "test:")
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "config", 5*time.Second)
	require.NoError(t, err)
	require.NotNil(t, unlock)

	assert.True(t, mr.Exists("test:lock:config"), "Lock key should be set in Redis")

	require.NoError(t, unlock(ctx))
	assert.False(t, mr.Exists("test:lock:config"), "Lock key should be removed after unlock")
}

func TestRedisLocker_Contention(t *testing.T) {
	_, client := newClient(t)
	locker := redis.NewLocker(client, "test:")
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "config", 5*time.Second)
	require.NoError(t, err)

	// A second caller gives up when its context expires.
	short, cancel := context.WithTimeout(ctx, 150*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(short, "config", 5*time.Second)
	assert.ErrorIs(t, err, redis.ErrLockAcquire)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// And succeeds once the holder releases.
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		second, err := locker.Lock(ctx, "config", 5*time.Second)
		if assert.NoError(t, err) {
			assert.NoError(t, second(ctx))
		}
	}()

	time.Sleep(60 * time.Millisecond)
	require.NoError(t, unlock(ctx))
	wg.Wait()
}

func TestRedisLocker_StaleUnlockDoesNotReleaseNewHolder(t *testing.T) {
	mr, client := newClient(t)
	locker := redis.NewLocker(client, "test:")
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "config", time.Second)
	require.NoError(t, err)

	// The TTL expires and someone else takes the lock.
	mr.FastForward(2 * time.Second)
	_, err = locker.Lock(ctx, "config", 5*time.Second)
	require.NoError(t, err)

	require.NoError(t, unlock(ctx))
	assert.True(t, mr.Exists("test:lock:config"), "stale unlock must not delete the new holder's key")
}
