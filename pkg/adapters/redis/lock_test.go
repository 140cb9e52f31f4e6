package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/joule/pkg/adapters/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisLocker_LockUnlock(t *testing.T) {
	mr, client := newClient(t)
	locker := redis.NewLocker(client, "test:")
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "resource1", 5*time.Second)
	require.NoError(t, err)
	require.NotNil(t, unlock)

	assert.True(t, mr.Exists("test:lock:resource1"), "Lock key should be set in Redis")

	require.NoError(t, unlock(ctx))
	assert.False(t, mr.Exists("test:lock:resource1"), "Lock key should be removed after unlock")
}

func TestRedisLocker_Contention(t *testing.T) {
	_, client := newClient(t)
	locker1 := redis.NewLocker(client, "test:")
	locker2 := redis.NewLocker(client, "test:") // Same prefix -> contention
	ctx := context.Background()

	unlock1, err := locker1.Lock(ctx, "shared", 5*time.Second)
	require.NoError(t, err)

	// Client 2 gives up once its context expires.
	shortCtx, cancel := context.WithTimeout(ctx, 300*time.Millisecond)
	defer cancel()
	_, err = locker2.Lock(shortCtx, "shared", 5*time.Second)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// After release, client 2 acquires it.
	require.NoError(t, unlock1(ctx))
	unlock2, err := locker2.Lock(ctx, "shared", 5*time.Second)
	require.NoError(t, err)
	require.NoError(t, unlock2(ctx))
}

func TestRedisLocker_UnlockDoesNotStealForeignLock(t *testing.T) {
	mr, client := newClient(t)
	locker := redis.NewLocker(client, "test:")
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "k", time.Second)
	require.NoError(t, err)

	// Lock expires and someone else takes it.
	mr.FastForward(2 * time.Second)
	require.NoError(t, mr.Set("test:lock:k", "other-owner"))

	require.NoError(t, unlock(ctx))
	got, err := mr.Get("test:lock:k")
	require.NoError(t, err)
	assert.Equal(t, "other-owner", got)
}
