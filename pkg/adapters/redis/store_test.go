package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/joule/pkg/adapters/redis"
	"github.com/aretw0/joule/pkg/domain"
	"github.com/aretw0/joule/pkg/ports"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err, "Failed to start miniredis")
	t.Cleanup(mr.Close)

	client := backend.NewClient(&backend.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisStore_Contract(t *testing.T) {
	_, client := newClient(t)
	store := redis.NewFromClient(client)
	ports.RunSessionStoreContract(t, store)
}

func TestRedisStore_TTL_Expiration(t *testing.T) {
	mr, client := newClient(t)

	store := redis.NewFromClient(client, redis.WithTTL(1*time.Second))
	ctx := context.Background()
	sessionID := "session-ttl"

	err := store.Save(ctx, sessionID, domain.NewSession(sessionID))
	assert.NoError(t, err)

	sessions, err := store.List(ctx)
	assert.NoError(t, err)
	assert.Contains(t, sessions, sessionID)

	// Fast Forward time in miniredis (for Key Expiration)
	mr.FastForward(2 * time.Second)

	_, err = store.Load(ctx, sessionID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	// Lazy index cleanup compares against time.Now(), so real time has to pass.
	time.Sleep(1200 * time.Millisecond)

	sessions, err = store.List(ctx)
	assert.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestRedisStore_Prefix(t *testing.T) {
	mr, client := newClient(t)

	store := redis.NewFromClient(client, redis.WithPrefix("custom:app:"))
	ctx := context.Background()
	sessionID := "my-session"

	err := store.Save(ctx, sessionID, domain.NewSession(sessionID))
	assert.NoError(t, err)

	assert.True(t, mr.Exists("custom:app:s:my-session"), "Expected key with custom prefix to exist")
	assert.True(t, mr.Exists("custom:app:idx"), "Expected index with custom prefix to exist")

	list, err := store.List(ctx)
	assert.NoError(t, err)
	assert.Contains(t, list, sessionID)
}

func TestRedisStore_SessionIDsCannotCollideWithInternalKeys(t *testing.T) {
	_, client := newClient(t)
	store := redis.NewFromClient(client)
	locker := redis.NewLocker(client, redis.DefaultPrefix)
	ctx := context.Background()

	ids := []string{"alice", "index", "idx", "lock:bob", "s:alice"}
	for _, id := range ids {
		require.NoError(t, store.Save(ctx, id, domain.NewSession(id)), "save %q", id)
	}

	list, err := store.List(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, ids, list)

	loaded, err := store.Load(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", loaded.ID)

	lockCtx, cancel := context.WithTimeout(ctx, 300*time.Millisecond)
	defer cancel()
	unlock, err := locker.Lock(lockCtx, "bob", time.Second)
	require.NoError(t, err, "a session named lock:bob must not hold bob's lock")
	require.NoError(t, unlock(ctx))
}
