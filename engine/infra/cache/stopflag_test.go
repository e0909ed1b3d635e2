package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/genflow/genflow/engine/core"
	"github.com/genflow/genflow/engine/infra/cache"
	"github.com/genflow/genflow/engine/queue"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T, ttl time.Duration) (*cache.RedisFlagStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return cache.NewRedisFlagStore(client, ttl), mr
}

func TestRedisFlagStore(t *testing.T) {
	ctx := context.Background()
	taskID := core.MustNewID()

	t.Run("Should set and observe a stop flag", func(t *testing.T) {
		store, _ := newStore(t, time.Minute)
		stopped, err := store.IsStopped(ctx, taskID, core.InvokeFromWebApp, "user-1")
		require.NoError(t, err)
		assert.False(t, stopped)

		require.NoError(t, store.SetStopFlag(ctx, taskID, core.InvokeFromWebApp, "user-1"))
		stopped, err = store.IsStopped(ctx, taskID, core.InvokeFromWebApp, "user-1")
		require.NoError(t, err)
		assert.True(t, stopped)
	})

	t.Run("Should scope flags to the invoking surface and user", func(t *testing.T) {
		store, _ := newStore(t, time.Minute)
		require.NoError(t, store.SetStopFlag(ctx, taskID, core.InvokeFromWebApp, "user-1"))

		stopped, err := store.IsStopped(ctx, taskID, core.InvokeFromServiceAPI, "user-1")
		require.NoError(t, err)
		assert.False(t, stopped)
		stopped, err = store.IsStopped(ctx, taskID, core.InvokeFromWebApp, "user-2")
		require.NoError(t, err)
		assert.False(t, stopped)
	})

	t.Run("Should expire flags after the TTL", func(t *testing.T) {
		store, mr := newStore(t, time.Minute)
		require.NoError(t, store.SetStopFlag(ctx, taskID, core.InvokeFromWebApp, "user-1"))
		mr.FastForward(2 * time.Minute)
		stopped, err := store.IsStopped(ctx, taskID, core.InvokeFromWebApp, "user-1")
		require.NoError(t, err)
		assert.False(t, stopped)
	})

	t.Run("Should clear a flag explicitly", func(t *testing.T) {
		store, _ := newStore(t, time.Minute)
		require.NoError(t, store.SetStopFlag(ctx, taskID, core.InvokeFromWebApp, "user-1"))
		require.NoError(t, store.ClearStopFlag(ctx, taskID, core.InvokeFromWebApp, "user-1"))
		stopped, err := store.IsStopped(ctx, taskID, core.InvokeFromWebApp, "user-1")
		require.NoError(t, err)
		assert.False(t, stopped)
	})

	t.Run("Should store flags under the composite key", func(t *testing.T) {
		store, mr := newStore(t, time.Minute)
		require.NoError(t, store.SetStopFlag(ctx, taskID, core.InvokeFromDebugger, "user-1"))
		assert.True(t, mr.Exists(queue.StopFlagKey(taskID, core.InvokeFromDebugger, "user-1")))
	})
}
