package redis

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	"github.com/einar-hansen/cachepool/internal/domain/cache"
	"github.com/einar-hansen/cachepool/internal/port/outbound"
)

// unreachableClient points at a port nothing listens on, so every command fails fast.
func unreachableClient(t *testing.T) *redis.Client {
	t.Helper()
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestStore_Key(t *testing.T) {
	assert.Equal(t, "app:k", NewStore(nil, "app:").key("k"))
	assert.Equal(t, "k", NewStore(nil, "").key("k"))
}

func TestStore_ConnectionErrors(t *testing.T) {
	ctx := context.Background()
	store := NewStore(unreachableClient(t), "test:")

	t.Run("Has", func(t *testing.T) {
		_, err := store.Has(ctx, "k")
		assert.Error(t, err)
	})

	t.Run("Get is not a miss", func(t *testing.T) {
		_, err := store.Get(ctx, "k")
		assert.Error(t, err)
		assert.NotErrorIs(t, err, outbound.ErrCacheMiss)
	})

	t.Run("Forever", func(t *testing.T) {
		assert.Error(t, store.Forever(ctx, "k", []byte("v")))
	})

	t.Run("Put", func(t *testing.T) {
		assert.Error(t, store.Put(ctx, "k", []byte("v"), time.Minute))
	})

	t.Run("Flush", func(t *testing.T) {
		assert.Error(t, store.Flush(ctx))
	})
}

func TestStore_PoolReportsFalse(t *testing.T) {
	ctx := context.Background()
	pool := cache.NewPool[string](NewStore(unreachableClient(t), ""), cache.JSONCodec[string]{}, nil)

	ok, err := pool.Save(ctx, cache.NewItem("k", "v", true))
	assert.NoError(t, err)
	assert.False(t, ok)

	ok, err = pool.HasItem(ctx, "k")
	assert.NoError(t, err)
	assert.False(t, ok)

	assert.False(t, pool.Clear(ctx))
}
