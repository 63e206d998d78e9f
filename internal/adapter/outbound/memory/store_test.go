package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/einar-hansen/cachepool/internal/domain/cache"
	"github.com/einar-hansen/cachepool/internal/port/outbound"
)

func TestStore(t *testing.T) {
	ctx := context.Background()

	t.Run("Forever and Get", func(t *testing.T) {
		store := NewStore(nil)

		require.NoError(t, store.Forever(ctx, "k", []byte("v")))

		ok, err := store.Has(ctx, "k")
		require.NoError(t, err)
		assert.True(t, ok)

		data, err := store.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, []byte("v"), data)
	})

	t.Run("Get returns miss for absent key", func(t *testing.T) {
		store := NewStore(nil)

		_, err := store.Get(ctx, "absent")
		assert.ErrorIs(t, err, outbound.ErrCacheMiss)
	})

	t.Run("Put expires after ttl", func(t *testing.T) {
		now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		store := NewStore(func() time.Time { return now })

		require.NoError(t, store.Put(ctx, "k", []byte("v"), 2*time.Second))
		ok, _ := store.Has(ctx, "k")
		assert.True(t, ok)

		now = now.Add(2 * time.Second)
		ok, _ = store.Has(ctx, "k")
		assert.False(t, ok)

		_, err := store.Get(ctx, "k")
		assert.ErrorIs(t, err, outbound.ErrCacheMiss)
	})

	t.Run("Put with non-positive ttl removes key", func(t *testing.T) {
		store := NewStore(nil)
		require.NoError(t, store.Forever(ctx, "k", []byte("v")))

		require.NoError(t, store.Put(ctx, "k", []byte("v2"), 0))
		ok, _ := store.Has(ctx, "k")
		assert.False(t, ok)
	})

	t.Run("Forget reports presence", func(t *testing.T) {
		store := NewStore(nil)
		require.NoError(t, store.Forever(ctx, "k", []byte("v")))

		removed, err := store.Forget(ctx, "k")
		require.NoError(t, err)
		assert.True(t, removed)

		removed, err = store.Forget(ctx, "k")
		require.NoError(t, err)
		assert.False(t, removed)
	})

	t.Run("Flush empties the store", func(t *testing.T) {
		store := NewStore(nil)
		require.NoError(t, store.Forever(ctx, "a", []byte("1")))
		require.NoError(t, store.Forever(ctx, "b", []byte("2")))

		require.NoError(t, store.Flush(ctx))
		assert.Equal(t, 0, store.Len())
	})

	t.Run("Prune drops only expired entries", func(t *testing.T) {
		now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		store := NewStore(func() time.Time { return now })
		require.NoError(t, store.Put(ctx, "a", []byte("1"), time.Second))
		require.NoError(t, store.Put(ctx, "b", []byte("2"), time.Hour))
		require.NoError(t, store.Forever(ctx, "c", []byte("3")))
		now = now.Add(time.Minute)

		removed, err := store.Prune(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), removed)
		assert.Equal(t, 2, store.Len())
		assert.Len(t, store.entries, 2)
	})

	t.Run("stored value is copied", func(t *testing.T) {
		store := NewStore(nil)
		value := []byte("abc")
		require.NoError(t, store.Forever(ctx, "k", value))
		value[0] = 'x'

		data, err := store.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, []byte("abc"), data)
	})
}

func TestStore_WithPool(t *testing.T) {
	ctx := context.Background()
	store := NewStore(nil)
	pool := cache.NewPool[string](store, cache.JSONCodec[string]{}, nil)

	item, err := pool.GetItem(ctx, "greeting")
	require.NoError(t, err)
	require.False(t, item.IsHit())

	item.Set("hello").ExpiresAfter(time.Hour)
	ok, err := pool.Save(ctx, item)
	require.NoError(t, err)
	require.True(t, ok)

	got, err := pool.GetItem(ctx, "greeting")
	require.NoError(t, err)
	assert.True(t, got.IsHit())
	assert.Equal(t, "hello", got.Get())

	ok, err = pool.SaveDeferred(ctx, cache.NewItem("later", "soon", true))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, store.Len())

	pool.Close(ctx)
	assert.Equal(t, 2, store.Len())

	ok, err = pool.DeleteItems(ctx, []string{"greeting", "later", "never-stored"})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 0, store.Len())
}
