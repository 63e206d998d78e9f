package bolt

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/einar-hansen/cachepool/internal/domain/cache"
	"github.com/einar-hansen/cachepool/internal/port/outbound"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "cache.bolt"), Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStore(t *testing.T) {
	ctx := context.Background()

	t.Run("Forever and Get", func(t *testing.T) {
		store := openStore(t)
		require.NoError(t, store.Forever(ctx, "k", []byte("v")))

		ok, err := store.Has(ctx, "k")
		require.NoError(t, err)
		assert.True(t, ok)

		data, err := store.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, []byte("v"), data)
	})

	t.Run("empty value is a hit", func(t *testing.T) {
		store := openStore(t)
		require.NoError(t, store.Forever(ctx, "k", nil))

		data, err := store.Get(ctx, "k")
		require.NoError(t, err)
		assert.Empty(t, data)
	})

	t.Run("Get returns miss for absent key", func(t *testing.T) {
		store := openStore(t)
		_, err := store.Get(ctx, "absent")
		assert.ErrorIs(t, err, outbound.ErrCacheMiss)
	})

	t.Run("expired entry is a miss and is removed", func(t *testing.T) {
		store := openStore(t)
		now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		store.now = func() time.Time { return now }

		require.NoError(t, store.Put(ctx, "k", []byte("v"), time.Second))
		ok, _ := store.Has(ctx, "k")
		assert.True(t, ok)

		now = now.Add(time.Second)
		ok, _ = store.Has(ctx, "k")
		assert.False(t, ok)

		_, err := store.Get(ctx, "k")
		assert.ErrorIs(t, err, outbound.ErrCacheMiss)

		removed, err := store.Forget(ctx, "k")
		require.NoError(t, err)
		assert.False(t, removed)
	})

	t.Run("ttl past the nanosecond range stays live", func(t *testing.T) {
		store := openStore(t)
		require.NoError(t, store.Put(ctx, "k", []byte("v"), time.Duration(math.MaxInt64)))

		ok, err := store.Has(ctx, "k")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, int64(math.MaxInt64), store.expiresAt(time.Duration(math.MaxInt64)))
	})

	t.Run("Prune deletes expired entries", func(t *testing.T) {
		store := openStore(t)
		now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		store.now = func() time.Time { return now }

		require.NoError(t, store.Put(ctx, "a", []byte("1"), time.Second))
		require.NoError(t, store.Put(ctx, "b", []byte("2"), time.Second))
		require.NoError(t, store.Put(ctx, "c", []byte("3"), time.Hour))
		require.NoError(t, store.Forever(ctx, "d", []byte("4")))
		now = now.Add(time.Minute)

		removed, err := store.Prune(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(2), removed)

		removed, err = store.Prune(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(0), removed)

		for _, key := range []string{"c", "d"} {
			ok, err := store.Has(ctx, key)
			require.NoError(t, err)
			assert.True(t, ok, key)
		}
	})

	t.Run("Forget reports presence", func(t *testing.T) {
		store := openStore(t)
		require.NoError(t, store.Forever(ctx, "k", []byte("v")))

		removed, err := store.Forget(ctx, "k")
		require.NoError(t, err)
		assert.True(t, removed)

		removed, err = store.Forget(ctx, "k")
		require.NoError(t, err)
		assert.False(t, removed)
	})

	t.Run("Flush recreates bucket", func(t *testing.T) {
		store := openStore(t)
		require.NoError(t, store.Forever(ctx, "a", []byte("1")))
		require.NoError(t, store.Flush(ctx))

		ok, err := store.Has(ctx, "a")
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, store.Forever(ctx, "b", []byte("2")))
	})
}

func TestStore_Reopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cache.bolt")

	store, err := Open(path, Options{Bucket: "items"})
	require.NoError(t, err)
	pool := cache.NewPool[string](store, cache.JSONCodec[string]{}, nil)

	ok, err := pool.SaveDeferred(ctx, cache.NewItem("k", "persisted", true))
	require.NoError(t, err)
	require.True(t, ok)
	pool.Close(ctx)
	require.NoError(t, store.Close())

	store, err = Open(path, Options{Bucket: "items"})
	require.NoError(t, err)
	defer store.Close()

	item, err := cache.NewPool[string](store, cache.JSONCodec[string]{}, nil).GetItem(ctx, "k")
	require.NoError(t, err)
	assert.True(t, item.IsHit())
	assert.Equal(t, "persisted", item.Get())
}
