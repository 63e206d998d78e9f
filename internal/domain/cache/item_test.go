package cache

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.t = c.t.Add(d)
}

func TestValidateKey(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		valid bool
	}{
		{"plain", "user.42", true},
		{"dashes and underscores", "a-b_c", true},
		{"unicode", "ключ", true},
		{"empty", "", false},
		{"open brace", "a{b", false},
		{"close brace", "a}b", false},
		{"open paren", "a(b", false},
		{"close paren", "a)b", false},
		{"slash", "a/b", false},
		{"backslash", `a\b`, false},
		{"at", "a@b", false},
		{"colon", "a:b", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateKey(tt.key)
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidKey)

			var keyErr *InvalidKeyError
			require.ErrorAs(t, err, &keyErr)
			assert.Equal(t, tt.key, keyErr.Key)
		})
	}
}

func TestItem(t *testing.T) {
	t.Run("miss discards value", func(t *testing.T) {
		item := NewItem("k", "v", false)
		assert.Equal(t, "k", item.Key())
		assert.False(t, item.IsHit())
		assert.Equal(t, "", item.Get())
	})

	t.Run("hit without expiration", func(t *testing.T) {
		item := NewItem("k", "v", true)
		assert.True(t, item.IsHit())
		assert.Equal(t, "v", item.Get())
		_, ok := item.Expiration()
		assert.False(t, ok)
	})

	t.Run("set keeps hit flag", func(t *testing.T) {
		miss := NewItem("k", 0, false)
		miss.Set(5)
		assert.False(t, miss.IsHit())
		assert.Equal(t, 0, miss.Get())

		hit := NewItem("k", 1, true)
		hit.Set(2).Set(3)
		assert.True(t, hit.IsHit())
		assert.Equal(t, 3, hit.Get())
	})

	t.Run("negative seconds expire immediately", func(t *testing.T) {
		clock := newFakeClock()
		item := NewItem("k", "v", true).WithClock(clock.Now)
		item.ExpiresAfterSeconds(-1)

		assert.False(t, item.IsHit())
		assert.Equal(t, "", item.Get())
	})

	t.Run("zero seconds is not a hit", func(t *testing.T) {
		clock := newFakeClock()
		item := NewItem("k", "v", true).WithClock(clock.Now)
		item.ExpiresAfterSeconds(0)

		assert.False(t, item.IsHit())
	})

	t.Run("seconds beyond duration range stay a hit", func(t *testing.T) {
		clock := newFakeClock()
		item := NewItem("k", "v", true).WithClock(clock.Now)
		item.ExpiresAfterSeconds(10_000_000_000)

		assert.True(t, item.IsHit())
		expiresAt, ok := item.Expiration()
		require.True(t, ok)
		assert.Equal(t, clock.Now().Unix()+10_000_000_000, expiresAt.Unix())
	})

	t.Run("maximum seconds stay a hit", func(t *testing.T) {
		clock := newFakeClock()
		item := NewItem("k", "v", true).WithClock(clock.Now)
		item.ExpiresAfterSeconds(math.MaxInt64)

		assert.True(t, item.IsHit())
		expiresAt, _ := item.Expiration()
		assert.True(t, expiresAt.After(clock.Now()))
	})

	t.Run("minimum seconds expire immediately", func(t *testing.T) {
		clock := newFakeClock()
		item := NewItem("k", "v", true).WithClock(clock.Now)
		item.ExpiresAfterSeconds(math.MinInt64)

		assert.False(t, item.IsHit())
	})

	t.Run("expiration is evaluated lazily", func(t *testing.T) {
		clock := newFakeClock()
		item := NewItem("k", "v", true).WithClock(clock.Now)
		item.ExpiresAfter(10 * time.Second)

		assert.True(t, item.IsHit())
		clock.Advance(9 * time.Second)
		assert.True(t, item.IsHit())
		clock.Advance(time.Second)
		assert.False(t, item.IsHit())
	})

	t.Run("expires after keeps sub-second precision", func(t *testing.T) {
		clock := newFakeClock()
		item := NewItem("k", "v", true).WithClock(clock.Now)
		item.ExpiresAfter(1500 * time.Millisecond)

		expiresAt, ok := item.Expiration()
		require.True(t, ok)
		assert.Equal(t, clock.Now().Add(1500*time.Millisecond), expiresAt)
	})

	t.Run("expires at keeps location", func(t *testing.T) {
		zone := time.FixedZone("UTC+2", 2*60*60)
		at := time.Date(2030, 1, 1, 0, 0, 0, 0, zone)

		item := NewItem("k", "v", true)
		item.ExpiresAt(at)

		expiresAt, ok := item.Expiration()
		require.True(t, ok)
		assert.True(t, at.Equal(expiresAt))
		assert.Equal(t, zone, expiresAt.Location())
	})

	t.Run("zero time clears expiration", func(t *testing.T) {
		clock := newFakeClock()
		item := NewItem("k", "v", true).WithClock(clock.Now)
		item.ExpiresAfterSeconds(-10)
		require.False(t, item.IsHit())

		item.ExpiresAt(time.Time{})
		assert.True(t, item.IsHit())
		_, ok := item.Expiration()
		assert.False(t, ok)
	})

	t.Run("never expires clears expiration", func(t *testing.T) {
		clock := newFakeClock()
		item := NewItem("k", "v", true).WithClock(clock.Now)
		item.ExpiresAfterSeconds(-10)

		assert.True(t, item.NeverExpires().IsHit())
	})
}
