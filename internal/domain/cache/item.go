package cache

import (
	"math"
	"time"
)

const (
	maxDurationSeconds = int64(math.MaxInt64 / time.Second)
	// maxUnixSeconds keeps time.Unix within the range of time.Time.
	maxUnixSeconds     = int64(math.MaxInt64 - 1<<40)
)

// CacheItem is the caller-facing view of a single cache slot.
type CacheItem[V any] interface {
	// Key returns the immutable key.
	Key() string

	// Get returns the value, or the zero value of V when the item is not a hit.
	Get() V

	// IsHit reports whether the item was found and has not expired.
	IsHit() bool

	// Set replaces the value. The hit flag is left untouched.
	Set(value V) CacheItem[V]

	// ExpiresAt sets an absolute expiration. The zero time clears it.
	ExpiresAt(t time.Time) CacheItem[V]

	// ExpiresAfter sets the expiration relative to now.
	ExpiresAfter(d time.Duration) CacheItem[V]

	// ExpiresAfterSeconds sets the expiration relative to now in whole seconds.
	// Zero and negative values produce an item that is already expired.
	ExpiresAfterSeconds(seconds int64) CacheItem[V]
}

// Item is the CacheItem implementation understood by Pool.
type Item[V any] struct {
	key       string
	value     V
	hit       bool
	expiresAt time.Time
	now       func() time.Time
}

// NewItem creates an item. The value is discarded unless hit is true.
func NewItem[V any](key string, value V, hit bool) *Item[V] {
	item := &Item[V]{
		key: key,
		hit: hit,
		now: time.Now,
	}
	if hit {
		item.value = value
	}
	return item
}

// WithClock replaces the time source used for expiration checks.
func (i *Item[V]) WithClock(now func() time.Time) *Item[V] {
	if now != nil {
		i.now = now
	}
	return i
}

func (i *Item[V]) Key() string {
	return i.key
}

func (i *Item[V]) Get() V {
	if !i.IsHit() {
		var zero V
		return zero
	}
	return i.value
}

func (i *Item[V]) IsHit() bool {
	if !i.hit {
		return false
	}
	if i.expiresAt.IsZero() {
		return true
	}
	return i.expiresAt.After(i.now())
}

func (i *Item[V]) Set(value V) CacheItem[V] {
	i.value = value
	return i
}

func (i *Item[V]) ExpiresAt(t time.Time) CacheItem[V] {
	if t.IsZero() {
		i.expiresAt = time.Time{}
		return i
	}
	// Round(0) drops the monotonic reading; the location is kept.
	i.expiresAt = t.Round(0)
	return i
}

func (i *Item[V]) ExpiresAfter(d time.Duration) CacheItem[V] {
	return i.ExpiresAt(i.now().Add(d))
}

func (i *Item[V]) ExpiresAfterSeconds(seconds int64) CacheItem[V] {
	if seconds < -maxDurationSeconds {
		seconds = -maxDurationSeconds
	}
	if seconds <= maxDurationSeconds {
		return i.ExpiresAfter(time.Duration(seconds) * time.Second)
	}

	// Beyond the range of time.Duration: add whole seconds to the unix time.
	now := i.now()
	sec := now.Unix()
	if seconds > maxUnixSeconds-sec {
		seconds = maxUnixSeconds - sec
	}
	return i.ExpiresAt(time.Unix(sec+seconds, int64(now.Nanosecond())).In(now.Location()))
}

// NeverExpires clears any expiration.
func (i *Item[V]) NeverExpires() *Item[V] {
	i.expiresAt = time.Time{}
	return i
}

// Expiration returns the absolute expiration and whether one is set.
func (i *Item[V]) Expiration() (time.Time, bool) {
	return i.expiresAt, !i.expiresAt.IsZero()
}

func (i *Item[V]) clone() *Item[V] {
	c := *i
	return &c
}
