package memcache

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/bradfitz/gomemcache/memcache"

	"github.com/einar-hansen/cachepool/internal/port/outbound"
)

// maxRelativeExpiration is the largest TTL memcached accepts as a relative
// offset. Longer TTLs must be sent as an absolute unix timestamp.
const maxRelativeExpiration = 30 * 24 * time.Hour

// Client is the subset of *memcache.Client used by the store.
type Client interface {
	Get(key string) (*memcache.Item, error)
	Set(item *memcache.Item) error
	Delete(key string) error
	FlushAll() error
}

// Store implements outbound.StorePort on top of memcached.
type Store struct {
	client Client
	prefix string
	now    func() time.Time
}

// NewStore creates a memcached-backed store.
func NewStore(client Client, prefix string) *Store {
	return &Store{client: client, prefix: prefix, now: time.Now}
}

func (s *Store) key(key string) string {
	return s.prefix + key
}

// expiration converts ttl to the memcached expiration field.
// An absolute time past the int32 range is stored without expiration.
func (s *Store) expiration(ttl time.Duration) int32 {
	seconds := int64(ttl / time.Second)
	if ttl%time.Second != 0 {
		seconds++
	}
	if seconds < 1 {
		seconds = 1
	}
	if ttl > maxRelativeExpiration {
		abs := s.now().Unix() + seconds
		if abs > math.MaxInt32 {
			return 0
		}
		return int32(abs)
	}
	return int32(seconds)
}

func (s *Store) Has(ctx context.Context, key string) (bool, error) {
	_, err := s.Get(ctx, key)
	if errors.Is(err, outbound.ErrCacheMiss) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	item, err := s.client.Get(s.key(key))
	if err != nil {
		if errors.Is(err, memcache.ErrCacheMiss) {
			return nil, outbound.ErrCacheMiss
		}
		return nil, fmt.Errorf("get: %w", err)
	}
	return item.Value, nil
}

func (s *Store) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		_, err := s.Forget(ctx, key)
		return err
	}
	return s.set(key, value, s.expiration(ttl))
}

func (s *Store) Forever(_ context.Context, key string, value []byte) error {
	return s.set(key, value, 0)
}

func (s *Store) set(key string, value []byte, expiration int32) error {
	err := s.client.Set(&memcache.Item{
		Key:        s.key(key),
		Value:      value,
		Expiration: expiration,
	})
	if err != nil {
		return fmt.Errorf("set: %w", err)
	}
	return nil
}

func (s *Store) Forget(_ context.Context, key string) (bool, error) {
	err := s.client.Delete(s.key(key))
	if err != nil {
		if errors.Is(err, memcache.ErrCacheMiss) {
			return false, nil
		}
		return false, fmt.Errorf("delete: %w", err)
	}
	return true, nil
}

// Flush invalidates every item on every server. memcached has no namespaces,
// so the key prefix does not limit the flush.
func (s *Store) Flush(_ context.Context) error {
	if err := s.client.FlushAll(); err != nil {
		return fmt.Errorf("flush all: %w", err)
	}
	return nil
}

// Compile-time checks
var (
	_ outbound.StorePort = (*Store)(nil)
	_ Client             = (*memcache.Client)(nil)
)
