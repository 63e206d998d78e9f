package outbound

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrCacheMiss is returned by StorePort.Get when the key is absent or expired.
	ErrCacheMiss = errors.New("cache miss")

	// ErrPruneUnsupported is returned when the store expires entries on its own.
	ErrPruneUnsupported = errors.New("store does not support pruning")
)

// StorePort defines the key/value backing store driven by the cache pool.
// Values cross the port as raw bytes; encoding belongs to the caller.
type StorePort interface {
	// Has reports whether a live entry exists for key.
	Has(ctx context.Context, key string) (bool, error)

	// Get retrieves the value for key, or ErrCacheMiss.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put stores value for key with the given TTL.
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Forever stores value for key without expiration.
	Forever(ctx context.Context, key string, value []byte) error

	// Forget removes key. It reports false when there was nothing to remove.
	Forget(ctx context.Context, key string) (bool, error)

	// Flush removes every entry owned by the store.
	Flush(ctx context.Context) error
}

// PrunerPort is implemented by stores that keep expired entries until they
// are read or explicitly removed.
type PrunerPort interface {
	// Prune deletes expired entries and returns how many were removed.
	Prune(ctx context.Context) (int64, error)
}
