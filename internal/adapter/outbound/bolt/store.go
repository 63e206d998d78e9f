package bolt

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/einar-hansen/cachepool/internal/port/outbound"
)

// headerSize is the length of the expiry prefix on every stored value.
const headerSize = 8

// Options configures a bolt store.
type Options struct {
	// Bucket is the name of the Bolt bucket to use. Defaults to "cache".
	Bucket string
	// Timeout bounds how long Open waits for the file lock. Defaults to one second.
	Timeout time.Duration
}

// Store implements outbound.StorePort on a single bbolt file.
// Values are laid out as an 8 byte big endian expiry in unix nanoseconds
// (zero for never) followed by the raw payload.
type Store struct {
	db     *bolt.DB
	bucket []byte
	now    func() time.Time
}

// Open initializes or opens a Store at the given path.
func Open(path string, opts Options) (*Store, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = time.Second
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("open bolt %s: %w", path, err)
	}

	bucket := []byte("cache")
	if opts.Bucket != "" {
		bucket = []byte(opts.Bucket)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create bucket: %w", err)
	}
	return &Store{db: db, bucket: bucket, now: time.Now}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) live(v []byte) bool {
	if len(v) < headerSize {
		return false
	}
	expiresAt := int64(binary.BigEndian.Uint64(v[:headerSize]))
	return expiresAt == 0 || s.now().UnixNano() < expiresAt
}

func (s *Store) Has(_ context.Context, key string) (bool, error) {
	var found bool
	err := s.db.View(func(tx *bolt.Tx) error {
		found = s.live(tx.Bucket(s.bucket).Get([]byte(key)))
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("view: %w", err)
	}
	return found, nil
}

func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	var out []byte
	var expired bool
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(s.bucket).Get([]byte(key))
		if v == nil {
			return nil
		}
		if !s.live(v) {
			expired = true
			return nil
		}
		out = append([]byte{}, v[headerSize:]...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("view: %w", err)
	}
	if expired {
		if err := s.db.Update(func(tx *bolt.Tx) error {
			return tx.Bucket(s.bucket).Delete([]byte(key))
		}); err != nil {
			return nil, fmt.Errorf("delete expired: %w", err)
		}
		return nil, outbound.ErrCacheMiss
	}
	if out == nil {
		return nil, outbound.ErrCacheMiss
	}
	return out, nil
}

// Put stores value with an absolute expiration of now+ttl. A non-positive ttl removes the key.
func (s *Store) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		_, err := s.Forget(ctx, key)
		return err
	}
	return s.write(key, value, s.expiresAt(ttl))
}

// maxExpiry is the latest time whose unix nanoseconds fit in an int64.
var maxExpiry = time.Unix(0, math.MaxInt64)

// expiresAt returns now+ttl in unix nanoseconds, clamped to maxExpiry.
func (s *Store) expiresAt(ttl time.Duration) int64 {
	t := s.now().Add(ttl)
	if !t.Before(maxExpiry) {
		return math.MaxInt64
	}
	return t.UnixNano()
}

func (s *Store) Forever(_ context.Context, key string, value []byte) error {
	return s.write(key, value, 0)
}

func (s *Store) write(key string, value []byte, expiresAt int64) error {
	buf := make([]byte, headerSize+len(value))
	binary.BigEndian.PutUint64(buf[:headerSize], uint64(expiresAt))
	copy(buf[headerSize:], value)

	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).Put([]byte(key), buf)
	})
	if err != nil {
		return fmt.Errorf("put: %w", err)
	}
	return nil
}

func (s *Store) Forget(_ context.Context, key string) (bool, error) {
	var removed bool
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		v := b.Get([]byte(key))
		if v == nil {
			return nil
		}
		removed = s.live(v)
		return b.Delete([]byte(key))
	})
	if err != nil {
		return false, fmt.Errorf("delete: %w", err)
	}
	return removed, nil
}

// Flush drops and recreates the bucket.
func (s *Store) Flush(_ context.Context) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(s.bucket); err != nil {
			return err
		}
		_, err := tx.CreateBucket(s.bucket)
		return err
	})
	if err != nil {
		return fmt.Errorf("flush bucket: %w", err)
	}
	return nil
}

// Prune deletes every expired entry in the bucket.
func (s *Store) Prune(_ context.Context) (int64, error) {
	var removed int64
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)

		var expired [][]byte
		if err := b.ForEach(func(k, v []byte) error {
			if !s.live(v) {
				expired = append(expired, append([]byte(nil), k...))
			}
			return nil
		}); err != nil {
			return err
		}

		for _, k := range expired {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		removed = int64(len(expired))
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("prune: %w", err)
	}
	return removed, nil
}

// Compile-time checks
var (
	_ outbound.StorePort  = (*Store)(nil)
	_ outbound.PrunerPort = (*Store)(nil)
)
