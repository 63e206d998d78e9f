package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	orderedmap "github.com/wk8/go-ordered-map/v2"
	"go.uber.org/zap"

	"github.com/einar-hansen/cachepool/internal/port/outbound"
)

// Store operation names used in logs and metrics.
const (
	OpHas     = "has"
	OpGet     = "get"
	OpPut     = "put"
	OpForever = "forever"
	OpForget  = "forget"
	OpFlush   = "flush"
	OpPrune   = "prune"
)

// ItemPool is the item-based cache contract exposed to callers.
type ItemPool[V any] interface {
	GetItem(ctx context.Context, key string) (CacheItem[V], error)
	GetItems(ctx context.Context, keys []string) (*orderedmap.OrderedMap[string, CacheItem[V]], error)
	HasItem(ctx context.Context, key string) (bool, error)
	Clear(ctx context.Context) bool
	DeleteItem(ctx context.Context, key string) (bool, error)
	DeleteItems(ctx context.Context, keys []string) (bool, error)
	Save(ctx context.Context, item CacheItem[V]) (bool, error)
	SaveDeferred(ctx context.Context, item CacheItem[V]) (bool, error)
	Commit(ctx context.Context) bool
}

// PoolConfig holds optional pool collaborators.
type PoolConfig struct {
	// Name labels logs and metrics. Defaults to "default".
	Name string
	// Logger receives store failures. Defaults to a no-op logger.
	Logger *zap.Logger
	// Recorder receives metric events. Defaults to NoopRecorder.
	Recorder Recorder
	// Clock is the time source for expiration. Defaults to time.Now.
	Clock func() time.Time
}

// DefaultPoolConfig returns the default pool configuration.
func DefaultPoolConfig() *PoolConfig {
	return &PoolConfig{
		Name:     "default",
		Logger:   zap.NewNop(),
		Recorder: NoopRecorder{},
		Clock:    time.Now,
	}
}

// Pool resolves items against a backing store and buffers deferred writes.
// It is safe for concurrent use.
type Pool[V any] struct {
	store    outbound.StorePort
	codec    Codec[V]
	name     string
	logger   *zap.Logger
	recorder Recorder
	now      func() time.Time

	mu       sync.Mutex
	deferred *orderedmap.OrderedMap[string, *Item[V]]
}

// NewPool creates a pool over store, encoding values with codec.
func NewPool[V any](store outbound.StorePort, codec Codec[V], config *PoolConfig) *Pool[V] {
	defaults := DefaultPoolConfig()
	if config == nil {
		config = defaults
	}
	p := &Pool[V]{
		store:    store,
		codec:    codec,
		name:     config.Name,
		logger:   config.Logger,
		recorder: config.Recorder,
		now:      config.Clock,
		deferred: orderedmap.New[string, *Item[V]](),
	}
	if p.name == "" {
		p.name = defaults.Name
	}
	if p.logger == nil {
		p.logger = defaults.Logger
	}
	if p.recorder == nil {
		p.recorder = defaults.Recorder
	}
	if p.now == nil {
		p.now = defaults.Clock
	}
	p.logger = p.logger.With(zap.String("pool", p.name))
	return p
}

// GetItem returns the item for key. A deferred item shadows the store until committed.
func (p *Pool[V]) GetItem(ctx context.Context, key string) (CacheItem[V], error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}

	p.mu.Lock()
	pending, ok := p.deferred.Get(key)
	if ok {
		pending = pending.clone()
	}
	p.mu.Unlock()

	var item *Item[V]
	if ok {
		item = pending
	} else {
		item = p.fetch(ctx, key)
	}

	p.recorder.RecordLookup(p.name, item.IsHit())
	return item, nil
}

// GetItems resolves every key with GetItem, preserving input order.
func (p *Pool[V]) GetItems(ctx context.Context, keys []string) (*orderedmap.OrderedMap[string, CacheItem[V]], error) {
	items := orderedmap.New[string, CacheItem[V]]()
	for _, key := range keys {
		item, err := p.GetItem(ctx, key)
		if err != nil {
			return nil, err
		}
		items.Set(key, item)
	}
	return items, nil
}

// HasItem reports whether key resolves to a hit.
// A deferred entry is authoritative, even when it has since expired.
func (p *Pool[V]) HasItem(ctx context.Context, key string) (bool, error) {
	if err := ValidateKey(key); err != nil {
		return false, err
	}

	p.mu.Lock()
	pending, ok := p.deferred.Get(key)
	p.mu.Unlock()
	if ok {
		return pending.IsHit(), nil
	}

	found, err := p.storeHas(ctx, key)
	if err != nil {
		return p.storeFailed(OpHas, key, err), nil
	}
	return found, nil
}

// Clear drops the deferred buffer and flushes the store.
// The result reflects the flush only.
func (p *Pool[V]) Clear(ctx context.Context) bool {
	p.mu.Lock()
	p.deferred = orderedmap.New[string, *Item[V]]()
	p.mu.Unlock()
	p.recorder.SetDeferred(p.name, 0)

	err := p.call(OpFlush, func() error {
		return p.store.Flush(ctx)
	})
	if err != nil {
		return p.storeFailed(OpFlush, "", err)
	}
	return true
}

// Prune removes expired entries from stores that keep them until they are
// read. It returns outbound.ErrPruneUnsupported for stores that expire
// entries on their own.
func (p *Pool[V]) Prune(ctx context.Context) (int64, error) {
	pruner, ok := p.store.(outbound.PrunerPort)
	if !ok {
		return 0, outbound.ErrPruneUnsupported
	}

	var removed int64
	err := p.call(OpPrune, func() error {
		var err error
		removed, err = pruner.Prune(ctx)
		return err
	})
	if err != nil {
		if !errors.Is(err, outbound.ErrPruneUnsupported) {
			p.storeFailed(OpPrune, "", err)
		}
		return 0, err
	}
	return removed, nil
}

// DeleteItem removes key from the deferred buffer and the store.
func (p *Pool[V]) DeleteItem(ctx context.Context, key string) (bool, error) {
	if err := ValidateKey(key); err != nil {
		return false, err
	}
	return p.delete(ctx, key), nil
}

// DeleteItems validates every key before deleting any, then attempts all of them.
func (p *Pool[V]) DeleteItems(ctx context.Context, keys []string) (bool, error) {
	if err := validateKeys(keys); err != nil {
		return false, err
	}

	success := true
	for _, key := range keys {
		success = p.delete(ctx, key) && success
	}
	return success, nil
}

// Save persists item immediately. An expiration that leaves no whole second
// of lifetime removes the key from the store and reports false.
func (p *Pool[V]) Save(ctx context.Context, item CacheItem[V]) (bool, error) {
	it, err := p.accept(item)
	if err != nil {
		return false, err
	}
	return p.persist(ctx, it), nil
}

// SaveDeferred buffers a copy of item for the next Commit.
// Items already past their expiration are rejected.
func (p *Pool[V]) SaveDeferred(_ context.Context, item CacheItem[V]) (bool, error) {
	it, err := p.accept(item)
	if err != nil {
		return false, err
	}

	expiresAt, ok := it.Expiration()
	if ok && expiresAt.Before(p.now()) {
		return false, nil
	}

	pending := &Item[V]{
		key:       it.key,
		value:     it.value,
		hit:       true,
		expiresAt: expiresAt,
		now:       p.now,
	}

	p.mu.Lock()
	p.deferred.Set(pending.key, pending)
	count := p.deferred.Len()
	p.mu.Unlock()

	p.recorder.SetDeferred(p.name, count)
	return true, nil
}

// Commit saves every deferred item in insertion order and empties the buffer.
// Every item is attempted; the result is true only if all saves succeeded.
func (p *Pool[V]) Commit(ctx context.Context) bool {
	p.mu.Lock()
	pending := p.deferred
	p.deferred = orderedmap.New[string, *Item[V]]()
	p.mu.Unlock()
	p.recorder.SetDeferred(p.name, 0)

	if pending.Len() == 0 {
		return true
	}

	batch := uuid.NewString()
	success := true
	for pair := pending.Oldest(); pair != nil; pair = pair.Next() {
		success = p.persist(ctx, pair.Value) && success
	}

	p.recorder.RecordCommit(p.name, success)
	p.logger.Debug("deferred items committed",
		zap.String("batch", batch),
		zap.Int("count", pending.Len()),
		zap.Bool("ok", success),
	)
	return success
}

// Close flushes the deferred buffer one last time. Failures are logged only.
func (p *Pool[V]) Close(ctx context.Context) {
	if !p.Commit(ctx) {
		p.logger.Error("final commit failed; some deferred items were not persisted")
	}
}

// Deferred returns the number of items waiting for Commit.
func (p *Pool[V]) Deferred() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.deferred.Len()
}

func (p *Pool[V]) accept(item CacheItem[V]) (*Item[V], error) {
	it, ok := item.(*Item[V])
	if !ok || it == nil {
		return nil, ErrUnsupportedItemType
	}
	if err := ValidateKey(it.key); err != nil {
		return nil, err
	}
	return it, nil
}

func (p *Pool[V]) fetch(ctx context.Context, key string) *Item[V] {
	miss := p.newItem(key, *new(V), false)

	found, err := p.storeHas(ctx, key)
	if err != nil {
		p.storeFailed(OpHas, key, err)
		return miss
	}
	if !found {
		return miss
	}

	var raw []byte
	err = p.call(OpGet, func() error {
		var err error
		raw, err = p.store.Get(ctx, key)
		return err
	})
	if errors.Is(err, outbound.ErrCacheMiss) {
		return miss
	}
	if err != nil {
		p.storeFailed(OpGet, key, err)
		return miss
	}

	value, err := p.codec.Decode(raw)
	if err != nil {
		p.logger.Error("decode cached value", zap.String("key", key), zap.Error(err))
		return miss
	}
	return p.newItem(key, value, true)
}

func (p *Pool[V]) delete(ctx context.Context, key string) bool {
	p.mu.Lock()
	_, removed := p.deferred.Delete(key)
	count := p.deferred.Len()
	p.mu.Unlock()
	if removed {
		p.recorder.SetDeferred(p.name, count)
	}

	found, err := p.storeHas(ctx, key)
	if err != nil {
		return p.storeFailed(OpHas, key, err)
	}
	if !found {
		return true
	}
	return p.forget(ctx, key)
}

func (p *Pool[V]) persist(ctx context.Context, item *Item[V]) bool {
	expiresAt, expires := item.Expiration()

	var lifetime int64
	if expires {
		lifetime = p.lifetime(expiresAt)
		if lifetime <= 0 {
			p.forget(ctx, item.key)
			return false
		}
	}

	raw, err := p.codec.Encode(item.value)
	if err != nil {
		p.logger.Error("encode cache value", zap.String("key", item.key), zap.Error(err))
		return false
	}

	if !expires {
		err = p.call(OpForever, func() error {
			return p.store.Forever(ctx, item.key, raw)
		})
		if err != nil {
			return p.storeFailed(OpForever, item.key, err)
		}
		return true
	}

	err = p.call(OpPut, func() error {
		return p.store.Put(ctx, item.key, raw, time.Duration(lifetime)*time.Second)
	})
	if err != nil {
		return p.storeFailed(OpPut, item.key, err)
	}
	return true
}

// lifetime returns the whole seconds left until expiresAt, truncated toward zero.
func (p *Pool[V]) lifetime(expiresAt time.Time) int64 {
	now := p.now().In(expiresAt.Location())
	return int64(expiresAt.Sub(now) / time.Second)
}

func (p *Pool[V]) forget(ctx context.Context, key string) bool {
	var removed bool
	err := p.call(OpForget, func() error {
		var err error
		removed, err = p.store.Forget(ctx, key)
		return err
	})
	if err != nil {
		return p.storeFailed(OpForget, key, err)
	}
	return removed
}

func (p *Pool[V]) storeHas(ctx context.Context, key string) (bool, error) {
	var found bool
	err := p.call(OpHas, func() error {
		var err error
		found, err = p.store.Has(ctx, key)
		return err
	})
	return found, err
}

// call runs one store operation and reports it to the recorder.
func (p *Pool[V]) call(op string, fn func() error) error {
	start := time.Now()
	err := fn()
	p.recorder.RecordStoreOperation(p.name, op, err, time.Since(start))
	return err
}

// storeFailed logs an operational store failure and converts it to false.
func (p *Pool[V]) storeFailed(op, key string, err error) bool {
	p.logger.Warn("cache store operation failed",
		zap.String("op", op),
		zap.String("key", key),
		zap.Error(err),
	)
	return false
}

func (p *Pool[V]) newItem(key string, value V, hit bool) *Item[V] {
	return NewItem(key, value, hit).WithClock(p.now)
}

// Compile-time checks
var (
	_ CacheItem[any] = (*Item[any])(nil)
	_ ItemPool[any]  = (*Pool[any])(nil)
)
