package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/einar-hansen/cachepool/internal/port/outbound"
)

// DefaultCacheTable is the table used when none is configured.
const DefaultCacheTable = "cache_entries"

// CacheEntry is one cached value. A nil ExpiresAt never expires.
type CacheEntry struct {
	Key       string     `gorm:"column:cache_key;primaryKey;size:255"`
	Value     []byte     `gorm:"column:value;not null"`
	ExpiresAt *time.Time `gorm:"column:expires_at;index"`
	UpdatedAt time.Time  `gorm:"column:updated_at"`
}

// TableName returns the default table name.
func (CacheEntry) TableName() string {
	return DefaultCacheTable
}

// CacheStore implements outbound.StorePort on a SQL table.
type CacheStore struct {
	db    *gorm.DB
	table string
	now   func() time.Time
}

// NewCacheStore creates a database-backed store over table.
func NewCacheStore(db *gorm.DB, table string) *CacheStore {
	if table == "" {
		table = DefaultCacheTable
	}
	return &CacheStore{db: db, table: table, now: time.Now}
}

// Migrate creates or updates the cache table.
func (a *CacheStore) Migrate(ctx context.Context) error {
	if err := a.db.WithContext(ctx).Table(a.table).AutoMigrate(&CacheEntry{}); err != nil {
		return fmt.Errorf("migrate %s: %w", a.table, err)
	}
	return nil
}

func (a *CacheStore) query(tx *gorm.DB) *gorm.DB {
	return tx.Table(a.table)
}

// live restricts a query to entries that have not expired.
func (a *CacheStore) live(now time.Time) func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		return tx.Where("expires_at IS NULL OR expires_at > ?", now)
	}
}

func (a *CacheStore) Has(ctx context.Context, key string) (bool, error) {
	var count int64
	err := a.query(a.db.WithContext(ctx)).
		Where("cache_key = ?", key).
		Scopes(a.live(a.now())).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("count entry: %w", err)
	}
	return count > 0, nil
}

func (a *CacheStore) Get(ctx context.Context, key string) ([]byte, error) {
	var e CacheEntry
	err := a.query(a.db.WithContext(ctx)).
		Where("cache_key = ?", key).
		Scopes(a.live(a.now())).
		First(&e).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, outbound.ErrCacheMiss
		}
		return nil, fmt.Errorf("get entry: %w", err)
	}
	return e.Value, nil
}

// Put upserts value with an expiry of now+ttl. A non-positive ttl removes the key.
func (a *CacheStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		_, err := a.Forget(ctx, key)
		return err
	}
	expiresAt := a.now().Add(ttl)
	return a.save(ctx, &CacheEntry{Key: key, Value: value, ExpiresAt: &expiresAt})
}

func (a *CacheStore) Forever(ctx context.Context, key string, value []byte) error {
	return a.save(ctx, &CacheEntry{Key: key, Value: value})
}

func (a *CacheStore) save(ctx context.Context, e *CacheEntry) error {
	if err := a.upsert(a.db.WithContext(ctx), e).Error; err != nil {
		return fmt.Errorf("upsert entry: %w", err)
	}
	return nil
}

func (a *CacheStore) upsert(tx *gorm.DB, e *CacheEntry) *gorm.DB {
	return a.query(tx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "cache_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "expires_at", "updated_at"}),
		}).
		Create(e)
}

// Forget deletes the row and reports whether it held a live value.
func (a *CacheStore) Forget(ctx context.Context, key string) (bool, error) {
	var deleted []CacheEntry
	err := a.query(a.db.WithContext(ctx)).
		Clauses(clause.Returning{}).
		Where("cache_key = ?", key).
		Delete(&deleted).Error
	if err != nil {
		return false, fmt.Errorf("delete entry: %w", err)
	}

	now := a.now()
	for _, e := range deleted {
		if e.ExpiresAt == nil || e.ExpiresAt.After(now) {
			return true, nil
		}
	}
	return false, nil
}

func (a *CacheStore) Flush(ctx context.Context) error {
	err := a.query(a.db.WithContext(ctx)).
		Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&CacheEntry{}).Error
	if err != nil {
		return fmt.Errorf("flush %s: %w", a.table, err)
	}
	return nil
}

// Prune deletes expired rows and returns how many were removed.
func (a *CacheStore) Prune(ctx context.Context) (int64, error) {
	result := a.query(a.db.WithContext(ctx)).
		Where("expires_at IS NOT NULL AND expires_at <= ?", a.now()).
		Delete(&CacheEntry{})
	return result.RowsAffected, result.Error
}

// Compile-time checks
var (
	_ outbound.StorePort  = (*CacheStore)(nil)
	_ outbound.PrunerPort = (*CacheStore)(nil)
)
