package wire

import (
	"context"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	boltstore "github.com/einar-hansen/cachepool/internal/adapter/outbound/bolt"
	"github.com/einar-hansen/cachepool/internal/adapter/outbound/breaker"
	memcachestore "github.com/einar-hansen/cachepool/internal/adapter/outbound/memcache"
	"github.com/einar-hansen/cachepool/internal/adapter/outbound/memory"
	"github.com/einar-hansen/cachepool/internal/adapter/outbound/postgres"
	redisstore "github.com/einar-hansen/cachepool/internal/adapter/outbound/redis"
	s3store "github.com/einar-hansen/cachepool/internal/adapter/outbound/s3"
	"github.com/einar-hansen/cachepool/internal/domain/cache"
	"github.com/einar-hansen/cachepool/internal/port/outbound"
	sharedcache "github.com/einar-hansen/cachepool/internal/shared/cache"
	"github.com/einar-hansen/cachepool/internal/shared/config"
	"github.com/einar-hansen/cachepool/internal/shared/database"
	"github.com/einar-hansen/cachepool/internal/shared/logger"
	"github.com/einar-hansen/cachepool/internal/utils/metrics"
)

// ProvideZapLogger builds the structured logger used by the pool and adapters.
func ProvideZapLogger(cfg *config.Config) (*zap.Logger, func()) {
	log := logger.NewZapLogger(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stderr,
	})
	return log, func() { _ = log.Sync() }
}

// ProvideRecorder returns Prometheus metrics, or a no-op recorder when metrics are disabled.
func ProvideRecorder(cfg *config.Config) cache.Recorder {
	if !cfg.Metrics.Enabled {
		return cache.NoopRecorder{}
	}
	return metrics.New(cfg.Metrics.Namespace, prometheus.DefaultRegisterer)
}

// ProvideStore opens the configured backing store and wraps it in a circuit breaker when enabled.
func ProvideStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (outbound.StorePort, func(), error) {
	store, cleanup, err := openStore(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}

	if cfg.Breaker.Enabled {
		store = breaker.NewStore(store, &breaker.Config{
			Name:             cfg.Cache.Backend,
			FailureThreshold: cfg.Breaker.FailureThreshold,
			MaxHalfOpen:      cfg.Breaker.MaxHalfOpen,
			Interval:         cfg.Breaker.Interval,
			Timeout:          cfg.Breaker.Timeout,
		}, log)
	}
	return store, cleanup, nil
}

func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (outbound.StorePort, func(), error) {
	noop := func() {}

	switch cfg.Cache.Backend {
	case config.BackendMemory:
		return memory.NewStore(nil), noop, nil

	case config.BackendRedis:
		client, err := sharedcache.NewRedisClient(ctx, &cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		return redisstore.NewStore(client, cfg.Redis.Prefix), func() {
			if err := client.Close(); err != nil {
				log.Warn("close redis client", zap.Error(err))
			}
		}, nil

	case config.BackendMemcache:
		client, err := sharedcache.NewMemcacheClient(&cfg.Memcache)
		if err != nil {
			return nil, nil, err
		}
		return memcachestore.NewStore(client, cfg.Memcache.Prefix), noop, nil

	case config.BackendBolt:
		store, err := boltstore.Open(cfg.Bolt.Path, boltstore.Options{
			Bucket:  cfg.Bolt.Bucket,
			Timeout: cfg.Bolt.Timeout,
		})
		if err != nil {
			return nil, nil, err
		}
		return store, func() {
			if err := store.Close(); err != nil {
				log.Warn("close bolt store", zap.Error(err))
			}
		}, nil

	case config.BackendS3:
		client, err := sharedcache.NewS3Client(ctx, &cfg.S3)
		if err != nil {
			return nil, nil, err
		}
		return s3store.NewStore(client, cfg.S3.Bucket, cfg.S3.Prefix), noop, nil

	case config.BackendDatabase:
		db, err := database.New(&cfg.Database, cfg.Log.Level == "debug")
		if err != nil {
			return nil, nil, err
		}
		cleanup := func() {
			if err := database.Close(db); err != nil {
				log.Warn("close database", zap.Error(err))
			}
		}
		store := postgres.NewCacheStore(db, cfg.Database.Table)
		if err := store.Migrate(ctx); err != nil {
			cleanup()
			return nil, nil, err
		}
		return store, cleanup, nil

	default:
		return nil, nil, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}
}

// ProvideCodec returns the configured value encoding for raw byte payloads.
func ProvideCodec(cfg *config.Config) (cache.Codec[[]byte], error) {
	switch cfg.Cache.Codec {
	case "", "raw":
		return cache.BytesCodec{}, nil
	case "json":
		return cache.JSONCodec[[]byte]{}, nil
	case "gob":
		return cache.GobCodec[[]byte]{}, nil
	default:
		return nil, fmt.Errorf("unknown cache codec %q", cfg.Cache.Codec)
	}
}

// ProvidePoolConfig collects the pool collaborators.
func ProvidePoolConfig(cfg *config.Config, log *zap.Logger, recorder cache.Recorder) *cache.PoolConfig {
	pc := cache.DefaultPoolConfig()
	pc.Name = cfg.Cache.Name
	pc.Logger = log
	pc.Recorder = recorder
	return pc
}

// ProvidePool builds the pool. Its cleanup commits any deferred items.
func ProvidePool(ctx context.Context, store outbound.StorePort, codec cache.Codec[[]byte], pc *cache.PoolConfig) (*cache.Pool[[]byte], func()) {
	pool := cache.NewPool(store, codec, pc)
	return pool, func() { pool.Close(ctx) }
}
