package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom(writeConfig(t, "{}\n"))
	require.NoError(t, err)

	assert.Equal(t, BackendMemory, cfg.Cache.Backend)
	assert.Equal(t, "default", cfg.Cache.Name)
	assert.Equal(t, "raw", cfg.Cache.Codec)
	assert.Equal(t, "localhost:6379", cfg.Redis.Address)
	assert.Equal(t, []string{"localhost:11211"}, cfg.Memcache.Servers)
	assert.Equal(t, 500*time.Millisecond, cfg.Memcache.Timeout)
	assert.Equal(t, "cache", cfg.Bolt.Bucket)
	assert.Equal(t, "cache_entries", cfg.Database.Table)
	assert.Equal(t, uint32(5), cfg.Breaker.FailureThreshold)
	assert.Equal(t, 30*time.Second, cfg.Breaker.Timeout)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "cachepool", cfg.Metrics.Namespace)
}

func TestLoadFrom_File(t *testing.T) {
	path := writeConfig(t, `
cache:
  backend: redis
  name: sessions
  codec: json
redis:
  address: redis:6379
  prefix: "sess:"
breaker:
  enabled: true
  timeout: 5s
`)

	cfg, err := LoadFrom(path)
	require.NoError(t, err)

	assert.Equal(t, BackendRedis, cfg.Cache.Backend)
	assert.Equal(t, "sessions", cfg.Cache.Name)
	assert.Equal(t, "json", cfg.Cache.Codec)
	assert.Equal(t, "redis:6379", cfg.Redis.Address)
	assert.Equal(t, "sess:", cfg.Redis.Prefix)
	assert.True(t, cfg.Breaker.Enabled)
	assert.Equal(t, 5*time.Second, cfg.Breaker.Timeout)
}

func TestLoadFrom_EnvOverrides(t *testing.T) {
	t.Setenv("CACHEPOOL_CACHE_BACKEND", "bolt")
	t.Setenv("CACHEPOOL_REDIS_PASSWORD", "s3cret")
	t.Setenv("CACHEPOOL_DB_PASSWORD", "pg")

	cfg, err := LoadFrom(writeConfig(t, "cache:\n  backend: memory\n"))
	require.NoError(t, err)

	assert.Equal(t, BackendBolt, cfg.Cache.Backend)
	assert.Equal(t, "s3cret", cfg.Redis.Password)
	assert.Equal(t, "pg", cfg.Database.Password)
}

func TestLoadFrom_MissingExplicitFile(t *testing.T) {
	_, err := LoadFrom(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{Cache: CacheConfig{Backend: BackendMemory, Codec: "raw"}}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"unknown backend", func(c *Config) { c.Cache.Backend = "floppy" }, `unknown cache backend "floppy"`},
		{"unknown codec", func(c *Config) { c.Cache.Codec = "xml" }, `unknown cache codec "xml"`},
		{"memcache without servers", func(c *Config) { c.Cache.Backend = BackendMemcache }, "memcache backend requires at least one server"},
		{"s3 without bucket", func(c *Config) { c.Cache.Backend = BackendS3 }, "s3 backend requires a bucket"},
		{"s3 with bucket", func(c *Config) {
			c.Cache.Backend = BackendS3
			c.S3.Bucket = "cache"
		}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.EqualError(t, err, tt.wantErr)
		})
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	cfg := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", Database: "cache", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=cache sslmode=disable", cfg.DSN())
}
