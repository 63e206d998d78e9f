package cache

import (
	"fmt"

	"github.com/bradfitz/gomemcache/memcache"

	"github.com/einar-hansen/cachepool/internal/shared/config"
)

// NewMemcacheClient creates a memcached client for the configured servers.
// A failed Ping is reported but the client is still usable once a server comes up.
func NewMemcacheClient(cfg *config.MemcacheConfig) (*memcache.Client, error) {
	if len(cfg.Servers) == 0 {
		return nil, fmt.Errorf("no memcache servers configured")
	}

	client := memcache.New(cfg.Servers...)
	if cfg.Timeout > 0 {
		client.Timeout = cfg.Timeout
	}

	if err := client.Ping(); err != nil {
		return nil, fmt.Errorf("ping memcache: %w", err)
	}
	return client, nil
}
