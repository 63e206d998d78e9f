//go:build wireinject

package wire

import (
	"context"

	"github.com/google/wire"

	"github.com/einar-hansen/cachepool/internal/domain/cache"
	"github.com/einar-hansen/cachepool/internal/shared/config"
)

// PoolSet provides a byte pool over the configured backing store.
var PoolSet = wire.NewSet(
	ProvideZapLogger,
	ProvideRecorder,
	ProvideStore,
	ProvideCodec,
	ProvidePoolConfig,
	ProvidePool,
)

// InitializePool creates the pool with all dependencies.
func InitializePool(ctx context.Context, cfg *config.Config) (*cache.Pool[[]byte], func(), error) {
	wire.Build(PoolSet)
	return nil, nil, nil
}
