package main

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/einar-hansen/cachepool/internal/domain/cache"
	"github.com/einar-hansen/cachepool/internal/infra/wire"
	"github.com/einar-hansen/cachepool/internal/shared/config"
	apperrors "github.com/einar-hansen/cachepool/internal/shared/errors"
	"github.com/einar-hansen/cachepool/internal/shared/logger"
)

// poolFactory builds a pool for the loaded configuration.
type poolFactory func(ctx context.Context, cfg *config.Config) (*cache.Pool[[]byte], func(), error)

// app carries state shared by all commands.
type app struct {
	newPool poolFactory
	stdin   io.Reader

	configFile string
	backend    string
	cfg        *config.Config
}

func newApp() *app {
	return &app{newPool: wire.InitializePool, stdin: os.Stdin}
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "cachepool",
		Short: "Inspect and modify a cache backing store",
		Long: `cachepool reads and writes items in a configured cache backend
(memory, redis, memcache, bolt, s3 or database) through the item pool.

Configuration is read from config.yaml in ., ./configs or /etc/cachepool,
and from CACHEPOOL_* environment variables.`,
		Version:           Version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.loadConfig,
	}

	rootCmd.PersistentFlags().StringVarP(&a.configFile, "config", "c", "", "Path to configuration file")
	rootCmd.PersistentFlags().StringVarP(&a.backend, "backend", "b", "", "Override the configured backend")

	rootCmd.AddCommand(
		newGetCmd(a),
		newHasCmd(a),
		newSetCmd(a),
		newDeleteCmd(a),
		newClearCmd(a),
		newPruneCmd(a),
		newVersionCmd(),
	)
	return rootCmd
}

func (a *app) loadConfig(cmd *cobra.Command, _ []string) error {
	if cmd.Name() == "version" {
		return nil
	}

	cfg, err := config.LoadFrom(a.configFile)
	if err != nil {
		return apperrors.InvalidArgument("load configuration", err)
	}
	if a.backend != "" {
		cfg.Cache.Backend = a.backend
		if err := cfg.Validate(); err != nil {
			return apperrors.InvalidArgument("invalid --backend", err)
		}
	}
	a.cfg = cfg

	log := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cmd.ErrOrStderr(),
	})
	cmd.SetContext(logger.ContextWithLogger(cmd.Context(), log))
	return nil
}

// withPool opens the pool, runs fn and always releases the pool.
func (a *app) withPool(cmd *cobra.Command, fn func(ctx context.Context, pool *cache.Pool[[]byte]) error) error {
	ctx := cmd.Context()
	log := logger.FromContext(ctx)

	start := time.Now()
	pool, cleanup, err := a.newPool(ctx, a.cfg)
	if err != nil {
		return apperrors.Unavailable("open "+a.cfg.Cache.Backend+" backend", err)
	}
	defer cleanup()
	log.Debug("pool ready", "backend", a.cfg.Cache.Backend, "elapsed", time.Since(start))

	return fn(ctx, pool)
}

// keyError converts a key validation failure to a usage error.
func keyError(err error) error {
	if err == nil {
		return nil
	}
	return apperrors.InvalidArgument("invalid key", err)
}
