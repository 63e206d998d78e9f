package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/einar-hansen/cachepool/internal/domain/cache"
	"github.com/einar-hansen/cachepool/internal/port/outbound"
	apperrors "github.com/einar-hansen/cachepool/internal/shared/errors"
)

func newGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get KEY",
		Short: "Print the value stored under KEY",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withPool(cmd, func(ctx context.Context, pool *cache.Pool[[]byte]) error {
				item, err := pool.GetItem(ctx, args[0])
				if err != nil {
					return keyError(err)
				}
				if !item.IsHit() {
					return apperrors.NotFound(args[0])
				}
				_, err = cmd.OutOrStdout().Write(item.Get())
				return err
			})
		},
	}
}

func newHasCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "has KEY",
		Short: "Report whether KEY holds a live value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withPool(cmd, func(ctx context.Context, pool *cache.Pool[[]byte]) error {
				ok, err := pool.HasItem(ctx, args[0])
				if err != nil {
					return keyError(err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), ok)
				return nil
			})
		},
	}
}

// setFlags holds the flags for the set command
type setFlags struct {
	ttl      time.Duration
	deferred bool
}

func newSetCmd(a *app) *cobra.Command {
	var opts setFlags

	cmd := &cobra.Command{
		Use:   "set KEY [VALUE]",
		Short: "Store VALUE under KEY",
		Long: `Store VALUE under KEY. When VALUE is omitted or "-" it is read from stdin.

A positive --ttl expires the item after that duration; without it the
item never expires. --defer queues the item and commits it on exit.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := a.readValue(args)
			if err != nil {
				return err
			}

			return a.withPool(cmd, func(ctx context.Context, pool *cache.Pool[[]byte]) error {
				item := cache.NewItem(args[0], []byte(nil), false)
				item.Set(value)
				if opts.ttl > 0 {
					item.ExpiresAfter(opts.ttl)
				}

				if opts.deferred {
					ok, err := pool.SaveDeferred(ctx, item)
					if err != nil {
						return keyError(err)
					}
					if !ok || !pool.Commit(ctx) {
						return apperrors.Unavailable("commit "+args[0], nil)
					}
					return nil
				}

				ok, err := pool.Save(ctx, item)
				if err != nil {
					return keyError(err)
				}
				if !ok {
					return apperrors.Unavailable("save "+args[0], nil)
				}
				return nil
			})
		},
	}

	cmd.Flags().DurationVarP(&opts.ttl, "ttl", "t", 0, "Expire the item after this duration (0 = never)")
	cmd.Flags().BoolVar(&opts.deferred, "defer", false, "Save through the deferred buffer and commit")
	return cmd
}

func (a *app) readValue(args []string) ([]byte, error) {
	if len(args) == 2 && args[1] != "-" {
		return []byte(args[1]), nil
	}
	value, err := io.ReadAll(a.stdin)
	if err != nil {
		return nil, apperrors.InvalidArgument("read value from stdin", err)
	}
	return value, nil
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "delete KEY...",
		Aliases: []string{"del", "rm"},
		Short:   "Remove one or more keys",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withPool(cmd, func(ctx context.Context, pool *cache.Pool[[]byte]) error {
				ok, err := pool.DeleteItems(ctx, args)
				if err != nil {
					return keyError(err)
				}
				if !ok {
					return apperrors.Unavailable("delete failed for at least one key", nil)
				}
				return nil
			})
		},
	}
}

func newClearCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every item from the backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withPool(cmd, func(ctx context.Context, pool *cache.Pool[[]byte]) error {
				if !pool.Clear(ctx) {
					return apperrors.Unavailable("clear "+a.cfg.Cache.Backend, nil)
				}
				return nil
			})
		},
	}
}

func newPruneCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Delete expired entries from the backend",
		Long: `Delete expired entries from backends that keep them until they are read
(memory, bolt and database). Other backends expire entries on their own.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withPool(cmd, func(ctx context.Context, pool *cache.Pool[[]byte]) error {
				removed, err := pool.Prune(ctx)
				if errors.Is(err, outbound.ErrPruneUnsupported) {
					return apperrors.InvalidArgument("prune "+a.cfg.Cache.Backend, err)
				}
				if err != nil {
					return apperrors.Unavailable("prune "+a.cfg.Cache.Backend, err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), removed)
				return nil
			})
		},
	}
}
