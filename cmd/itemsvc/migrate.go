package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/unkn0wn-root/cacheaside/internal/config"
	"github.com/unkn0wn-root/cacheaside/internal/store"
)

func newMigrateCmd(load func() (config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the items table if it does not exist",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg.Log)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			ctx := cmd.Context()
			backend, err := store.Open(ctx, store.Config{
				Driver:       cfg.Store.Driver,
				DSN:          cfg.Store.DSN,
				MaxOpenConns: 1,
			})
			if err != nil {
				return err
			}
			defer backend.Close()

			if err := backend.EnsureSchema(ctx); err != nil {
				return err
			}
			logger.Info("schema ready", zap.String("driver", cfg.Store.Driver))
			return nil
		},
	}
}
