package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/unkn0wn-root/cacheaside/internal/config"
	"github.com/unkn0wn-root/cacheaside/internal/health"
	"github.com/unkn0wn-root/cacheaside/internal/item"
	"github.com/unkn0wn-root/cacheaside/internal/server"
	"github.com/unkn0wn-root/cacheaside/internal/store"
)

func newServeCmd(v *viper.Viper, load func() (config.Config, error)) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
	cmd.Flags().String("addr", "", "listen address")
	cmd.Flags().String("cache-driver", "", "redis, memcache, ristretto or bigcache")
	cmd.Flags().Bool("no-cache", false, "bypass the cache entirely")
	bindFlags(v, cmd.Flags().Lookup, map[string]string{
		"http.addr":      "addr",
		"cache.driver":   "cache-driver",
		"cache.disabled": "no-cache",
	})
	return cmd
}

func serve(ctx context.Context, cfg config.Config) error {
	logger, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	backend, err := store.Open(ctx, store.Config{
		Driver:          cfg.Store.Driver,
		DSN:             cfg.Store.DSN,
		MaxOpenConns:    cfg.Store.MaxOpenConns,
		ConnMaxLifetime: cfg.Store.ConnMaxLifetime,
	})
	if err != nil {
		return err
	}
	defer backend.Close()
	if err := backend.EnsureSchema(ctx); err != nil {
		return err
	}

	cache, closeCache, err := openCache(cfg.Cache, cfg.Log, logger)
	if err != nil {
		return err
	}
	defer closeCache()
	if err := cache.Ping(ctx); err != nil {
		// the service still runs against the store alone
		logger.Warn("cache unreachable at startup", zap.String("driver", cfg.Cache.Driver), zap.Error(err))
	}

	svc, err := item.NewService(backend, cache, logger.Named("items"), item.Config{
		Codec:         cfg.Cache.Codec,
		MaxValueBytes: cfg.Cache.MaxValueBytes,
		ListTTL:       cfg.Cache.ListTTL,
		DetailTTL:     cfg.Cache.DetailTTL,
	})
	if err != nil {
		return errors.Wrap(err, "build item service")
	}
	reporter := health.NewReporter(backend, cfg.Store.Driver, cache, cfg.Cache.Driver)

	logger.Info("starting",
		zap.String("store", cfg.Store.Driver),
		zap.String("cache", cfg.Cache.Driver),
		zap.String("codec", cfg.Cache.Codec),
		zap.String("guard", cfg.Cache.Guard),
		zap.Bool("cache_disabled", cfg.Cache.Disabled),
	)
	return server.New(svc, reporter, logger.Named("http")).Run(ctx, server.Config{
		Addr:            cfg.HTTP.Addr,
		ReadTimeout:     cfg.HTTP.ReadTimeout,
		WriteTimeout:    cfg.HTTP.WriteTimeout,
		ShutdownTimeout: cfg.HTTP.ShutdownTimeout,
	})
}
