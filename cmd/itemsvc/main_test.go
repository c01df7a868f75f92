package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/unkn0wn-root/cacheaside/internal/config"
	"github.com/unkn0wn-root/cacheaside/internal/store"
)

func TestMigrateCreatesSQLiteSchema(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "items.db")
	root := newRootCmd()
	root.SetArgs([]string{"migrate", "--store-driver", "sqlite", "--store-dsn", dsn, "--log-level", "error"})
	require.NoError(t, root.ExecuteContext(context.Background()))

	ctx := context.Background()
	b, err := store.Open(ctx, store.Config{Driver: store.DriverSQLite, DSN: dsn})
	require.NoError(t, err)
	defer b.Close()
	list, err := b.List(ctx)
	require.NoError(t, err, "items table should exist")
	assert.Empty(t, list)
}

func TestUnknownConfigIsRejected(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"migrate", "--store-driver", "mysql"})
	assert.Error(t, root.ExecuteContext(context.Background()))
}

func TestOpenCacheInProcessDrivers(t *testing.T) {
	for _, tc := range []struct{ driver, guard string }{
		{"ristretto", "local"},
		{"bigcache", "off"},
	} {
		t.Run(tc.driver, func(t *testing.T) {
			cfg := config.Cache{
				Driver:       tc.driver,
				Guard:        tc.guard,
				ListTTL:      30 * time.Second,
				DetailTTL:    60 * time.Second,
				MaxCostBytes: 8 << 20,
			}
			cache, closeFn, err := openCache(cfg, config.Log{Backend: "slog", Level: "info"}, zap.NewNop())
			require.NoError(t, err)
			defer closeFn()

			assert.True(t, cache.Enabled())
			assert.Equal(t, tc.guard == "local", cache.Guarded())
			assert.NoError(t, cache.Ping(context.Background()))
		})
	}
}

func TestRedisGuardNeedsRedisDriver(t *testing.T) {
	cfg := config.Cache{Driver: "ristretto", Guard: "redis", MaxCostBytes: 1 << 20}
	_, _, err := openCache(cfg, config.Log{Backend: "zap", Level: "info"}, zap.NewNop())
	assert.Error(t, err)
}

func TestCacheLoggerBackends(t *testing.T) {
	for _, backend := range []string{"zap", "logrus", "slog"} {
		l, err := cacheLogger(config.Log{Backend: backend, Level: "warn"}, zap.NewNop())
		require.NoError(t, err, backend)
		assert.NotNil(t, l)
	}
	_, err := cacheLogger(config.Log{Backend: "glog", Level: "info"}, zap.NewNop())
	assert.Error(t, err)
}
