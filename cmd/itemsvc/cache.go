package main

import (
	"context"
	"time"

	"github.com/pkg/errors"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/unkn0wn-root/cacheaside"
	"github.com/unkn0wn-root/cacheaside/genstore"
	asynchook "github.com/unkn0wn-root/cacheaside/hooks/async"
	"github.com/unkn0wn-root/cacheaside/hooks/loghooks"
	"github.com/unkn0wn-root/cacheaside/internal/config"
	"github.com/unkn0wn-root/cacheaside/provider"
	bigcachep "github.com/unkn0wn-root/cacheaside/provider/bigcache"
	memcachep "github.com/unkn0wn-root/cacheaside/provider/memcache"
	redisp "github.com/unkn0wn-root/cacheaside/provider/redis"
	ristrettop "github.com/unkn0wn-root/cacheaside/provider/ristretto"
)

const (
	guardNamespace = "items"
	// guardRetention must outlive the slowest store read.
	guardRetention = 10 * time.Minute
)

// openCache builds the coordinator for cfg. The returned func releases the
// hooks, the generation store and the provider.
func openCache(cfg config.Cache, logCfg config.Log, zl *zap.Logger) (*cacheaside.Cache, func(), error) {
	clog, err := cacheLogger(logCfg, zl)
	if err != nil {
		return nil, nil, err
	}

	p, rdb, err := newProvider(cfg)
	if err != nil {
		return nil, nil, err
	}

	var gs genstore.GenStore
	switch cfg.Guard {
	case "local":
		gs = genstore.NewLocal(time.Minute, guardRetention)
	case "redis":
		if rdb == nil {
			_ = p.Close(context.Background())
			return nil, nil, errors.New("redis guard requires the redis cache driver")
		}
		gs = genstore.NewRedis(rdb, guardNamespace, 24*time.Hour)
	}

	hooks := asynchook.New(loghooks.New(clog, loghooks.Options{
		ReadErrorEvery:  100,
		WriteErrorEvery: 100,
	}), 1, 1024)

	cache, err := cacheaside.New(cacheaside.Options{
		Provider: p,
		Logger:   clog,
		Hooks:    hooks,
		GenStore: gs,
		Disabled: cfg.Disabled,
	})
	if err != nil {
		hooks.Close()
		_ = p.Close(context.Background())
		return nil, nil, err
	}

	closeFn := func() {
		if err := cache.Close(context.Background()); err != nil {
			zl.Warn("close cache", zap.Error(err))
		}
		hooks.Close()
		if n := hooks.Dropped(); n > 0 {
			zl.Warn("cache hook events dropped", zap.Uint64("count", n))
		}
	}
	return cache, closeFn, nil
}

// newProvider also returns the redis client when the redis driver is used,
// so the generation guard can share it.
func newProvider(cfg config.Cache) (provider.Provider, goredis.UniversalClient, error) {
	switch cfg.Driver {
	case "redis":
		client := redisp.NewClient(redisp.ClientOptions{
			Addr:         cfg.Addr,
			Password:     cfg.Password,
			DB:           cfg.DB,
			DialTimeout:  2 * time.Second,
			ReadTimeout:  time.Second,
			WriteTimeout: time.Second,
		})
		p, err := redisp.New(redisp.Config{Client: client, CloseClient: true})
		if err != nil {
			return nil, nil, err
		}
		return p, client, nil
	case "memcache":
		p, err := memcachep.New(memcachep.Config{
			Servers: []string{cfg.Addr},
			Timeout: time.Second,
		})
		return p, nil, err
	case "ristretto":
		p, err := ristrettop.New(ristrettop.Config{
			NumCounters: 100_000,
			MaxCost:     cfg.MaxCostBytes,
			BufferItems: 64,
		})
		return p, nil, err
	case "bigcache":
		// entries carry their own deadline; the window only caps the longest
		life := cfg.ListTTL
		if cfg.DetailTTL > life {
			life = cfg.DetailTTL
		}
		p, err := bigcachep.New(bigcachep.Config{
			LifeWindow:         life,
			CleanWindow:        life,
			HardMaxCacheSizeMB: int(cfg.MaxCostBytes >> 20),
		})
		return p, nil, err
	default:
		return nil, nil, errors.Errorf("unknown cache driver %q", cfg.Driver)
	}
}
