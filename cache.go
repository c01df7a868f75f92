package cacheaside

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	c "github.com/unkn0wn-root/cacheaside/codec"
	gen "github.com/unkn0wn-root/cacheaside/genstore"
	pr "github.com/unkn0wn-root/cacheaside/provider"
)

// maxParallelDeletes bounds the fan-out of a single Invalidate call.
const maxParallelDeletes = 8

// Cache coordinates reads and invalidations against one provider.
// It holds no per-key state of its own (the optional GenStore does) and is
// safe for concurrent use as long as the provider is.
type Cache struct {
	provider       pr.Provider
	log            Logger
	hooks          Hooks
	gen            gen.GenStore
	computeSetCost SetCostFunc
	enabled        bool
}

func newCache(opts Options) (*Cache, error) {
	if opts.Provider == nil {
		return nil, ErrNilProvider
	}

	c := &Cache{
		provider: opts.Provider,
		gen:      opts.GenStore,
		enabled:  !opts.Disabled,
	}

	// defaults
	c.log = coalesce[Logger](opts.Logger, NopLogger{})
	c.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	if opts.ComputeSetCost != nil {
		c.computeSetCost = opts.ComputeSetCost
	} else {
		c.computeSetCost = func(_ string, raw []byte) int64 { return int64(len(raw)) }
	}

	return c, nil
}

func (c *Cache) Enabled() bool { return c.enabled }

// Guarded reports whether the stale-write guard is active.
func (c *Cache) Guarded() bool { return c.gen != nil }

// Ping probes the provider. It runs even when the cache is disabled so
// health checks still describe the backend.
func (c *Cache) Ping(ctx context.Context) error {
	return c.provider.Ping(ctx)
}

func (c *Cache) Close(ctx context.Context) error {
	// gen store first (best effort)
	if c.gen != nil {
		_ = c.gen.Close(ctx)
	}
	return c.provider.Close(ctx)
}

// Invalidate deletes keys from the provider. Call it only after the store
// mutation has committed. Deleting a missing key is not an error. Keys are
// cleared concurrently with no ordering between them. Failures are logged
// and returned joined as *InvalidateError values; the remaining keys are
// still attempted.
func (c *Cache) Invalidate(ctx context.Context, keys ...string) error {
	if !c.enabled || len(keys) == 0 {
		return nil
	}

	errs := make([]error, len(keys))
	var g errgroup.Group
	g.SetLimit(maxParallelDeletes)
	for i, key := range keys {
		g.Go(func() error {
			errs[i] = c.invalidateOne(ctx, key)
			return nil
		})
	}
	_ = g.Wait()

	return errors.Join(errs...)
}

func (c *Cache) invalidateOne(ctx context.Context, key string) error {
	if key == "" {
		return &InvalidateError{Key: key, DelErr: ErrEmptyKey}
	}

	bumpErr := c.bump(ctx, key)
	delErr := c.provider.Del(ctx, key)
	if delErr == nil {
		c.log.Debug("invalidated key", Fields{"key": key})
		if bumpErr == nil {
			return nil
		}
	}

	ie := &InvalidateError{Key: key, BumpErr: bumpErr, DelErr: delErr}
	c.log.Warn("invalidate failed", Fields{"key": key, "err": ie})
	c.hooks.InvalidateError(key, ie)
	return ie
}

// Resolve returns the value cached under key, or calls fetch on a miss and
// caches its result for ttl.
//
// found is false when fetch reported the value as absent; absent results
// are not cached. A fetch error is returned unchanged and nothing is cached.
// Provider errors never reach the caller: a failed read counts as a miss and
// a failed write is dropped.
func Resolve[V any](ctx context.Context, cache *Cache, key string, ttl time.Duration, codec c.Codec[V], fetch FetchFunc[V]) (v V, found bool, err error) {
	var zero V
	if key == "" {
		return zero, false, ErrEmptyKey
	}
	if ttl <= 0 {
		return zero, false, ErrInvalidTTL
	}
	if codec == nil {
		return zero, false, ErrNilCodec
	}
	if !cache.enabled {
		return fetch(ctx)
	}

	if v, ok := lookup(ctx, cache, key, codec); ok {
		return v, true, nil
	}

	observed, writable := cache.snapshot(ctx, key)
	v, found, err = fetch(ctx)
	if err != nil {
		return zero, false, err
	}
	if !found {
		cache.log.Debug("fetch returned no value; not cached", Fields{"key": key})
		return zero, false, nil
	}
	if writable {
		populate(ctx, cache, key, ttl, codec, v, observed)
	}
	return v, true, nil
}

func lookup[V any](ctx context.Context, cache *Cache, key string, codec c.Codec[V]) (V, bool) {
	var zero V
	raw, ok, err := cache.provider.Get(ctx, key)
	if err != nil {
		cache.log.Warn("cache read failed; falling back to store", Fields{"key": key, "err": err})
		cache.hooks.CacheReadError(key, err)
		return zero, false
	}
	if !ok {
		return zero, false
	}
	v, err := codec.Decode(raw)
	if err != nil {
		_ = cache.provider.Del(ctx, key) // self-heal
		cache.log.Warn("dropped undecodable cache entry", Fields{"key": key, "err": err})
		cache.hooks.SelfHeal(key, "decode")
		return zero, false
	}
	return v, true
}

func populate[V any](ctx context.Context, cache *Cache, key string, ttl time.Duration, codec c.Codec[V], v V, observed uint64) {
	if !cache.stillCurrent(ctx, key, observed) {
		return
	}
	raw, err := codec.Encode(v)
	if err != nil {
		cache.log.Error("encode for cache failed", Fields{"key": key, "err": err})
		cache.hooks.CacheWriteError(key, err)
		return
	}
	ok, err := cache.provider.Set(ctx, key, raw, cache.computeSetCost(key, raw), ttl)
	if err != nil {
		cache.log.Warn("cache write failed", Fields{"key": key, "err": err})
		cache.hooks.CacheWriteError(key, err)
		return
	}
	if !ok {
		cache.log.Debug("cache write rejected by provider (pressure)", Fields{"key": key})
		cache.hooks.ProviderSetRejected(key)
	}
}

// Loader binds a codec and TTL for one kind of cached value.
type Loader[V any] struct {
	cache *Cache
	codec c.Codec[V]
	ttl   time.Duration
}

func NewLoader[V any](cache *Cache, codec c.Codec[V], ttl time.Duration) (*Loader[V], error) {
	if cache == nil {
		return nil, ErrNilProvider
	}
	if codec == nil {
		return nil, ErrNilCodec
	}
	if ttl <= 0 {
		return nil, ErrInvalidTTL
	}
	return &Loader[V]{cache: cache, codec: codec, ttl: ttl}, nil
}

func (l *Loader[V]) TTL() time.Duration { return l.ttl }

func (l *Loader[V]) Resolve(ctx context.Context, key string, fetch FetchFunc[V]) (V, bool, error) {
	return Resolve(ctx, l.cache, key, l.ttl, l.codec, fetch)
}
