package cacheaside

import (
	"context"

	gen "github.com/unkn0wn-root/cacheaside/genstore"
	pr "github.com/unkn0wn-root/cacheaside/provider"
)

// SetCostFunc reports the cost of storing raw under key. Only cost-aware
// providers (Ristretto) look at it.
type SetCostFunc func(key string, raw []byte) int64

// FetchFunc loads a value from the authoritative store.
// found=false means the store has no such value; it is returned to the
// caller but never cached.
type FetchFunc[V any] func(ctx context.Context) (v V, found bool, err error)

// Options configure a Cache. Only Provider is required.
type Options struct {
	Provider pr.Provider

	Logger         Logger       // nil => NopLogger
	Hooks          Hooks        // nil => NopHooks
	GenStore       gen.GenStore // nil => no stale-write guard
	ComputeSetCost SetCostFunc  // nil => len(raw)
	Disabled       bool         // every Resolve goes to the store, Invalidate is a no-op
}

// New builds a Cache around the given provider.
func New(opts Options) (*Cache, error) {
	return newCache(opts)
}

// coalesce returns def when v is the zero value of T, otherwise v.
func coalesce[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}
