// Package genstore keeps per-key generation counters for the cache's
// stale-write guard. Invalidate bumps a key's generation; a cache write is
// only made if the generation still matches the one seen before the store
// was read.
package genstore

import "context"

// GenStore abstracts where generations live.
// Use Local for a single process, Redis when several replicas share a cache.
type GenStore interface {
	// Snapshot returns the current generation; missing => 0.
	Snapshot(ctx context.Context, key string) (uint64, error)
	// Bump atomically increments and returns the new generation.
	Bump(ctx context.Context, key string) (uint64, error)
	// Close releases resources (no-op ok).
	Close(context.Context) error
}
