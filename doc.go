// Package cacheaside implements read-through caching with explicit
// invalidation on write, over a pluggable byte store.
//
// Components:
//   - Provider: byte store with TTL (Redis, Memcached, Ristretto, BigCache).
//   - Codec[V]: (de)serializes V <-> []byte. JSON by default.
//   - GenStore: optional per-key generations used to skip cache writes whose
//     fetch overlapped an invalidation. Off unless Options.GenStore is set.
//
// Read path:
//
//	v, found, err := cacheaside.Resolve(ctx, cache, "items:7", time.Minute, codec.JSON[Item]{}, fetch)
//
// A hit returns the decoded value without calling fetch. A miss calls fetch
// exactly once and stores the result under the key unless fetch reported the
// value as absent. Absence is never cached. Cache failures degrade to store
// reads and are never returned to the caller; fetch failures are returned
// unchanged and nothing is written.
//
// Write path:
//
//	// after the store mutation has committed
//	_ = cache.Invalidate(ctx, "items:all", "items:7")
//
// There is no single-flight: concurrent misses on the same key each call
// fetch. A reader that fetched before a write committed may still populate
// the cache after that write's invalidation; the stale value lives at most
// until its TTL expires.
package cacheaside
