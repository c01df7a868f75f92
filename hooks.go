package cacheaside

// Hooks are lightweight callbacks for high-signal cache events.
// Implementations MUST be cheap and non-blocking; they run on the request
// path. Wrap slow sinks with hooks/async.
type Hooks interface {
	// A cached entry could not be decoded and was deleted on read.
	SelfHeal(key, reason string)

	// The provider failed on Get; the read fell through to the store.
	CacheReadError(key string, err error)

	// Encoding or provider Set failed after a successful fetch.
	CacheWriteError(key string, err error)

	// Provider returned ok=false on Set (backpressure/eviction).
	ProviderSetRejected(key string)

	// The stale-write guard dropped a write because the key was
	// invalidated while the fetch ran.
	WriteSkipped(key string)

	// A key could not be cleared by Invalidate.
	InvalidateError(key string, err error)

	// GenStore errors (guard only).
	GenSnapshotError(key string, err error)
	GenBumpError(key string, err error)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) SelfHeal(string, string)        {}
func (NopHooks) CacheReadError(string, error)   {}
func (NopHooks) CacheWriteError(string, error)  {}
func (NopHooks) ProviderSetRejected(string)     {}
func (NopHooks) WriteSkipped(string)            {}
func (NopHooks) InvalidateError(string, error)  {}
func (NopHooks) GenSnapshotError(string, error) {}
func (NopHooks) GenBumpError(string, error)     {}
