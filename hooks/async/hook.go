// Package asynchook moves hook calls off the request path.
//
// usage:
//
//	raw := loghooks.New(logger, loghooks.Options{ReadErrorEvery: 10})
//	hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
//	defer hooks.Close()
//
//	cache, _ := cacheaside.New(cacheaside.Options{Provider: p, Hooks: hooks})
package asynchook

import (
	"sync"
	"sync/atomic"

	"github.com/unkn0wn-root/cacheaside"
)

// Hooks queues events for inner on a bounded channel. When the queue is
// full the event is dropped and counted.
type Hooks struct {
	inner   cacheaside.Hooks
	q       chan func()
	wg      sync.WaitGroup
	once    sync.Once
	mu      sync.RWMutex
	closed  bool
	dropped atomic.Uint64
}

var _ cacheaside.Hooks = (*Hooks)(nil)

func New(inner cacheaside.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

// Close drains queued events and stops the workers. Events sent after
// Close are dropped.
func (h *Hooks) Close() {
	h.once.Do(func() {
		h.mu.Lock()
		h.closed = true
		close(h.q)
		h.mu.Unlock()
		h.wg.Wait()
	})
}

// Dropped reports how many events were discarded.
func (h *Hooks) Dropped() uint64 { return h.dropped.Load() }

func (h *Hooks) try(f func()) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		h.dropped.Add(1)
		return
	}
	select {
	case h.q <- f:
	default:
		h.dropped.Add(1)
	}
}

func (h *Hooks) SelfHeal(k, r string)              { h.try(func() { h.inner.SelfHeal(k, r) }) }
func (h *Hooks) CacheReadError(k string, e error)  { h.try(func() { h.inner.CacheReadError(k, e) }) }
func (h *Hooks) CacheWriteError(k string, e error) { h.try(func() { h.inner.CacheWriteError(k, e) }) }
func (h *Hooks) ProviderSetRejected(k string)      { h.try(func() { h.inner.ProviderSetRejected(k) }) }
func (h *Hooks) WriteSkipped(k string)             { h.try(func() { h.inner.WriteSkipped(k) }) }
func (h *Hooks) InvalidateError(k string, e error) { h.try(func() { h.inner.InvalidateError(k, e) }) }
func (h *Hooks) GenSnapshotError(k string, e error) {
	h.try(func() { h.inner.GenSnapshotError(k, e) })
}
func (h *Hooks) GenBumpError(k string, e error) { h.try(func() { h.inner.GenBumpError(k, e) }) }
