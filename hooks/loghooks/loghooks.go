// Package loghooks reports cache events through a cacheaside.Logger, with
// sampling for the noisy ones and key redaction.
package loghooks

import (
	"crypto/sha256"
	"encoding/hex"
	"sync/atomic"

	"github.com/unkn0wn-root/cacheaside"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	ReadErrorEvery  uint64
	WriteErrorEvery uint64
	// Optional key redactor. nil logs keys as-is; use HashKey to hide them.
	Redact func(string) string
}

type Hooks struct {
	l    cacheaside.Logger
	opts Options

	readErrCtr  atomic.Uint64
	writeErrCtr atomic.Uint64
}

var _ cacheaside.Hooks = (*Hooks)(nil)

func New(l cacheaside.Logger, opts Options) *Hooks {
	if l == nil {
		l = cacheaside.NopLogger{}
	}
	return &Hooks{l: l, opts: opts}
}

// HashKey is a redactor that logs the first 8 bytes of the key's SHA-256.
func HashKey(k string) string {
	sum := sha256.Sum256([]byte(k))
	return hex.EncodeToString(sum[:8])
}

func (h *Hooks) key(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	return k
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) SelfHeal(key, reason string) {
	h.l.Info("cacheaside.self_heal", cacheaside.Fields{"key": h.key(key), "reason": reason})
}

func (h *Hooks) CacheReadError(key string, err error) {
	if !sample(h.opts.ReadErrorEvery, &h.readErrCtr) {
		return
	}
	h.l.Warn("cacheaside.read_error", cacheaside.Fields{"key": h.key(key), "err": err})
}

func (h *Hooks) CacheWriteError(key string, err error) {
	if !sample(h.opts.WriteErrorEvery, &h.writeErrCtr) {
		return
	}
	h.l.Warn("cacheaside.write_error", cacheaside.Fields{"key": h.key(key), "err": err})
}

func (h *Hooks) ProviderSetRejected(key string) {
	h.l.Warn("cacheaside.provider_set_rejected", cacheaside.Fields{"key": h.key(key)})
}

func (h *Hooks) WriteSkipped(key string) {
	h.l.Debug("cacheaside.write_skipped", cacheaside.Fields{"key": h.key(key)})
}

func (h *Hooks) InvalidateError(key string, err error) {
	h.l.Error("cacheaside.invalidate_error", cacheaside.Fields{"key": h.key(key), "err": err})
}

func (h *Hooks) GenSnapshotError(key string, err error) {
	h.l.Warn("cacheaside.gen_snapshot_error", cacheaside.Fields{"key": h.key(key), "err": err})
}

func (h *Hooks) GenBumpError(key string, err error) {
	h.l.Warn("cacheaside.gen_bump_error", cacheaside.Fields{"key": h.key(key), "err": err})
}
