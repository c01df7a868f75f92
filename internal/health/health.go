// Package health probes the store and the cache and folds the results into
// one report. It only reports; nothing is disabled when a probe fails.
package health

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"
)

const (
	StatusOK    = "OK"
	StatusError = "ERROR"

	Reachable   = "reachable"
	Unreachable = "unreachable"
)

// Pinger is anything with a liveness probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Report is also the /health response body. The store and cache roles keep
// the postgres/redis keys whatever drivers are configured.
type Report struct {
	Status string `json:"status"`
	Store  string `json:"postgres"`
	Cache  string `json:"redis"`
	Error  string `json:"error,omitempty"`
	// Cause holds the underlying errors for logs; it is never serialized.
	Cause string `json:"-"`
}

func (r Report) OK() bool { return r.Status == StatusOK }

type Reporter struct {
	store      Pinger
	cache      Pinger
	storeLabel string
	cacheLabel string
}

// NewReporter labels failures with storeLabel and cacheLabel, normally the
// configured driver names.
func NewReporter(store Pinger, storeLabel string, cache Pinger, cacheLabel string) *Reporter {
	return &Reporter{store: store, cache: cache, storeLabel: storeLabel, cacheLabel: cacheLabel}
}

// Check probes both dependencies concurrently. One failing probe does not
// cancel the other.
func (r *Reporter) Check(ctx context.Context) Report {
	var storeErr, cacheErr error
	var g errgroup.Group
	g.Go(func() error {
		storeErr = r.store.Ping(ctx)
		return nil
	})
	g.Go(func() error {
		cacheErr = r.cache.Ping(ctx)
		return nil
	})
	_ = g.Wait()

	rep := Report{Status: StatusOK, Store: Reachable, Cache: Reachable}
	var msgs, causes []string
	if storeErr != nil {
		rep.Store = Unreachable
		msgs = append(msgs, r.storeLabel+": "+Unreachable)
		causes = append(causes, fmt.Sprintf("%s: %v", r.storeLabel, storeErr))
	}
	if cacheErr != nil {
		rep.Cache = Unreachable
		msgs = append(msgs, r.cacheLabel+": "+Unreachable)
		causes = append(causes, fmt.Sprintf("%s: %v", r.cacheLabel, cacheErr))
	}
	if len(msgs) > 0 {
		rep.Status = StatusError
		rep.Error = strings.Join(msgs, "; ")
		rep.Cause = strings.Join(causes, "; ")
	}
	return rep
}
