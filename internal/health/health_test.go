package health

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type pinger struct {
	err   error
	delay time.Duration
	calls atomic.Int32
}

func (p *pinger) Ping(ctx context.Context) error {
	p.calls.Add(1)
	if p.delay > 0 {
		time.Sleep(p.delay)
	}
	return p.err
}

func TestAllReachable(t *testing.T) {
	r := NewReporter(&pinger{}, "postgres", &pinger{}, "redis")
	rep := r.Check(context.Background())

	assert.True(t, rep.OK())
	assert.Equal(t, Report{Status: StatusOK, Store: Reachable, Cache: Reachable}, rep)
}

func TestCacheDown(t *testing.T) {
	r := NewReporter(&pinger{}, "postgres", &pinger{err: errors.New("connection refused")}, "redis")
	rep := r.Check(context.Background())

	assert.False(t, rep.OK())
	assert.Equal(t, StatusError, rep.Status)
	assert.Equal(t, Reachable, rep.Store)
	assert.Equal(t, Unreachable, rep.Cache)
	assert.Equal(t, "redis: unreachable", rep.Error)
	assert.Equal(t, "redis: connection refused", rep.Cause)
}

func TestStoreDownDoesNotSkipCacheProbe(t *testing.T) {
	store := &pinger{err: errors.New("timeout")}
	cache := &pinger{delay: 10 * time.Millisecond}
	r := NewReporter(store, "sqlite", cache, "memcache")
	rep := r.Check(context.Background())

	assert.Equal(t, StatusError, rep.Status)
	assert.Equal(t, "sqlite: unreachable", rep.Error)
	assert.Equal(t, "sqlite: timeout", rep.Cause)
	assert.Equal(t, Reachable, rep.Cache)
	assert.EqualValues(t, 1, cache.calls.Load())
}

func TestBothDown(t *testing.T) {
	r := NewReporter(&pinger{err: errors.New("a")}, "postgres", &pinger{err: errors.New("b")}, "redis")
	rep := r.Check(context.Background())

	assert.Equal(t, "postgres: unreachable; redis: unreachable", rep.Error)
	assert.Equal(t, "postgres: a; redis: b", rep.Cause)
	assert.Equal(t, Unreachable, rep.Store)
	assert.Equal(t, Unreachable, rep.Cache)
}

func TestReportBodyOmitsCause(t *testing.T) {
	r := NewReporter(&pinger{}, "postgres", &pinger{err: errors.New("dial tcp 10.0.0.7:6379: i/o timeout")}, "redis")
	body, err := json.Marshal(r.Check(context.Background()))
	assert.NoError(t, err)
	assert.NotContains(t, string(body), "10.0.0.7")
	assert.JSONEq(t, `{"status":"ERROR","postgres":"reachable","redis":"unreachable","error":"redis: unreachable"}`, string(body))
}
