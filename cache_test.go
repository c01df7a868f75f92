package cacheaside

import (
	"context"
	"errors"
	"reflect"
	"sort"
	"sync"
	"testing"
	"time"

	c "github.com/unkn0wn-root/cacheaside/codec"
	gen "github.com/unkn0wn-root/cacheaside/genstore"
	pr "github.com/unkn0wn-root/cacheaside/provider"
)

type memEntry struct {
	v   []byte
	ttl time.Duration
	exp time.Time // zero => no TTL
}

type memProvider struct {
	mu sync.Mutex
	m  map[string]memEntry

	getErr error
	setErr error
	delErr map[string]error

	sets int
	dels []string
}

var _ pr.Provider = (*memProvider)(nil)

func newMemProvider() *memProvider {
	return &memProvider{m: make(map[string]memEntry), delErr: make(map[string]error)}
}

func (p *memProvider) Get(_ context.Context, key string) ([]byte, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.getErr != nil {
		return nil, false, p.getErr
	}
	e, ok := p.m[key]
	if !ok {
		return nil, false, nil
	}
	if !e.exp.IsZero() && time.Now().After(e.exp) {
		delete(p.m, key)
		return nil, false, nil
	}
	return e.v, true, nil
}

func (p *memProvider) Set(_ context.Context, key string, value []byte, _ int64, ttl time.Duration) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sets++
	if p.setErr != nil {
		return false, p.setErr
	}
	var exp time.Time
	if ttl > 0 {
		exp = time.Now().Add(ttl)
	}
	p.m[key] = memEntry{v: value, ttl: ttl, exp: exp}
	return true, nil
}

func (p *memProvider) Del(_ context.Context, key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dels = append(p.dels, key)
	if err := p.delErr[key]; err != nil {
		return err
	}
	delete(p.m, key)
	return nil
}

func (p *memProvider) Ping(context.Context) error  { return nil }
func (p *memProvider) Close(context.Context) error { return nil }

func (p *memProvider) entry(key string) (memEntry, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.m[key]
	return e, ok
}

func (p *memProvider) put(key string, raw []byte) {
	p.mu.Lock()
	p.m[key] = memEntry{v: raw}
	p.mu.Unlock()
}

type widget struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type countingFetch struct {
	calls int
	v     widget
	found bool
	err   error
}

func (f *countingFetch) fetch(context.Context) (widget, bool, error) {
	f.calls++
	return f.v, f.found, f.err
}

func newTestCache(t *testing.T, mp pr.Provider, opt func(*Options)) *Cache {
	t.Helper()
	opts := Options{Provider: mp}
	if opt != nil {
		opt(&opts)
	}
	cc, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return cc
}

func TestNewRequiresProvider(t *testing.T) {
	if _, err := New(Options{}); !errors.Is(err, ErrNilProvider) {
		t.Fatalf("want ErrNilProvider, got %v", err)
	}
}

func TestResolveMissFetchesOnceAndPopulates(t *testing.T) {
	ctx := context.Background()
	mp := newMemProvider()
	cc := newTestCache(t, mp, nil)
	f := &countingFetch{v: widget{ID: 7, Name: "w"}, found: true}

	v, found, err := Resolve(ctx, cc, "items:7", time.Minute, c.JSON[widget]{}, f.fetch)
	if err != nil || !found {
		t.Fatalf("Resolve: found=%v err=%v", found, err)
	}
	if v != f.v {
		t.Fatalf("got %+v want %+v", v, f.v)
	}
	if f.calls != 1 {
		t.Fatalf("fetch calls=%d want 1", f.calls)
	}
	e, ok := mp.entry("items:7")
	if !ok {
		t.Fatalf("entry not populated")
	}
	if e.ttl != time.Minute {
		t.Fatalf("ttl=%v want 1m", e.ttl)
	}
	if string(e.v) != `{"id":7,"name":"w"}` {
		t.Fatalf("cached bytes %q", e.v)
	}
}

func TestResolveHitSkipsFetch(t *testing.T) {
	ctx := context.Background()
	mp := newMemProvider()
	mp.put("items:1", []byte(`{"id":1,"name":"cached"}`))
	cc := newTestCache(t, mp, nil)
	f := &countingFetch{v: widget{ID: 1, Name: "fresh"}, found: true}

	v, found, err := Resolve(ctx, cc, "items:1", time.Minute, c.JSON[widget]{}, f.fetch)
	if err != nil || !found {
		t.Fatalf("Resolve: found=%v err=%v", found, err)
	}
	if v.Name != "cached" {
		t.Fatalf("got %q want cached", v.Name)
	}
	if f.calls != 0 {
		t.Fatalf("fetch called on hit")
	}
}

func TestResolveAbsentIsNotCached(t *testing.T) {
	ctx := context.Background()
	mp := newMemProvider()
	cc := newTestCache(t, mp, nil)
	f := &countingFetch{found: false}

	for i := 0; i < 2; i++ {
		_, found, err := Resolve(ctx, cc, "items:999", time.Minute, c.JSON[widget]{}, f.fetch)
		if err != nil || found {
			t.Fatalf("Resolve: found=%v err=%v", found, err)
		}
	}
	if f.calls != 2 {
		t.Fatalf("fetch calls=%d want 2", f.calls)
	}
	if mp.sets != 0 {
		t.Fatalf("absence was cached")
	}
}

func TestResolveFetchErrorReturnedUnchanged(t *testing.T) {
	ctx := context.Background()
	mp := newMemProvider()
	cc := newTestCache(t, mp, nil)
	boom := errors.New("db down")
	f := &countingFetch{err: boom}

	_, found, err := Resolve(ctx, cc, "items:all", time.Minute, c.JSON[widget]{}, f.fetch)
	if err != boom {
		t.Fatalf("got err %v want %v", err, boom)
	}
	if found {
		t.Fatalf("found on error")
	}
	if mp.sets != 0 {
		t.Fatalf("write after fetch error")
	}
}

func TestResolveReadErrorFallsBackToStore(t *testing.T) {
	ctx := context.Background()
	mp := newMemProvider()
	mp.getErr = errors.New("conn refused")
	cc := newTestCache(t, mp, nil)
	f := &countingFetch{v: widget{ID: 3}, found: true}

	v, found, err := Resolve(ctx, cc, "items:3", time.Minute, c.JSON[widget]{}, f.fetch)
	if err != nil || !found || v.ID != 3 {
		t.Fatalf("Resolve: v=%+v found=%v err=%v", v, found, err)
	}
	if f.calls != 1 {
		t.Fatalf("fetch calls=%d want 1", f.calls)
	}
}

func TestResolveWriteErrorSwallowed(t *testing.T) {
	ctx := context.Background()
	mp := newMemProvider()
	mp.setErr = errors.New("readonly replica")
	cc := newTestCache(t, mp, nil)
	f := &countingFetch{v: widget{ID: 4}, found: true}

	v, found, err := Resolve(ctx, cc, "items:4", time.Minute, c.JSON[widget]{}, f.fetch)
	if err != nil || !found || v.ID != 4 {
		t.Fatalf("Resolve: v=%+v found=%v err=%v", v, found, err)
	}
	if mp.sets != 1 {
		t.Fatalf("sets=%d want 1", mp.sets)
	}
}

type healRecorder struct {
	NopHooks
	healed []string
}

func (h *healRecorder) SelfHeal(key, _ string) { h.healed = append(h.healed, key) }

func TestResolveSelfHealsCorruptEntry(t *testing.T) {
	ctx := context.Background()
	mp := newMemProvider()
	mp.put("items:5", []byte("not json"))
	hooks := &healRecorder{}
	cc := newTestCache(t, mp, func(o *Options) { o.Hooks = hooks })
	f := &countingFetch{v: widget{ID: 5, Name: "ok"}, found: true}

	v, found, err := Resolve(ctx, cc, "items:5", time.Minute, c.JSON[widget]{}, f.fetch)
	if err != nil || !found || v.Name != "ok" {
		t.Fatalf("Resolve: v=%+v found=%v err=%v", v, found, err)
	}
	if !reflect.DeepEqual(hooks.healed, []string{"items:5"}) {
		t.Fatalf("healed=%v", hooks.healed)
	}
	e, _ := mp.entry("items:5")
	if string(e.v) != `{"id":5,"name":"ok"}` {
		t.Fatalf("entry not repaired: %q", e.v)
	}
}

func TestResolveOversizedEntryTreatedAsCorrupt(t *testing.T) {
	ctx := context.Background()
	mp := newMemProvider()
	mp.put("items:6", []byte(`{"id":6,"name":"a very long name indeed"}`))
	cc := newTestCache(t, mp, nil)
	f := &countingFetch{v: widget{ID: 6}, found: true}
	codec := c.Limit[widget]{Inner: c.JSON[widget]{}, MaxDecode: 16}

	if _, _, err := Resolve(ctx, cc, "items:6", time.Minute, codec, f.fetch); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if f.calls != 1 {
		t.Fatalf("fetch calls=%d want 1", f.calls)
	}
}

func TestResolveValidatesArguments(t *testing.T) {
	ctx := context.Background()
	cc := newTestCache(t, newMemProvider(), nil)
	f := &countingFetch{found: true}

	if _, _, err := Resolve(ctx, cc, "", time.Minute, c.JSON[widget]{}, f.fetch); !errors.Is(err, ErrEmptyKey) {
		t.Fatalf("empty key: %v", err)
	}
	if _, _, err := Resolve(ctx, cc, "k", 0, c.JSON[widget]{}, f.fetch); !errors.Is(err, ErrInvalidTTL) {
		t.Fatalf("zero ttl: %v", err)
	}
	if _, _, err := Resolve[widget](ctx, cc, "k", time.Minute, nil, f.fetch); !errors.Is(err, ErrNilCodec) {
		t.Fatalf("nil codec: %v", err)
	}
	if f.calls != 0 {
		t.Fatalf("fetch called on invalid input")
	}
}

func TestDisabledCacheGoesStraightToStore(t *testing.T) {
	ctx := context.Background()
	mp := newMemProvider()
	mp.put("items:1", []byte(`{"id":1,"name":"cached"}`))
	cc := newTestCache(t, mp, func(o *Options) { o.Disabled = true })
	f := &countingFetch{v: widget{ID: 1, Name: "fresh"}, found: true}

	v, _, err := Resolve(ctx, cc, "items:1", time.Minute, c.JSON[widget]{}, f.fetch)
	if err != nil || v.Name != "fresh" {
		t.Fatalf("Resolve: v=%+v err=%v", v, err)
	}
	if err := cc.Invalidate(ctx, "items:1"); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	if len(mp.dels) != 0 || mp.sets != 0 {
		t.Fatalf("disabled cache touched provider: dels=%v sets=%d", mp.dels, mp.sets)
	}
}

func TestInvalidateIdempotent(t *testing.T) {
	ctx := context.Background()
	mp := newMemProvider()
	mp.put("items:all", []byte(`[]`))
	cc := newTestCache(t, mp, nil)

	for i := 0; i < 2; i++ {
		if err := cc.Invalidate(ctx, "items:all", "items:42"); err != nil {
			t.Fatalf("Invalidate #%d: %v", i, err)
		}
	}
	if _, ok := mp.entry("items:all"); ok {
		t.Fatalf("items:all still cached")
	}
	if err := cc.Invalidate(ctx); err != nil {
		t.Fatalf("Invalidate with no keys: %v", err)
	}
}

func TestInvalidateJoinsFailures(t *testing.T) {
	ctx := context.Background()
	mp := newMemProvider()
	boom := errors.New("timeout")
	mp.delErr["items:all"] = boom
	mp.delErr["items:9"] = boom
	mp.put("items:1", []byte(`{}`))
	cc := newTestCache(t, mp, nil)

	err := cc.Invalidate(ctx, "items:all", "items:1", "items:9")
	if err == nil {
		t.Fatalf("want error")
	}
	if !errors.Is(err, boom) {
		t.Fatalf("joined error does not wrap cause: %v", err)
	}
	var ie *InvalidateError
	if !errors.As(err, &ie) {
		t.Fatalf("want *InvalidateError in %v", err)
	}
	keys := FailedKeys(err)
	sort.Strings(keys)
	if !reflect.DeepEqual(keys, []string{"items:9", "items:all"}) {
		t.Fatalf("failed keys=%v", keys)
	}
	if _, ok := mp.entry("items:1"); ok {
		t.Fatalf("healthy key not cleared")
	}
}

func TestInvalidateRejectsEmptyKey(t *testing.T) {
	cc := newTestCache(t, newMemProvider(), nil)
	err := cc.Invalidate(context.Background(), "")
	if !errors.Is(err, ErrEmptyKey) {
		t.Fatalf("want ErrEmptyKey, got %v", err)
	}
}

func TestGuardSkipsWriteAfterConcurrentInvalidate(t *testing.T) {
	ctx := context.Background()
	mp := newMemProvider()
	gs := gen.NewLocal(0, 0)
	cc := newTestCache(t, mp, func(o *Options) { o.GenStore = gs })
	defer cc.Close(ctx)

	fetch := func(ctx context.Context) (widget, bool, error) {
		// a writer commits and invalidates while this read is in flight
		if err := cc.Invalidate(ctx, "items:8"); err != nil {
			t.Errorf("Invalidate: %v", err)
		}
		return widget{ID: 8, Name: "old"}, true, nil
	}

	v, found, err := Resolve(ctx, cc, "items:8", time.Minute, c.JSON[widget]{}, fetch)
	if err != nil || !found || v.Name != "old" {
		t.Fatalf("Resolve: v=%+v found=%v err=%v", v, found, err)
	}
	if _, ok := mp.entry("items:8"); ok {
		t.Fatalf("stale value written despite guard")
	}

	f := &countingFetch{v: widget{ID: 8, Name: "new"}, found: true}
	if _, _, err := Resolve(ctx, cc, "items:8", time.Minute, c.JSON[widget]{}, f.fetch); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if _, ok := mp.entry("items:8"); !ok {
		t.Fatalf("quiet read did not populate")
	}
}

func TestUnguardedCacheAllowsStaleWrite(t *testing.T) {
	ctx := context.Background()
	mp := newMemProvider()
	cc := newTestCache(t, mp, nil)

	fetch := func(ctx context.Context) (widget, bool, error) {
		_ = cc.Invalidate(ctx, "items:8")
		return widget{ID: 8, Name: "old"}, true, nil
	}
	if _, _, err := Resolve(ctx, cc, "items:8", time.Minute, c.JSON[widget]{}, fetch); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if _, ok := mp.entry("items:8"); !ok {
		t.Fatalf("unguarded cache should populate")
	}
}

func TestLoader(t *testing.T) {
	ctx := context.Background()
	mp := newMemProvider()
	cc := newTestCache(t, mp, nil)

	if _, err := NewLoader[widget](cc, c.JSON[widget]{}, 0); !errors.Is(err, ErrInvalidTTL) {
		t.Fatalf("want ErrInvalidTTL, got %v", err)
	}
	if _, err := NewLoader[widget](cc, nil, time.Second); !errors.Is(err, ErrNilCodec) {
		t.Fatalf("want ErrNilCodec, got %v", err)
	}

	l, err := NewLoader[[]widget](cc, c.JSON[[]widget]{}, 30*time.Second)
	if err != nil {
		t.Fatalf("NewLoader: %v", err)
	}
	if l.TTL() != 30*time.Second {
		t.Fatalf("TTL=%v", l.TTL())
	}
	list := []widget{{ID: 1, Name: "a"}, {ID: 2, Name: "b"}}
	got, found, err := l.Resolve(ctx, "items:all", func(context.Context) ([]widget, bool, error) {
		return list, true, nil
	})
	if err != nil || !found || !reflect.DeepEqual(got, list) {
		t.Fatalf("Resolve: got=%v found=%v err=%v", got, found, err)
	}
	e, _ := mp.entry("items:all")
	if e.ttl != 30*time.Second {
		t.Fatalf("ttl=%v want 30s", e.ttl)
	}
}
