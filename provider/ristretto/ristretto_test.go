package ristretto

import (
	"context"
	"testing"
	"time"
)

func newTestProvider(t *testing.T) *Provider {
	t.Helper()
	p, err := New(Config{NumCounters: 1e4, MaxCost: 1 << 20, BufferItems: 64})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = p.Close(context.Background()) })
	return p
}

func TestInvalidConfig(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatalf("zero config accepted")
	}
}

func TestSetIsVisibleToGet(t *testing.T) {
	ctx := context.Background()
	p := newTestProvider(t)

	ok, err := p.Set(ctx, "items:1", []byte(`{"id":1}`), 8, time.Minute)
	if err != nil || !ok {
		t.Fatalf("Set: ok=%v err=%v", ok, err)
	}
	b, ok, err := p.Get(ctx, "items:1")
	if err != nil || !ok || string(b) != `{"id":1}` {
		t.Fatalf("Get: %q ok=%v err=%v", b, ok, err)
	}

	if err := p.Del(ctx, "items:1"); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := p.Get(ctx, "items:1"); ok {
		t.Fatalf("entry survived Del")
	}
	if err := p.Ping(ctx); err != nil {
		t.Fatal(err)
	}
}
