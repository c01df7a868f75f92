package genstore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisSnapshotAndBump(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)
	s := NewRedis(client, "items", 0)

	g, err := s.Snapshot(ctx, "items:all")
	if err != nil || g != 0 {
		t.Fatalf("Snapshot on empty store: g=%d err=%v", g, err)
	}

	if g, err = s.Bump(ctx, "items:all"); err != nil || g != 1 {
		t.Fatalf("Bump: g=%d err=%v", g, err)
	}
	if g, err = s.Snapshot(ctx, "items:all"); err != nil || g != 1 {
		t.Fatalf("Snapshot after bump: g=%d err=%v", g, err)
	}

	if !mr.Exists("gen:items:items:all") {
		t.Fatalf("generation key not namespaced as expected: %v", mr.Keys())
	}
	if mr.TTL("gen:items:items:all") != 0 {
		t.Fatalf("ttl=0 store must not set expiry")
	}
}

func TestRedisBumpRefreshesTTL(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)
	s := NewRedis(client, "items", time.Hour)

	if _, err := s.Bump(ctx, "items:3"); err != nil {
		t.Fatal(err)
	}
	if ttl := mr.TTL("gen:items:items:3"); ttl != time.Hour {
		t.Fatalf("ttl=%v want 1h", ttl)
	}

	mr.FastForward(2 * time.Hour)
	g, err := s.Snapshot(ctx, "items:3")
	if err != nil || g != 0 {
		t.Fatalf("expired generation should read 0, got g=%d err=%v", g, err)
	}
}

func TestRedisSnapshotParseError(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)
	s := NewRedis(client, "items", 0)

	if err := mr.Set("gen:items:bad", "not-a-number"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Snapshot(ctx, "bad"); err == nil {
		t.Fatalf("expected parse error")
	}
}
