// Package testutil has in-memory doubles for the cache provider and the
// item store, shared by the service, server and health tests.
package testutil

import (
	"context"
	"sync"
	"time"

	pr "github.com/unkn0wn-root/cacheaside/provider"
)

// Entry is what Provider keeps for a key.
type Entry struct {
	Value []byte
	TTL   time.Duration
}

// Provider is a map-backed provider.Provider that records traffic and can
// be told to fail.
type Provider struct {
	mu      sync.Mutex
	entries map[string]Entry
	deleted []string
	sets    int

	GetErr  error
	SetErr  error
	DelErr  error
	PingErr error
}

var _ pr.Provider = (*Provider)(nil)

func NewProvider() *Provider {
	return &Provider{entries: make(map[string]Entry)}
}

func (p *Provider) Get(_ context.Context, key string) ([]byte, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.GetErr != nil {
		return nil, false, p.GetErr
	}
	e, ok := p.entries[key]
	return e.Value, ok, nil
}

func (p *Provider) Set(_ context.Context, key string, value []byte, _ int64, ttl time.Duration) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sets++
	if p.SetErr != nil {
		return false, p.SetErr
	}
	p.entries[key] = Entry{Value: append([]byte(nil), value...), TTL: ttl}
	return true, nil
}

func (p *Provider) Del(_ context.Context, key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deleted = append(p.deleted, key)
	if p.DelErr != nil {
		return p.DelErr
	}
	delete(p.entries, key)
	return nil
}

func (p *Provider) Ping(context.Context) error  { return p.PingErr }
func (p *Provider) Close(context.Context) error { return nil }

// Seed stores raw under key as if a previous request had populated it.
func (p *Provider) Seed(key string, raw []byte, ttl time.Duration) {
	p.mu.Lock()
	p.entries[key] = Entry{Value: raw, TTL: ttl}
	p.mu.Unlock()
}

func (p *Provider) Lookup(key string) (Entry, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.entries[key]
	return e, ok
}

// Deleted lists every key passed to Del, in call order.
func (p *Provider) Deleted() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.deleted...)
}

// Sets counts Set calls, failed ones included.
func (p *Provider) Sets() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sets
}
