// Package memcache adapts bradfitz/gomemcache to provider.Provider.
package memcache

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/bradfitz/gomemcache/memcache"

	pr "github.com/unkn0wn-root/cacheaside/provider"
)

// maxRelativeExpiry is the largest expiration memcached treats as relative;
// anything above it is read as a unix timestamp.
const maxRelativeExpiry = 60 * 60 * 24 * 30

var ErrNoServers = errors.New("memcache provider: no servers")

type Memcache struct {
	mc *memcache.Client
}

var _ pr.Provider = (*Memcache)(nil)

type Config struct {
	Servers      []string
	Timeout      time.Duration // 0 => gomemcache default (500ms)
	MaxIdleConns int           // 0 => gomemcache default (2)
}

func New(cfg Config) (*Memcache, error) {
	if len(cfg.Servers) == 0 {
		return nil, ErrNoServers
	}
	mc := memcache.New(cfg.Servers...)
	if cfg.Timeout > 0 {
		mc.Timeout = cfg.Timeout
	}
	if cfg.MaxIdleConns > 0 {
		mc.MaxIdleConns = cfg.MaxIdleConns
	}
	return &Memcache{mc: mc}, nil
}

// The gomemcache client has no context support; ctx is accepted for the
// interface and the client's own Timeout bounds every call.

func (p *Memcache) Get(_ context.Context, key string) ([]byte, bool, error) {
	it, err := p.mc.Get(key)
	if errors.Is(err, memcache.ErrCacheMiss) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return it.Value, true, nil
}

func (p *Memcache) Set(_ context.Context, key string, value []byte, _ int64, ttl time.Duration) (bool, error) {
	exp, err := expiration(ttl)
	if err != nil {
		return false, err
	}
	err = p.mc.Set(&memcache.Item{
		Key:        key,
		Value:      value,
		Expiration: exp,
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

func (p *Memcache) Del(_ context.Context, key string) error {
	err := p.mc.Delete(key)
	if err != nil && !errors.Is(err, memcache.ErrCacheMiss) {
		return err
	}
	return nil
}

func (p *Memcache) Ping(context.Context) error {
	return p.mc.Ping()
}

func (p *Memcache) Close(context.Context) error { return nil }

// expiration converts ttl to whole seconds, rounding up so a sub-second
// TTL does not become "never expire".
func expiration(ttl time.Duration) (int32, error) {
	if ttl <= 0 {
		return 0, nil
	}
	secs := int64(math.Ceil(ttl.Seconds()))
	if secs > maxRelativeExpiry {
		return 0, errors.New("memcache provider: ttl exceeds 30 days")
	}
	return int32(secs), nil
}
