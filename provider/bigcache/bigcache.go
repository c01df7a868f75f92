package bigcache

import (
	"context"
	"encoding/binary"
	"errors"
	"time"

	bc "github.com/allegro/bigcache/v3"

	pr "github.com/unkn0wn-root/cacheaside/provider"
)

// headerLen is the size of the expiry stamp kept in front of each value.
const headerLen = 8

// Provider is an in-process store backed by BigCache.
//
// BigCache only evicts in whole seconds after its LifeWindow, so each entry
// carries its own deadline (unix nanos, min of ttl and LifeWindow) and Get
// treats an entry at or past its deadline as a miss. The stamp is stripped
// on Get; callers see exactly the bytes they Set.
type Provider struct {
	c          *bc.BigCache
	lifeWindow time.Duration
	now        func() time.Time
}

var _ pr.Provider = (*Provider)(nil)

type Config struct {
	LifeWindow         time.Duration
	CleanWindow        time.Duration
	MaxEntriesInWindow int
	MaxEntrySize       int
	HardMaxCacheSizeMB int // ~ memory limit; 0 = unlimited
}

func New(cfg Config) (*Provider, error) {
	if cfg.LifeWindow <= 0 {
		return nil, errors.New("bigcache: life window must be positive")
	}
	conf := bc.DefaultConfig(cfg.LifeWindow)
	conf.Verbose = false
	if cfg.CleanWindow > 0 {
		conf.CleanWindow = cfg.CleanWindow
	}
	if cfg.MaxEntriesInWindow > 0 {
		conf.MaxEntriesInWindow = cfg.MaxEntriesInWindow
	}
	if cfg.MaxEntrySize > 0 {
		conf.MaxEntrySize = cfg.MaxEntrySize + headerLen
	}
	if cfg.HardMaxCacheSizeMB > 0 {
		conf.HardMaxCacheSize = cfg.HardMaxCacheSizeMB
	}
	c, err := bc.NewBigCache(conf)
	if err != nil {
		return nil, err
	}
	return &Provider{c: c, lifeWindow: cfg.LifeWindow, now: time.Now}, nil
}

func (p *Provider) Get(_ context.Context, key string) ([]byte, bool, error) {
	b, err := p.c.Get(key)
	if errors.Is(err, bc.ErrEntryNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if len(b) < headerLen {
		// self-heal: not written by Set
		_ = p.c.Delete(key)
		return nil, false, nil
	}
	deadline := int64(binary.BigEndian.Uint64(b[:headerLen]))
	if p.now().UnixNano() >= deadline {
		_ = p.c.Delete(key)
		return nil, false, nil
	}
	return b[headerLen:], true, nil
}

// Set keeps the entry until ttl, capped at LifeWindow. A non-positive ttl
// means LifeWindow.
func (p *Provider) Set(_ context.Context, key string, value []byte, _ int64, ttl time.Duration) (bool, error) {
	if ttl <= 0 || ttl > p.lifeWindow {
		ttl = p.lifeWindow
	}
	buf := make([]byte, headerLen+len(value))
	binary.BigEndian.PutUint64(buf[:headerLen], uint64(p.now().Add(ttl).UnixNano()))
	copy(buf[headerLen:], value)
	if err := p.c.Set(key, buf); err != nil {
		return false, err
	}
	return true, nil
}

func (p *Provider) Del(_ context.Context, key string) error {
	err := p.c.Delete(key)
	if err != nil && !errors.Is(err, bc.ErrEntryNotFound) {
		return err
	}
	return nil
}

func (p *Provider) Ping(context.Context) error { return nil }

func (p *Provider) Close(_ context.Context) error {
	return p.c.Close()
}

// LifeWindow is the longest any entry lives.
func (p *Provider) LifeWindow() time.Duration { return p.lifeWindow }
