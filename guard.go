package cacheaside

import "context"

// The stale-write guard pairs every miss with a generation snapshot taken
// before fetch runs. Invalidate bumps the generation, so a write whose
// snapshot no longer matches carried pre-invalidation data and is dropped.
// Without a GenStore every write is allowed.

// snapshot returns the generation observed before fetch and whether a
// write is allowed at all. A snapshot error disables the write.
func (c *Cache) snapshot(ctx context.Context, key string) (uint64, bool) {
	if c.gen == nil {
		return 0, true
	}
	g, err := c.gen.Snapshot(ctx, key)
	if err != nil {
		c.log.Warn("gen snapshot error; write disabled", Fields{"key": key, "err": err})
		c.hooks.GenSnapshotError(key, err)
		return 0, false
	}
	return g, true
}

func (c *Cache) stillCurrent(ctx context.Context, key string, observed uint64) bool {
	if c.gen == nil {
		return true
	}
	g, err := c.gen.Snapshot(ctx, key)
	if err != nil {
		c.log.Warn("gen snapshot error; write skipped", Fields{"key": key, "err": err})
		c.hooks.GenSnapshotError(key, err)
		return false
	}
	if g != observed {
		c.log.Debug("cache write skipped (gen moved)", Fields{"key": key, "obs": observed, "gen": g})
		c.hooks.WriteSkipped(key)
		return false
	}
	return true
}

func (c *Cache) bump(ctx context.Context, key string) error {
	if c.gen == nil {
		return nil
	}
	if _, err := c.gen.Bump(ctx, key); err != nil {
		c.log.Error("gen bump error", Fields{"key": key, "err": err})
		c.hooks.GenBumpError(key, err)
		return err
	}
	return nil
}
