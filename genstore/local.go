package genstore

import (
	"context"
	"sync"
	"time"
)

type localEntry struct {
	gen       uint64
	updatedAt time.Time
}

// Local keeps generations in-process. Generations are not shared between
// replicas, so it only guards writes made by this process.
//
// Entries untouched for longer than the retention are pruned by a
// background loop; a pruned key reads as generation 0 again. Keep retention
// well above the longest fetch so a bump is not forgotten mid-fetch.
type Local struct {
	mu   sync.RWMutex
	gens map[string]localEntry

	retention time.Duration
	ticker    *time.Ticker
	stopCh    chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

var _ GenStore = (*Local)(nil)

// NewLocal starts the cleanup loop when both durations are positive.
func NewLocal(cleanupInterval, retention time.Duration) *Local {
	s := &Local{
		gens:      make(map[string]localEntry),
		retention: retention,
	}
	if cleanupInterval > 0 && retention > 0 {
		s.ticker = time.NewTicker(cleanupInterval)
		s.stopCh = make(chan struct{})
		s.wg.Add(1)
		go s.loop()
	}
	return s
}

func (s *Local) loop() {
	defer s.wg.Done()
	for {
		select {
		case <-s.ticker.C:
			s.Prune(time.Now().Add(-s.retention))
		case <-s.stopCh:
			return
		}
	}
}

func (s *Local) Snapshot(_ context.Context, key string) (uint64, error) {
	s.mu.RLock()
	e := s.gens[key]
	s.mu.RUnlock()
	return e.gen, nil
}

func (s *Local) Bump(_ context.Context, key string) (uint64, error) {
	now := time.Now()
	s.mu.Lock()
	e := s.gens[key]
	e.gen++
	e.updatedAt = now
	s.gens[key] = e
	s.mu.Unlock()
	return e.gen, nil
}

// Prune drops entries last bumped before cutoff and reports how many.
func (s *Local) Prune(cutoff time.Time) int {
	n := 0
	s.mu.Lock()
	for k, e := range s.gens {
		if e.updatedAt.Before(cutoff) {
			delete(s.gens, k)
			n++
		}
	}
	s.mu.Unlock()
	return n
}

// Len reports how many keys currently carry a generation.
func (s *Local) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.gens)
}

func (s *Local) Close(context.Context) error {
	s.closeOnce.Do(func() {
		if s.stopCh != nil {
			s.ticker.Stop()
			close(s.stopCh)
			s.wg.Wait()
		}
	})
	return nil
}
