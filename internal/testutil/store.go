package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/unkn0wn-root/cacheaside/internal/item"
)

// Store is an in-memory item.Store. Err, when set, fails every call.
type Store struct {
	mu     sync.Mutex
	items  map[int64]item.Item
	nextID int64
	calls  map[string]int

	Err     error
	PingErr error
}

var _ item.Store = (*Store)(nil)

func NewStore(seed ...item.Item) *Store {
	s := &Store{items: make(map[int64]item.Item), calls: make(map[string]int)}
	for _, it := range seed {
		s.items[it.ID] = it
		if it.ID > s.nextID {
			s.nextID = it.ID
		}
	}
	return s
}

// Calls reports how many times op ("List", "Get", ...) was invoked.
func (s *Store) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

func (s *Store) enter(op string) error {
	s.calls[op]++
	return s.Err
}

func (s *Store) List(_ context.Context) ([]item.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("List"); err != nil {
		return nil, err
	}
	out := make([]item.Item, 0, len(s.items))
	for _, it := range s.items {
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *Store) Get(_ context.Context, id int64) (item.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("Get"); err != nil {
		return item.Item{}, err
	}
	it, ok := s.items[id]
	if !ok {
		return item.Item{}, item.ErrNotFound
	}
	return it, nil
}

func (s *Store) Create(_ context.Context, in item.Input) (item.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("Create"); err != nil {
		return item.Item{}, err
	}
	s.nextID++
	it := item.Item{
		ID:          s.nextID,
		Name:        in.Name,
		Description: in.Description,
		CreatedAt:   time.Now().UTC().Truncate(time.Microsecond),
	}
	s.items[it.ID] = it
	return it, nil
}

func (s *Store) Update(_ context.Context, id int64, in item.Input) (item.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("Update"); err != nil {
		return item.Item{}, err
	}
	it, ok := s.items[id]
	if !ok {
		return item.Item{}, item.ErrNotFound
	}
	it.Name = in.Name
	it.Description = in.Description
	s.items[id] = it
	return it, nil
}

func (s *Store) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("Delete"); err != nil {
		return err
	}
	if _, ok := s.items[id]; !ok {
		return item.ErrNotFound
	}
	delete(s.items, id)
	return nil
}

func (s *Store) Ping(context.Context) error { return s.PingErr }
