package item

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/unkn0wn-root/cacheaside"
	"github.com/unkn0wn-root/cacheaside/codec"
)

const (
	DefaultListTTL   = 30 * time.Second
	DefaultDetailTTL = 60 * time.Second
)

// Config selects the cache codec and TTLs. Zero values take the defaults.
type Config struct {
	Codec         string
	MaxValueBytes int
	ListTTL       time.Duration
	DetailTTL     time.Duration
}

// Service reads through the cache and invalidates it after every committed
// write. Cache failures never fail a request.
type Service struct {
	store  Store
	cache  *cacheaside.Cache
	log    *zap.Logger
	list   *cacheaside.Loader[[]Item]
	detail *cacheaside.Loader[Item]
}

func NewService(store Store, cache *cacheaside.Cache, log *zap.Logger, cfg Config) (*Service, error) {
	if store == nil {
		return nil, errors.New("item: nil store")
	}
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.ListTTL == 0 {
		cfg.ListTTL = DefaultListTTL
	}
	if cfg.DetailTTL == 0 {
		cfg.DetailTTL = DefaultDetailTTL
	}

	listCodec, err := codec.ByName[[]Item](cfg.Codec, cfg.MaxValueBytes)
	if err != nil {
		return nil, errors.Wrap(err, "list codec")
	}
	detailCodec, err := codec.ByName[Item](cfg.Codec, cfg.MaxValueBytes)
	if err != nil {
		return nil, errors.Wrap(err, "detail codec")
	}
	list, err := cacheaside.NewLoader(cache, listCodec, cfg.ListTTL)
	if err != nil {
		return nil, errors.Wrap(err, "list loader")
	}
	detail, err := cacheaside.NewLoader(cache, detailCodec, cfg.DetailTTL)
	if err != nil {
		return nil, errors.Wrap(err, "detail loader")
	}

	return &Service{store: store, cache: cache, log: log, list: list, detail: detail}, nil
}

func (s *Service) List(ctx context.Context) ([]Item, error) {
	items, _, err := s.list.Resolve(ctx, ListKey, func(ctx context.Context) ([]Item, bool, error) {
		items, err := s.store.List(ctx)
		if err != nil {
			return nil, false, err
		}
		if items == nil {
			items = []Item{}
		}
		return items, true, nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "list items")
	}
	if items == nil {
		items = []Item{}
	}
	for i := range items {
		items[i] = inUTC(items[i])
	}
	return items, nil
}

func (s *Service) Get(ctx context.Context, id int64) (Item, error) {
	if id <= 0 {
		return Item{}, ErrNotFound
	}
	it, found, err := s.detail.Resolve(ctx, DetailKey(id), func(ctx context.Context) (Item, bool, error) {
		it, err := s.store.Get(ctx, id)
		if errors.Is(err, ErrNotFound) {
			return Item{}, false, nil
		}
		if err != nil {
			return Item{}, false, err
		}
		return it, true, nil
	})
	if err != nil {
		return Item{}, errors.Wrapf(err, "get item %d", id)
	}
	if !found {
		return Item{}, ErrNotFound
	}
	return inUTC(it), nil
}

func (s *Service) Create(ctx context.Context, in Input) (Item, error) {
	in, err := in.Normalize()
	if err != nil {
		return Item{}, err
	}
	it, err := s.store.Create(ctx, in)
	if err != nil {
		return Item{}, errors.Wrap(err, "create item")
	}
	s.invalidate(ctx, "create", it.ID, ListKey)
	return inUTC(it), nil
}

func (s *Service) Replace(ctx context.Context, id int64, in Input) (Item, error) {
	in, err := in.Normalize()
	if err != nil {
		return Item{}, err
	}
	if id <= 0 {
		return Item{}, ErrNotFound
	}
	it, err := s.store.Update(ctx, id, in)
	if errors.Is(err, ErrNotFound) {
		return Item{}, ErrNotFound
	}
	if err != nil {
		return Item{}, errors.Wrapf(err, "update item %d", id)
	}
	s.invalidate(ctx, "update", id, ListKey, DetailKey(id))
	return inUTC(it), nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return ErrNotFound
	}
	err := s.store.Delete(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return errors.Wrapf(err, "delete item %d", id)
	}
	s.invalidate(ctx, "delete", id, ListKey, DetailKey(id))
	return nil
}

// invalidate runs after the store write has committed. A failure leaves
// stale entries until their TTL and is only logged.
func (s *Service) invalidate(ctx context.Context, op string, id int64, keys ...string) {
	if err := s.cache.Invalidate(ctx, keys...); err != nil {
		s.log.Warn("cache invalidation failed",
			zap.String("op", op),
			zap.Int64("id", id),
			zap.Strings("keys", cacheaside.FailedKeys(err)),
			zap.Error(err),
		)
	}
}

// inUTC pins created_at to UTC so a value reads the same from the store and
// from any cache codec; msgpack keeps the instant but not the zone.
func inUTC(it Item) Item {
	it.CreatedAt = it.CreatedAt.UTC()
	return it
}
