package storage

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/singleflight"
)

// CachedStore reads through a cache in front of a primary store. Writes go to
// the primary first and then invalidate the cached copy.
type CachedStore struct {
	primary Store
	cache   Store
	log     *slog.Logger
	sfg     singleflight.Group // Prevents cache stampede
}

func NewCachedStore(primary, cache Store, logger *slog.Logger) *CachedStore {
	return &CachedStore{
		primary: primary,
		cache:   cache,
		log:     logger,
	}
}

func (s *CachedStore) Get(ctx context.Context, key string) ([]byte, error) {
	v, err, _ := s.sfg.Do(key, func() (interface{}, error) {
		value, err := s.cache.Get(ctx, key)
		if err == nil {
			return value, nil
		}
		if !errors.Is(err, ErrNotFound) {
			s.log.WarnContext(ctx, "cache get failed", "key", key, "error", err)
		}

		value, err = s.primary.Get(ctx, key)
		if err != nil {
			return nil, err
		}

		if errSet := s.cache.Put(ctx, key, value); errSet != nil {
			s.log.WarnContext(ctx, "cache set failed", "key", key, "error", errSet)
		}
		return value, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func (s *CachedStore) Put(ctx context.Context, key string, value []byte) error {
	if err := s.primary.Put(ctx, key, value); err != nil {
		return err
	}
	s.invalidate(ctx, key)
	return nil
}

func (s *CachedStore) Delete(ctx context.Context, key string) error {
	if err := s.primary.Delete(ctx, key); err != nil {
		return err
	}
	s.invalidate(ctx, key)
	return nil
}

func (s *CachedStore) invalidate(ctx context.Context, key string) {
	if err := s.cache.Delete(ctx, key); err != nil {
		s.log.WarnContext(ctx, "cache invalidate failed", "key", key, "error", err)
	}
}
