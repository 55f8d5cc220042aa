package store

import (
	"context"

	"github.com/kasuganosora/codepals/cache"
)

// CacheStore keeps slots in the cache (Redis or in-process) without expiry.
type CacheStore struct {
	c cache.Cache
}

func NewCacheStore(c cache.Cache) *CacheStore { return &CacheStore{c: c} }

func (s *CacheStore) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := s.c.Get(ctx, key)
	if cache.IsNotFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return []byte(v), nil
}

func (s *CacheStore) Set(ctx context.Context, key string, value []byte) error {
	return s.c.Set(ctx, key, string(value), 0)
}

func (s *CacheStore) Del(ctx context.Context, key string) error {
	return s.c.Del(ctx, key)
}
