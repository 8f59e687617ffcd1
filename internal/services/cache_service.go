package services

import (
	"context"
	"time"

	"github.com/noor-87dsdp-beep/KhabarLagbe-sub003/pkg/cache"
)

// CacheService is the read-cache surface the repositories use. Nil is a
// valid value everywhere; callers fall through to the database.
type CacheService interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)
}

type redisCacheService struct {
	cache *cache.RedisCache
}

func NewCacheService(c *cache.RedisCache) CacheService {
	return &redisCacheService{cache: c}
}

func (s *redisCacheService) Get(ctx context.Context, key string, dest interface{}) error {
	return s.cache.Get(ctx, key, dest)
}

func (s *redisCacheService) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return s.cache.Set(ctx, key, value, expiration)
}

func (s *redisCacheService) Delete(ctx context.Context, keys ...string) error {
	return s.cache.Delete(ctx, keys...)
}

func (s *redisCacheService) Exists(ctx context.Context, key string) (bool, error) {
	return s.cache.Exists(ctx, key)
}
