package services

import (
	"context"
	"time"

	"wattschain/pkg/cache"
	"wattschain/pkg/logger"
)

// CacheService is the cache surface the repositories and services depend on.
// A nil CacheService is valid everywhere; callers degrade to straight database
// reads.
type CacheService interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)

	// SetNX backs single-flight guards such as the unlock sweep lease.
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error)
	Increment(ctx context.Context, key string, expiration time.Duration) (int64, error)
	SetExpire(ctx context.Context, key string, expiration time.Duration) error
}

type cacheService struct {
	redis  *cache.RedisCache
	logger *logger.Logger
}

func NewCacheService(redis *cache.RedisCache, logger *logger.Logger) CacheService {
	return &cacheService{
		redis:  redis,
		logger: logger,
	}
}

func (s *cacheService) Get(ctx context.Context, key string, dest interface{}) error {
	return s.redis.Get(ctx, key, dest)
}

func (s *cacheService) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if err := s.redis.Set(ctx, key, value, expiration); err != nil {
		s.logger.WithField("key", key).WithError(err).Warn("Cache set failed")
		return err
	}
	return nil
}

func (s *cacheService) Delete(ctx context.Context, keys ...string) error {
	return s.redis.Delete(ctx, keys...)
}

func (s *cacheService) Exists(ctx context.Context, key string) (bool, error) {
	return s.redis.Exists(ctx, key)
}

func (s *cacheService) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	return s.redis.SetNX(ctx, key, value, expiration)
}

func (s *cacheService) Increment(ctx context.Context, key string, expiration time.Duration) (int64, error) {
	count, err := s.redis.Increment(ctx, key)
	if err != nil {
		return 0, err
	}
	if count == 1 && expiration > 0 {
		if err := s.redis.SetExpire(ctx, key, expiration); err != nil {
			s.logger.WithField("key", key).WithError(err).Warn("Cache expire failed")
		}
	}
	return count, nil
}

func (s *cacheService) SetExpire(ctx context.Context, key string, expiration time.Duration) error {
	return s.redis.SetExpire(ctx, key, expiration)
}
