package cache

import (
	"context"
	"errors"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

var ErrCacheMiss = errors.New("cache miss")

// Store 通用 key-value 缓存
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// LocalStore 进程内缓存
type LocalStore struct {
	c *cache.Cache
}

func NewLocalStore(defaultTTL time.Duration) *LocalStore {
	return &LocalStore{c: cache.New(defaultTTL, time.Minute)}
}

func (s *LocalStore) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := s.c.Get(key)
	if !ok {
		return nil, ErrCacheMiss
	}
	data, ok := v.([]byte)
	if !ok {
		return nil, ErrCacheMiss
	}
	return data, nil
}

func (s *LocalStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.c.Set(key, value, ttl)
	return nil
}

// RedisStore 多实例共享的缓存
type RedisStore struct {
	rds *redis.Client
}

func NewRedisStore(rds *redis.Client) *RedisStore {
	return &RedisStore{rds: rds}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.rds.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	return data, err
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.rds.Set(ctx, key, value, ttl).Err()
}

// TieredStore 先查本地再查 Redis，Redis 命中时回填本地
type TieredStore struct {
	local    *LocalStore
	remote   Store
	localTTL time.Duration
}

func NewTieredStore(local *LocalStore, remote Store, localTTL time.Duration) *TieredStore {
	return &TieredStore{local: local, remote: remote, localTTL: localTTL}
}

func (s *TieredStore) Get(ctx context.Context, key string) ([]byte, error) {
	if data, err := s.local.Get(ctx, key); err == nil {
		return data, nil
	}
	if s.remote == nil {
		return nil, ErrCacheMiss
	}
	data, err := s.remote.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	s.local.Set(ctx, key, data, s.localTTL)
	return data, nil
}

func (s *TieredStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	localTTL := s.localTTL
	if ttl > 0 && ttl < localTTL {
		localTTL = ttl
	}
	s.local.Set(ctx, key, value, localTTL)
	if s.remote == nil {
		return nil
	}
	return s.remote.Set(ctx, key, value, ttl)
}
