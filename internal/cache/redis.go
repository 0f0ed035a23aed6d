package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	customErrors "github.com/welliohq/wellio-backend/internal/domain/auth/errors"
)

// RedisCache delegates to an external Redis instance so session state survives
// process restarts and is shared across replicas.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache connects and pings. A connection failure is returned to the
// caller, which is expected to treat it as fatal: once a networked backend is
// configured there is no silent fallback to the in-process map.
func NewRedisCache(ctx context.Context, url string) (*RedisCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, customErrors.WrapInternal(err, "parse redis url")
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, customErrors.WrapInternal(err, "connect redis")
	}
	return &RedisCache{client: client}, nil
}

func (r *RedisCache) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, key).Result()
	switch {
	case err == redis.Nil:
		return "", ErrCacheMiss
	case err != nil:
		return "", err
	default:
		return val, nil
	}
}

func (r *RedisCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r *RedisCache) Delete(ctx context.Context, keys ...string) (int64, error) {
	return r.client.Del(ctx, keys...).Result()
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}
