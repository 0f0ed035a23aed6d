package cache

import (
	"context"
	"errors"
	"sync"

	customErrors "github.com/welliohq/wellio-backend/internal/domain/auth/errors"
	"github.com/welliohq/wellio-backend/internal/infra/config"
	"go.uber.org/zap"
)

// One cache connection per process. Init builds it from config, Default hands
// out the shared instance (re-initializing if it was shut down), Shutdown
// closes and clears it so tests can reset state between runs.
var (
	mu       sync.Mutex
	instance Cache
	builder  func(ctx context.Context) (Cache, error)
)

func Init(ctx context.Context, cfg *config.Config, logger *zap.Logger) (Cache, error) {
	mu.Lock()
	defer mu.Unlock()

	builder = func(ctx context.Context) (Cache, error) {
		switch cfg.CacheBackend {
		case config.CacheBackendMemory:
			logger.Info("cache: using in-process backend")
			return NewMemoryCache(), nil
		case config.CacheBackendRedis:
			c, err := NewRedisCache(ctx, cfg.RedisURL)
			if err != nil {
				return nil, err
			}
			logger.Info("cache: connected to redis", zap.String("url", cfg.RedisURL))
			return c, nil
		default:
			return nil, customErrors.NewInvalidArgument("unknown cache backend: " + cfg.CacheBackend)
		}
	}

	c, err := builder(ctx)
	if err != nil {
		return nil, err
	}
	instance = c
	return instance, nil
}

// Default returns the shared instance. If Shutdown ran earlier the instance is
// rebuilt from the last Init configuration.
func Default(ctx context.Context) (Cache, error) {
	mu.Lock()
	defer mu.Unlock()

	if instance != nil {
		return instance, nil
	}
	if builder == nil {
		return nil, customErrors.WrapInternal(errors.New("not initialized"), "cache.Default")
	}
	c, err := builder(ctx)
	if err != nil {
		return nil, err
	}
	instance = c
	return instance, nil
}

func Shutdown() error {
	mu.Lock()
	defer mu.Unlock()

	if instance == nil {
		return nil
	}
	err := instance.Close()
	instance = nil
	return err
}
