// Package cache is a small key-value abstraction shared by the auth flows for
// refresh and reset tokens. Two backends exist: an in-process map and Redis.
// Whichever backs it, an entry whose TTL has elapsed must behave on Get as if
// the key were absent.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss reports an absent (or expired) key.
var ErrCacheMiss = errors.New("cache: key not found")

type Cache interface {
	// Get returns the value for key, or ErrCacheMiss.
	Get(ctx context.Context, key string) (string, error)
	// Set stores value under key. ttl <= 0 means no expiry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Delete removes the given keys and reports how many existed.
	Delete(ctx context.Context, keys ...string) (int64, error)
	Close() error
}
