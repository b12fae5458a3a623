// Package cache provides the key/value cache contract the bot uses for
// session state, with a Redis-backed implementation for deployment and an
// in-memory implementation for tests and development.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned by Get when the key is absent or has expired.
var ErrMiss = errors.New("cache: key not found")

// Cache is a minimal TTL key/value store.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
