package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/carebot/carebot/internal/platform/cache"
)

const keyPrefix = "carebot:session:"

// CacheStore is a Store backed by an external key/value cache. The cache TTL
// mirrors the session's expires_at so abandoned sessions age out on their own;
// Load still checks expiry explicitly so a lagging TTL can never resurrect an
// expired authenticated session.
type CacheStore struct {
	cache cache.Cache
	now   func() time.Time
}

// NewCacheStore creates a Store on top of the given cache.
func NewCacheStore(c cache.Cache) *CacheStore {
	return &CacheStore{cache: c, now: time.Now}
}

// SetClock overrides the store's clock; tests use this to exercise expiry.
func (cs *CacheStore) SetClock(now func() time.Time) {
	cs.now = now
}

func cacheKey(identity string) string {
	return keyPrefix + identity
}

func (cs *CacheStore) Load(ctx context.Context, identity string) (*Session, error) {
	raw, err := cs.cache.Get(ctx, cacheKey(identity))
	if errors.Is(err, cache.ErrMiss) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	var s Session
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		// A corrupt entry is unrecoverable; drop it and report absent.
		_ = cs.cache.Delete(ctx, cacheKey(identity))
		return nil, ErrNotFound
	}

	if s.Expired(cs.now()) {
		_ = cs.cache.Delete(ctx, cacheKey(identity))
		return nil, ErrNotFound
	}
	return &s, nil
}

func (cs *CacheStore) Save(ctx context.Context, s *Session) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	ttl := s.ExpiresAt.Sub(cs.now())
	if ttl <= 0 {
		return cs.Expire(ctx, s.Identity)
	}
	if err := cs.cache.Set(ctx, cacheKey(s.Identity), string(raw), ttl); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (cs *CacheStore) Expire(ctx context.Context, identity string) error {
	if err := cs.cache.Delete(ctx, cacheKey(identity)); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}
