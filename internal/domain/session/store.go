package session

import (
	"context"
	"errors"
)

// ErrNotFound means no live session exists for the identity. Expired sessions
// are reported as absent, never returned stale.
var ErrNotFound = errors.New("session not found")

// ErrStoreUnavailable wraps transient cache failures. Callers must treat it as
// retryable and must not mistake it for an absent session.
var ErrStoreUnavailable = errors.New("session store unavailable")

// Store persists sessions keyed by identity. Save is last-writer-wins; the
// engine's per-identity serialization makes read-modify-write safe.
type Store interface {
	Load(ctx context.Context, identity string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Expire(ctx context.Context, identity string) error
}
