// Package otp issues and verifies the one-time passcodes that gate login.
// A challenge lives in the session's transient context, expires well before
// the session does, and tolerates a bounded number of wrong guesses before it
// is invalidated.
package otp

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/carebot/carebot/internal/domain/account"
	"github.com/carebot/carebot/internal/domain/session"
)

// Reason classifies a failed verification.
type Reason string

const (
	ReasonNone             Reason = ""
	ReasonExpired          Reason = "expired"
	ReasonMismatch         Reason = "mismatch"
	ReasonAttemptsExceeded Reason = "attempts_exceeded"
	ReasonNoChallenge      Reason = "no_pending_challenge"
)

// VerifyResult is the outcome of a verification attempt.
type VerifyResult struct {
	OK     bool
	Reason Reason
	// AttemptsLeft is set on mismatch so replies can warn the user.
	AttemptsLeft int
}

const codeLength = 6

// Authenticator issues and verifies challenges against a session.
type Authenticator struct {
	resolver    account.Resolver
	ttl         time.Duration
	maxAttempts int
	now         func() time.Time
	genCode     func() (string, error)
}

// NewAuthenticator creates an Authenticator. ttl is the challenge lifetime
// (minutes, far shorter than the session TTL) and maxAttempts the mismatch
// ceiling before the challenge is invalidated.
func NewAuthenticator(resolver account.Resolver, ttl time.Duration, maxAttempts int) *Authenticator {
	return &Authenticator{
		resolver:    resolver,
		ttl:         ttl,
		maxAttempts: maxAttempts,
		now:         time.Now,
		genCode:     randomCode,
	}
}

// SetClock overrides the clock; tests use this to exercise expiry.
func (a *Authenticator) SetClock(now func() time.Time) { a.now = now }

// SetCodeFunc overrides code generation; tests use this for determinism.
func (a *Authenticator) SetCodeFunc(f func() (string, error)) { a.genCode = f }

func randomCode() (string, error) {
	max := big.NewInt(1000000)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// Issue verifies the identity has a linked account, generates a fresh code,
// binds it to the session, and moves the session to otp_pending. The returned
// code is handed to the outbound channel; it is never included in a reply.
func (a *Authenticator) Issue(ctx context.Context, s *session.Session) (string, error) {
	if _, err := a.resolver.Resolve(ctx, s.Identity); err != nil {
		return "", err
	}

	code, err := a.genCode()
	if err != nil {
		return "", err
	}

	now := a.now()
	s.Challenge = &session.Challenge{
		Code:      code,
		IssuedAt:  now,
		ExpiresAt: now.Add(a.ttl),
	}
	s.State = session.StateOTPPending
	return code, nil
}

// Verify checks a submitted code against the session's outstanding challenge.
// On success the identity is resolved to its account, the session becomes
// authenticated, and the challenge is cleared. The returned error is reserved
// for infrastructure failures (account lookup); all user-caused outcomes are
// expressed through VerifyResult.
func (a *Authenticator) Verify(ctx context.Context, s *session.Session, submitted string) (VerifyResult, error) {
	ch := s.Challenge
	if ch == nil {
		return VerifyResult{Reason: ReasonNoChallenge}, nil
	}

	now := a.now()
	if now.After(ch.ExpiresAt) {
		s.Challenge = nil
		s.State = session.StateUnauthenticated
		return VerifyResult{Reason: ReasonExpired}, nil
	}

	if submitted != ch.Code {
		ch.Attempts++
		if ch.Attempts >= a.maxAttempts {
			// Ceiling reached: invalidate so the next guess, right or
			// wrong, cannot succeed until a fresh challenge is issued.
			s.Challenge = nil
			s.State = session.StateUnauthenticated
			return VerifyResult{Reason: ReasonAttemptsExceeded}, nil
		}
		return VerifyResult{Reason: ReasonMismatch, AttemptsLeft: a.maxAttempts - ch.Attempts}, nil
	}

	link, err := a.resolver.Resolve(ctx, s.Identity)
	if err != nil {
		return VerifyResult{}, err
	}

	s.Challenge = nil
	s.Role = link.Role
	s.AccountRef = &link.Ref
	s.Name = link.Name
	s.State = session.StateAuthenticated
	return VerifyResult{OK: true}, nil
}
