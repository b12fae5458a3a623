// Package session holds the per-identity conversation state: who the sender
// is, how far through authentication they are, and any multi-step flow in
// progress. Sessions live in an external key/value cache; this package owns
// the model and the cache-backed store.
package session

import (
	"time"

	"github.com/google/uuid"
)

// Role is the sender's resolved role within the platform.
type Role string

const (
	RoleAnonymous Role = "anonymous"
	RolePatient   Role = "patient"
	RoleStaff     Role = "staff"
)

// AuthState tracks progress through the login flow.
type AuthState string

const (
	StateUnauthenticated AuthState = "unauthenticated"
	StateOTPPending      AuthState = "otp_pending"
	StateAuthenticated   AuthState = "authenticated"
)

// Challenge is an outstanding one-time passcode bound to a session.
type Challenge struct {
	Code      string    `json:"code"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Attempts  int       `json:"attempts"`
}

// ScheduleDraft is the staff appointment-scheduling flow in progress. Fields
// fill in across messages until the draft is complete or aborted.
type ScheduleDraft struct {
	PatientID string     `json:"patient_id,omitempty"`
	StartsAt  *time.Time `json:"starts_at,omitempty"`
	Reason    string     `json:"reason,omitempty"`
}

// Complete reports whether every parameter of the draft has been collected.
func (d *ScheduleDraft) Complete() bool {
	return d != nil && d.PatientID != "" && d.StartsAt != nil && d.Reason != ""
}

// Session is the conversation state for one identity (phone number).
type Session struct {
	Identity       string     `json:"identity"`
	Role           Role       `json:"role"`
	State          AuthState  `json:"state"`
	AccountRef     *uuid.UUID `json:"account_ref,omitempty"`
	Name           string     `json:"name,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	LastActivityAt time.Time  `json:"last_activity_at"`
	ExpiresAt      time.Time  `json:"expires_at"`

	Challenge *Challenge     `json:"challenge,omitempty"`
	Draft     *ScheduleDraft `json:"schedule_draft,omitempty"`
}

// New creates a fresh anonymous session for an identity.
func New(identity string, now time.Time, ttl time.Duration) *Session {
	return &Session{
		Identity:       identity,
		Role:           RoleAnonymous,
		State:          StateUnauthenticated,
		CreatedAt:      now,
		LastActivityAt: now,
		ExpiresAt:      now.Add(ttl),
	}
}

// Expired reports whether the session's lifetime has elapsed.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// Authenticated reports whether the sender has completed login.
func (s *Session) Authenticated() bool {
	return s.State == StateAuthenticated && s.AccountRef != nil
}

// Touch refreshes the activity timestamp and pushes expiry forward, keeping
// the expires_at = last_activity_at + ttl invariant.
func (s *Session) Touch(now time.Time, ttl time.Duration) {
	s.LastActivityAt = now
	s.ExpiresAt = now.Add(ttl)
}

// Reset returns the session to the anonymous, unauthenticated state and wipes
// all transient context. Used by logout.
func (s *Session) Reset() {
	s.Role = RoleAnonymous
	s.State = StateUnauthenticated
	s.AccountRef = nil
	s.Name = ""
	s.Challenge = nil
	s.Draft = nil
}

// Clone returns a deep copy. The engine handles a mutable copy to handlers so
// a failed handler cannot leave a half-applied mutation in the store.
func (s *Session) Clone() *Session {
	out := *s
	if s.AccountRef != nil {
		ref := *s.AccountRef
		out.AccountRef = &ref
	}
	if s.Challenge != nil {
		ch := *s.Challenge
		out.Challenge = &ch
	}
	if s.Draft != nil {
		d := *s.Draft
		if s.Draft.StartsAt != nil {
			at := *s.Draft.StartsAt
			d.StartsAt = &at
		}
		out.Draft = &d
	}
	return &out
}
