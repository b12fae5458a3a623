package otp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/carebot/carebot/internal/domain/account"
	"github.com/carebot/carebot/internal/domain/session"
)

type stubResolver struct {
	link *account.Link
	err  error
}

func (r *stubResolver) Resolve(context.Context, string) (*account.Link, error) {
	return r.link, r.err
}

func patientResolver() *stubResolver {
	return &stubResolver{link: &account.Link{Ref: uuid.New(), Role: session.RolePatient, Name: "Asha"}}
}

func newTestAuthenticator(r account.Resolver) *Authenticator {
	a := NewAuthenticator(r, 10*time.Minute, 3)
	a.SetCodeFunc(func() (string, error) { return "123456", nil })
	return a
}

func TestIssue_SetsChallengeAndState(t *testing.T) {
	a := newTestAuthenticator(patientResolver())
	s := session.New("+1000000001", time.Now(), 24*time.Hour)

	code, err := a.Issue(context.Background(), s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if code != "123456" {
		t.Errorf("expected generated code, got %s", code)
	}
	if s.State != session.StateOTPPending {
		t.Errorf("expected otp_pending, got %s", s.State)
	}
	if s.Challenge == nil || s.Challenge.Code != "123456" {
		t.Error("challenge not bound to session")
	}
}

func TestIssue_UnknownIdentity(t *testing.T) {
	a := newTestAuthenticator(&stubResolver{err: account.ErrUnknownIdentity})
	s := session.New("+1999999999", time.Now(), 24*time.Hour)

	_, err := a.Issue(context.Background(), s)
	if !errors.Is(err, account.ErrUnknownIdentity) {
		t.Errorf("expected ErrUnknownIdentity, got %v", err)
	}
	if s.Challenge != nil || s.State != session.StateUnauthenticated {
		t.Error("failed issue must not mutate session")
	}
}

func TestVerify_Success(t *testing.T) {
	r := patientResolver()
	a := newTestAuthenticator(r)
	s := session.New("+1000000001", time.Now(), 24*time.Hour)
	a.Issue(context.Background(), s)

	res, err := a.Verify(context.Background(), s, "123456")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.OK {
		t.Fatalf("expected success, got reason %s", res.Reason)
	}
	if !s.Authenticated() {
		t.Error("session must be authenticated after success")
	}
	if s.Role != session.RolePatient || s.AccountRef == nil || *s.AccountRef != r.link.Ref {
		t.Error("role/account ref not bound")
	}
	if s.Challenge != nil {
		t.Error("challenge must be cleared on success")
	}
}

func TestVerify_NoChallenge(t *testing.T) {
	a := newTestAuthenticator(patientResolver())
	s := session.New("+1000000001", time.Now(), 24*time.Hour)

	res, _ := a.Verify(context.Background(), s, "123456")
	if res.OK || res.Reason != ReasonNoChallenge {
		t.Errorf("expected no_pending_challenge, got %+v", res)
	}
}

func TestVerify_Expired(t *testing.T) {
	a := newTestAuthenticator(patientResolver())
	now := time.Now()
	a.SetClock(func() time.Time { return now })

	s := session.New("+1000000001", now, 24*time.Hour)
	a.Issue(context.Background(), s)

	a.SetClock(func() time.Time { return now.Add(11 * time.Minute) })
	res, _ := a.Verify(context.Background(), s, "123456")
	if res.OK || res.Reason != ReasonExpired {
		t.Errorf("expected expired, got %+v", res)
	}
	if s.Challenge != nil {
		t.Error("expired challenge must be cleared")
	}
}

func TestVerify_MismatchCountsDown(t *testing.T) {
	a := newTestAuthenticator(patientResolver())
	s := session.New("+1000000001", time.Now(), 24*time.Hour)
	a.Issue(context.Background(), s)

	res, _ := a.Verify(context.Background(), s, "999999")
	if res.Reason != ReasonMismatch || res.AttemptsLeft != 2 {
		t.Errorf("expected mismatch with 2 attempts left, got %+v", res)
	}
	res, _ = a.Verify(context.Background(), s, "999999")
	if res.Reason != ReasonMismatch || res.AttemptsLeft != 1 {
		t.Errorf("expected mismatch with 1 attempt left, got %+v", res)
	}
}

// Three mismatches invalidate the challenge; a subsequent correct code must be
// rejected with no_pending_challenge until login is restarted.
func TestVerify_CeilingLocksOutCorrectCode(t *testing.T) {
	a := newTestAuthenticator(patientResolver())
	s := session.New("+1000000001", time.Now(), 24*time.Hour)
	a.Issue(context.Background(), s)

	a.Verify(context.Background(), s, "999999")
	a.Verify(context.Background(), s, "999999")
	res, _ := a.Verify(context.Background(), s, "999999")
	if res.Reason != ReasonAttemptsExceeded {
		t.Fatalf("expected attempts_exceeded on third mismatch, got %+v", res)
	}

	res, _ = a.Verify(context.Background(), s, "123456")
	if res.OK || res.Reason != ReasonNoChallenge {
		t.Errorf("correct code after lockout must not succeed, got %+v", res)
	}

	// A fresh issue restores the path.
	a.Issue(context.Background(), s)
	res, _ = a.Verify(context.Background(), s, "123456")
	if !res.OK {
		t.Errorf("expected success after reissue, got %+v", res)
	}
}

func TestRandomCode_SixDigits(t *testing.T) {
	code, err := randomCode()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(code) != 6 {
		t.Errorf("expected 6 digits, got %q", code)
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			t.Errorf("non-digit in code %q", code)
		}
	}
}
