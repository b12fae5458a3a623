package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/carebot/carebot/internal/domain/care"
	"github.com/carebot/carebot/internal/domain/otp"
	"github.com/carebot/carebot/internal/domain/session"
	"github.com/carebot/carebot/internal/platform/keymutex"
)

// replyApology is the only thing the channel sees when a handler fails.
// Internal error detail never reaches the conversational channel.
const replyApology = "⚠️ Sorry, something went wrong while processing your request. Please try again."

// Engine processes one inbound message at a time per identity. Processing
// for the same identity is serialized through a striped key mutex; distinct
// identities run fully in parallel.
type Engine struct {
	store    session.Store
	registry *Registry
	locks    *keymutex.KeyMutex
	ttl      time.Duration
	log      zerolog.Logger
	now      func() time.Time
}

func NewEngine(store session.Store, registry *Registry, ttl time.Duration, log zerolog.Logger) *Engine {
	return &Engine{
		store:    store,
		registry: registry,
		locks:    keymutex.New(),
		ttl:      ttl,
		log:      log.With().Str("component", "engine").Logger(),
		now:      time.Now,
	}
}

// SetClock overrides the clock; tests use this to drive session expiry.
func (e *Engine) SetClock(now func() time.Time) { e.now = now }

// ProcessInbound handles one message and returns the reply. A store failure
// is returned as an error so the transport can signal retry; it is never
// treated as "no session", which would silently force re-authentication.
func (e *Engine) ProcessInbound(ctx context.Context, identity, text string) (string, error) {
	e.locks.Lock(identity)
	defer e.locks.Unlock(identity)

	now := e.now()
	s, err := e.store.Load(ctx, identity)
	switch {
	case errors.Is(err, session.ErrNotFound):
		s = session.New(identity, now, e.ttl)
	case err != nil:
		return "", fmt.Errorf("load session: %w", err)
	}

	// Handlers get a copy: a failed handler must not leave a half-applied
	// mutation behind.
	work := s.Clone()
	cmd := Parse(text)

	// A lapsed challenge is dropped before routing, except for a code
	// submission, which still reaches the verifier and its expired-code reply.
	if work.Challenge != nil && now.After(work.Challenge.ExpiresAt) && !isCodeSubmission(cmd) {
		work.Challenge = nil
		work.State = session.StateUnauthenticated
	}
	handler := e.registry.Route(cmd, work)

	reply, err := e.dispatch(ctx, handler, cmd, work)
	if err != nil {
		e.log.Error().Err(err).
			Str("identity", identity).
			Str("verb", cmd.Verb).
			Msg("handler failed")
		s.Touch(now, e.ttl)
		if saveErr := e.store.Save(ctx, s); saveErr != nil {
			return "", fmt.Errorf("save session: %w", saveErr)
		}
		return replyApology, nil
	}

	work.Touch(now, e.ttl)
	if err := e.store.Save(ctx, work); err != nil {
		return "", fmt.Errorf("save session: %w", err)
	}
	return reply, nil
}

// dispatch invokes the handler with a panic guard so an unexpected handler
// fault degrades to the apology reply.
func (e *Engine) dispatch(ctx context.Context, h Handler, cmd Command, s *session.Session) (reply string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h.Handle(ctx, cmd, s)
}

// DefaultRegistry wires the full handler set in dispatch order. Ordering
// matters: specific handlers come before the gate and the fallback.
func DefaultRegistry(auth *otp.Authenticator, sender Sender, data care.DataSource, version string, started time.Time) *Registry {
	return NewRegistry(
		&fallbackHandler{},
		&loginHandler{auth: auth, sender: sender},
		&codeHandler{auth: auth},
		&logoutHandler{},
		&helpHandler{},
		&menuHandler{},
		newScheduleHandler(data),
		&searchHandler{data: data},
		&infoHandler{data: data},
		&patientHandler{data: data},
		&utilityHandler{version: version, started: started},
		&authGateHandler{},
	)
}
