package bot

import (
	"context"

	"github.com/carebot/carebot/internal/domain/session"
)

// Handler is one routable conversation capability. Match consults the parsed
// command plus the caller's role and authentication state; Handle produces
// the reply and mutates only the session copy it is handed. Handlers never
// touch the session store.
type Handler interface {
	Match(cmd Command, s *session.Session) bool
	Handle(ctx context.Context, cmd Command, s *session.Session) (string, error)
}

// Sender delivers one outbound message to an identity, outside the
// request/reply cycle. Login uses it to deliver the passcode.
type Sender interface {
	Send(ctx context.Context, identity, body string) error
}

// Registry is the ordered dispatch table. The first handler whose Match
// returns true wins, so more specific handlers are registered first.
type Registry struct {
	handlers []Handler
	fallback Handler
}

func NewRegistry(fallback Handler, handlers ...Handler) *Registry {
	return &Registry{handlers: handlers, fallback: fallback}
}

// Route selects the handler for a command. It always returns a handler; the
// fallback catches anything unmatched and mutates nothing.
func (r *Registry) Route(cmd Command, s *session.Session) Handler {
	for _, h := range r.handlers {
		if h.Match(cmd, s) {
			return h
		}
	}
	return r.fallback
}
