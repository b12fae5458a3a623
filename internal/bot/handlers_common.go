package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/carebot/carebot/internal/domain/account"
	"github.com/carebot/carebot/internal/domain/otp"
	"github.com/carebot/carebot/internal/domain/session"
)

// replyAuthRequired is the gate reply for privileged keywords from callers
// who have not logged in.
const replyAuthRequired = "🔐 Authentication required. Please log in first by sending `login`."

// loginHandler starts the OTP flow. The passcode is delivered through the
// outbound sender, never echoed in the reply.
type loginHandler struct {
	auth   *otp.Authenticator
	sender Sender
}

func (h *loginHandler) Match(cmd Command, s *session.Session) bool {
	return cmd.Verb == "login" && !s.Authenticated()
}

func (h *loginHandler) Handle(ctx context.Context, _ Command, s *session.Session) (string, error) {
	code, err := h.auth.Issue(ctx, s)
	if errors.Is(err, account.ErrUnknownIdentity) {
		return "❌ No account found for this number. Contact your healthcare provider for registration.", nil
	}
	if err != nil {
		return "", err
	}

	body := fmt.Sprintf("🔐 Your login code is *%s*. It expires in a few minutes. Do not share it.", code)
	if err := h.sender.Send(ctx, s.Identity, body); err != nil {
		return "", fmt.Errorf("deliver otp: %w", err)
	}
	return "🔐 A 6-digit login code has been sent to you. Reply with the code to sign in.", nil
}

// codeHandler consumes a bare 6-digit message from any caller who is not
// signed in. Without an outstanding challenge the verifier reports that no
// login is in progress; codes sent after lockout or expiry land here too.
type codeHandler struct {
	auth *otp.Authenticator
}

func (h *codeHandler) Match(cmd Command, s *session.Session) bool {
	return !s.Authenticated() && isCodeSubmission(cmd)
}

func (h *codeHandler) Handle(ctx context.Context, cmd Command, s *session.Session) (string, error) {
	res, err := h.auth.Verify(ctx, s, cmd.Verb)
	if err != nil {
		return "", err
	}
	if res.OK {
		greeting := "✅ Successfully logged in!"
		if s.Name != "" {
			greeting = fmt.Sprintf("✅ Successfully logged in! Welcome, %s.", s.Name)
		}
		return greeting + "\n\nType `menu` to see what you can do.", nil
	}

	switch res.Reason {
	case otp.ReasonExpired:
		return "⏰ That code has expired. Send `login` to request a new one.", nil
	case otp.ReasonMismatch:
		return fmt.Sprintf("❌ Incorrect code. %d attempt(s) remaining.", res.AttemptsLeft), nil
	case otp.ReasonAttemptsExceeded:
		return "🔒 Too many incorrect attempts. Send `login` to request a new code.", nil
	case otp.ReasonNoChallenge:
		return "❓ No login in progress. Send `login` to start.", nil
	}
	return "❓ No login in progress. Send `login` to start.", nil
}

// isCodeSubmission reports whether the message is a bare 6-digit payload.
func isCodeSubmission(cmd Command) bool {
	return cmd.Rest == "" && isDigits(cmd.Verb, 6)
}

func isDigits(s string, n int) bool {
	if len(s) != n {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// logoutHandler wipes authentication and all transient context.
type logoutHandler struct{}

func (h *logoutHandler) Match(cmd Command, s *session.Session) bool {
	return cmd.Verb == "logout" && s.State != session.StateUnauthenticated
}

func (h *logoutHandler) Handle(_ context.Context, _ Command, s *session.Session) (string, error) {
	s.Reset()
	return "✅ Successfully logged out. Send `login` to sign in again.", nil
}

// helpHandler and menuHandler are role-aware: replies list only the commands
// the caller's current role and state permit.
type helpHandler struct{}

func (h *helpHandler) Match(cmd Command, _ *session.Session) bool {
	return cmd.Verb == "help"
}

func (h *helpHandler) Handle(_ context.Context, _ Command, s *session.Session) (string, error) {
	switch {
	case !s.Authenticated():
		return "🏥 *Help*\n\n" +
			"Welcome! I can help you access your healthcare information.\n\n" +
			"*Getting Started:*\n" +
			"• Send `login` to sign in\n" +
			"• Reply with the 6-digit code you receive\n\n" +
			"Contact your healthcare provider for registration or support.", nil
	case s.Role == session.RoleStaff:
		return "👨‍⚕️ *Staff Help*\n\n" +
			"*Available Commands:*\n" +
			"• `search patient <name>` - Find patients\n" +
			"• `patient info <id>` - Patient details\n" +
			"• `schedule appointment` - Request an appointment\n" +
			"• `menu` - Show main menu\n" +
			"• `logout` - Sign out\n\n" +
			"*Examples:*\n" +
			"• `search patient John Doe`\n" +
			"• `patient info P123456`", nil
	default:
		return "👤 *Patient Help*\n\n" +
			"*Available Commands:*\n" +
			"• `records` - Your medical records\n" +
			"• `medications` - Current medications\n" +
			"• `appointments` - Upcoming appointments\n" +
			"• `procedures` - Recent procedures\n" +
			"• `menu` - Show main menu\n" +
			"• `logout` - Sign out\n\n" +
			"Sessions expire after 24 hours of inactivity.", nil
	}
}

type menuHandler struct{}

func (h *menuHandler) Match(cmd Command, _ *session.Session) bool {
	return cmd.Verb == "menu" || cmd.Verb == "start" || cmd.Verb == "hi" || cmd.Verb == "hello"
}

func (h *menuHandler) Handle(_ context.Context, _ Command, s *session.Session) (string, error) {
	switch {
	case !s.Authenticated():
		return "🏥 *Welcome*\n\nPlease log in to access the menu.\n\nSend `login` to get started.", nil
	case s.Role == session.RoleStaff:
		return "👨‍⚕️ *Staff Menu*\n\n" +
			"🔍 `search patient <name>` - Search for a patient\n" +
			"👤 `patient info <id>` - Patient information\n" +
			"📅 `schedule appointment` - Request an appointment\n\n" +
			"ℹ️ `help` - Get help\n" +
			"🚪 `logout` - Sign out", nil
	default:
		return "👤 *Patient Menu*\n\n" +
			"📋 `records` - View medical records\n" +
			"💊 `medications` - View current medications\n" +
			"📅 `appointments` - View upcoming appointments\n" +
			"🏥 `procedures` - View recent procedures\n\n" +
			"ℹ️ `help` - Get help\n" +
			"🚪 `logout` - Sign out", nil
	}
}

// utilityHandler answers the operational probes available in any state.
type utilityHandler struct {
	version string
	started time.Time
}

func (h *utilityHandler) Match(cmd Command, _ *session.Session) bool {
	switch cmd.Verb {
	case "ping", "version", "status":
		return true
	}
	return false
}

func (h *utilityHandler) Handle(_ context.Context, cmd Command, s *session.Session) (string, error) {
	switch cmd.Verb {
	case "ping":
		return "🏓 pong", nil
	case "version":
		return fmt.Sprintf("🤖 carebot %s", h.version), nil
	default:
		return fmt.Sprintf("📊 *Status*\n\nRole: %s\nState: %s\nUptime: %s\nSession expires: %s",
			s.Role, s.State, time.Since(h.started).Round(time.Second),
			s.ExpiresAt.Format("2006-01-02 15:04")), nil
	}
}

// authGateHandler catches privileged keywords from callers who are not
// authorized for them, replying with a login prompt instead of the generic
// fallback. It mutates nothing.
type authGateHandler struct{}

var privilegedKeywords = map[string]struct{}{
	"records": {}, "medications": {}, "appointments": {}, "procedures": {},
	"search": {}, "patient": {}, "schedule": {},
}

func (h *authGateHandler) Match(cmd Command, s *session.Session) bool {
	if s.Authenticated() {
		return false
	}
	_, ok := privilegedKeywords[cmd.Keyword()]
	return ok
}

func (h *authGateHandler) Handle(context.Context, Command, *session.Session) (string, error) {
	return replyAuthRequired, nil
}

// fallbackHandler answers anything unmatched. It mutates nothing.
type fallbackHandler struct{}

func (h *fallbackHandler) Match(Command, *session.Session) bool { return true }

func (h *fallbackHandler) Handle(context.Context, Command, *session.Session) (string, error) {
	return "❓ I didn't understand that. Type `help` or `menu` for options.", nil
}
