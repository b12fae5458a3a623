package transport

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/carebot/carebot/internal/domain/session"
)

type stubEngine struct {
	replies map[string]string
	err     error
	seen    []string
}

func (e *stubEngine) ProcessInbound(_ context.Context, identity, text string) (string, error) {
	e.seen = append(e.seen, identity+":"+text)
	if e.err != nil {
		return "", e.err
	}
	if r, ok := e.replies[text]; ok {
		return r, nil
	}
	return "ok", nil
}

type stubSender struct {
	sent []string
	err  error
}

func (s *stubSender) Send(_ context.Context, identity, body string) error {
	s.sent = append(s.sent, identity+":"+body)
	return s.err
}

func inboundBody(from, text string) []byte {
	payload := map[string]any{
		"entry": []any{
			map[string]any{
				"changes": []any{
					map[string]any{
						"value": map[string]any{
							"messages": []any{
								map[string]any{
									"from": from,
									"type": "text",
									"text": map[string]any{"body": text},
								},
							},
						},
					},
				},
			},
		},
	}
	b, _ := json.Marshal(payload)
	return b
}

func sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func post(w *Webhook, body []byte, signature string) *httptest.ResponseRecorder {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(string(body)))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if signature != "" {
		req.Header.Set("X-Hub-Signature-256", signature)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := w.Receive(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec
}

func TestReceive_ProcessesAndReplies(t *testing.T) {
	engine := &stubEngine{replies: map[string]string{"menu": "the menu"}}
	sender := &stubSender{}
	w := NewWebhook(engine, sender, "secret", "", zerolog.Nop())

	body := inboundBody("+1000000001", "menu")
	rec := post(w, body, sign(body, "secret"))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(engine.seen) != 1 || engine.seen[0] != "+1000000001:menu" {
		t.Errorf("engine saw %v", engine.seen)
	}
	if len(sender.sent) != 1 || sender.sent[0] != "+1000000001:the menu" {
		t.Errorf("sender got %v", sender.sent)
	}
}

func TestReceive_RejectsBadSignature(t *testing.T) {
	engine := &stubEngine{}
	w := NewWebhook(engine, &stubSender{}, "secret", "", zerolog.Nop())

	body := inboundBody("+1000000001", "menu")
	rec := post(w, body, "sha256=deadbeef")

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if len(engine.seen) != 0 {
		t.Error("unverified payload must not reach the engine")
	}
}

func TestReceive_SkipsVerificationWithoutSecret(t *testing.T) {
	engine := &stubEngine{}
	w := NewWebhook(engine, &stubSender{}, "", "", zerolog.Nop())

	rec := post(w, inboundBody("+1000000001", "menu"), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(engine.seen) != 1 {
		t.Error("message must reach the engine")
	}
}

func TestReceive_StoreOutageMapsTo503(t *testing.T) {
	engine := &stubEngine{err: session.ErrStoreUnavailable}
	w := NewWebhook(engine, &stubSender{}, "", "", zerolog.Nop())

	rec := post(w, inboundBody("+1000000001", "menu"), "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 for retry, got %d", rec.Code)
	}
}

func TestReceive_IgnoresNonTextMessages(t *testing.T) {
	payload := map[string]any{
		"entry": []any{
			map[string]any{
				"changes": []any{
					map[string]any{
						"value": map[string]any{
							"messages": []any{
								map[string]any{"from": "+1", "type": "image"},
							},
						},
					},
				},
			},
		},
	}
	body, _ := json.Marshal(payload)
	engine := &stubEngine{}
	w := NewWebhook(engine, &stubSender{}, "", "", zerolog.Nop())

	rec := post(w, body, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(engine.seen) != 0 {
		t.Error("non-text message must be ignored")
	}
}

func TestReceive_MalformedPayload(t *testing.T) {
	w := NewWebhook(&stubEngine{}, &stubSender{}, "", "", zerolog.Nop())
	rec := post(w, []byte("{not json"), "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestVerifySubscription(t *testing.T) {
	w := NewWebhook(&stubEngine{}, &stubSender{}, "", "verify-me", zerolog.Nop())
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet,
		"/webhook?hub.mode=subscribe&hub.verify_token=verify-me&hub.challenge=12345", nil)
	rec := httptest.NewRecorder()
	if err := w.VerifySubscription(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK || rec.Body.String() != "12345" {
		t.Errorf("expected challenge echo, got %d %q", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet,
		"/webhook?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=12345", nil)
	rec = httptest.NewRecorder()
	err := w.VerifySubscription(e.NewContext(req, rec))
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %v", err)
	}
}
