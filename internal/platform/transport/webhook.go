package transport

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/carebot/carebot/internal/domain/session"
)

// Processor handles one inbound message and returns the reply text.
type Processor interface {
	ProcessInbound(ctx context.Context, identity, text string) (string, error)
}

// Sender delivers one outbound message to an identity.
type Sender interface {
	Send(ctx context.Context, identity, body string) error
}

// Webhook receives provider callbacks, verifies their signature, and feeds
// text messages to the conversation engine. The provider authenticates the
// sender; the engine trusts the identity the webhook hands it.
type Webhook struct {
	engine      Processor
	sender      Sender
	secret      string
	verifyToken string
	log         zerolog.Logger
}

func NewWebhook(engine Processor, sender Sender, secret, verifyToken string, log zerolog.Logger) *Webhook {
	return &Webhook{
		engine:      engine,
		sender:      sender,
		secret:      secret,
		verifyToken: verifyToken,
		log:         log.With().Str("component", "webhook").Logger(),
	}
}

func (w *Webhook) RegisterRoutes(e *echo.Echo) {
	e.GET("/webhook", w.VerifySubscription)
	e.POST("/webhook", w.Receive)
}

// VerifySubscription answers the provider's one-time subscription handshake.
func (w *Webhook) VerifySubscription(c echo.Context) error {
	mode := c.QueryParam("hub.mode")
	token := c.QueryParam("hub.verify_token")
	if mode == "subscribe" && token != "" && token == w.verifyToken {
		return c.String(http.StatusOK, c.QueryParam("hub.challenge"))
	}
	return echo.NewHTTPError(http.StatusForbidden, "verification failed")
}

type inboundPayload struct {
	Entry []struct {
		Changes []struct {
			Value struct {
				Messages []inboundMessage `json:"messages"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

type inboundMessage struct {
	From string `json:"from"`
	Type string `json:"type"`
	Text struct {
		Body string `json:"body"`
	} `json:"text"`
}

// Receive verifies the payload signature and runs each text message through
// the engine. A session-store outage maps to 503 so the provider retries the
// delivery; everything else is acknowledged with 200.
func (w *Webhook) Receive(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, 1<<20))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unreadable body")
	}

	if !w.signatureValid(body, c.Request().Header.Get("X-Hub-Signature-256")) {
		w.log.Warn().Msg("webhook signature mismatch")
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid signature")
	}

	var payload inboundPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed payload")
	}

	ctx := c.Request().Context()
	for _, msg := range collectTexts(payload) {
		reply, err := w.engine.ProcessInbound(ctx, msg.From, msg.Text.Body)
		if errors.Is(err, session.ErrStoreUnavailable) {
			return echo.NewHTTPError(http.StatusServiceUnavailable, "temporarily unavailable")
		}
		if err != nil {
			w.log.Error().Err(err).Str("identity", msg.From).Msg("process inbound")
			continue
		}
		if err := w.sender.Send(ctx, msg.From, reply); err != nil {
			w.log.Error().Err(err).Str("identity", msg.From).Msg("deliver reply")
		}
	}
	return c.NoContent(http.StatusOK)
}

func collectTexts(p inboundPayload) []inboundMessage {
	var out []inboundMessage
	for _, entry := range p.Entry {
		for _, change := range entry.Changes {
			for _, msg := range change.Value.Messages {
				if msg.Type == "" || msg.Type == "text" {
					out = append(out, msg)
				}
			}
		}
	}
	return out
}

// signatureValid checks the hex HMAC-SHA256 of the raw body. An empty secret
// skips verification; Validate blocks that combination in production.
func (w *Webhook) signatureValid(body []byte, header string) bool {
	if w.secret == "" {
		return true
	}
	sig := strings.TrimPrefix(header, "sha256=")
	mac := hmac.New(sha256.New, []byte(w.secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(sig))
}
