// Package transport is the messaging-provider boundary: the inbound webhook
// that feeds the conversation engine and the outbound HTTP client that
// delivers replies and reminders.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// WhatsAppSender delivers text messages through the WhatsApp Business API.
type WhatsAppSender struct {
	apiURL        string
	accessToken   string
	phoneNumberID string
	client        *http.Client
	log           zerolog.Logger
}

func NewWhatsAppSender(apiURL, accessToken, phoneNumberID string, log zerolog.Logger) *WhatsAppSender {
	return &WhatsAppSender{
		apiURL:        apiURL,
		accessToken:   accessToken,
		phoneNumberID: phoneNumberID,
		client:        &http.Client{Timeout: 30 * time.Second},
		log:           log.With().Str("component", "whatsapp").Logger(),
	}
}

type outboundMessage struct {
	MessagingProduct string       `json:"messaging_product"`
	To               string       `json:"to"`
	Type             string       `json:"type"`
	Text             outboundText `json:"text"`
}

type outboundText struct {
	Body string `json:"body"`
}

// Send posts one text message to the provider. The message body is never
// logged; it can carry medical data.
func (s *WhatsAppSender) Send(ctx context.Context, identity, body string) error {
	payload, err := json.Marshal(outboundMessage{
		MessagingProduct: "whatsapp",
		To:               identity,
		Type:             "text",
		Text:             outboundText{Body: body},
	})
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages", s.apiURL, s.phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		s.log.Error().Int("status", resp.StatusCode).Str("detail", string(detail)).Msg("provider rejected send")
		return fmt.Errorf("provider returned status %d", resp.StatusCode)
	}

	s.log.Debug().Str("to", identity).Msg("message sent")
	return nil
}
