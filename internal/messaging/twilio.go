package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/slotline/slotline/internal/models"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// TwilioService implements Service over the Twilio WhatsApp API. Twilio's
// Go SDK has no interactive button or list messages, so structured menus
// are flattened to numbered text and numeric replies are mapped back to
// the menu entries on ingest.
type TwilioService struct {
	client    *twilio.RestClient
	fromWhats string // "whatsapp:+1234567890"
}

// TwilioOpts holds configuration for the Twilio channel.
type TwilioOpts struct {
	AccountSID string
	AuthToken  string
	FromWhats  string
}

// NewTwilioService creates the Twilio channel.
func NewTwilioService(cfg TwilioOpts) (*TwilioService, error) {
	if cfg.AccountSID == "" || cfg.AuthToken == "" {
		return nil, fmt.Errorf("account SID and auth token must be provided")
	}
	if cfg.FromWhats == "" {
		return nil, fmt.Errorf("fromWhats number must be provided")
	}
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return &TwilioService{client: client, fromWhats: cfg.FromWhats}, nil
}

// ValidateAndCanonicalizeRecipient validates and canonicalizes a WhatsApp
// phone number by removing all non-numeric characters.
func (s *TwilioService) ValidateAndCanonicalizeRecipient(recipient string) (string, error) {
	canonical, err := canonicalizePhone(recipient)
	if err != nil {
		return "", err
	}
	if canonical != recipient {
		slog.Debug("TwilioService canonicalized recipient", "original", recipient, "canonical", canonical)
	}
	return canonical, nil
}

// SendMessage delivers the message, flattening menus to numbered text.
func (s *TwilioService) SendMessage(ctx context.Context, to string, msg models.OutboundMessage) error {
	canonical, err := s.ValidateAndCanonicalizeRecipient(to)
	if err != nil {
		slog.Error("TwilioService.SendMessage: recipient validation failed", "error", err, "to", to)
		return err
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo("whatsapp:+" + canonical)
	params.SetFrom(s.fromWhats)
	params.SetBody(flatten(msg))

	if _, err := s.client.Api.CreateMessage(params); err != nil {
		slog.Error("TwilioService.SendMessage: send failed", "error", err, "to", canonical)
		return fmt.Errorf("failed to send message to %s: %w", canonical, err)
	}
	slog.Debug("TwilioService.SendMessage: delivered", "to", canonical)
	return nil
}

// flatten renders a structured message as numbered plain text.
func flatten(msg models.OutboundMessage) string {
	var sb strings.Builder
	sb.WriteString(msg.Text)
	for i, b := range msg.Buttons {
		sb.WriteString(fmt.Sprintf("\n%d. %s", i+1, b.Title))
	}
	if msg.List != nil {
		for i, r := range msg.List.Rows {
			sb.WriteString(fmt.Sprintf("\n%d. %s", i+1, r.Title))
			if r.Description != "" {
				sb.WriteString(" — " + r.Description)
			}
		}
	}
	return sb.String()
}

// VerifyWebhook is a no-op: Twilio has no GET verification handshake.
func (s *TwilioService) VerifyWebhook(r *http.Request) (string, bool) {
	return "", false
}

// ParseWebhook decodes a Twilio form-encoded delivery into a text event.
// Mapping numeric replies back to menu selections is the flow engine's
// concern; the channel only reports what the user typed.
func (s *TwilioService) ParseWebhook(contentType string, body []byte) ([]models.Event, error) {
	if !strings.Contains(contentType, "application/x-www-form-urlencoded") {
		return nil, fmt.Errorf("unexpected twilio content type %q", contentType)
	}
	form, err := url.ParseQuery(string(body))
	if err != nil {
		return nil, fmt.Errorf("failed to decode twilio webhook form: %w", err)
	}
	sid := form.Get("MessageSid")
	from := strings.TrimPrefix(form.Get("From"), "whatsapp:")
	text := form.Get("Body")
	if sid == "" || from == "" {
		return nil, fmt.Errorf("twilio webhook missing MessageSid or From")
	}
	return []models.Event{{
		ID:   sid,
		From: strings.TrimPrefix(from, "+"),
		Kind: models.EventText,
		Text: text,
	}}, nil
}
