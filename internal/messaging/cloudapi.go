package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/slotline/slotline/internal/httpx"
	"github.com/slotline/slotline/internal/models"
)

// DefaultGraphBase is the Cloud API endpoint root.
const DefaultGraphBase = "https://graph.facebook.com/v19.0"

// Caller abstracts the resilient HTTP client used for outbound sends.
type Caller interface {
	Do(ctx context.Context, method, url string, headers map[string]string, body []byte) (httpx.Result, error)
}

// CloudAPIService implements Service over the WhatsApp Cloud API: outbound
// sends go to the Graph endpoint, inbound events arrive on the webhook.
type CloudAPIService struct {
	base          string
	phoneNumberID string
	accessToken   string
	verifyToken   string
	caller        Caller
}

// CloudAPIOption configures a CloudAPIService.
type CloudAPIOption func(*CloudAPIService)

// WithGraphBase overrides the Graph endpoint root, for tests.
func WithGraphBase(base string) CloudAPIOption {
	return func(s *CloudAPIService) { s.base = base }
}

// NewCloudAPIService creates the Cloud API channel. verifyToken is the
// shared secret echoed back during the GET verification handshake.
func NewCloudAPIService(phoneNumberID, accessToken, verifyToken string, caller Caller, opts ...CloudAPIOption) *CloudAPIService {
	s := &CloudAPIService{
		base:          DefaultGraphBase,
		phoneNumberID: phoneNumberID,
		accessToken:   accessToken,
		verifyToken:   verifyToken,
		caller:        caller,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ValidateAndCanonicalizeRecipient validates and canonicalizes a WhatsApp
// phone number by removing all non-numeric characters.
func (s *CloudAPIService) ValidateAndCanonicalizeRecipient(recipient string) (string, error) {
	canonical, err := canonicalizePhone(recipient)
	if err != nil {
		return "", err
	}
	if canonical != recipient {
		slog.Debug("CloudAPIService canonicalized recipient", "original", recipient, "canonical", canonical)
	}
	return canonical, nil
}

// Cloud API outbound payload shapes.
type cloudText struct {
	Body string `json:"body"`
}

type cloudReply struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type cloudButton struct {
	Type  string     `json:"type"`
	Reply cloudReply `json:"reply"`
}

type cloudSection struct {
	Rows []models.Row `json:"rows"`
}

type cloudAction struct {
	Buttons  []cloudButton  `json:"buttons,omitempty"`
	Button   string         `json:"button,omitempty"`
	Sections []cloudSection `json:"sections,omitempty"`
}

type cloudInteractive struct {
	Type   string      `json:"type"`
	Body   cloudText   `json:"body"`
	Action cloudAction `json:"action"`
}

type cloudOutbound struct {
	MessagingProduct string            `json:"messaging_product"`
	To               string            `json:"to"`
	Type             string            `json:"type"`
	Text             *cloudText        `json:"text,omitempty"`
	Interactive      *cloudInteractive `json:"interactive,omitempty"`
}

// SendMessage delivers a structured message through the Graph endpoint.
func (s *CloudAPIService) SendMessage(ctx context.Context, to string, msg models.OutboundMessage) error {
	canonical, err := s.ValidateAndCanonicalizeRecipient(to)
	if err != nil {
		slog.Error("CloudAPIService.SendMessage: recipient validation failed", "error", err, "to", to)
		return err
	}

	out := cloudOutbound{MessagingProduct: "whatsapp", To: canonical}
	switch {
	case msg.List != nil:
		out.Type = "interactive"
		out.Interactive = &cloudInteractive{
			Type: "list",
			Body: cloudText{Body: msg.Text},
			Action: cloudAction{
				Button:   msg.List.Button,
				Sections: []cloudSection{{Rows: msg.List.Rows}},
			},
		}
	case len(msg.Buttons) > 0:
		buttons := make([]cloudButton, 0, len(msg.Buttons))
		for _, b := range msg.Buttons {
			buttons = append(buttons, cloudButton{Type: "reply", Reply: cloudReply{ID: b.ID, Title: b.Title}})
		}
		out.Type = "interactive"
		out.Interactive = &cloudInteractive{
			Type:   "button",
			Body:   cloudText{Body: msg.Text},
			Action: cloudAction{Buttons: buttons},
		}
	default:
		out.Type = "text"
		out.Text = &cloudText{Body: msg.Text}
	}

	payload, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("failed to encode outbound message: %w", err)
	}
	headers := map[string]string{
		"Authorization": "Bearer " + s.accessToken,
		"Content-Type":  "application/json",
	}
	url := fmt.Sprintf("%s/%s/messages", s.base, s.phoneNumberID)

	res, err := s.caller.Do(ctx, http.MethodPost, url, headers, payload)
	if err != nil {
		slog.Error("CloudAPIService.SendMessage: send failed", "error", err, "to", canonical)
		return err
	}
	if res.Status >= 400 {
		slog.Error("CloudAPIService.SendMessage: channel rejected message", "status", res.Status, "to", canonical)
		return fmt.Errorf("channel rejected message: http %d", res.Status)
	}
	slog.Debug("CloudAPIService.SendMessage: delivered", "to", canonical, "type", out.Type)
	return nil
}

// VerifyWebhook answers the hub-challenge handshake with a constant-shape
// shared-secret comparison.
func (s *CloudAPIService) VerifyWebhook(r *http.Request) (string, bool) {
	q := r.URL.Query()
	if q.Get("hub.mode") != "subscribe" || q.Get("hub.verify_token") != s.verifyToken {
		slog.Warn("CloudAPIService.VerifyWebhook: verification rejected", "mode", q.Get("hub.mode"))
		return "", false
	}
	return q.Get("hub.challenge"), true
}

// Cloud API inbound payload shapes.
type cloudWebhook struct {
	Entry []struct {
		Changes []struct {
			Value struct {
				Messages []cloudInbound `json:"messages"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

type cloudInbound struct {
	ID   string `json:"id"`
	From string `json:"from"`
	Type string `json:"type"`
	Text *struct {
		Body string `json:"body"`
	} `json:"text"`
	Interactive *struct {
		Type        string      `json:"type"`
		ButtonReply *cloudReply `json:"button_reply"`
		ListReply   *struct {
			ID          string `json:"id"`
			Title       string `json:"title"`
			Description string `json:"description"`
		} `json:"list_reply"`
	} `json:"interactive"`
}

// ParseWebhook decodes a POST delivery into inbound events. Unknown message
// types are skipped, not errors: the channel delivers statuses and media on
// the same hook.
func (s *CloudAPIService) ParseWebhook(contentType string, body []byte) ([]models.Event, error) {
	var hook cloudWebhook
	if err := json.Unmarshal(body, &hook); err != nil {
		return nil, fmt.Errorf("failed to decode webhook payload: %w", err)
	}

	var events []models.Event
	for _, entry := range hook.Entry {
		for _, change := range entry.Changes {
			for _, m := range change.Value.Messages {
				ev := models.Event{ID: m.ID, From: m.From}
				switch {
				case m.Type == "text" && m.Text != nil:
					ev.Kind = models.EventText
					ev.Text = m.Text.Body
				case m.Type == "interactive" && m.Interactive != nil && m.Interactive.ButtonReply != nil:
					ev.Kind = models.EventButton
					ev.SelectionID = m.Interactive.ButtonReply.ID
					ev.SelectionTitle = m.Interactive.ButtonReply.Title
				case m.Type == "interactive" && m.Interactive != nil && m.Interactive.ListReply != nil:
					ev.Kind = models.EventList
					ev.SelectionID = m.Interactive.ListReply.ID
					ev.SelectionTitle = m.Interactive.ListReply.Title
				default:
					slog.Debug("CloudAPIService.ParseWebhook: skipping unsupported message type", "type", m.Type, "id", m.ID)
					continue
				}
				events = append(events, ev)
			}
		}
	}
	return events, nil
}
