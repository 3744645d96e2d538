package messaging

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/slotline/slotline/internal/httpx"
	"github.com/slotline/slotline/internal/models"
)

type captureCaller struct {
	url  string
	body []byte
}

func (c *captureCaller) Do(ctx context.Context, method, url string, headers map[string]string, body []byte) (httpx.Result, error) {
	c.url = url
	c.body = body
	return httpx.Result{Status: 200, ParseOK: true, Body: json.RawMessage(`{}`)}, nil
}

func TestValidateAndCanonicalizeRecipient(t *testing.T) {
	s := NewCloudAPIService("pn", "tok", "secret", &captureCaller{})
	got, err := s.ValidateAndCanonicalizeRecipient("+1 (555) 000-1111")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "15550001111" {
		t.Errorf("canonical = %q", got)
	}
	if _, err := s.ValidateAndCanonicalizeRecipient(""); err == nil {
		t.Error("empty recipient must be rejected")
	}
	if _, err := s.ValidateAndCanonicalizeRecipient("123"); err == nil {
		t.Error("too-short recipient must be rejected")
	}
}

func TestSendMessageBuildsListPayload(t *testing.T) {
	caller := &captureCaller{}
	s := NewCloudAPIService("pn-1", "tok", "secret", caller, WithGraphBase("https://graph.test"))

	err := s.SendMessage(context.Background(), "15550001111", models.OutboundMessage{
		Text: "Pick a service",
		List: &models.ListMenu{Button: "Services", Rows: []models.Row{{ID: "svc-1", Title: "Consultation"}}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if caller.url != "https://graph.test/pn-1/messages" {
		t.Errorf("unexpected url: %s", caller.url)
	}
	var out cloudOutbound
	if err := json.Unmarshal(caller.body, &out); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if out.Type != "interactive" || out.Interactive == nil || out.Interactive.Type != "list" {
		t.Errorf("unexpected payload: %+v", out)
	}
	if len(out.Interactive.Action.Sections) != 1 || out.Interactive.Action.Sections[0].Rows[0].ID != "svc-1" {
		t.Errorf("list rows not carried: %+v", out.Interactive.Action)
	}
}

func TestVerifyWebhook(t *testing.T) {
	s := NewCloudAPIService("pn", "tok", "secret", &captureCaller{})

	r := httptest.NewRequest("GET", "/webhook?hub.mode=subscribe&hub.verify_token=secret&hub.challenge=42", nil)
	challenge, ok := s.VerifyWebhook(r)
	if !ok || challenge != "42" {
		t.Errorf("expected handshake to pass, got ok=%v challenge=%q", ok, challenge)
	}

	r = httptest.NewRequest("GET", "/webhook?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=42", nil)
	if _, ok := s.VerifyWebhook(r); ok {
		t.Error("wrong token must fail the handshake")
	}
}

func TestParseWebhook(t *testing.T) {
	s := NewCloudAPIService("pn", "tok", "secret", &captureCaller{})
	payload := `{"entry":[{"changes":[{"value":{"messages":[
		{"id":"wamid.1","from":"15550001111","type":"text","text":{"body":"hello"}},
		{"id":"wamid.2","from":"15550001111","type":"interactive","interactive":{"type":"list_reply","list_reply":{"id":"svc-1","title":"Consultation"}}},
		{"id":"wamid.3","from":"15550001111","type":"image"}
	]}}]}]}`

	events, err := s.ParseWebhook("application/json", []byte(payload))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events (image skipped), got %d", len(events))
	}
	if events[0].Kind != models.EventText || events[0].Text != "hello" || events[0].ID != "wamid.1" {
		t.Errorf("unexpected text event: %+v", events[0])
	}
	if events[1].Kind != models.EventList || events[1].SelectionID != "svc-1" {
		t.Errorf("unexpected list event: %+v", events[1])
	}
}

func TestTwilioFlatten(t *testing.T) {
	got := flatten(models.OutboundMessage{
		Text:    "Pick one",
		Buttons: []models.Button{{ID: "a", Title: "Yes"}, {ID: "b", Title: "No"}},
	})
	want := "Pick one\n1. Yes\n2. No"
	if got != want {
		t.Errorf("flatten = %q, want %q", got, want)
	}
}

func TestTwilioParseWebhook(t *testing.T) {
	s := &TwilioService{}
	body := "MessageSid=SM123&From=whatsapp%3A%2B15550001111&Body=hello"
	events, err := s.ParseWebhook("application/x-www-form-urlencoded", []byte(body))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 1 || events[0].ID != "SM123" || events[0].From != "15550001111" || events[0].Text != "hello" {
		t.Errorf("unexpected events: %+v", events)
	}
}
