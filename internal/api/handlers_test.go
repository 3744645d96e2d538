package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/slotline/slotline/internal/models"
	"github.com/slotline/slotline/internal/store"
)

type fakeChannel struct {
	events []models.Event
	sent   []models.OutboundMessage
	sentTo []string
}

func (f *fakeChannel) ValidateAndCanonicalizeRecipient(recipient string) (string, error) {
	return recipient, nil
}

func (f *fakeChannel) SendMessage(ctx context.Context, to string, msg models.OutboundMessage) error {
	f.sentTo = append(f.sentTo, to)
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeChannel) VerifyWebhook(r *http.Request) (string, bool) {
	if r.URL.Query().Get("hub.verify_token") == "secret" {
		return r.URL.Query().Get("hub.challenge"), true
	}
	return "", false
}

func (f *fakeChannel) ParseWebhook(contentType string, body []byte) ([]models.Event, error) {
	if contentType != "application/json" {
		return nil, fmt.Errorf("unexpected content type %q", contentType)
	}
	return f.events, nil
}

type fakeEngine struct {
	handled []models.Event
	replies []models.OutboundMessage
	panics  bool
}

func (f *fakeEngine) HandleEvent(ctx context.Context, ev models.Event) ([]models.OutboundMessage, error) {
	if f.panics {
		panic("boom")
	}
	f.handled = append(f.handled, ev)
	return f.replies, nil
}

func TestWebhookVerification(t *testing.T) {
	s := NewServer(&fakeEngine{}, &fakeChannel{}, nil)
	h := s.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/webhook?hub.verify_token=secret&hub.challenge=1234", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "1234" {
		t.Errorf("handshake: code=%d body=%q", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/webhook?hub.verify_token=wrong", nil))
	if rec.Code != http.StatusForbidden {
		t.Errorf("bad token: code=%d", rec.Code)
	}
}

func TestWebhookDeliveryDrivesEngineAndReplies(t *testing.T) {
	ch := &fakeChannel{
		events: []models.Event{
			{ID: "ev-1", From: "15550001111", Kind: models.EventText, Text: "hi"},
		},
	}
	eng := &fakeEngine{replies: []models.OutboundMessage{{Text: "hello"}, {Text: "menu"}}}
	s := NewServer(eng, ch, nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/webhook", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("delivery must be acknowledged, got %d", rec.Code)
	}
	if len(eng.handled) != 1 || eng.handled[0].ID != "ev-1" {
		t.Errorf("engine not driven: %+v", eng.handled)
	}
	if len(ch.sent) != 2 || ch.sentTo[0] != "15550001111" {
		t.Errorf("replies not delivered: %+v to %v", ch.sent, ch.sentTo)
	}
}

func TestWebhookDeliveryRejectsUnparsablePayload(t *testing.T) {
	s := NewServer(&fakeEngine{}, &fakeChannel{}, nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/webhook", strings.NewReader("MessageSid=x"))
	req.Header.Set("Content-Type", "text/plain")
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("unparsable payload: code=%d", rec.Code)
	}
}

func TestWebhookSurvivesHandlerPanic(t *testing.T) {
	ch := &fakeChannel{events: []models.Event{{ID: "ev-1", From: "u1", Kind: models.EventText}}}
	s := NewServer(&fakeEngine{panics: true}, ch, nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/webhook", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("panicking handler must still be acknowledged, got %d", rec.Code)
	}
}

func TestHealthEndpoint(t *testing.T) {
	s := NewServer(&fakeEngine{}, &fakeChannel{}, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("health: code=%d", rec.Code)
	}
	var resp models.APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("health body is not JSON: %v", err)
	}
	if resp.Status != string(models.APIStatusOK) {
		t.Errorf("health status = %q", resp.Status)
	}
}

func TestDebugSessionsGating(t *testing.T) {
	st := store.NewInMemoryStore()
	if err := st.SaveSession(models.Session{ID: "s-1", UserID: "u1", Step: models.StepAwaitMain}); err != nil {
		t.Fatal(err)
	}

	// Disabled by default: the route does not exist.
	s := NewServer(&fakeEngine{}, &fakeChannel{}, st)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/debug/sessions/u1", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("debug route must be absent by default, got %d", rec.Code)
	}

	s = NewServer(&fakeEngine{}, &fakeChannel{}, st, WithDebugEndpoints())
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/debug/sessions/u1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("debug session: code=%d", rec.Code)
	}

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/debug/sessions/unknown", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown session: code=%d", rec.Code)
	}
}
