package session

import (
	"testing"
	"time"

	"github.com/slotline/slotline/internal/models"
	"github.com/slotline/slotline/internal/store"
)

func TestGetCreatesFreshSession(t *testing.T) {
	m := NewManager(store.NewInMemoryStore())
	sess, created, err := m.Get("u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !created {
		t.Error("expected created=true for unknown user")
	}
	if sess.ID == "" || sess.UserID != "u1" {
		t.Errorf("fresh session not initialized: %+v", sess)
	}
	if sess.Step != models.StepAwaitLanguage {
		t.Errorf("fresh session step = %s, want %s", sess.Step, models.StepAwaitLanguage)
	}
}

func TestGetRefreshesAndReuses(t *testing.T) {
	st := store.NewInMemoryStore()
	now := time.Now()
	m := NewManager(st, WithClock(func() time.Time { return now }))

	sess, _, err := m.Get("u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sess.Step = models.StepAwaitService
	if err := m.Save(sess); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Ten minutes later the session is still alive and gets touched.
	now = now.Add(10 * time.Minute)
	again, created, err := m.Get("u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created {
		t.Error("expected existing session")
	}
	if again.ID != sess.ID || again.Step != models.StepAwaitService {
		t.Errorf("session not reused: %+v", again)
	}
	if !again.UpdatedAt.Equal(now) {
		t.Error("lookup must refresh UpdatedAt")
	}
}

func TestGetEvictsExpiredSession(t *testing.T) {
	st := store.NewInMemoryStore()
	now := time.Now()
	m := NewManager(st, WithClock(func() time.Time { return now }))

	sess, _, _ := m.Get("u1")
	sess.Step = models.StepAwaitPhone
	sess.Selection.ServiceID = "svc-1"
	if err := m.Save(sess); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	now = now.Add(models.SessionTTL + time.Second)
	fresh, created, err := m.Get("u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !created {
		t.Error("expected fresh session after TTL expiry")
	}
	if fresh.ID == sess.ID {
		t.Error("expired session must not be reused")
	}
	if fresh.Selection.ServiceID != "" {
		t.Error("stale selection data leaked into fresh session")
	}
}

func TestShouldProcess(t *testing.T) {
	sess := &models.Session{UserID: "u1"}
	if !ShouldProcess(sess, "ev-1") {
		t.Fatal("first delivery must be processed")
	}
	if sess.LastEventID != "ev-1" {
		t.Fatal("event id not recorded")
	}
	if ShouldProcess(sess, "ev-1") {
		t.Error("redelivered event must be skipped")
	}
	if !ShouldProcess(sess, "ev-2") {
		t.Error("new event must be processed")
	}
}
