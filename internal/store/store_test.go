package store

import (
	"syscall"
	"testing"
	"time"

	"github.com/slotline/slotline/internal/models"
)

// conformance exercises the Store contract shared by every backend.
func conformance(t *testing.T, s Store) {
	t.Helper()

	sess, err := s.GetSession("u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sess != nil {
		t.Fatal("expected nil session for unknown user")
	}

	saved := models.Session{
		ID:        "sess-1",
		UserID:    "u1",
		Step:      models.StepAwaitService,
		Language:  "en",
		UpdatedAt: time.Now().UTC().Truncate(time.Second),
		Selection: models.Selection{ServiceID: "svc-1", ServiceCategory: models.CategoryIndividual},
	}
	if err := s.SaveSession(saved); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}

	got, err := s.GetSession("u1")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected stored session")
	}
	if got.ID != saved.ID || got.Step != saved.Step || got.Selection.ServiceID != "svc-1" {
		t.Errorf("session not stored or retrieved correctly: %+v", got)
	}

	// Overwrite keeps one session per user.
	saved.Step = models.StepAwaitSlot
	if err := s.SaveSession(saved); err != nil {
		t.Fatalf("SaveSession overwrite failed: %v", err)
	}
	got, err = s.GetSession("u1")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got.Step != models.StepAwaitSlot {
		t.Errorf("expected overwritten step, got %s", got.Step)
	}

	if err := s.DeleteSession("u1"); err != nil {
		t.Fatalf("DeleteSession failed: %v", err)
	}
	got, err = s.GetSession("u1")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got != nil {
		t.Error("session survived deletion")
	}
}

func TestInMemoryStore(t *testing.T) {
	conformance(t, NewInMemoryStore())
}

func TestInMemoryStoreIsolation(t *testing.T) {
	s := NewInMemoryStore()
	if err := s.SaveSession(models.Session{ID: "a", UserID: "u1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, _ := s.GetSession("u1")
	got.ID = "mutated"
	again, _ := s.GetSession("u1")
	if again.ID != "a" {
		t.Error("GetSession must return a copy, not shared state")
	}
}

func TestSQLiteStore(t *testing.T) {
	s, err := NewSQLiteStore(WithDSN(t.TempDir() + "/sessions.db"))
	if err != nil {
		t.Fatalf("failed to open sqlite store: %v", err)
	}
	defer s.Close()
	conformance(t, s)
}

func TestPostgresStore(t *testing.T) {
	// Requires a running PostgreSQL instance; set DATABASE_URL to enable.
	dsn := getenvOrSkip(t, "DATABASE_URL")
	s, err := NewPostgresStore(WithDSN(dsn))
	if err != nil {
		t.Skipf("Postgres not available: %v", err)
	}
	defer s.Close()
	s.db.Exec("DELETE FROM sessions")
	conformance(t, s)
}

func TestRedisStore(t *testing.T) {
	// Requires a running Redis instance; set REDIS_URL to enable.
	dsn := getenvOrSkip(t, "REDIS_URL")
	s, err := NewRedisStore(WithDSN(dsn))
	if err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	defer s.Close()
	conformance(t, s)
}

func getenvOrSkip(t *testing.T, key string) string {
	v := ""
	if val, ok := syscall.Getenv(key); ok {
		v = val
	}
	if v == "" {
		t.Skipf("env %s not set", key)
	}
	return v
}
