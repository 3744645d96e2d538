// Package session manages the per-user conversation session lifecycle:
// TTL-based expiry, creation on first contact, and idempotent handling of
// redelivered channel events.
package session

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/slotline/slotline/internal/models"
	"github.com/slotline/slotline/internal/store"
)

// Manager wraps a Store with the session lifecycle rules. Each user's
// session is exclusively owned by that user's conversation thread; the
// underlying store serializes access per key.
type Manager struct {
	store store.Store
	now   func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock overrides the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager creates a session manager over the given store.
func NewManager(st store.Store, opts ...Option) *Manager {
	m := &Manager{store: st, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Get returns the user's session, creating a fresh one when absent or
// expired. Every successful lookup refreshes UpdatedAt. The second return
// reports whether the session was newly created.
func (m *Manager) Get(userID string) (*models.Session, bool, error) {
	sess, err := m.store.GetSession(userID)
	if err != nil {
		slog.Error("Manager.Get: store lookup failed", "error", err, "userID", userID)
		return nil, false, fmt.Errorf("session lookup for %s: %w", userID, err)
	}

	now := m.now()
	if sess != nil && !sess.Expired(now) {
		sess.UpdatedAt = now
		slog.Debug("Manager.Get: existing session", "userID", userID, "sessionID", sess.ID, "step", sess.Step)
		return sess, false, nil
	}

	if sess != nil {
		// Expired state is silently evicted; the user restarts the wizard.
		slog.Info("Manager.Get: session expired, starting fresh", "userID", userID, "sessionID", sess.ID)
	}
	fresh := &models.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		Step:      models.StepAwaitLanguage,
		UpdatedAt: now,
	}
	slog.Debug("Manager.Get: created session", "userID", userID, "sessionID", fresh.ID)
	return fresh, true, nil
}

// Save persists the session with a refreshed UpdatedAt.
func (m *Manager) Save(sess *models.Session) error {
	sess.UpdatedAt = m.now()
	if err := m.store.SaveSession(*sess); err != nil {
		slog.Error("Manager.Save: store save failed", "error", err, "userID", sess.UserID)
		return fmt.Errorf("session save for %s: %w", sess.UserID, err)
	}
	return nil
}

// Clear removes the user's session. Called on terminal outcomes and after
// exceeding the validation retry budget.
func (m *Manager) Clear(userID string) error {
	if err := m.store.DeleteSession(userID); err != nil {
		slog.Error("Manager.Clear: store delete failed", "error", err, "userID", userID)
		return fmt.Errorf("session clear for %s: %w", userID, err)
	}
	slog.Debug("Manager.Clear: session removed", "userID", userID)
	return nil
}

// ShouldProcess reports whether the inbound event id has not been handled
// yet for this session, guarding against at-least-once redelivery. When the
// id is new it is recorded on the session; when it matches the last handled
// id the session is left untouched.
func ShouldProcess(sess *models.Session, eventID string) bool {
	if eventID != "" && eventID == sess.LastEventID {
		slog.Debug("session.ShouldProcess: duplicate event ignored", "userID", sess.UserID, "eventID", eventID)
		return false
	}
	sess.LastEventID = eventID
	return true
}
