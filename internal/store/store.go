// Package store provides session storage backends for Slotline.
//
// It includes an in-memory store plus PostgreSQL, SQLite and Redis backed
// implementations behind a common interface, so the session layer can swap
// to a distributed cache without touching step-handler logic.
package store

import (
	"sync"

	"github.com/slotline/slotline/internal/models"
)

// Store is the keyed session storage contract. GetSession returns nil (and
// no error) when no session exists for the user.
type Store interface {
	GetSession(userID string) (*models.Session, error)
	SaveSession(sess models.Session) error
	DeleteSession(userID string) error
}

// Opts holds configuration shared by store constructors.
type Opts struct {
	DSN string
}

// Option configures a store constructor.
type Option func(*Opts)

// WithDSN sets the database connection string (file path for SQLite,
// connection URL for Postgres and Redis).
func WithDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// InMemoryStore is a mutex-guarded map store, the default backend for a
// single-process deployment and for tests.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]models.Session
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[string]models.Session)}
}

// GetSession returns a copy of the stored session, or nil when absent.
func (s *InMemoryStore) GetSession(userID string) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[userID]
	if !ok {
		return nil, nil
	}
	return &sess, nil
}

// SaveSession stores the session keyed by its user id.
func (s *InMemoryStore) SaveSession(sess models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.UserID] = sess
	return nil
}

// DeleteSession removes the session for the user, if any.
func (s *InMemoryStore) DeleteSession(userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
	return nil
}
