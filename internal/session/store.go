// Package session stores portal login sessions for the provisional dashboard
// login.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"fahndungsportal/internal/model"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a token has no live session.
var ErrNotFound = errors.New("session not found")

// Store persists portal sessions.
type Store interface {
	// Get returns the live session for token or ErrNotFound.
	Get(ctx context.Context, token string) (*model.Session, error)

	// Save creates or replaces a session.
	Save(ctx context.Context, s *model.Session) error

	// Delete removes the session for token. Missing tokens are not an error.
	Delete(ctx context.Context, token string) error

	// Enabled reports whether the store actually keeps sessions.
	Enabled() bool
}

// New builds a session for user valid for ttl.
func New(user model.User, cmsCookie string, ttl time.Duration, now time.Time) *model.Session {
	return &model.Session{
		Token:     uuid.NewString(),
		User:      user,
		CMSCookie: cmsCookie,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

// NullStore keeps nothing. With it, the auth gate only checks that the session
// cookie is present.
type NullStore struct{}

func (NullStore) Get(context.Context, string) (*model.Session, error) { return nil, ErrNotFound }
func (NullStore) Save(context.Context, *model.Session) error { return nil }
func (NullStore) Delete(context.Context, string) error { return nil }
func (NullStore) Enabled() bool { return false }

// MemoryStore keeps sessions in process memory.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]model.Session
	now      func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]model.Session),
		now:      time.Now,
	}
}

func (m *MemoryStore) Get(_ context.Context, token string) (*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[token]
	if !ok {
		return nil, ErrNotFound
	}
	if s.Expired(m.now()) {
		delete(m.sessions, token)
		return nil, ErrNotFound
	}
	return &s, nil
}

func (m *MemoryStore) Save(_ context.Context, s *model.Session) error {
	if s == nil || s.Token == "" {
		return errors.New("session token is required")
	}
	m.mu.Lock()
	m.sessions[s.Token] = *s
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, token string) error {
	m.mu.Lock()
	delete(m.sessions, token)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Enabled() bool { return true }
