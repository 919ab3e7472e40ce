package memory

import (
	"context"
	"sync"
	"time"

	"flagguess/internal/app"
	"flagguess/internal/domain"
)

// SessionStore is an in-memory implementation of app.SessionRepository with
// sliding expiry.
type SessionStore struct {
	ttl   time.Duration
	clock func() time.Time

	mu       sync.RWMutex
	sessions map[string]domain.Session
}

func NewSessionStore(ttl time.Duration) *SessionStore {
	return NewSessionStoreWithClock(ttl, time.Now)
}

// NewSessionStoreWithClock is test-only for deterministic expiry.
func NewSessionStoreWithClock(ttl time.Duration, clock func() time.Time) *SessionStore {
	return &SessionStore{
		ttl:      ttl,
		clock:    clock,
		sessions: make(map[string]domain.Session),
	}
}

func (s *SessionStore) Get(_ context.Context, id string) (domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return domain.Session{}, app.ErrSessionNotFound
	}
	now := s.clock()
	if !session.ExpiresAt.After(now) {
		delete(s.sessions, id)
		return domain.Session{}, app.ErrSessionNotFound
	}
	session.ExpiresAt = now.Add(s.ttl)
	s.sessions[id] = session
	return cloneSession(session), nil
}

func (s *SessionStore) Put(_ context.Context, session domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session.ExpiresAt.IsZero() {
		session.ExpiresAt = s.clock().Add(s.ttl)
	}
	s.sessions[session.ID] = cloneSession(session)
	return nil
}

func (s *SessionStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return app.ErrSessionNotFound
	}
	delete(s.sessions, id)
	return nil
}

// Len reports the number of stored sessions, expired ones included.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// cloneSession copies the game so callers cannot mutate stored state.
func cloneSession(session domain.Session) domain.Session {
	if session.Game != nil {
		game := *session.Game
		if game.CurrentQuestion != nil {
			q := *game.CurrentQuestion
			game.CurrentQuestion = &q
		}
		session.Game = &game
	}
	return session
}
