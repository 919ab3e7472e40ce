package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"flagguess/internal/domain"
	"github.com/google/uuid"
)

// ErrSessionNotFound is returned by SessionRepository implementations for
// unknown or expired ids.
var ErrSessionNotFound = errors.New("session not found")

// SessionRepository abstracts where sessions live (in-memory, Redis).
// Get must extend the session's expiry (sliding expiration).
type SessionRepository interface {
	Get(ctx context.Context, id string) (domain.Session, error)
	Put(ctx context.Context, session domain.Session) error
	Delete(ctx context.Context, id string) error
}

// SessionGateway is the typed boundary between HTTP cookies and stored sessions.
type SessionGateway struct {
	repo  SessionRepository
	ttl   time.Duration
	now   func() time.Time
	newID func() string
}

func NewSessionGateway(repo SessionRepository, ttl time.Duration) *SessionGateway {
	return &SessionGateway{
		repo:  repo,
		ttl:   ttl,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// TTL is the sliding lifetime of a session.
func (g *SessionGateway) TTL() time.Duration {
	return g.ttl
}

// Open creates a new session for user with a reset game.
func (g *SessionGateway) Open(ctx context.Context, user domain.User) (domain.Session, error) {
	session := domain.Session{
		ID:        g.newID(),
		UserID:    user.ID,
		Username:  user.Username,
		ExpiresAt: g.now().Add(g.ttl),
	}
	session.ResetGame()
	if err := g.repo.Put(ctx, session); err != nil {
		return domain.Session{}, err
	}
	return session, nil
}

// Lookup resolves an authenticated session, mapping absence to
// domain.ErrSessionMissing.
func (g *SessionGateway) Lookup(ctx context.Context, id string) (domain.Session, error) {
	if id == "" {
		return domain.Session{}, domain.ErrSessionMissing
	}
	session, err := g.repo.Get(ctx, id)
	if errors.Is(err, ErrSessionNotFound) {
		return domain.Session{}, domain.ErrSessionMissing
	}
	if err != nil {
		return domain.Session{}, err
	}
	if !session.Authenticated() {
		return domain.Session{}, domain.ErrSessionMissing
	}
	return session, nil
}

// Save writes the session back and slides its expiry.
func (g *SessionGateway) Save(ctx context.Context, session domain.Session) error {
	session.ExpiresAt = g.now().Add(g.ttl)
	return g.repo.Put(ctx, session)
}

// Close destroys the session. Closing an unknown id is not an error.
func (g *SessionGateway) Close(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	err := g.repo.Delete(ctx, id)
	if errors.Is(err, ErrSessionNotFound) {
		return nil
	}
	return err
}

// keyedMutex serializes work per key and forgets keys nobody holds.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*keyedLock)}
}

func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyedLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

func (k *keyedMutex) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
