package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"flagguess/internal/domain"
)

type mapSessions struct {
	mu   sync.Mutex
	data map[string]domain.Session
}

func (m *mapSessions) Get(_ context.Context, id string) (domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.data[id]
	if !ok {
		return domain.Session{}, ErrSessionNotFound
	}
	return s, nil
}

func (m *mapSessions) Put(_ context.Context, s domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[s.ID] = s
	return nil
}

func (m *mapSessions) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[id]; !ok {
		return ErrSessionNotFound
	}
	delete(m.data, id)
	return nil
}

func TestSessionGatewayLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := &mapSessions{data: map[string]domain.Session{}}
	gw := NewSessionGateway(repo, time.Minute)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	gw.now = func() time.Time { return now }
	gw.newID = func() string { return "sid-1" }

	session, err := gw.Open(ctx, domain.User{ID: 7, Username: "alice"})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if session.ID != "sid-1" || session.Game == nil || !session.ExpiresAt.Equal(now.Add(time.Minute)) {
		t.Fatalf("unexpected session %+v", session)
	}

	got, err := gw.Lookup(ctx, "sid-1")
	if err != nil || got.UserID != 7 {
		t.Fatalf("lookup: %+v %v", got, err)
	}

	now = now.Add(30 * time.Second)
	if err := gw.Save(ctx, got); err != nil {
		t.Fatalf("save: %v", err)
	}
	saved, _ := repo.Get(ctx, "sid-1")
	if !saved.ExpiresAt.Equal(now.Add(time.Minute)) {
		t.Fatalf("save must slide expiry, got %v", saved.ExpiresAt)
	}

	if err := gw.Close(ctx, "sid-1"); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := gw.Close(ctx, "sid-1"); err != nil {
		t.Fatalf("second close should be a no-op, got %v", err)
	}
	if _, err := gw.Lookup(ctx, "sid-1"); !errors.Is(err, domain.ErrSessionMissing) {
		t.Fatalf("expected ErrSessionMissing, got %v", err)
	}
}

func TestLookupRejectsAnonymousSession(t *testing.T) {
	ctx := context.Background()
	repo := &mapSessions{data: map[string]domain.Session{"anon": {ID: "anon"}}}
	gw := NewSessionGateway(repo, time.Minute)

	if _, err := gw.Lookup(ctx, "anon"); !errors.Is(err, domain.ErrSessionMissing) {
		t.Fatalf("expected ErrSessionMissing, got %v", err)
	}
}

func TestEvaluate(t *testing.T) {
	france := domain.Flag{ID: 1, CountryName: "France"}
	game := domain.GameState{TotalCorrect: 2, CurrentStreak: 2, CurrentQuestion: &france}

	next, correct, err := evaluate(game, " FRANCE ")
	if err != nil || !correct {
		t.Fatalf("expected correct, got %v %v", correct, err)
	}
	if next.TotalCorrect != 3 || next.CurrentStreak != 3 {
		t.Fatalf("unexpected counters %+v", next)
	}

	next, correct, err = evaluate(game, "germany")
	if err != nil || correct {
		t.Fatalf("expected incorrect, got %v %v", correct, err)
	}
	if next.TotalCorrect != 2 || next.CurrentStreak != 0 || next.CurrentQuestion != &france {
		t.Fatalf("wrong answer must reset streak and keep question, got %+v", next)
	}

	if _, _, err := evaluate(domain.GameState{}, "france"); !errors.Is(err, domain.ErrNoCurrentQuestion) {
		t.Fatalf("expected ErrNoCurrentQuestion, got %v", err)
	}
}

func TestKeyedMutexSerializesAndForgets(t *testing.T) {
	km := newKeyedMutex()
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		active  int
		maxSeen int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := km.Lock("same")
			mu.Lock()
			active++
			if active > maxSeen {
				maxSeen = active
			}
			mu.Unlock()
			time.Sleep(time.Millisecond)
			mu.Lock()
			active--
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()

	if maxSeen != 1 {
		t.Fatalf("expected exclusive access, saw %d holders", maxSeen)
	}
	if km.size() != 0 {
		t.Fatalf("expected released keys to be forgotten, %d left", km.size())
	}

	unlockA := km.Lock("a")
	unlockB := km.Lock("b")
	unlockB()
	unlockA()
}
