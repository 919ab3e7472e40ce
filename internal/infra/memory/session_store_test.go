package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"flagguess/internal/app"
	"flagguess/internal/domain"
)

func TestSessionStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore(time.Hour)

	if err := store.Put(ctx, domain.Session{ID: "s1", UserID: 7, Username: "alice"}); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := store.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.UserID != 7 || got.Username != "alice" {
		t.Fatalf("unexpected session %+v", got)
	}

	if err := store.Delete(ctx, "s1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Get(ctx, "s1"); !errors.Is(err, app.ErrSessionNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func TestSessionStoreSlidingExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	store := NewSessionStoreWithClock(time.Hour, func() time.Time { return now })

	_ = store.Put(ctx, domain.Session{ID: "s1", UserID: 1})

	now = now.Add(50 * time.Minute)
	if _, err := store.Get(ctx, "s1"); err != nil {
		t.Fatalf("session should still be alive: %v", err)
	}

	// The read above pushed expiry out by another hour.
	now = now.Add(50 * time.Minute)
	if _, err := store.Get(ctx, "s1"); err != nil {
		t.Fatalf("sliding expiry not applied: %v", err)
	}

	now = now.Add(61 * time.Minute)
	if _, err := store.Get(ctx, "s1"); !errors.Is(err, app.ErrSessionNotFound) {
		t.Fatalf("expected expiry, got %v", err)
	}
	if store.Len() != 0 {
		t.Fatalf("expired session should be dropped, have %d", store.Len())
	}
}

func TestSessionStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore(time.Hour)
	session := domain.Session{ID: "s1", UserID: 1}
	session.ResetGame().CurrentQuestion = &domain.Flag{CountryName: "France"}
	_ = store.Put(ctx, session)

	got, _ := store.Get(ctx, "s1")
	got.Game.TotalCorrect = 99
	got.Game.CurrentQuestion.CountryName = "Japan"

	again, _ := store.Get(ctx, "s1")
	if again.Game.TotalCorrect != 0 || again.Game.CurrentQuestion.CountryName != "France" {
		t.Fatalf("stored session was mutated through a returned copy: %+v", again.Game)
	}
}
