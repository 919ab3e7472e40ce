package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"flagguess/internal/app"
	"flagguess/internal/domain"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestSessionStoreRoundTrip(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	store := NewSessionStore(newClient(mr), time.Hour)

	session := domain.Session{ID: "abc", UserID: 3, Username: "alice"}
	game := session.ResetGame()
	game.TotalCorrect = 2
	game.CurrentQuestion = &domain.Flag{ID: 1, CountryName: "France"}
	if err := store.Put(ctx, session); err != nil {
		t.Fatalf("put: %v", err)
	}
	if !mr.Exists("flagguess:session:abc") {
		t.Fatalf("expected redis key to be set")
	}

	got, err := store.Get(ctx, "abc")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Username != "alice" || got.Game.TotalCorrect != 2 || got.Game.CurrentQuestion.CountryName != "France" {
		t.Fatalf("unexpected session %+v / %+v", got, got.Game)
	}

	if err := store.Delete(ctx, "abc"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if mr.Exists("flagguess:session:abc") {
		t.Fatalf("expected redis key to be removed")
	}
	if _, err := store.Get(ctx, "abc"); !errors.Is(err, app.ErrSessionNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSessionStoreSlidesTTL(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	store := NewSessionStore(newClient(mr), time.Hour)
	_ = store.Put(ctx, domain.Session{ID: "abc", UserID: 1})

	mr.FastForward(50 * time.Minute)
	if _, err := store.Get(ctx, "abc"); err != nil {
		t.Fatalf("get: %v", err)
	}
	if ttl := mr.TTL("flagguess:session:abc"); ttl != time.Hour {
		t.Fatalf("expected ttl refreshed to 1h, got %s", ttl)
	}

	mr.FastForward(61 * time.Minute)
	if _, err := store.Get(ctx, "abc"); !errors.Is(err, app.ErrSessionNotFound) {
		t.Fatalf("expected session to expire, got %v", err)
	}
}

func TestSessionStoreWrapsConnectionErrors(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	client := newClient(mr)
	mr.Close()

	store := NewSessionStore(client, time.Hour)
	err = store.Put(context.Background(), domain.Session{ID: "abc"})
	if !errors.Is(err, domain.ErrStorage) {
		t.Fatalf("expected storage error, got %v", err)
	}
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:       mr.Addr(),
		MaxRetries: -1,
	})
}
