package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"flagguess/internal/app"
	"flagguess/internal/domain"
	"flagguess/internal/infra/memory"
	"flagguess/internal/logging"
)

var testFlags = []domain.Flag{
	{ID: 1, CountryName: "France", ImageRef: "fr.svg"},
	{ID: 2, CountryName: "Japan", ImageRef: "jp.svg"},
}

// sequence picks the given indices in order and then sticks to the last.
func sequence(indices ...int) func(int) int {
	var mu sync.Mutex
	return func(n int) int {
		mu.Lock()
		defer mu.Unlock()
		i := indices[0]
		if len(indices) > 1 {
			indices = indices[1:]
		}
		return i % n
	}
}

type countingLoader struct {
	mu    sync.Mutex
	calls int
	flags []domain.Flag
	err   error
	delay time.Duration
}

func (l *countingLoader) LoadFlags(_ context.Context) ([]domain.Flag, error) {
	if l.delay > 0 {
		time.Sleep(l.delay)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	return l.flags, l.err
}

func (l *countingLoader) Calls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

func (l *countingLoader) SetFlags(flags []domain.Flag) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.flags = flags
}

type failingScores struct {
	app.HighscoreRepository
	fail bool
}

func (f *failingScores) Upsert(ctx context.Context, userID int64, correct bool, streak int) error {
	if f.fail {
		return domain.StorageError("upsert highscore", errors.New("connection refused"))
	}
	return f.HighscoreRepository.Upsert(ctx, userID, correct, streak)
}

type fixture struct {
	users    *memory.UserRepository
	scores   *memory.HighscoreRepository
	store    *memory.SessionStore
	sessions *app.SessionGateway
	pool     *app.QuestionPool
	game     *app.GameService
	board    *app.LeaderboardService
}

func newFixture(t *testing.T, flags []domain.Flag, pick func(int) int) *fixture {
	t.Helper()
	log := logging.Discard()
	users := memory.NewUserRepository()
	scores := memory.NewHighscoreRepository(users)
	store := memory.NewSessionStore(time.Hour)
	sessions := app.NewSessionGateway(store, time.Hour)
	pool := app.NewQuestionPoolWithPicker(memory.NewStaticFlagLoader(flags), pick)
	f := &fixture{
		users:    users,
		scores:   scores,
		store:    store,
		sessions: sessions,
		pool:     pool,
		game:     app.NewGameService(sessions, pool, scores, log),
		board:    app.NewLeaderboardService(scores, log),
	}
	f.game.Subscribe(f.board)
	return f
}

// login creates the user and opens a session for it.
func (f *fixture) login(t *testing.T, username string) domain.Session {
	t.Helper()
	ctx := context.Background()
	user, err := f.users.Create(ctx, username, "digest")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	session, err := f.sessions.Open(ctx, user)
	if err != nil {
		t.Fatalf("open session: %v", err)
	}
	return session
}
