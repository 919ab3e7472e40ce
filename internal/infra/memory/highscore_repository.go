package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"flagguess/internal/app"
	"flagguess/internal/domain"
)

// HighscoreRepository is the in-memory counterpart of the flag_highscores
// table. Each Upsert is atomic under the mutex.
type HighscoreRepository struct {
	users *UserRepository
	clock func() time.Time

	mu   sync.Mutex
	rows map[int64]domain.Highscore
}

// NewHighscoreRepository labels rows with usernames from users, which may be nil.
func NewHighscoreRepository(users *UserRepository) *HighscoreRepository {
	return &HighscoreRepository{
		users: users,
		clock: time.Now,
		rows:  make(map[int64]domain.Highscore),
	}
}

func (r *HighscoreRepository) Upsert(_ context.Context, userID int64, correct bool, streak int) error {
	if userID == 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	row, ok := r.rows[userID]
	if !ok {
		row = domain.Highscore{UserID: userID, HighestStreak: streak}
	}
	if streak > row.HighestStreak {
		row.HighestStreak = streak
	}
	if correct {
		row.TotalCorrect++
	}
	row.TotalAttempts++
	row.LastPlayed = r.clock()
	r.rows[userID] = row
	return nil
}

// Get returns the row for userID.
func (r *HighscoreRepository) Get(userID int64) (domain.Highscore, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[userID]
	return row, ok
}

func (r *HighscoreRepository) Top(_ context.Context, limit int) ([]domain.Highscore, error) {
	r.mu.Lock()
	rows := make([]domain.Highscore, 0, len(r.rows))
	for _, row := range r.rows {
		rows = append(rows, row)
	}
	r.mu.Unlock()

	if r.users != nil {
		for i := range rows {
			rows[i].Username = r.users.usernameByID(rows[i].UserID)
		}
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].HighestStreak != rows[j].HighestStreak {
			return rows[i].HighestStreak > rows[j].HighestStreak
		}
		// Displayed (rounded) accuracy, so ties cut the list like Postgres.
		ai := app.Accuracy(rows[i].TotalCorrect, rows[i].TotalAttempts)
		aj := app.Accuracy(rows[j].TotalCorrect, rows[j].TotalAttempts)
		if ai != aj {
			return ai > aj
		}
		return rows[i].Username < rows[j].Username
	})
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}
