package postgres

import (
	"context"

	"flagguess/internal/domain"
	"github.com/jackc/pgx/v4/pgxpool"
)

// HighscoreRepository stores per-user stats in flag_highscores.
type HighscoreRepository struct {
	pool *pgxpool.Pool
}

func NewHighscoreRepository(pool *pgxpool.Pool) *HighscoreRepository {
	return &HighscoreRepository{pool: pool}
}

// Upsert merges one attempt into the user's row in a single statement so
// overlapping submissions cannot lose updates.
func (r *HighscoreRepository) Upsert(ctx context.Context, userID int64, correct bool, streak int) error {
	if userID == 0 {
		return nil
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO flag_highscores (user_id, highest_streak, total_correct, total_attempts, last_played)
		VALUES ($1, $2, CASE WHEN $3::boolean THEN 1 ELSE 0 END, 1, now())
		ON CONFLICT (user_id) DO UPDATE SET
			highest_streak = GREATEST(flag_highscores.highest_streak, EXCLUDED.highest_streak),
			total_correct  = flag_highscores.total_correct + EXCLUDED.total_correct,
			total_attempts = flag_highscores.total_attempts + 1,
			last_played    = now()
	`, userID, streak, correct)
	if err != nil {
		return domain.StorageError("upsert highscore", err)
	}
	return nil
}

func (r *HighscoreRepository) Top(ctx context.Context, limit int) ([]domain.Highscore, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT h.user_id, u.username, h.highest_streak, h.total_correct, h.total_attempts, h.last_played
		FROM flag_highscores h
		JOIN users u ON u.id = h.user_id
		ORDER BY h.highest_streak DESC,
			COALESCE(ROUND(h.total_correct * 100.0 / NULLIF(h.total_attempts, 0), 1), 0) DESC,
			u.username ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, domain.StorageError("top highscores", err)
	}
	defer rows.Close()

	var out []domain.Highscore
	for rows.Next() {
		var h domain.Highscore
		if err := rows.Scan(&h.UserID, &h.Username, &h.HighestStreak, &h.TotalCorrect, &h.TotalAttempts, &h.LastPlayed); err != nil {
			return nil, domain.StorageError("scan highscore", err)
		}
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.StorageError("top highscores", err)
	}
	return out, nil
}

// Get returns the row for userID, used by tests and diagnostics.
func (r *HighscoreRepository) Get(ctx context.Context, userID int64) (domain.Highscore, error) {
	var h domain.Highscore
	err := r.pool.QueryRow(ctx, `
		SELECT user_id, highest_streak, total_correct, total_attempts, last_played
		FROM flag_highscores WHERE user_id = $1
	`, userID).Scan(&h.UserID, &h.HighestStreak, &h.TotalCorrect, &h.TotalAttempts, &h.LastPlayed)
	if err != nil {
		return domain.Highscore{}, domain.StorageError("get highscore", err)
	}
	return h, nil
}
