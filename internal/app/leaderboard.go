package app

import (
	"context"
	"sort"
	"sync"
	"time"

	"flagguess/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// LeaderboardSize is how many rows the leaderboard shows.
const LeaderboardSize = 10

// LeaderboardService ranks highscores and pushes fresh boards to subscribers.
type LeaderboardService struct {
	scores HighscoreRepository
	now    func() time.Time
	log    logrus.FieldLogger

	mu          sync.Mutex
	subscribers map[chan domain.Leaderboard]struct{}
}

func NewLeaderboardService(scores HighscoreRepository, log logrus.FieldLogger) *LeaderboardService {
	return &LeaderboardService{
		scores:      scores,
		now:         time.Now,
		log:         log,
		subscribers: make(map[chan domain.Leaderboard]struct{}),
	}
}

// Top returns the ranked top entries.
func (s *LeaderboardService) Top(ctx context.Context) (domain.Leaderboard, error) {
	rows, err := s.scores.Top(ctx, LeaderboardSize)
	if err != nil {
		return domain.Leaderboard{}, err
	}
	return domain.Leaderboard{Entries: Rank(rows), UpdatedAt: s.now()}, nil
}

// Rank orders rows by highest streak then accuracy, both descending, with
// username as the final tie-break, and assigns 1-based ranks.
func Rank(rows []domain.Highscore) []domain.LeaderboardEntry {
	entries := make([]domain.LeaderboardEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, domain.LeaderboardEntry{
			Username:      row.Username,
			HighestStreak: row.HighestStreak,
			TotalCorrect:  row.TotalCorrect,
			TotalAttempts: row.TotalAttempts,
			Accuracy:      Accuracy(row.TotalCorrect, row.TotalAttempts),
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].HighestStreak != entries[j].HighestStreak {
			return entries[i].HighestStreak > entries[j].HighestStreak
		}
		if entries[i].Accuracy != entries[j].Accuracy {
			return entries[i].Accuracy > entries[j].Accuracy
		}
		return entries[i].Username < entries[j].Username
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}

// Accuracy is the percentage of correct attempts rounded half up to one
// decimal, or 0 without attempts. It rounds once from the exact ratio so it
// agrees with ROUND(total_correct * 100.0 / total_attempts, 1) in Postgres.
func Accuracy(correct, attempts int) float64 {
	if attempts <= 0 {
		return 0
	}
	c, a := int64(correct), int64(attempts)
	tenths := (2000*c + a) / (2 * a)
	f, _ := decimal.New(tenths, -1).Float64()
	return f
}

// Subscribe returns a channel of leaderboard updates. The caller must invoke
// the returned cancel function to avoid leaks.
func (s *LeaderboardService) Subscribe(ctx context.Context) (<-chan domain.Leaderboard, func(), error) {
	initial, err := s.Top(ctx)
	if err != nil {
		return nil, nil, err
	}
	ch := make(chan domain.Leaderboard, 8)
	ch <- initial

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel, nil
}

// HighscoreChanged recomputes the board and fans it out when anyone listens.
func (s *LeaderboardService) HighscoreChanged(ctx context.Context) {
	s.mu.Lock()
	listening := len(s.subscribers) > 0
	s.mu.Unlock()
	if !listening {
		return
	}

	lb, err := s.Top(ctx)
	if err != nil {
		s.log.WithError(err).Warn("leaderboard refresh failed")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.subscribers {
		select {
		case ch <- lb:
		default:
			// Drop the stale board so a slow reader never blocks a submit.
			select {
			case <-ch:
			default:
			}
			ch <- lb
		}
	}
}
