package app

import (
	"context"

	"flagguess/internal/domain"
	"github.com/sirupsen/logrus"
)

// HighscoreRepository persists per-user aggregate stats.
type HighscoreRepository interface {
	// Upsert records one attempt atomically. A zero userID is ignored.
	Upsert(ctx context.Context, userID int64, correct bool, streak int) error
	// Top returns up to limit rows ordered by highest streak, then accuracy.
	Top(ctx context.Context, limit int) ([]domain.Highscore, error)
}

// ScoreListener is told after a highscore row changed.
type ScoreListener interface {
	HighscoreChanged(ctx context.Context)
}

// GameService runs the flag guessing game for authenticated sessions.
// Work on one session is serialized so a double submit cannot advance or
// count twice.
type GameService struct {
	sessions  *SessionGateway
	pool      *QuestionPool
	scores    HighscoreRepository
	listeners []ScoreListener
	locks     *keyedMutex
	log       logrus.FieldLogger
}

func NewGameService(sessions *SessionGateway, pool *QuestionPool, scores HighscoreRepository, log logrus.FieldLogger) *GameService {
	return &GameService{
		sessions: sessions,
		pool:     pool,
		scores:   scores,
		locks:    newKeyedMutex(),
		log:      log,
	}
}

// Subscribe registers a listener for highscore changes.
func (s *GameService) Subscribe(l ScoreListener) {
	s.listeners = append(s.listeners, l)
}

// Start resets the session's game and draws its first question.
func (s *GameService) Start(ctx context.Context, sessionID string) (domain.Round, error) {
	unlock := s.locks.Lock(sessionID)
	defer unlock()

	session, err := s.sessions.Lookup(ctx, sessionID)
	if err != nil {
		return domain.Round{}, err
	}

	game := session.ResetGame()
	flag, drawErr := s.pool.Next(ctx)
	if drawErr == nil {
		game.CurrentQuestion = &flag
	}
	// The reset is saved even without a question so a later submit is
	// sent back to the game page instead of scoring a stale question.
	if err := s.sessions.Save(ctx, session); err != nil {
		return domain.Round{}, err
	}
	if drawErr != nil {
		return domain.Round{}, drawErr
	}

	s.log.WithFields(logrus.Fields{
		"user":     session.Username,
		"question": flag.ID,
	}).Debug("game started")
	return roundOf(game), nil
}

// Submit evaluates answer against the session's current question.
func (s *GameService) Submit(ctx context.Context, sessionID, answer string) (domain.AnswerResult, error) {
	unlock := s.locks.Lock(sessionID)
	defer unlock()

	session, err := s.sessions.Lookup(ctx, sessionID)
	if err != nil {
		return domain.AnswerResult{}, err
	}

	next, correct, err := evaluate(*session.EnsureGame(), answer)
	if err != nil {
		return domain.AnswerResult{}, err
	}

	result := domain.AnswerResult{Correct: correct}
	if correct {
		flag, err := s.pool.Next(ctx)
		if err != nil {
			return domain.AnswerResult{}, err
		}
		next.CurrentQuestion = &flag
	} else {
		result.Revealed = next.CurrentQuestion.CountryName
	}

	// Nothing is committed to the session until the attempt is recorded, so
	// a storage failure leaves the player on the same question.
	if err := s.scores.Upsert(ctx, session.UserID, correct, next.CurrentStreak); err != nil {
		return domain.AnswerResult{}, err
	}
	session.Game = &next
	if err := s.sessions.Save(ctx, session); err != nil {
		return domain.AnswerResult{}, err
	}

	s.log.WithFields(logrus.Fields{
		"user":    session.Username,
		"correct": correct,
		"streak":  next.CurrentStreak,
	}).Debug("answer evaluated")

	for _, l := range s.listeners {
		l.HighscoreChanged(ctx)
	}

	result.Round = roundOf(&next)
	return result, nil
}

// evaluate applies one submission to game. A correct answer bumps score and
// streak and leaves choosing the next question to the caller; a wrong one
// clears the streak and keeps the question.
func evaluate(game domain.GameState, answer string) (domain.GameState, bool, error) {
	if game.CurrentQuestion == nil {
		return game, false, domain.ErrNoCurrentQuestion
	}
	if game.CurrentQuestion.Matches(answer) {
		game.TotalCorrect++
		game.CurrentStreak++
		return game, true, nil
	}
	game.CurrentStreak = 0
	return game, false, nil
}

func roundOf(game *domain.GameState) domain.Round {
	round := domain.Round{Score: game.TotalCorrect, Streak: game.CurrentStreak}
	if game.CurrentQuestion != nil {
		round.Question = *game.CurrentQuestion
	}
	return round
}
