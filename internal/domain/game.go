package domain

import (
	"strings"
	"time"
)

// GameState is the per-session game record.
type GameState struct {
	TotalCorrect    int   `json:"totalCorrect"`
	CurrentStreak   int   `json:"currentStreak"`
	CurrentQuestion *Flag `json:"currentQuestion"`
}

// Session is the server-side state of one authenticated browser session.
type Session struct {
	ID        string     `json:"id"`
	UserID    int64      `json:"userId"`
	Username  string     `json:"username"`
	Game      *GameState `json:"game,omitempty"`
	ExpiresAt time.Time  `json:"expiresAt"`
}

// Authenticated reports whether a user is attached to the session.
func (s *Session) Authenticated() bool {
	return s != nil && s.UserID != 0
}

// ResetGame starts a fresh game with no question drawn.
func (s *Session) ResetGame() *GameState {
	s.Game = &GameState{}
	return s.Game
}

// EnsureGame returns the session's game, creating an empty one if absent.
func (s *Session) EnsureGame() *GameState {
	if s.Game == nil {
		return s.ResetGame()
	}
	return s.Game
}

// NormalizeAnswer trims surrounding whitespace and case-folds.
func NormalizeAnswer(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Matches reports whether answer names the flag's country.
func (f Flag) Matches(answer string) bool {
	return NormalizeAnswer(answer) == NormalizeAnswer(f.CountryName)
}
