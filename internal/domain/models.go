package domain

import "time"

// Flag is a single question: the player sees the image and must name the country.
type Flag struct {
	ID          int64  `json:"id" yaml:"id"`
	CountryName string `json:"countryName" yaml:"country"`
	ImageRef    string `json:"imageRef" yaml:"image"`
}

// User is an account that can log in and play.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
}

// Highscore holds the aggregate stats persisted per user.
type Highscore struct {
	UserID        int64     `json:"userId"`
	Username      string    `json:"username"`
	HighestStreak int       `json:"highestStreak"`
	TotalCorrect  int       `json:"totalCorrect"`
	TotalAttempts int       `json:"totalAttempts"`
	LastPlayed    time.Time `json:"lastPlayed"`
}

// LeaderboardEntry is a highscore row with its display accuracy.
type LeaderboardEntry struct {
	Rank          int     `json:"rank"`
	Username      string  `json:"username"`
	HighestStreak int     `json:"highestStreak"`
	TotalCorrect  int     `json:"totalCorrect"`
	TotalAttempts int     `json:"totalAttempts"`
	Accuracy      float64 `json:"accuracy"`
}

// Leaderboard is the ordered top list.
type Leaderboard struct {
	Entries   []LeaderboardEntry `json:"entries"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// Round is what a player sees while a question is awaiting an answer.
type Round struct {
	Question Flag
	Score    int
	Streak   int
}

// AnswerResult summarizes one evaluated submission.
type AnswerResult struct {
	Round
	Correct bool
	// Revealed is set only when the answer was wrong.
	Revealed string
}
