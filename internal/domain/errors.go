package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionMissing is returned when a game action runs without an authenticated session.
	ErrSessionMissing = errors.New("session missing")
	// ErrNoCurrentQuestion is returned when an answer arrives before a question was drawn.
	ErrNoCurrentQuestion = errors.New("no current question")
	// ErrEmptyPool indicates storage holds no flags to ask about.
	ErrEmptyPool = errors.New("question pool is empty")
	// ErrInvalidCredentials covers both unknown users and wrong passwords.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrUsernameTaken is returned when registering an existing username.
	ErrUsernameTaken = errors.New("username already taken")
	// ErrUserNotFound is returned by user lookups.
	ErrUserNotFound = errors.New("user not found")
	// ErrStorage wraps every failure of a backing store.
	ErrStorage = errors.New("storage failure")
)

// ValidationError is a user-correctable problem with submitted input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// StorageError wraps err so that errors.Is(err, ErrStorage) holds.
func StorageError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
}
