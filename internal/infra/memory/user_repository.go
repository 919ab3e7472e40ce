package memory

import (
	"context"
	"strings"
	"sync"

	"flagguess/internal/domain"
)

// UserRepository keeps accounts in memory. Usernames are unique
// case-insensitively, like the lower(username) index in Postgres.
type UserRepository struct {
	mu     sync.RWMutex
	nextID int64
	byName map[string]domain.User
}

func NewUserRepository() *UserRepository {
	return &UserRepository{byName: make(map[string]domain.User)}
}

func (r *UserRepository) Create(_ context.Context, username, passwordHash string) (domain.User, error) {
	key := strings.ToLower(username)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byName[key]; ok {
		return domain.User{}, domain.ErrUsernameTaken
	}
	r.nextID++
	user := domain.User{ID: r.nextID, Username: username, PasswordHash: passwordHash}
	r.byName[key] = user
	return user, nil
}

func (r *UserRepository) FindByUsername(_ context.Context, username string) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.byName[strings.ToLower(username)]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return user, nil
}

// usernameByID is used by the highscore repository to label rows.
func (r *UserRepository) usernameByID(id int64) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.byName {
		if u.ID == id {
			return u.Username
		}
	}
	return ""
}
