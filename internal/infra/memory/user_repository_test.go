package memory

import (
	"context"
	"errors"
	"testing"

	"flagguess/internal/domain"
)

func TestUserRepositoryUniqueUsernames(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository()

	u, err := repo.Create(ctx, "alice", "hash")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if u.ID == 0 {
		t.Fatalf("expected id to be assigned")
	}
	if _, err := repo.Create(ctx, "Alice", "other"); !errors.Is(err, domain.ErrUsernameTaken) {
		t.Fatalf("expected duplicate error, got %v", err)
	}

	found, err := repo.FindByUsername(ctx, "alice")
	if err != nil || found.PasswordHash != "hash" {
		t.Fatalf("find: %+v %v", found, err)
	}
	if _, err := repo.FindByUsername(ctx, "bob"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
