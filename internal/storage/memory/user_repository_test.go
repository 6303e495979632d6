package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
	"github.com/vladislavdragonenkov/marketplace/internal/storage/memory"
)

func newUser() domain.User {
	return domain.User{
		ID:        "user-1",
		Name:      "Rakib",
		Email:     "rakib@example.com",
		Role:      domain.UserRoleBuyer,
		CreatedAt: time.Now().UTC(),
	}
}

func TestUserRepository_CreateGet(t *testing.T) {
	repo := memory.NewUserRepository()
	user := newUser()

	if err := repo.Create(context.Background(), user); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	stored, err := repo.GetByEmail(context.Background(), user.Email)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if stored.ID != user.ID {
		t.Fatalf("expected id %s, got %s", user.ID, stored.ID)
	}

	// Email сравнивается без учёта регистра.
	if _, err := repo.GetByEmail(context.Background(), "RAKIB@example.com"); err != nil {
		t.Fatalf("expected case-insensitive lookup, got %v", err)
	}

	if _, err := repo.GetByEmail(context.Background(), "missing@example.com"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUserRepository_DuplicateEmail(t *testing.T) {
	repo := memory.NewUserRepository()
	if err := repo.Create(context.Background(), newUser()); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	duplicate := newUser()
	duplicate.ID = "user-2"
	if err := repo.Create(context.Background(), duplicate); !errors.Is(err, domain.ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestUserRepository_List(t *testing.T) {
	repo := memory.NewUserRepository()

	first := newUser()
	second := newUser()
	second.ID = "user-2"
	second.Email = "another@example.com"

	if err := repo.Create(context.Background(), first); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := repo.Create(context.Background(), second); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	users, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("expected 2 users, got %d", len(users))
	}
	if users[0].Email != "another@example.com" {
		t.Fatalf("expected stable ordering by email, got %s first", users[0].Email)
	}
}
