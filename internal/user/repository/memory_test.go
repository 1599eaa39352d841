package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/AlibekovAA/taskflow/backend/internal/user/domain"
)

func TestMemoryRepository_EmailIsCaseInsensitive(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	if err := repo.Create(ctx, domain.User{ID: "1", Email: "ann@example.com"}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if err := repo.Create(ctx, domain.User{ID: "2", Email: " ANN@example.com"}); !errors.Is(err, ErrEmailAlreadyExists) {
		t.Fatalf("expected ErrEmailAlreadyExists, got %v", err)
	}

	user, err := repo.FindByEmail(ctx, "Ann@Example.com")
	if err != nil {
		t.Fatalf("expected user, got %v", err)
	}
	if user.ID != "1" {
		t.Errorf("expected id 1, got %s", user.ID)
	}
}

func TestMemoryRepository_Update(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	_ = repo.Create(ctx, domain.User{ID: "1", Name: "Ann", Email: "ann@example.com", PasswordHash: "h"})
	_ = repo.Create(ctx, domain.User{ID: "2", Name: "Bob", Email: "bob@example.com"})

	if err := repo.Update(ctx, domain.User{ID: "1", Name: "Ann", Email: "bob@example.com"}); !errors.Is(err, ErrEmailAlreadyExists) {
		t.Fatalf("expected ErrEmailAlreadyExists, got %v", err)
	}
	if err := repo.Update(ctx, domain.User{ID: "9", Name: "Ghost", Email: "g@example.com"}); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}

	if err := repo.Update(ctx, domain.User{ID: "1", Name: "Anna", Email: "anna@example.com"}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	user, err := repo.FindByEmail(ctx, "anna@example.com")
	if err != nil {
		t.Fatalf("expected user under new email, got %v", err)
	}
	if user.Name != "Anna" || user.PasswordHash != "h" {
		t.Errorf("unexpected user after update: %+v", user)
	}
	if _, err := repo.FindByEmail(ctx, "ann@example.com"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("expected old email released, got %v", err)
	}
}
