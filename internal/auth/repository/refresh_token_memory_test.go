package repository

import (
	"context"
	"testing"
	"time"

	authdomain "github.com/AlibekovAA/taskflow/backend/internal/auth/domain"
	"github.com/AlibekovAA/taskflow/backend/internal/common/clock"
)

func TestMemoryRefreshTokenRepository_Contract(t *testing.T) {
	runRepositoryContract(t, func(t *testing.T) RefreshTokenRepository {
		return NewMemoryRefreshTokenRepository(nil)
	}, [2]string{"user-a", "user-b"})
}

func TestMemoryRefreshTokenRepository_DeleteExpired(t *testing.T) {
	mockClock := clock.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	repo := NewMemoryRefreshTokenRepository(mockClock)
	ctx := context.Background()

	expired := authdomain.RefreshToken{
		ID:        "1",
		TokenHash: "h1",
		UserID:    "u1",
		ExpiresAt: mockClock.Now().Add(time.Hour),
	}
	live := authdomain.RefreshToken{
		ID:        "2",
		TokenHash: "h2",
		UserID:    "u1",
		ExpiresAt: mockClock.Now().Add(48 * time.Hour),
	}
	_ = repo.Create(ctx, expired)
	_ = repo.Create(ctx, live)

	mockClock.Advance(2 * time.Hour)

	removed, err := repo.DeleteExpired(ctx)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if removed != 1 {
		t.Errorf("expected 1 removed, got %d", removed)
	}
	if repo.Len() != 1 {
		t.Errorf("expected 1 remaining record, got %d", repo.Len())
	}
	if _, err := repo.FindExact(ctx, "h2", "u1"); err != nil {
		t.Errorf("expected live record to survive, got %v", err)
	}
}

func TestMemoryRefreshTokenRepository_FindReturnsExpiredRecord(t *testing.T) {
	mockClock := clock.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	repo := NewMemoryRefreshTokenRepository(mockClock)
	ctx := context.Background()

	_ = repo.Create(ctx, authdomain.RefreshToken{
		ID:        "1",
		TokenHash: "h1",
		UserID:    "u1",
		ExpiresAt: mockClock.Now().Add(time.Hour),
	})
	mockClock.Advance(2 * time.Hour)

	got, err := repo.FindExact(ctx, "h1", "u1")
	if err != nil {
		t.Fatalf("expected record, got %v", err)
	}
	if !got.ExpiredAt(mockClock.Now()) {
		t.Error("expected record to report expired")
	}
}

func TestMemoryRefreshTokenRepository_CancelledContext(t *testing.T) {
	repo := NewMemoryRefreshTokenRepository(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := repo.Create(ctx, authdomain.RefreshToken{ID: "1", TokenHash: "h1"}); err == nil {
		t.Fatal("expected error on cancelled context")
	}
	if repo.Len() != 0 {
		t.Error("expected nothing stored")
	}
}
