package service

import (
	"context"
	"errors"
	"testing"
)

func TestAuthService_Logout_Idempotent(t *testing.T) {
	env := setupAuthService(t)
	session := env.register(t, "ann@example.com")

	for i := 0; i < 2; i++ {
		if err := env.svc.Logout(context.Background(), session.RefreshToken); err != nil {
			t.Fatalf("logout %d: expected no error, got %v", i, err)
		}
	}
	if env.refresh.Len() != 0 {
		t.Errorf("expected record removed, %d left", env.refresh.Len())
	}
}

func TestAuthService_Logout_NoTokenIsNoop(t *testing.T) {
	repo := &mockRefreshTokenRepo{
		deleteByTokenFunc: func(ctx context.Context, hash string) error {
			t.Fatal("store must not be called without a token")
			return nil
		},
	}
	env := setupAuthService(t, withRefreshStore(repo))

	if err := env.svc.Logout(context.Background(), ""); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestAuthService_Logout_GarbageTokenAccepted(t *testing.T) {
	env := setupAuthService(t)

	if err := env.svc.Logout(context.Background(), "not-a-jwt"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestAuthService_Logout_OnlyRevokesPresentedSession(t *testing.T) {
	env := setupAuthService(t)
	first := env.register(t, "ann@example.com")
	second, err := env.svc.Login(context.Background(), LoginInput{Email: "ann@example.com", Password: "secret123"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	_ = env.svc.Logout(context.Background(), first.RefreshToken)

	if _, err := env.svc.Refresh(context.Background(), second.RefreshToken); err != nil {
		t.Errorf("expected other session unaffected, got %v", err)
	}
}

func TestAuthService_Logout_StoreFailure(t *testing.T) {
	repo := &mockRefreshTokenRepo{
		deleteByTokenFunc: func(ctx context.Context, hash string) error {
			return errors.New("connection reset")
		},
	}
	env := setupAuthService(t, withRefreshStore(repo))

	err := env.svc.Logout(context.Background(), "some-token")
	if !errors.Is(err, ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
}
