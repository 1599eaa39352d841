package service

import (
	"context"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	authdomain "github.com/AlibekovAA/taskflow/backend/internal/auth/domain"
	authrepo "github.com/AlibekovAA/taskflow/backend/internal/auth/repository"
	"github.com/AlibekovAA/taskflow/backend/internal/auth/token"
	"github.com/AlibekovAA/taskflow/backend/internal/common/clock"
	commoncrypto "github.com/AlibekovAA/taskflow/backend/internal/common/crypto"
	"github.com/AlibekovAA/taskflow/backend/internal/common/logger"
	userrepo "github.com/AlibekovAA/taskflow/backend/internal/user/repository"
)

type mockRefreshTokenRepo struct {
	createFunc         func(ctx context.Context, token authdomain.RefreshToken) error
	findExactFunc      func(ctx context.Context, hash, userID string) (authdomain.RefreshToken, error)
	deleteByTokenFunc  func(ctx context.Context, hash string) error
	deleteByIDFunc     func(ctx context.Context, id string) error
	deleteByUserIDFunc func(ctx context.Context, userID string) (int64, error)
	rotateFunc         func(ctx context.Context, oldHash string, next authdomain.RefreshToken) error
	deleteExpiredFunc  func(ctx context.Context) (int64, error)
}

func (m *mockRefreshTokenRepo) Create(ctx context.Context, token authdomain.RefreshToken) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, token)
	}
	return nil
}

func (m *mockRefreshTokenRepo) FindExact(ctx context.Context, hash, userID string) (authdomain.RefreshToken, error) {
	if m.findExactFunc != nil {
		return m.findExactFunc(ctx, hash, userID)
	}
	return authdomain.RefreshToken{}, authrepo.ErrRefreshTokenNotFound
}

func (m *mockRefreshTokenRepo) DeleteByToken(ctx context.Context, hash string) error {
	if m.deleteByTokenFunc != nil {
		return m.deleteByTokenFunc(ctx, hash)
	}
	return nil
}

func (m *mockRefreshTokenRepo) DeleteByID(ctx context.Context, id string) error {
	if m.deleteByIDFunc != nil {
		return m.deleteByIDFunc(ctx, id)
	}
	return nil
}

func (m *mockRefreshTokenRepo) DeleteByUserID(ctx context.Context, userID string) (int64, error) {
	if m.deleteByUserIDFunc != nil {
		return m.deleteByUserIDFunc(ctx, userID)
	}
	return 0, nil
}

func (m *mockRefreshTokenRepo) Rotate(ctx context.Context, oldHash string, next authdomain.RefreshToken) error {
	if m.rotateFunc != nil {
		return m.rotateFunc(ctx, oldHash, next)
	}
	return nil
}

func (m *mockRefreshTokenRepo) DeleteExpired(ctx context.Context) (int64, error) {
	if m.deleteExpiredFunc != nil {
		return m.deleteExpiredFunc(ctx)
	}
	return 0, nil
}

const (
	testAccessKey  = "access-key-access-key-access-key-0123"
	testRefreshKey = "refresh-key-refresh-key-refresh-key-0123"
)

type testEnv struct {
	svc     *AuthService
	users   *userrepo.MemoryRepository
	refresh *authrepo.MemoryRefreshTokenRepository
	signer  *token.Signer
	clock   *clock.MockClock
}

type setupOption func(*Dependencies, *Config)

func withRotation() setupOption {
	return func(_ *Dependencies, cfg *Config) { cfg.RefreshRotation = true }
}

func withRefreshStore(repo authrepo.RefreshTokenRepository) setupOption {
	return func(deps *Dependencies, _ *Config) { deps.RefreshStore = repo }
}

func withHasher(h commoncrypto.PasswordHasher) setupOption {
	return func(deps *Dependencies, _ *Config) { deps.Hasher = h }
}

func withStoreTimeout(d time.Duration) setupOption {
	return func(_ *Dependencies, cfg *Config) { cfg.StoreTimeout = d }
}

func setupAuthService(t *testing.T, opts ...setupOption) testEnv {
	t.Helper()

	mockClock := clock.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	idGen := commoncrypto.NewUUIDGenerator()

	signer, err := token.NewSigner(token.Config{
		AccessKey:  testAccessKey,
		RefreshKey: testRefreshKey,
		AccessTTL:  24 * time.Hour,
		RefreshTTL: 7 * 24 * time.Hour,
	}, idGen, mockClock)
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}

	users := userrepo.NewMemoryRepository()
	refresh := authrepo.NewMemoryRefreshTokenRepository(mockClock)

	deps := Dependencies{
		Users:        users,
		RefreshStore: refresh,
		Signer:       signer,
		Hasher:       &commoncrypto.BcryptHasher{Cost: bcrypt.MinCost},
		IDGenerator:  idGen,
		Clock:        mockClock,
	}
	cfg := Config{
		StoreTimeout:            time.Second,
		CircuitBreakerThreshold: 50,
		CircuitBreakerReset:     10 * time.Second,
	}
	for _, opt := range opts {
		opt(&deps, &cfg)
	}

	log, _ := logger.New("", "test", "info")

	return testEnv{
		svc:     NewAuthService(deps, cfg, log),
		users:   users,
		refresh: refresh,
		signer:  signer,
		clock:   mockClock,
	}
}

func (e testEnv) register(t *testing.T, email string) SessionResult {
	t.Helper()
	res, err := e.svc.Register(context.Background(), RegisterInput{
		Name:     "Test User",
		Email:    email,
		Password: "secret123",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return res
}
