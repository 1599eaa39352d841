package service

import (
	"context"
	"sync"
	"time"

	authrepo "github.com/AlibekovAA/taskflow/backend/internal/auth/repository"
	"github.com/AlibekovAA/taskflow/backend/internal/auth/token"
	"github.com/AlibekovAA/taskflow/backend/internal/common/clock"
	commoncrypto "github.com/AlibekovAA/taskflow/backend/internal/common/crypto"
	"github.com/AlibekovAA/taskflow/backend/internal/common/logger"
	"github.com/AlibekovAA/taskflow/backend/internal/common/resilience"
	userdomain "github.com/AlibekovAA/taskflow/backend/internal/user/domain"
	userrepo "github.com/AlibekovAA/taskflow/backend/internal/user/repository"
)

type TokenSigner interface {
	IssueAccess(subjectID string) (string, token.Claims, error)
	IssueRefresh(subjectID string) (string, token.Claims, error)
	Verify(tokenString string, class token.KeyClass) (token.Claims, error)
}

type Dependencies struct {
	Users        userrepo.Repository
	RefreshStore authrepo.RefreshTokenRepository
	Signer       TokenSigner
	Hasher       commoncrypto.PasswordHasher
	IDGenerator  commoncrypto.IDGenerator
	Clock        clock.Clock
}

type Config struct {
	RefreshRotation         bool
	StoreTimeout            time.Duration
	CircuitBreakerThreshold int32
	CircuitBreakerReset     time.Duration
}

type AuthService struct {
	users       userrepo.Repository
	refreshRepo authrepo.RefreshTokenRepository
	signer      TokenSigner
	hasher      commoncrypto.PasswordHasher
	idGenerator commoncrypto.IDGenerator
	clock       clock.Clock
	userCB      resilience.CircuitBreakerInterface
	refreshCB   resilience.CircuitBreakerInterface
	minter      refreshMinter
	rotator     *RefreshTokenRotator
	log         *logger.Logger

	dummyHashOnce sync.Once
	dummyHash     string
}

func NewAuthService(deps Dependencies, cfg Config, log *logger.Logger) *AuthService {
	clk := deps.Clock
	if clk == nil {
		clk = clock.NewRealClock()
	}

	newBreaker := func(name string) *resilience.CircuitBreaker {
		return resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			Threshold:  cfg.CircuitBreakerThreshold,
			Timeout:    cfg.StoreTimeout,
			ResetAfter: cfg.CircuitBreakerReset,
			Name:       name,
			IsFailure:  isStoreFailure,
			Logger:     log,
		})
	}

	s := &AuthService{
		users:       deps.Users,
		refreshRepo: deps.RefreshStore,
		signer:      deps.Signer,
		hasher:      deps.Hasher,
		idGenerator: deps.IDGenerator,
		clock:       clk,
		userCB:      newBreaker("user_store"),
		refreshCB:   newBreaker("refresh_store"),
		minter: refreshMinter{
			signer:      deps.Signer,
			idGenerator: deps.IDGenerator,
			clock:       clk,
		},
		log: log,
	}

	if cfg.RefreshRotation {
		s.rotator = NewRefreshTokenRotator(deps.RefreshStore, s.refreshCB, s.minter, log)
	}

	return s
}

func (s *AuthService) RotationEnabled() bool {
	return s.rotator != nil
}

func (s *AuthService) findUserByEmail(ctx context.Context, email string) (userdomain.User, error) {
	var user userdomain.User
	err := s.userCB.Call(ctx, func(ctx context.Context) error {
		var err error
		user, err = s.users.FindByEmail(ctx, email)
		return err
	})
	return user, err
}

func (s *AuthService) findUserByID(ctx context.Context, id userdomain.ID) (userdomain.User, error) {
	var user userdomain.User
	err := s.userCB.Call(ctx, func(ctx context.Context) error {
		var err error
		user, err = s.users.FindByID(ctx, id)
		return err
	})
	return user, err
}
