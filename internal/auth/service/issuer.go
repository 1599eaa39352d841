package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	authdomain "github.com/AlibekovAA/taskflow/backend/internal/auth/domain"
	"github.com/AlibekovAA/taskflow/backend/internal/common/clock"
	"github.com/AlibekovAA/taskflow/backend/internal/common/constants"
	commoncrypto "github.com/AlibekovAA/taskflow/backend/internal/common/crypto"
	"github.com/AlibekovAA/taskflow/backend/internal/common/logger"
	userdomain "github.com/AlibekovAA/taskflow/backend/internal/user/domain"
	userrepo "github.com/AlibekovAA/taskflow/backend/internal/user/repository"
)

type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

type LoginInput struct {
	Email    string
	Password string
}

type SessionResult struct {
	User             userdomain.Profile
	AccessToken      string
	RefreshToken     string
	RefreshExpiresAt time.Time
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (SessionResult, error) {
	email := userdomain.NormalizeEmail(input.Email)
	input.Email = email
	input.Name = strings.TrimSpace(input.Name)

	s.log.WithFields(ctx, logger.Fields{
		"email":  email,
		"action": "register_attempt",
	}).Info("register attempt")

	if err := validateRegistration(input); err != nil {
		s.log.WithFields(ctx, logger.Fields{
			"email":  email,
			"action": "register_validation_failed",
		}).Warnf("register validation failed: %v", err)
		return SessionResult{}, ErrValidation.WithCause(err)
	}

	_, err := s.findUserByEmail(ctx, email)
	switch {
	case err == nil:
		s.log.WithFields(ctx, logger.Fields{
			"email":  email,
			"action": "register_email_exists",
		}).Warn("register failed: already exists")
		return SessionResult{}, ErrUserAlreadyExists
	case !errors.Is(err, userrepo.ErrUserNotFound):
		s.log.WithFields(ctx, logger.Fields{
			"email":  email,
			"action": "register_lookup_failed",
		}).Errorf("register failed: %v", err)
		return SessionResult{}, storeError(err)
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		s.log.WithFields(ctx, logger.Fields{
			"email":  email,
			"action": "register_hash_failed",
		}).Errorf("register failed: password hash error: %v", err)
		return SessionResult{}, fmt.Errorf("hash password: %w", err)
	}

	id, err := s.idGenerator.NewID()
	if err != nil {
		s.log.WithFields(ctx, logger.Fields{
			"email":  email,
			"action": "register_id_generation_failed",
		}).Errorf("register failed: id generation error: %v", err)
		return SessionResult{}, fmt.Errorf("generate user id: %w", err)
	}

	now := s.clock.Now()
	user := userdomain.User{
		ID:           userdomain.ID(id),
		Name:         input.Name,
		Email:        email,
		Role:         constants.DefaultUserRole,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.userCB.Call(ctx, func(ctx context.Context) error {
		return s.users.Create(ctx, user)
	})
	if err != nil {
		if errors.Is(err, userrepo.ErrEmailAlreadyExists) {
			s.log.WithFields(ctx, logger.Fields{
				"email":  email,
				"action": "register_email_exists",
			}).Warn("register failed: already exists")
			return SessionResult{}, ErrUserAlreadyExists
		}
		s.log.WithFields(ctx, logger.Fields{
			"email":  email,
			"action": "register_create_failed",
		}).Errorf("register failed: %v", err)
		return SessionResult{}, storeError(err)
	}

	result, err := s.issueSession(ctx, user, originRegister)
	if err != nil {
		return SessionResult{}, err
	}

	s.log.WithFields(ctx, logger.Fields{
		"user_id": string(user.ID),
		"action":  "register_success",
	}).Info("register success")

	return result, nil
}

func (s *AuthService) Login(ctx context.Context, input LoginInput) (SessionResult, error) {
	s.log.WithFields(ctx, logger.Fields{
		"action": "login_attempt",
	}).Info("login attempt")

	user, err := s.VerifyCredentials(ctx, input.Email, input.Password)
	if err != nil {
		return SessionResult{}, err
	}

	result, err := s.issueSession(ctx, user, originLogin)
	if err != nil {
		return SessionResult{}, err
	}

	s.log.WithFields(ctx, logger.Fields{
		"user_id": string(user.ID),
		"action":  "login_success",
	}).Info("login success")

	return result, nil
}

// issueSession mints both tokens and persists exactly one refresh record.
func (s *AuthService) issueSession(ctx context.Context, user userdomain.User, origin string) (SessionResult, error) {
	subject := string(user.ID)

	accessToken, _, err := s.signer.IssueAccess(subject)
	if err != nil {
		s.log.WithFields(ctx, logger.Fields{
			"user_id": subject,
			"action":  origin + "_token_issue_failed",
		}).Errorf("%s failed: access token issue error: %v", origin, err)
		return SessionResult{}, fmt.Errorf("issue access token: %w", err)
	}

	refreshToken, record, err := s.minter.mint(subject)
	if err != nil {
		s.log.WithFields(ctx, logger.Fields{
			"user_id": subject,
			"action":  origin + "_token_issue_failed",
		}).Errorf("%s failed: refresh token issue error: %v", origin, err)
		return SessionResult{}, err
	}

	err = s.refreshCB.Call(ctx, func(ctx context.Context) error {
		return s.refreshRepo.Create(ctx, record)
	})
	if err != nil {
		s.log.WithFields(ctx, logger.Fields{
			"user_id": subject,
			"action":  origin + "_refresh_persist_failed",
		}).Errorf("%s failed: refresh token persist error: %v", origin, err)
		return SessionResult{}, storeError(err)
	}

	incrementSessionsIssued(origin)

	return SessionResult{
		User:             user.Profile(),
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		RefreshExpiresAt: record.ExpiresAt,
	}, nil
}

type refreshMinter struct {
	signer      TokenSigner
	idGenerator commoncrypto.IDGenerator
	clock       clock.Clock
}

// mint signs a refresh token for subject and builds its record. The record
// expires together with the token.
func (m refreshMinter) mint(subject string) (string, authdomain.RefreshToken, error) {
	refreshToken, claims, err := m.signer.IssueRefresh(subject)
	if err != nil {
		return "", authdomain.RefreshToken{}, fmt.Errorf("issue refresh token: %w", err)
	}

	id, err := m.idGenerator.NewID()
	if err != nil {
		return "", authdomain.RefreshToken{}, fmt.Errorf("generate refresh token id: %w", err)
	}

	return refreshToken, authdomain.RefreshToken{
		ID:        id,
		TokenHash: authdomain.HashRefreshToken(refreshToken),
		UserID:    subject,
		ExpiresAt: claims.ExpiresAt,
		CreatedAt: m.clock.Now(),
	}, nil
}
