package service

import (
	"context"
	"errors"

	"github.com/AlibekovAA/taskflow/backend/internal/common/logger"
	userdomain "github.com/AlibekovAA/taskflow/backend/internal/user/domain"
	userrepo "github.com/AlibekovAA/taskflow/backend/internal/user/repository"
)

// VerifyCredentials returns the user owning email when password matches.
// An unknown email and a wrong password fail the same way.
func (s *AuthService) VerifyCredentials(ctx context.Context, email, password string) (userdomain.User, error) {
	if email == "" || password == "" {
		return userdomain.User{}, ErrInvalidCredentials
	}

	user, err := s.findUserByEmail(ctx, userdomain.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, userrepo.ErrUserNotFound) {
			s.log.WithFields(ctx, logger.Fields{
				"action": "login_user_not_found",
			}).Warn("login failed: not found")
			s.compareDummy(password)
			return userdomain.User{}, ErrInvalidCredentials
		}
		s.log.WithFields(ctx, logger.Fields{
			"action": "login_fetch_failed",
		}).Errorf("login failed: %v", err)
		return userdomain.User{}, storeError(err)
	}

	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		s.log.WithFields(ctx, logger.Fields{
			"user_id": string(user.ID),
			"action":  "login_invalid_password",
		}).Warn("login failed: invalid password")
		return userdomain.User{}, ErrInvalidCredentials
	}

	return user, nil
}

// dummyPassword backs the comparison done for unknown emails, so every failed
// login runs exactly one hash comparison.
const dummyPassword = "taskflow-dummy-password"

func (s *AuthService) compareDummy(password string) {
	s.dummyHashOnce.Do(func() {
		hash, err := s.hasher.Hash(dummyPassword)
		if err != nil {
			s.log.Errorf("failed to prepare dummy password hash: %v", err)
			return
		}
		s.dummyHash = hash
	})
	if s.dummyHash == "" {
		return
	}
	_ = s.hasher.Compare(s.dummyHash, password)
}
