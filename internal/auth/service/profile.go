package service

import (
	"context"
	"errors"
	"strings"

	"github.com/AlibekovAA/taskflow/backend/internal/common/logger"
	userdomain "github.com/AlibekovAA/taskflow/backend/internal/user/domain"
	userrepo "github.com/AlibekovAA/taskflow/backend/internal/user/repository"
)

// UpdateProfileInput holds optional changes; nil fields are left as is.
type UpdateProfileInput struct {
	Name  *string
	Email *string
}

func (s *AuthService) Profile(ctx context.Context, userID string) (userdomain.Profile, error) {
	user, err := s.findUserByID(ctx, userdomain.ID(userID))
	if err != nil {
		if errors.Is(err, userrepo.ErrUserNotFound) {
			return userdomain.Profile{}, ErrUserNotFound
		}
		s.log.WithFields(ctx, logger.Fields{
			"user_id": userID,
			"action":  "profile_fetch_failed",
		}).Errorf("profile fetch failed: %v", err)
		return userdomain.Profile{}, storeError(err)
	}
	return user.Profile(), nil
}

func (s *AuthService) UpdateProfile(ctx context.Context, userID string, input UpdateProfileInput) (userdomain.Profile, error) {
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		input.Name = &name
	}
	if input.Email != nil {
		email := userdomain.NormalizeEmail(*input.Email)
		input.Email = &email
	}

	if err := validateProfileUpdate(input); err != nil {
		s.log.WithFields(ctx, logger.Fields{
			"user_id": userID,
			"action":  "profile_validation_failed",
		}).Warnf("profile validation failed: %v", err)
		return userdomain.Profile{}, ErrValidation.WithCause(err)
	}

	user, err := s.findUserByID(ctx, userdomain.ID(userID))
	if err != nil {
		if errors.Is(err, userrepo.ErrUserNotFound) {
			return userdomain.Profile{}, ErrUserNotFound
		}
		return userdomain.Profile{}, storeError(err)
	}

	if input.Name != nil {
		user.Name = *input.Name
	}
	if input.Email != nil {
		user.Email = *input.Email
	}
	user.UpdatedAt = s.clock.Now()

	err = s.userCB.Call(ctx, func(ctx context.Context) error {
		return s.users.Update(ctx, user)
	})
	if err != nil {
		switch {
		case errors.Is(err, userrepo.ErrEmailAlreadyExists):
			return userdomain.Profile{}, ErrUserAlreadyExists
		case errors.Is(err, userrepo.ErrUserNotFound):
			return userdomain.Profile{}, ErrUserNotFound
		}
		s.log.WithFields(ctx, logger.Fields{
			"user_id": userID,
			"action":  "profile_update_failed",
		}).Errorf("profile update failed: %v", err)
		return userdomain.Profile{}, storeError(err)
	}

	s.log.WithFields(ctx, logger.Fields{
		"user_id": userID,
		"action":  "profile_updated",
	}).Info("profile updated")
	return user.Profile(), nil
}
