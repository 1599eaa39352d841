package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	authdomain "github.com/AlibekovAA/taskflow/backend/internal/auth/domain"
	authrepo "github.com/AlibekovAA/taskflow/backend/internal/auth/repository"
	"github.com/AlibekovAA/taskflow/backend/internal/auth/token"
	"github.com/AlibekovAA/taskflow/backend/internal/common/logger"
)

// RefreshResult carries a new access token. RefreshToken is set only when
// rotation replaced the presented token.
type RefreshResult struct {
	AccessToken      string
	RefreshToken     string
	RefreshExpiresAt time.Time
}

func (r RefreshResult) Rotated() bool {
	return r.RefreshToken != ""
}

func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (RefreshResult, error) {
	s.log.WithFields(ctx, logger.Fields{
		"action": "refresh_token_attempt",
	}).Info("refresh token attempt")

	if refreshToken == "" {
		incrementRefreshTokensRejected(rejectMissing)
		return RefreshResult{}, ErrMissingRefreshToken
	}

	claims, err := s.signer.Verify(refreshToken, token.RefreshKey)
	if err != nil {
		s.log.WithFields(ctx, logger.Fields{
			"action": "refresh_token_invalid",
		}).Warn("refresh token failed: verification")
		incrementRefreshTokensRejected(rejectInvalid)
		return RefreshResult{}, ErrInvalidRefreshToken
	}

	hash := authdomain.HashRefreshToken(refreshToken)

	var stored authdomain.RefreshToken
	err = s.refreshCB.Call(ctx, func(ctx context.Context) error {
		var err error
		stored, err = s.refreshRepo.FindExact(ctx, hash, claims.SubjectID)
		return err
	})
	if err != nil {
		if errors.Is(err, authrepo.ErrRefreshTokenNotFound) {
			return RefreshResult{}, s.rejectUnknown(ctx, claims.SubjectID)
		}
		s.log.WithFields(ctx, logger.Fields{
			"user_id": claims.SubjectID,
			"action":  "refresh_token_lookup_failed",
		}).Errorf("refresh token lookup failed: %v", err)
		return RefreshResult{}, storeError(err)
	}

	if stored.ExpiredAt(s.clock.Now()) {
		return RefreshResult{}, s.rejectExpired(ctx, stored)
	}

	if s.rotator != nil {
		return s.refreshWithRotation(ctx, stored)
	}

	accessToken, _, err := s.signer.IssueAccess(claims.SubjectID)
	if err != nil {
		s.log.WithFields(ctx, logger.Fields{
			"user_id": claims.SubjectID,
			"action":  "refresh_token_issue_failed",
		}).Errorf("refresh token failed to issue access token: %v", err)
		return RefreshResult{}, fmt.Errorf("issue access token: %w", err)
	}

	incrementRefreshTokensUsed()
	s.log.WithFields(ctx, logger.Fields{
		"user_id": claims.SubjectID,
		"action":  "refresh_token_success",
	}).Info("refresh token success")

	return RefreshResult{AccessToken: accessToken}, nil
}

func (s *AuthService) refreshWithRotation(ctx context.Context, stored authdomain.RefreshToken) (RefreshResult, error) {
	rawToken, next, err := s.rotator.Rotate(ctx, stored)
	if err != nil {
		return RefreshResult{}, err
	}

	accessToken, _, err := s.signer.IssueAccess(stored.UserID)
	if err != nil {
		s.log.WithFields(ctx, logger.Fields{
			"user_id": stored.UserID,
			"action":  "refresh_token_issue_failed",
		}).Errorf("refresh token failed to issue access token: %v", err)
		return RefreshResult{}, fmt.Errorf("issue access token: %w", err)
	}

	incrementRefreshTokensUsed()
	s.log.WithFields(ctx, logger.Fields{
		"user_id": stored.UserID,
		"action":  "refresh_token_success",
	}).Info("refresh token success, token rotated")

	return RefreshResult{
		AccessToken:      accessToken,
		RefreshToken:     rawToken,
		RefreshExpiresAt: next.ExpiresAt,
	}, nil
}

func (s *AuthService) rejectUnknown(ctx context.Context, subjectID string) error {
	s.log.WithFields(ctx, logger.Fields{
		"user_id": subjectID,
		"action":  "refresh_token_not_found",
	}).Warn("refresh token failed: not found")
	incrementRefreshTokensRejected(rejectUnknown)

	if s.rotator != nil {
		incrementRefreshTokensRejected(rejectReuse)
		if err := s.rotator.RevokeAll(ctx, subjectID); err != nil {
			return err
		}
	}
	return ErrInvalidRefreshToken
}

func (s *AuthService) rejectExpired(ctx context.Context, stored authdomain.RefreshToken) error {
	s.log.WithFields(ctx, logger.Fields{
		"user_id": stored.UserID,
		"action":  "refresh_token_expired",
	}).Warn("refresh token expired")
	incrementRefreshTokensExpired()
	incrementRefreshTokensRejected(rejectExpired)

	err := s.refreshCB.Call(ctx, func(ctx context.Context) error {
		return s.refreshRepo.DeleteByID(ctx, stored.ID)
	})
	if err != nil {
		s.log.WithFields(ctx, logger.Fields{
			"user_id": stored.UserID,
			"action":  "refresh_token_delete_expired_failed",
		}).Errorf("refresh token failed to delete expired token: %v", err)
		return storeError(err)
	}
	return ErrRefreshTokenExpired
}
