package service

import (
	"context"

	authdomain "github.com/AlibekovAA/taskflow/backend/internal/auth/domain"
	"github.com/AlibekovAA/taskflow/backend/internal/common/logger"
)

// Logout deletes the record for refreshToken. It never inspects the token
// itself, so malformed or already-revoked tokens are accepted silently.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}

	err := s.refreshCB.Call(ctx, func(ctx context.Context) error {
		return s.refreshRepo.DeleteByToken(ctx, authdomain.HashRefreshToken(refreshToken))
	})
	if err != nil {
		s.log.WithFields(ctx, logger.Fields{
			"action": "revoke_refresh_token_failed",
		}).Errorf("revoke refresh token failed: %v", err)
		return storeError(err)
	}

	incrementRefreshTokensRevoked()
	s.log.WithFields(ctx, logger.Fields{
		"action": "refresh_token_revoked",
	}).Info("refresh token revoked")
	return nil
}
