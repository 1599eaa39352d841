package service

import (
	"context"
	"errors"

	authdomain "github.com/AlibekovAA/taskflow/backend/internal/auth/domain"
	authrepo "github.com/AlibekovAA/taskflow/backend/internal/auth/repository"
	commonerrors "github.com/AlibekovAA/taskflow/backend/internal/common/errors"
	"github.com/AlibekovAA/taskflow/backend/internal/common/logger"
	"github.com/AlibekovAA/taskflow/backend/internal/common/resilience"
)

// RefreshTokenRotator replaces a refresh token on every use. A token that
// verifies but has no record was already rotated or revoked, so presenting
// it again revokes every session of its subject.
type RefreshTokenRotator struct {
	refreshTokenRepo authrepo.RefreshTokenRepository
	dbCircuitBreaker resilience.CircuitBreakerInterface
	minter           refreshMinter
	log              *logger.Logger
}

func NewRefreshTokenRotator(
	refreshTokenRepo authrepo.RefreshTokenRepository,
	dbCircuitBreaker resilience.CircuitBreakerInterface,
	minter refreshMinter,
	log *logger.Logger,
) *RefreshTokenRotator {
	return &RefreshTokenRotator{
		refreshTokenRepo: refreshTokenRepo,
		dbCircuitBreaker: dbCircuitBreaker,
		minter:           minter,
		log:              log,
	}
}

// Rotate swaps stored for a freshly minted record and returns the new raw
// token. Losing a race against another rotation yields ErrInvalidRefreshToken.
func (rtr *RefreshTokenRotator) Rotate(ctx context.Context, stored authdomain.RefreshToken) (string, authdomain.RefreshToken, error) {
	rawToken, next, err := rtr.minter.mint(stored.UserID)
	if err != nil {
		return "", authdomain.RefreshToken{}, err
	}

	err = rtr.dbCircuitBreaker.Call(ctx, func(ctx context.Context) error {
		return rtr.refreshTokenRepo.Rotate(ctx, stored.TokenHash, next)
	})
	if err != nil {
		if errors.Is(err, authrepo.ErrRefreshTokenNotFound) {
			rtr.log.WithFields(ctx, logger.Fields{
				"user_id": stored.UserID,
				"action":  "refresh_token_rotation_conflict",
			}).Warn("refresh token rotation lost a concurrent race")
			incrementRefreshTokensRejected(rejectRotation)
			return "", authdomain.RefreshToken{}, ErrInvalidRefreshToken
		}
		if errors.Is(err, commonerrors.ErrCircuitOpen) {
			rtr.log.WithFields(ctx, logger.Fields{
				"user_id": stored.UserID,
				"action":  "refresh_token_rotate_db_circuit_open",
			}).Error("failed to rotate refresh token: database circuit breaker is open")
		} else {
			rtr.log.WithFields(ctx, logger.Fields{
				"user_id": stored.UserID,
				"action":  "refresh_token_rotate_failed",
			}).Errorf("failed to rotate refresh token: %v", err)
		}
		return "", authdomain.RefreshToken{}, storeError(err)
	}

	incrementRefreshTokensRotated()
	return rawToken, next, nil
}

// RevokeAll handles a replayed token by deleting all records of userID.
func (rtr *RefreshTokenRotator) RevokeAll(ctx context.Context, userID string) error {
	var removed int64
	err := rtr.dbCircuitBreaker.Call(ctx, func(ctx context.Context) error {
		var err error
		removed, err = rtr.refreshTokenRepo.DeleteByUserID(ctx, userID)
		return err
	})
	if err != nil {
		rtr.log.WithFields(ctx, logger.Fields{
			"user_id": userID,
			"action":  "refresh_token_reuse_revoke_failed",
		}).Errorf("failed to revoke sessions after refresh token reuse: %v", err)
		return storeError(err)
	}

	incrementRefreshTokenReuseDetected()
	rtr.log.WithFields(ctx, logger.Fields{
		"user_id": userID,
		"revoked": removed,
		"action":  "refresh_token_reuse_detected",
	}).Warn("refresh token reuse detected, all sessions revoked")
	return nil
}
