package service

import (
	"context"
	"errors"

	authrepo "github.com/AlibekovAA/taskflow/backend/internal/auth/repository"
	commonerrors "github.com/AlibekovAA/taskflow/backend/internal/common/errors"
	userrepo "github.com/AlibekovAA/taskflow/backend/internal/user/repository"
)

// storeError converts a storage failure into a persistence domain error.
// Timeouts and an open breaker mean the store is unreachable.
func storeError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, commonerrors.ErrCircuitOpen) || errors.Is(err, context.DeadlineExceeded) {
		return ErrStoreUnavailable.WithCause(err)
	}
	return ErrPersistence.WithCause(err)
}

// isStoreFailure reports whether err should count against a store breaker.
// Lookups that miss and constraint violations are normal outcomes.
func isStoreFailure(err error) bool {
	if err == nil {
		return false
	}
	switch {
	case errors.Is(err, authrepo.ErrRefreshTokenNotFound),
		errors.Is(err, userrepo.ErrUserNotFound),
		errors.Is(err, userrepo.ErrEmailAlreadyExists),
		errors.Is(err, context.Canceled):
		return false
	}
	return true
}
