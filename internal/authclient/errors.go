package authclient

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrReauthRequired means the refresh credential was rejected and the
	// session has been cleared.
	ErrReauthRequired = errors.New("reauthentication required")
	ErrUnauthorized   = errors.New("unauthorized")
)

// APIError is a non-2xx answer from the service, decoded from its error
// envelope.
type APIError struct {
	Status  int
	Code    string
	Message string
	TraceID string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("auth service: status %d", e.Status)
	}
	return fmt.Sprintf("auth service: %s (%d): %s", e.Code, e.Status, e.Message)
}

func (e *APIError) Is(target error) bool {
	return target == ErrUnauthorized && e.Status == http.StatusUnauthorized
}
