package jwtverify

import (
	"context"
	"net/http"
	"strings"

	commonerrors "github.com/AlibekovAA/taskflow/backend/internal/common/errors"
	commonhttp "github.com/AlibekovAA/taskflow/backend/internal/common/http"
	"github.com/AlibekovAA/taskflow/backend/internal/common/logger"
)

type Claims struct {
	UserID string
}

// Verifier checks an access token and returns its subject.
type Verifier interface {
	VerifyAccess(token string) (string, error)
}

type contextKey string

const claimsKey contextKey = "jwt_claims"

const bearerPrefix = "Bearer "

func Middleware(verifier Verifier, log *logger.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			traceID := commonhttp.TraceIDFromContext(r.Context())

			tokenString, ok := BearerToken(r)
			if !ok {
				log.WithFields(r.Context(), logger.Fields{
					"path":   r.URL.Path,
					"action": "jwt_missing",
				}).Debug("jwt auth failed: missing or invalid authorization header")
				commonhttp.WriteErrorEnvelope(w, http.StatusUnauthorized, commonhttp.CodeMissingAuthorization,
					commonerrors.ErrMissingAuthorization.Message(), nil, traceID)
				return
			}

			subject, err := verifier.VerifyAccess(tokenString)
			if err != nil {
				log.WithFields(r.Context(), logger.Fields{
					"path":   r.URL.Path,
					"action": "jwt_invalid",
				}).Debugf("jwt auth failed: %v", err)
				commonhttp.WriteErrorEnvelope(w, http.StatusUnauthorized, commonhttp.CodeInvalidToken,
					commonerrors.ErrInvalidToken.Message(), nil, traceID)
				return
			}

			ctx := WithClaims(r.Context(), Claims{UserID: subject})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func BearerToken(r *http.Request) (string, bool) {
	raw := r.Header.Get("Authorization")
	if !strings.HasPrefix(raw, bearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(raw, bearerPrefix))
	return token, token != ""
}

func WithClaims(ctx context.Context, claims Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

func FromContext(ctx context.Context) (Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(Claims)
	return claims, ok
}
