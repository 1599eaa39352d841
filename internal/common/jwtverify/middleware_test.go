package jwtverify

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	commonhttp "github.com/AlibekovAA/taskflow/backend/internal/common/http"
	"github.com/AlibekovAA/taskflow/backend/internal/common/logger"
)

type verifierFunc func(string) (string, error)

func (f verifierFunc) VerifyAccess(token string) (string, error) { return f(token) }

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	log, _ := logger.New("", "test", "info")

	verifier := verifierFunc(func(token string) (string, error) {
		if token == "good" {
			return "user-1", nil
		}
		return "", errors.New("invalid token")
	})

	return Middleware(verifier, log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := FromContext(r.Context())
		if !ok {
			t.Error("expected claims in context")
		}
		_, _ = w.Write([]byte(claims.UserID))
	}))
}

func TestMiddleware(t *testing.T) {
	handler := newTestHandler(t)

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantCode   string
		wantBody   string
	}{
		{name: "valid", header: "Bearer good", wantStatus: http.StatusOK, wantBody: "user-1"},
		{name: "missing header", header: "", wantStatus: http.StatusUnauthorized, wantCode: commonhttp.CodeMissingAuthorization},
		{name: "wrong scheme", header: "Basic good", wantStatus: http.StatusUnauthorized, wantCode: commonhttp.CodeMissingAuthorization},
		{name: "empty bearer", header: "Bearer ", wantStatus: http.StatusUnauthorized, wantCode: commonhttp.CodeMissingAuthorization},
		{name: "invalid token", header: "Bearer bad", wantStatus: http.StatusUnauthorized, wantCode: commonhttp.CodeInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/auth/profile", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			if tt.wantCode != "" {
				var env commonhttp.ErrorEnvelope
				if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
					t.Fatalf("decode envelope: %v", err)
				}
				if env.Code != tt.wantCode {
					t.Errorf("expected code %s, got %s", tt.wantCode, env.Code)
				}
			} else if rec.Body.String() != tt.wantBody {
				t.Errorf("expected body %q, got %q", tt.wantBody, rec.Body.String())
			}
		})
	}
}
