package http

import (
	"errors"
	"net/http"

	"github.com/AlibekovAA/taskflow/backend/internal/auth/service"
	commonerrors "github.com/AlibekovAA/taskflow/backend/internal/common/errors"
	commonhttp "github.com/AlibekovAA/taskflow/backend/internal/common/http"
	"github.com/AlibekovAA/taskflow/backend/internal/common/jwtverify"
	"github.com/AlibekovAA/taskflow/backend/internal/common/logger"
)

type Handler struct {
	auth       *service.AuthService
	cookie     cookiePolicy
	errHandler *commonhttp.ErrorHandler
	log        *logger.Logger
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.auth.Register(r.Context(), service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.cookie.set(w, result.RefreshToken)
	commonhttp.WriteJSON(w, http.StatusCreated, sessionResponse{
		profileResponse: toProfileResponse(result.User),
		AccessToken:     result.AccessToken,
	})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.auth.Login(r.Context(), service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.cookie.set(w, result.RefreshToken)
	commonhttp.WriteJSON(w, http.StatusOK, sessionResponse{
		profileResponse: toProfileResponse(result.User),
		AccessToken:     result.AccessToken,
	})
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	result, err := h.auth.Refresh(r.Context(), refreshTokenFromRequest(r))
	if err != nil {
		if errors.Is(err, service.ErrRefreshTokenExpired) {
			err = service.ErrInvalidRefreshToken.WithCause(err)
		}
		h.writeError(w, r, err)
		return
	}

	if result.Rotated() {
		h.cookie.set(w, result.RefreshToken)
	}
	commonhttp.WriteJSON(w, http.StatusOK, accessTokenResponse{AccessToken: result.AccessToken})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	token := refreshTokenFromRequest(r)
	if token != "" {
		if err := h.auth.Logout(r.Context(), token); err != nil {
			h.log.WithFields(r.Context(), logger.Fields{
				"action": "logout_revoke_failed",
			}).Warnf("logout completed without revoking refresh token: %v", err)
		}
		h.cookie.clear(w)
	}

	commonhttp.WriteJSON(w, http.StatusOK, messageResponse{Message: "Logged out successfully"})
}

func (h *Handler) profile(w http.ResponseWriter, r *http.Request) {
	claims, _ := jwtverify.FromContext(r.Context())

	profile, err := h.auth.Profile(r.Context(), claims.UserID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	commonhttp.WriteJSON(w, http.StatusOK, toProfileResponse(profile))
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	claims, _ := jwtverify.FromContext(r.Context())

	var req updateProfileRequest
	if !h.decode(w, r, &req) {
		return
	}

	profile, err := h.auth.UpdateProfile(r.Context(), claims.UserID, service.UpdateProfileInput{
		Name:  req.Name,
		Email: req.Email,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	commonhttp.WriteJSON(w, http.StatusOK, toProfileResponse(profile))
}

// decode reads and validates the request body. It writes the error response
// itself and reports whether the handler should continue.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	traceID := commonhttp.TraceIDFromContext(r.Context())

	if err := commonhttp.DecodeJSON(r, v); err != nil {
		h.log.WithFields(r.Context(), logger.Fields{
			"path":   r.URL.Path,
			"action": "invalid_json",
		}).Debugf("invalid request body: %v", err)
		commonhttp.WriteErrorEnvelope(w, http.StatusBadRequest, commonhttp.CodeInvalidJSON, "invalid JSON body", nil, traceID)
		return false
	}

	if err := validate.Struct(v); err != nil {
		commonhttp.WriteErrorEnvelope(w, http.StatusBadRequest, commonhttp.CodeValidationFailed, "validation failed", fieldErrors(err), traceID)
		return false
	}

	return true
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, service.ErrValidation) {
		var details map[string]any
		if cause := errors.Unwrap(err); cause != nil {
			details = map[string]any{"reason": cause.Error()}
		}
		commonhttp.WriteErrorEnvelope(w, http.StatusBadRequest, commonhttp.CodeValidationFailed,
			service.ErrValidation.Message(), details, commonhttp.TraceIDFromContext(r.Context()))
		return
	}

	if !commonerrors.IsDomainError(err) {
		err = commonerrors.ErrInternalError.WithCause(err)
	}
	h.errHandler.HandleError(w, r, err)
}
