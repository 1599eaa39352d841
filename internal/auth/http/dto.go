package http

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	userdomain "github.com/AlibekovAA/taskflow/backend/internal/user/domain"
)

type registerRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type updateProfileRequest struct {
	Name  *string `json:"name,omitempty" validate:"omitempty,min=1"`
	Email *string `json:"email,omitempty" validate:"omitempty,email"`
}

type profileResponse struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type sessionResponse struct {
	profileResponse
	AccessToken string `json:"accessToken"`
}

type accessTokenResponse struct {
	AccessToken string `json:"accessToken"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type bannerResponse struct {
	Service string `json:"service"`
	Status  string `json:"status"`
}

func toProfileResponse(p userdomain.Profile) profileResponse {
	return profileResponse{
		ID:    string(p.ID),
		Name:  p.Name,
		Email: p.Email,
		Role:  p.Role,
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// fieldErrors flattens validator output into {"field": "tag"} for the
// envelope details.
func fieldErrors(err error) map[string]any {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	details := make(map[string]any, len(verrs))
	for _, fe := range verrs {
		details[strings.ToLower(fe.Field())] = fe.Tag()
	}
	return details
}
