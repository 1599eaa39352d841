package service

import (
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/AlibekovAA/taskflow/backend/internal/common/constants"
)

var (
	errNameLength     = errors.New("name must be between 2 and 64 characters")
	errEmailFormat    = errors.New("email must be a valid address")
	errPasswordLength = errors.New("password must be between 6 and 72 bytes")
	errEmptyUpdate    = errors.New("at least one field must be provided")
)

var validate = validator.New(validator.WithRequiredStructEnabled())

func validateName(name string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(name))
	if n < constants.NameMinLength || n > constants.NameMaxLength {
		return errNameLength
	}
	return nil
}

func validateEmail(email string) error {
	if len(email) > constants.EmailMaxLength {
		return errEmailFormat
	}
	if err := validate.Var(email, "required,email"); err != nil {
		return errEmailFormat
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < constants.PasswordMinLength || len(password) > constants.PasswordMaxLength {
		return errPasswordLength
	}
	return nil
}

func validateRegistration(input RegisterInput) error {
	if err := validateName(input.Name); err != nil {
		return err
	}
	if err := validateEmail(input.Email); err != nil {
		return err
	}
	return validatePassword(input.Password)
}

func validateProfileUpdate(input UpdateProfileInput) error {
	if input.Name == nil && input.Email == nil {
		return errEmptyUpdate
	}
	if input.Name != nil {
		if err := validateName(*input.Name); err != nil {
			return err
		}
	}
	if input.Email != nil {
		if err := validateEmail(*input.Email); err != nil {
			return err
		}
	}
	return nil
}
