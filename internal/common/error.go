// Package common defines shared constants and sentinel errors used across
// client and server layers of GophChat. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors.
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorForbidden    = errors.New("forbidden")
	ErrorValidation   = errors.New("validation error")
	ErrorUnavailable  = errors.New("service unavailable")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")

	// Token lifecycle errors.
	ErrTokenExpired        = errors.New("token expired")
	ErrRefreshTokenExpired = errors.New("refresh token expired")
)

// UserError pairs one of the sentinel classes above with a message that is
// safe to show to API callers.
type UserError struct {
	Class   error
	Message string
}

// NewUserError returns a UserError of the given class.
func NewUserError(class error, message string) *UserError {
	return &UserError{Class: class, Message: message}
}

func (e *UserError) Error() string { return e.Message }

func (e *UserError) Unwrap() error { return e.Class }

// PublicMessage returns the caller-facing text of err if it carries one.
func PublicMessage(err error) (string, bool) {
	var ue *UserError
	if errors.As(err, &ue) {
		return ue.Message, true
	}
	return "", false
}
