package domain

import "errors"

var (
	ErrValidation         = errors.New("validation failed")
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrMissingToken       = errors.New("missing token")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrUserNotFound       = errors.New("user not found")
	ErrCorruptCredential  = errors.New("stored credential is corrupt")

	// Token decode failures. These never reach callers directly; the
	// session service wraps them in an UnauthorizedError.
	ErrInvalidSignature = errors.New("invalid token signature")
	ErrTokenExpired     = errors.New("token expired")
)

// UnauthorizedError reports a rejected token. Its message is always the
// generic "unauthorized" so callers cannot tell an expired token from a
// forged one, while errors.Is still matches the underlying cause.
type UnauthorizedError struct {
	Cause error
}

func (e *UnauthorizedError) Error() string {
	return ErrUnauthorized.Error()
}

func (e *UnauthorizedError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrUnauthorized}
	}
	return []error{ErrUnauthorized, e.Cause}
}

// Unauthorized wraps cause as an UnauthorizedError.
func Unauthorized(cause error) error {
	return &UnauthorizedError{Cause: cause}
}
