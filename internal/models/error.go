package models

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// Account state errors
	ErrAccountDisabled  = errors.New("account is deactivated")
	ErrOAuthOnlyAccount = errors.New("account has no password")

	// Login errors
	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrLoginLocked          = errors.New("too many failed login attempts")
	ErrRegistrationDisabled = errors.New("registration is disabled")
	ErrEmailTaken           = errors.New("email already registered")
	ErrUsernameTaken        = errors.New("username already taken")
)

// LockoutError reports that the client address is locked out of password login
type LockoutError struct {
	RetryAfter time.Duration
}

func (e *LockoutError) Error() string {
	return fmt.Sprintf("%s: retry after %s", ErrLoginLocked, e.RetryAfter)
}

func (e *LockoutError) Unwrap() error {
	return ErrLoginLocked
}

// CredentialsError reports a failed password check and how many attempts the client has left
type CredentialsError struct {
	RemainingAttempts int
}

func (e *CredentialsError) Error() string {
	return fmt.Sprintf("%s: %d attempts remaining", ErrInvalidCredentials, e.RemainingAttempts)
}

func (e *CredentialsError) Unwrap() error {
	return ErrInvalidCredentials
}
