package errors

import (
	"errors"
	"fmt"
)

var (
	// Generic errors.
	ErrInternal       = errors.New("internal server error")
	ErrInvalidRequest = errors.New("invalid request")
	ErrNotFound       = errors.New("resource not found")
	ErrForbidden      = errors.New("forbidden")
	ErrUnauthorized   = errors.New("unauthorized")

	// Authentication errors. These stay deliberately generic so the API
	// never acts as a user-existence or token-state oracle.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNoToken            = errors.New("no authentication token provided")
	ErrInvalidToken       = errors.New("invalid token")
	ErrInvalidSession     = errors.New("invalid session")
	ErrTokenReuse         = errors.New("refresh token reuse detected")

	// User errors.
	ErrUserNotFound     = errors.New("user not found")
	ErrDuplicateEmail   = errors.New("email already in use")
	ErrDuplicatePhone   = errors.New("phone number already in use")
	ErrUserDisabled     = errors.New("user account is disabled")
	ErrEmailNotVerified = errors.New("email address is not verified")
	ErrPasswordReuse    = errors.New("new password must differ from the current password")

	// MFA errors.
	ErrMFAAlreadyEnabled = errors.New("multi-factor authentication is already enabled")
	ErrMFANotEnabled     = errors.New("multi-factor authentication is not enabled")
	ErrInvalidCode       = errors.New("invalid verification code")
	ErrInvalidChallenge  = errors.New("invalid or consumed challenge")
	ErrChallengeExpired  = errors.New("challenge has expired")

	// Device trust errors.
	ErrDeviceNotFound = errors.New("trusted device not found")
)

// AppError carries an HTTP status and a stable API error code alongside the
// wrapped cause.
type AppError struct {
	Err        error
	Message    string
	StatusCode int
	Code       string
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewAppError(err error, message string, statusCode int, code string) *AppError {
	return &AppError{Err: err, Message: message, StatusCode: statusCode, Code: code}
}

// IsUnauthorized reports whether err should map to a 401.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrInvalidCredentials) ||
		errors.Is(err, ErrNoToken) ||
		errors.Is(err, ErrInvalidToken) ||
		errors.Is(err, ErrInvalidSession) ||
		errors.Is(err, ErrTokenReuse)
}

// IsConflict reports whether err should map to a 409. Conflicts are safe to
// surface verbatim: the caller already supplied the conflicting value.
func IsConflict(err error) bool {
	return errors.Is(err, ErrDuplicateEmail) ||
		errors.Is(err, ErrDuplicatePhone) ||
		errors.Is(err, ErrMFAAlreadyEnabled)
}

// IsNotFound reports whether err should map to a 404.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrDeviceNotFound)
}

// IsStateViolation reports whether err is a business-rule violation that is
// safe to surface with its specific code (422).
func IsStateViolation(err error) bool {
	return errors.Is(err, ErrMFANotEnabled) ||
		errors.Is(err, ErrInvalidChallenge) ||
		errors.Is(err, ErrChallengeExpired) ||
		errors.Is(err, ErrPasswordReuse) ||
		errors.Is(err, ErrUserDisabled) ||
		errors.Is(err, ErrEmailNotVerified) ||
		errors.Is(err, ErrInvalidCode)
}

// Code returns the stable API code for err, used in HTTP error payloads.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrDuplicateEmail):
		return "ER_DUP_EMAIL"
	case errors.Is(err, ErrDuplicatePhone):
		return "ER_DUP_PHONE"
	case errors.Is(err, ErrInvalidCredentials):
		return "INVALID_CREDENTIALS"
	case errors.Is(err, ErrNoToken):
		return "NO_TOKEN"
	case errors.Is(err, ErrTokenReuse):
		return "TOKEN_REUSE"
	case errors.Is(err, ErrInvalidSession), errors.Is(err, ErrInvalidToken):
		return "INVALID_SESSION"
	case errors.Is(err, ErrUserDisabled):
		return "ACCOUNT_DISABLED"
	case errors.Is(err, ErrEmailNotVerified):
		return "EMAIL_NOT_VERIFIED"
	case errors.Is(err, ErrPasswordReuse):
		return "PASSWORD_REUSE"
	case errors.Is(err, ErrMFAAlreadyEnabled):
		return "MFA_ALREADY_ENABLED"
	case errors.Is(err, ErrMFANotEnabled):
		return "MFA_NOT_ENABLED"
	case errors.Is(err, ErrInvalidCode):
		return "INVALID_CODE"
	case errors.Is(err, ErrInvalidChallenge):
		return "INVALID_CHALLENGE"
	case errors.Is(err, ErrChallengeExpired):
		return "CHALLENGE_EXPIRED"
	case errors.Is(err, ErrForbidden):
		return "FORBIDDEN"
	case IsNotFound(err):
		return "NOT_FOUND"
	case errors.Is(err, ErrInvalidRequest):
		return "INVALID_REQUEST"
	default:
		return "INTERNAL"
	}
}
