package errors

import (
	"errors"
	"fmt"
)

// Domain errors - these map to specific API responses and session transitions
var (
	// Credential / account errors
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrAccountNotFound      = errors.New("account not found")
	ErrAccountSuspended     = errors.New("account suspended")
	ErrVerificationRequired = errors.New("verification required")

	// OTP errors
	ErrOTPInvalid = errors.New("invalid verification code")
	ErrOTPExpired = errors.New("verification code expired")

	// Token errors
	ErrNoRefreshToken = errors.New("no refresh token available")
	ErrMalformedToken = errors.New("malformed access token")
	ErrRefreshFailed  = errors.New("refresh token exchange failed")

	// Transport errors
	ErrNetworkUnreachable = errors.New("network unreachable")
	ErrTimeout            = errors.New("request timed out")
	ErrRateLimited        = errors.New("too many requests")

	// Storage errors
	ErrStorageUnavailable = errors.New("storage unavailable")

	// General errors
	ErrNotFound           = errors.New("not found")
	ErrSessionExpired     = errors.New("session expired")
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrInternal           = errors.New("internal error")
	ErrInvariantViolation = errors.New("invariant violation")
)

// StatusError is a typed API failure produced at the transport boundary.
// It carries the HTTP status and the server's error code so callers branch
// with errors.Is instead of inspecting raw status codes at each call site.
type StatusError struct {
	Status  int    `json:"status"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
	kind    error
}

// NewStatusError creates a StatusError that unwraps to kind.
func NewStatusError(status int, code, message string, kind error) *StatusError {
	if kind == nil {
		kind = ErrInternal
	}
	return &StatusError{
		Status:  status,
		Code:    code,
		Message: message,
		kind:    kind,
	}
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("api error %d: %s", e.Status, e.kind.Error())
}

// Unwrap exposes the sentinel kind for errors.Is.
func (e *StatusError) Unwrap() error {
	return e.kind
}

// Kind returns the sentinel this error maps to.
func (e *StatusError) Kind() error {
	return e.kind
}

// InvariantViolation reports a programmer error. It always unwraps to
// ErrInvariantViolation and must never be handled as a runtime condition.
func InvariantViolation(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvariantViolation, fmt.Sprintf(format, args...))
}

// Is wraps errors.Is for convenience.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
