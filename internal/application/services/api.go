package services

import (
	"context"

	"github.com/jere1233/LingerNote-F/internal/application/dto"
	"github.com/jere1233/LingerNote-F/internal/domain/session"
)

// AuthResult is the outcome of a credential or OTP exchange with the auth
// API. Tokens are nil whenever the account still needs verification.
type AuthResult struct {
	User                 *session.User
	Tokens               *dto.TokenPayload
	RequiresVerification bool
	VerificationType     string
}

// AuthAPI is the contract for the auth service transport. Implementations
// return the typed errors from pkg/errors; callers never inspect raw HTTP
// status codes.
type AuthAPI interface {
	// Login authenticates with an email-or-phone identifier and password.
	Login(ctx context.Context, emailOrPhone, password string) (*AuthResult, error)

	// Signup registers a new account. The result normally requires
	// verification before any tokens are issued.
	Signup(ctx context.Context, fullName, emailOrPhone, password string) (*AuthResult, error)

	// VerifyOTP confirms a one-time passcode for login or signup.
	VerifyOTP(ctx context.Context, emailOrPhone, otp string, isSignup bool) (*AuthResult, error)

	// ResendOTP requests a fresh passcode.
	ResendOTP(ctx context.Context, emailOrPhone string) error

	// ForgotPassword starts a password reset and returns the reset id.
	ForgotPassword(ctx context.Context, emailOrPhone string) (string, error)

	// VerifyResetOTP confirms a reset passcode and returns the reset token.
	VerifyResetOTP(ctx context.Context, emailOrPhone, otp string) (string, error)

	// ResetPassword completes a password reset.
	ResetPassword(ctx context.Context, resetToken, newPassword string) error

	// RefreshToken exchanges a refresh token for a new token pair.
	RefreshToken(ctx context.Context, refreshToken string) (*dto.TokenPayload, error)

	// Logout revokes the session server-side. Best effort; the caller
	// cleans up locally regardless.
	Logout(ctx context.Context, accessToken string) error
}

// ReplayTransport sends a queued mutating request. The implementation
// attaches the current access token at send time.
type ReplayTransport interface {
	Do(ctx context.Context, method, endpoint string, payload []byte) error
}
