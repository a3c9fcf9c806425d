package dto

// Wire DTOs for the LingerNote auth API. The server wraps every response in
// a success/message/data envelope; the transport unwraps it and hands these
// to the services.

// LoginRequest is the body for POST /auth/login.
type LoginRequest struct {
	EmailOrPhone string `json:"emailOrPhone" binding:"required"`
	Password     string `json:"password" binding:"required"`
}

// SignupRequest is the body for POST /auth/signup.
type SignupRequest struct {
	FullName     string `json:"fullName" binding:"required"`
	EmailOrPhone string `json:"emailOrPhone" binding:"required"`
	Password     string `json:"password" binding:"required,min=8"`
}

// VerifyOTPRequest is the body for POST /auth/verify-otp.
type VerifyOTPRequest struct {
	EmailOrPhone string `json:"emailOrPhone" binding:"required"`
	OTP          string `json:"otp" binding:"required"`
	IsSignup     bool   `json:"isSignup"`
}

// ResendOTPRequest is the body for POST /auth/resend-otp.
type ResendOTPRequest struct {
	EmailOrPhone string `json:"emailOrPhone" binding:"required"`
}

// ForgotPasswordRequest is the body for POST /auth/forgot-password.
type ForgotPasswordRequest struct {
	EmailOrPhone string `json:"emailOrPhone" binding:"required"`
}

// VerifyResetOTPRequest is the body for POST /auth/verify-reset-otp.
type VerifyResetOTPRequest struct {
	EmailOrPhone string `json:"emailOrPhone" binding:"required"`
	OTP          string `json:"otp" binding:"required"`
}

// ResetPasswordRequest is the body for POST /auth/reset-password.
type ResetPasswordRequest struct {
	ResetToken  string `json:"resetToken" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required,min=8"`
}

// RefreshTokenRequest is the body for POST /auth/refresh-token.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// UserPayload is the user record as the API serializes it.
type UserPayload struct {
	ID           string `json:"id"`
	FullName     string `json:"fullName"`
	EmailOrPhone string `json:"emailOrPhone"`
	Avatar       string `json:"avatar,omitempty"`
	IsVerified   bool   `json:"isVerified"`
	Status       string `json:"status"`
}

// TokenPayload is the token pair as the API serializes it.
type TokenPayload struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// AuthPayload is the data section shared by login, signup and verify-otp
// responses. Tokens are absent whenever verification is still required.
// RequiresVerification is the canonical flag; the transport folds the legacy
// requiresOTP spelling into it.
type AuthPayload struct {
	User                 *UserPayload  `json:"user"`
	Tokens               *TokenPayload `json:"tokens,omitempty"`
	RequiresVerification bool          `json:"requiresVerification,omitempty"`
	VerificationType     string        `json:"verificationType,omitempty"`
}

// ForgotPasswordPayload is the data section of a forgot-password response.
type ForgotPasswordPayload struct {
	ResetID string `json:"resetId"`
}

// ResetTokenPayload is the data section of a verify-reset-otp response.
type ResetTokenPayload struct {
	ResetToken string `json:"resetToken"`
}

// RefreshPayload is the data section of a refresh-token response.
type RefreshPayload struct {
	Tokens *TokenPayload `json:"tokens"`
}

// Envelope is the common response wrapper used by every auth endpoint.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
}
