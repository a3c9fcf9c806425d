package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/jere1233/LingerNote-F/config"
	"github.com/jere1233/LingerNote-F/internal/application/dto"
	"github.com/jere1233/LingerNote-F/internal/application/services"
	"github.com/jere1233/LingerNote-F/internal/domain/session"
	apperrors "github.com/jere1233/LingerNote-F/pkg/errors"
	"github.com/jere1233/LingerNote-F/pkg/logger"
)

// Auth API endpoints.
const (
	loginPath          = "/auth/login"
	signupPath         = "/auth/signup"
	logoutPath         = "/auth/logout"
	refreshTokenPath   = "/auth/refresh-token"
	verifyOTPPath      = "/auth/verify-otp"
	resendOTPPath      = "/auth/resend-otp"
	forgotPasswordPath = "/auth/forgot-password"
	verifyResetOTPPath = "/auth/verify-reset-otp"
	resetPasswordPath  = "/auth/reset-password"
)

// Client is the HTTP transport to the auth API. Every call is bounded by
// the configured request timeout and every failure comes back as one of the
// typed errors from pkg/errors; status codes never leak past this layer.
type Client struct {
	baseURL string
	timeout time.Duration
	http    *http.Client
	log     logger.Logger
}

var _ services.AuthAPI = (*Client)(nil)

// NewClient creates an auth API client.
func NewClient(cfg config.APIConfig, log logger.Logger) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		timeout: cfg.RequestTimeout,
		http:    &http.Client{},
		log:     log.With(logger.Component("auth_transport")),
	}
}

// authEnvelope is the full response body for login/signup/verify-otp.
// requiresOTP is the legacy spelling of requiresVerification; it is folded
// into the canonical flag here and nowhere else.
type authEnvelope struct {
	dto.Envelope
	Data struct {
		dto.AuthPayload
		RequiresOTP bool `json:"requiresOTP,omitempty"`
	} `json:"data"`
}

// Login implements services.AuthAPI.
func (c *Client) Login(ctx context.Context, emailOrPhone, password string) (*services.AuthResult, error) {
	var out authEnvelope
	err := c.post(ctx, loginPath, dto.LoginRequest{
		EmailOrPhone: emailOrPhone,
		Password:     password,
	}, "", &out)
	if err != nil {
		return nil, err
	}
	return c.toAuthResult(&out)
}

// Signup implements services.AuthAPI.
func (c *Client) Signup(ctx context.Context, fullName, emailOrPhone, password string) (*services.AuthResult, error) {
	var out authEnvelope
	err := c.post(ctx, signupPath, dto.SignupRequest{
		FullName:     fullName,
		EmailOrPhone: emailOrPhone,
		Password:     password,
	}, "", &out)
	if err != nil {
		return nil, err
	}
	return c.toAuthResult(&out)
}

// VerifyOTP implements services.AuthAPI.
func (c *Client) VerifyOTP(ctx context.Context, emailOrPhone, otp string, isSignup bool) (*services.AuthResult, error) {
	var out authEnvelope
	err := c.post(ctx, verifyOTPPath, dto.VerifyOTPRequest{
		EmailOrPhone: emailOrPhone,
		OTP:          otp,
		IsSignup:     isSignup,
	}, "", &out)
	if err != nil {
		return nil, err
	}
	return c.toAuthResult(&out)
}

// ResendOTP implements services.AuthAPI.
func (c *Client) ResendOTP(ctx context.Context, emailOrPhone string) error {
	return c.post(ctx, resendOTPPath, dto.ResendOTPRequest{EmailOrPhone: emailOrPhone}, "", nil)
}

// ForgotPassword implements services.AuthAPI.
func (c *Client) ForgotPassword(ctx context.Context, emailOrPhone string) (string, error) {
	var out struct {
		dto.Envelope
		Data dto.ForgotPasswordPayload `json:"data"`
	}
	err := c.post(ctx, forgotPasswordPath, dto.ForgotPasswordRequest{EmailOrPhone: emailOrPhone}, "", &out)
	if err != nil {
		return "", err
	}
	return out.Data.ResetID, nil
}

// VerifyResetOTP implements services.AuthAPI.
func (c *Client) VerifyResetOTP(ctx context.Context, emailOrPhone, otp string) (string, error) {
	var out struct {
		dto.Envelope
		Data dto.ResetTokenPayload `json:"data"`
	}
	err := c.post(ctx, verifyResetOTPPath, dto.VerifyResetOTPRequest{
		EmailOrPhone: emailOrPhone,
		OTP:          otp,
	}, "", &out)
	if err != nil {
		return "", err
	}
	return out.Data.ResetToken, nil
}

// ResetPassword implements services.AuthAPI.
func (c *Client) ResetPassword(ctx context.Context, resetToken, newPassword string) error {
	return c.post(ctx, resetPasswordPath, dto.ResetPasswordRequest{
		ResetToken:  resetToken,
		NewPassword: newPassword,
	}, "", nil)
}

// RefreshToken implements services.AuthAPI.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*dto.TokenPayload, error) {
	var out struct {
		dto.Envelope
		Data dto.RefreshPayload `json:"data"`
	}
	err := c.post(ctx, refreshTokenPath, dto.RefreshTokenRequest{RefreshToken: refreshToken}, "", &out)
	if err != nil {
		return nil, err
	}
	if out.Data.Tokens == nil {
		return nil, apperrors.Wrap(apperrors.ErrRefreshFailed, "refresh response missing tokens")
	}
	return out.Data.Tokens, nil
}

// Logout implements services.AuthAPI.
func (c *Client) Logout(ctx context.Context, accessToken string) error {
	return c.post(ctx, logoutPath, struct{}{}, accessToken, nil)
}

func (c *Client) toAuthResult(env *authEnvelope) (*services.AuthResult, error) {
	if env.Data.User == nil {
		return nil, apperrors.Wrap(apperrors.ErrInternal, "auth response missing user")
	}
	return &services.AuthResult{
		User:                 toUser(env.Data.User),
		Tokens:               env.Data.Tokens,
		RequiresVerification: env.Data.RequiresVerification || env.Data.RequiresOTP,
		VerificationType:     env.Data.VerificationType,
	}, nil
}

func toUser(p *dto.UserPayload) *session.User {
	return &session.User{
		ID:           p.ID,
		FullName:     p.FullName,
		EmailOrPhone: p.EmailOrPhone,
		AvatarURL:    p.Avatar,
		Verified:     p.IsVerified,
		Status:       session.AccountStatus(p.Status),
	}
}

// post sends a JSON request and decodes the response into out (if non-nil).
func (c *Client) post(ctx context.Context, path string, body interface{}, accessToken string, out interface{}) error {
	return c.do(ctx, http.MethodPost, path, body, accessToken, out)
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}, accessToken string, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return apperrors.Wrap(err, "encode request")
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return apperrors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return c.transportError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperrors.Wrap(err, "read response")
	}

	if resp.StatusCode >= 400 {
		return c.statusError(resp.StatusCode, data)
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return apperrors.Wrap(err, "decode response")
		}
	}
	return nil
}

func (c *Client) transportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.Wrap(apperrors.ErrTimeout, err.Error())
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return apperrors.Wrap(apperrors.ErrTimeout, err.Error())
	}
	return apperrors.Wrap(apperrors.ErrNetworkUnreachable, err.Error())
}

// statusError turns an HTTP failure into a typed error. The server's error
// code wins; the raw status code is only a fallback.
func (c *Client) statusError(status int, body []byte) error {
	var env dto.Envelope
	_ = json.Unmarshal(body, &env)

	kind := kindForCode(env.Code)
	if kind == nil {
		kind = kindForStatus(status)
	}
	return apperrors.NewStatusError(status, env.Code, env.Message, kind)
}

func kindForCode(code string) error {
	switch code {
	case "INVALID_CREDENTIALS":
		return apperrors.ErrInvalidCredentials
	case "ACCOUNT_NOT_FOUND":
		return apperrors.ErrAccountNotFound
	case "ACCOUNT_SUSPENDED":
		return apperrors.ErrAccountSuspended
	case "VERIFICATION_REQUIRED":
		return apperrors.ErrVerificationRequired
	case "OTP_INVALID":
		return apperrors.ErrOTPInvalid
	case "OTP_EXPIRED":
		return apperrors.ErrOTPExpired
	case "RATE_LIMITED":
		return apperrors.ErrRateLimited
	default:
		return nil
	}
}

func kindForStatus(status int) error {
	switch status {
	case http.StatusUnauthorized:
		return apperrors.ErrNotAuthenticated
	case http.StatusForbidden:
		return apperrors.ErrVerificationRequired
	case http.StatusNotFound:
		return apperrors.ErrAccountNotFound
	case http.StatusRequestTimeout:
		return apperrors.ErrTimeout
	case http.StatusTooManyRequests:
		return apperrors.ErrRateLimited
	default:
		return apperrors.ErrInternal
	}
}
