// authstub is a local stand-in for the LingerNote auth API. It implements
// just enough of the /auth endpoints for the client to be exercised end to
// end without the production backend: bcrypt-checked demo accounts, printed
// OTPs, HS256 access tokens and rotating refresh tokens, all in memory.
package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/jere1233/LingerNote-F/internal/application/dto"
)

const (
	defaultAddr    = ":3000"
	accessTokenTTL = 15 * time.Minute
	otpTTL         = 10 * time.Minute
)

type account struct {
	User         dto.UserPayload
	PasswordHash []byte
}

type pendingOTP struct {
	Code      string
	ExpiresAt time.Time
	IsSignup  bool
}

type stub struct {
	mu       sync.Mutex
	secret   []byte
	accounts map[string]*account    // keyed by emailOrPhone
	otps     map[string]pendingOTP  // keyed by emailOrPhone
	refresh  map[string]string      // refresh token -> emailOrPhone
	resets   map[string]string      // reset token -> emailOrPhone
}

func main() {
	if err := run(); err != nil {
		log.Fatalf("authstub error: %v", err)
	}
}

func run() error {
	secret := os.Getenv("AUTHSTUB_JWT_SECRET")
	if secret == "" {
		secret = "authstub-dev-secret"
	}

	s := &stub{
		secret:   []byte(secret),
		accounts: make(map[string]*account),
		otps:     make(map[string]pendingOTP),
		refresh:  make(map[string]string),
		resets:   make(map[string]string),
	}
	s.seed()

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(gin.Logger())

	auth := engine.Group("/api/auth")
	{
		auth.POST("/login", s.login)
		auth.POST("/signup", s.signup)
		auth.POST("/verify-otp", s.verifyOTP)
		auth.POST("/resend-otp", s.resendOTP)
		auth.POST("/forgot-password", s.forgotPassword)
		auth.POST("/verify-reset-otp", s.verifyResetOTP)
		auth.POST("/reset-password", s.resetPassword)
		auth.POST("/refresh-token", s.refreshToken)
		auth.POST("/logout", s.logout)
	}

	addr := os.Getenv("AUTHSTUB_ADDR")
	if addr == "" {
		addr = defaultAddr
	}
	log.Printf("authstub listening on %s (demo account: demo@lingernote.com / sup3r-secret)", addr)
	return engine.Run(addr)
}

func (s *stub) seed() {
	hash, _ := bcrypt.GenerateFromPassword([]byte("sup3r-secret"), bcrypt.DefaultCost)
	s.accounts["demo@lingernote.com"] = &account{
		User: dto.UserPayload{
			ID:           uuid.New().String(),
			FullName:     "Demo Listener",
			EmailOrPhone: "demo@lingernote.com",
			IsVerified:   true,
			Status:       "active",
		},
		PasswordHash: hash,
	}
}

func fail(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{"success": false, "code": code, "message": message})
}

func ok(c *gin.Context, message string, data gin.H) {
	c.JSON(http.StatusOK, gin.H{"success": true, "message": message, "data": data})
}

func (s *stub) issueTokens(emailOrPhone, userID string) (gin.H, error) {
	now := time.Now().UTC()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(accessTokenTTL)),
		ID:        uuid.New().String(),
	}
	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, err
	}

	refresh := uuid.New().String()
	s.refresh[refresh] = emailOrPhone

	return gin.H{"accessToken": access, "refreshToken": refresh}, nil
}

func (s *stub) newOTP(emailOrPhone string, isSignup bool) string {
	code := fmt.Sprintf("%06d", time.Now().UnixNano()%1000000)
	s.otps[emailOrPhone] = pendingOTP{
		Code:      code,
		ExpiresAt: time.Now().Add(otpTTL),
		IsSignup:  isSignup,
	}
	log.Printf("OTP for %s: %s", emailOrPhone, code)
	return code
}

func (s *stub) login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "", err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	acct, found := s.accounts[req.EmailOrPhone]
	if !found {
		fail(c, http.StatusNotFound, "ACCOUNT_NOT_FOUND", "no account for that identifier")
		return
	}
	if bcrypt.CompareHashAndPassword(acct.PasswordHash, []byte(req.Password)) != nil {
		fail(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid credentials")
		return
	}
	if acct.User.Status == "suspended" {
		fail(c, http.StatusForbidden, "ACCOUNT_SUSPENDED", "account suspended")
		return
	}
	if !acct.User.IsVerified {
		s.newOTP(req.EmailOrPhone, false)
		ok(c, "verification required", gin.H{
			"user":                 acct.User,
			"requiresVerification": true,
			"verificationType":     "email",
		})
		return
	}

	tokens, err := s.issueTokens(req.EmailOrPhone, acct.User.ID)
	if err != nil {
		fail(c, http.StatusInternalServerError, "", "token signing failed")
		return
	}
	ok(c, "welcome back", gin.H{"user": acct.User, "tokens": tokens})
}

func (s *stub) signup(c *gin.Context) {
	var req dto.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "", err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.accounts[req.EmailOrPhone]; exists {
		fail(c, http.StatusConflict, "", "account already exists")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		fail(c, http.StatusInternalServerError, "", "hashing failed")
		return
	}
	acct := &account{
		User: dto.UserPayload{
			ID:           uuid.New().String(),
			FullName:     req.FullName,
			EmailOrPhone: req.EmailOrPhone,
			IsVerified:   false,
			Status:       "pending",
		},
		PasswordHash: hash,
	}
	s.accounts[req.EmailOrPhone] = acct
	s.newOTP(req.EmailOrPhone, true)

	ok(c, "account created, verification required", gin.H{
		"user":                 acct.User,
		"requiresVerification": true,
		"verificationType":     "email",
	})
}

func (s *stub) verifyOTP(c *gin.Context) {
	var req dto.VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "", err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	acct, found := s.accounts[req.EmailOrPhone]
	if !found {
		fail(c, http.StatusNotFound, "ACCOUNT_NOT_FOUND", "no account for that identifier")
		return
	}
	otp, pending := s.otps[req.EmailOrPhone]
	if !pending || otp.Code != req.OTP {
		fail(c, http.StatusBadRequest, "OTP_INVALID", "invalid verification code")
		return
	}
	if time.Now().After(otp.ExpiresAt) {
		delete(s.otps, req.EmailOrPhone)
		fail(c, http.StatusBadRequest, "OTP_EXPIRED", "verification code expired")
		return
	}
	delete(s.otps, req.EmailOrPhone)

	acct.User.IsVerified = true
	acct.User.Status = "active"

	tokens, err := s.issueTokens(req.EmailOrPhone, acct.User.ID)
	if err != nil {
		fail(c, http.StatusInternalServerError, "", "token signing failed")
		return
	}
	ok(c, "verification successful", gin.H{"user": acct.User, "tokens": tokens})
}

func (s *stub) resendOTP(c *gin.Context) {
	var req dto.ResendOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "", err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, found := s.accounts[req.EmailOrPhone]; !found {
		fail(c, http.StatusNotFound, "ACCOUNT_NOT_FOUND", "no account for that identifier")
		return
	}
	s.newOTP(req.EmailOrPhone, false)
	ok(c, "code sent", gin.H{})
}

func (s *stub) forgotPassword(c *gin.Context) {
	var req dto.ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "", err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, found := s.accounts[req.EmailOrPhone]; !found {
		fail(c, http.StatusNotFound, "ACCOUNT_NOT_FOUND", "no account for that identifier")
		return
	}
	s.newOTP(req.EmailOrPhone, false)
	ok(c, "reset code sent", gin.H{"resetId": uuid.New().String()})
}

func (s *stub) verifyResetOTP(c *gin.Context) {
	var req dto.VerifyResetOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "", err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	otp, pending := s.otps[req.EmailOrPhone]
	if !pending || otp.Code != req.OTP {
		fail(c, http.StatusBadRequest, "OTP_INVALID", "invalid verification code")
		return
	}
	if time.Now().After(otp.ExpiresAt) {
		delete(s.otps, req.EmailOrPhone)
		fail(c, http.StatusBadRequest, "OTP_EXPIRED", "verification code expired")
		return
	}
	delete(s.otps, req.EmailOrPhone)

	token := uuid.New().String()
	s.resets[token] = req.EmailOrPhone
	ok(c, "code accepted", gin.H{"resetToken": token})
}

func (s *stub) resetPassword(c *gin.Context) {
	var req dto.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "", err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	emailOrPhone, found := s.resets[req.ResetToken]
	if !found {
		fail(c, http.StatusBadRequest, "OTP_EXPIRED", "reset token expired")
		return
	}
	delete(s.resets, req.ResetToken)

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		fail(c, http.StatusInternalServerError, "", "hashing failed")
		return
	}
	s.accounts[emailOrPhone].PasswordHash = hash
	ok(c, "password reset", gin.H{})
}

func (s *stub) refreshToken(c *gin.Context) {
	var req dto.RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "", err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	emailOrPhone, found := s.refresh[req.RefreshToken]
	if !found {
		fail(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "refresh token invalid")
		return
	}
	// Rotation: the old refresh token dies with this exchange.
	delete(s.refresh, req.RefreshToken)

	acct := s.accounts[emailOrPhone]
	tokens, err := s.issueTokens(emailOrPhone, acct.User.ID)
	if err != nil {
		fail(c, http.StatusInternalServerError, "", "token signing failed")
		return
	}
	ok(c, "tokens refreshed", gin.H{"tokens": tokens})
}

func (s *stub) logout(c *gin.Context) {
	// Access tokens are stateless here; only refresh tokens are revocable,
	// and the client already rotated or dropped its own. Accept and move on.
	ok(c, "logged out", gin.H{})
}
