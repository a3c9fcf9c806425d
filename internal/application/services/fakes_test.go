package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jere1233/LingerNote-F/config"
	"github.com/jere1233/LingerNote-F/internal/application/dto"
	"github.com/jere1233/LingerNote-F/internal/domain/session"
	apperrors "github.com/jere1233/LingerNote-F/pkg/errors"
)

// memStore is an in-memory session.Store for tests.
type memStore struct {
	mu           sync.Mutex
	data         map[session.Key]string
	setManyCalls int
	failSetMany  error
	failGet      error
}

func newMemStore() *memStore {
	return &memStore{data: make(map[session.Key]string)}
}

func (m *memStore) Get(_ context.Context, key session.Key) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failGet != nil {
		return "", m.failGet
	}
	v, ok := m.data[key]
	if !ok {
		return "", apperrors.ErrNotFound
	}
	return v, nil
}

func (m *memStore) Set(_ context.Context, key session.Key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memStore) SetMany(_ context.Context, values map[session.Key]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setManyCalls++
	if m.failSetMany != nil {
		return m.failSetMany
	}
	for k, v := range values {
		m.data[k] = v
	}
	return nil
}

func (m *memStore) Remove(_ context.Context, keys ...session.Key) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *memStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = make(map[session.Key]string)
	return nil
}

func (m *memStore) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

func (m *memStore) get(key session.Key) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[key]
}

func (m *memStore) put(key session.Key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
}

// fakeAPI is a scripted AuthAPI. Unset handlers fail loudly so a test only
// exercises the calls it scripts.
type fakeAPI struct {
	loginFn   func(ctx context.Context, emailOrPhone, password string) (*AuthResult, error)
	signupFn  func(ctx context.Context, fullName, emailOrPhone, password string) (*AuthResult, error)
	verifyFn  func(ctx context.Context, emailOrPhone, otp string, isSignup bool) (*AuthResult, error)
	refreshFn func(ctx context.Context, refreshToken string) (*dto.TokenPayload, error)
	logoutFn  func(ctx context.Context, accessToken string) error

	refreshCalls atomic.Int32
	logoutCalls  atomic.Int32
}

func (f *fakeAPI) Login(ctx context.Context, emailOrPhone, password string) (*AuthResult, error) {
	if f.loginFn == nil {
		return nil, fmt.Errorf("unexpected Login call")
	}
	return f.loginFn(ctx, emailOrPhone, password)
}

func (f *fakeAPI) Signup(ctx context.Context, fullName, emailOrPhone, password string) (*AuthResult, error) {
	if f.signupFn == nil {
		return nil, fmt.Errorf("unexpected Signup call")
	}
	return f.signupFn(ctx, fullName, emailOrPhone, password)
}

func (f *fakeAPI) VerifyOTP(ctx context.Context, emailOrPhone, otp string, isSignup bool) (*AuthResult, error) {
	if f.verifyFn == nil {
		return nil, fmt.Errorf("unexpected VerifyOTP call")
	}
	return f.verifyFn(ctx, emailOrPhone, otp, isSignup)
}

func (f *fakeAPI) ResendOTP(context.Context, string) error {
	return nil
}

func (f *fakeAPI) ForgotPassword(context.Context, string) (string, error) {
	return "reset-id", nil
}

func (f *fakeAPI) VerifyResetOTP(context.Context, string, string) (string, error) {
	return "reset-token", nil
}

func (f *fakeAPI) ResetPassword(context.Context, string, string) error {
	return nil
}

func (f *fakeAPI) RefreshToken(ctx context.Context, refreshToken string) (*dto.TokenPayload, error) {
	f.refreshCalls.Add(1)
	if f.refreshFn == nil {
		return nil, fmt.Errorf("unexpected RefreshToken call")
	}
	return f.refreshFn(ctx, refreshToken)
}

func (f *fakeAPI) Logout(ctx context.Context, accessToken string) error {
	f.logoutCalls.Add(1)
	if f.logoutFn == nil {
		return nil
	}
	return f.logoutFn(ctx, accessToken)
}

// testToken builds an unsigned JWT expiring at exp. The client never checks
// signatures, so an empty signature part is enough.
func testToken(exp time.Time) string {
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"none","typ":"JWT"}`))
	claims, _ := json.Marshal(map[string]interface{}{
		"sub": "user-1",
		"exp": exp.Unix(),
	})
	return header + "." + base64.RawURLEncoding.EncodeToString(claims) + "."
}

func testConfig() *config.Config {
	return &config.Config{
		API: config.APIConfig{
			BaseURL:        "http://localhost:3000/api",
			RequestTimeout: 5 * time.Second,
			LogoutTimeout:  time.Second,
		},
		Session: config.SessionConfig{
			RefreshThreshold:  5 * time.Minute,
			InactivityTimeout: 30 * time.Minute,
			CheckInterval:     time.Minute,
		},
		Queue: config.QueueConfig{MaxRetries: 3},
	}
}

func verifiedUser() *session.User {
	return &session.User{
		ID:           "user-1",
		FullName:     "Test Listener",
		EmailOrPhone: "test@lingernote.com",
		Verified:     true,
		Status:       session.StatusActive,
	}
}

func unverifiedUser() *session.User {
	u := verifiedUser()
	u.Verified = false
	u.Status = session.StatusPending
	return u
}
