package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jere1233/LingerNote-F/config"
	apperrors "github.com/jere1233/LingerNote-F/pkg/errors"
	"github.com/jere1233/LingerNote-F/pkg/logger"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := NewClient(config.APIConfig{
		BaseURL:        srv.URL,
		RequestTimeout: 2 * time.Second,
	}, logger.Nop())
	return client, srv
}

func TestLoginSuccess(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != loginPath {
			t.Errorf("path = %s, want %s", r.URL.Path, loginPath)
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatal(err)
		}
		if body["emailOrPhone"] != "test@lingernote.com" {
			t.Errorf("emailOrPhone = %q", body["emailOrPhone"])
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"data": map[string]interface{}{
				"user": map[string]interface{}{
					"id":           "user-1",
					"fullName":     "Test Listener",
					"emailOrPhone": "test@lingernote.com",
					"isVerified":   true,
					"status":       "active",
				},
				"tokens": map[string]string{
					"accessToken":  "a.b.c",
					"refreshToken": "refresh-1",
				},
			},
		})
	}))

	res, err := client.Login(context.Background(), "test@lingernote.com", "sup3r-secret")
	if err != nil {
		t.Fatal(err)
	}
	if res.User.ID != "user-1" || !res.User.Verified {
		t.Errorf("user = %+v", res.User)
	}
	if res.Tokens == nil || res.Tokens.AccessToken != "a.b.c" {
		t.Errorf("tokens = %+v", res.Tokens)
	}
	if res.RequiresVerification {
		t.Error("verified login flagged as requiring verification")
	}
}

func TestLoginFoldsLegacyRequiresOTP(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"data": map[string]interface{}{
				"user": map[string]interface{}{
					"id":           "user-1",
					"emailOrPhone": "test@lingernote.com",
					"isVerified":   false,
					"status":       "pending",
				},
				"requiresOTP":      true,
				"verificationType": "email",
			},
		})
	}))

	res, err := client.Login(context.Background(), "test@lingernote.com", "sup3r-secret")
	if err != nil {
		t.Fatal(err)
	}
	if !res.RequiresVerification {
		t.Error("legacy requiresOTP flag was not folded into RequiresVerification")
	}
	if res.VerificationType != "email" {
		t.Errorf("verificationType = %q", res.VerificationType)
	}
	if res.Tokens != nil {
		t.Error("unverified login carried tokens")
	}
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		status int
		code   string
		want   error
	}{
		{"code wins over status", http.StatusUnauthorized, "INVALID_CREDENTIALS", apperrors.ErrInvalidCredentials},
		{"account not found code", http.StatusNotFound, "ACCOUNT_NOT_FOUND", apperrors.ErrAccountNotFound},
		{"suspended", http.StatusForbidden, "ACCOUNT_SUSPENDED", apperrors.ErrAccountSuspended},
		{"otp invalid", http.StatusBadRequest, "OTP_INVALID", apperrors.ErrOTPInvalid},
		{"otp expired", http.StatusBadRequest, "OTP_EXPIRED", apperrors.ErrOTPExpired},
		{"rate limited", http.StatusTooManyRequests, "RATE_LIMITED", apperrors.ErrRateLimited},
		{"bare 401", http.StatusUnauthorized, "", apperrors.ErrNotAuthenticated},
		{"bare 403", http.StatusForbidden, "", apperrors.ErrVerificationRequired},
		{"bare 404", http.StatusNotFound, "", apperrors.ErrAccountNotFound},
		{"bare 429", http.StatusTooManyRequests, "", apperrors.ErrRateLimited},
		{"bare 500", http.StatusInternalServerError, "", apperrors.ErrInternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				json.NewEncoder(w).Encode(map[string]interface{}{
					"success": false,
					"code":    tc.code,
					"message": "nope",
				})
			}))

			_, err := client.Login(context.Background(), "test@lingernote.com", "wrong")
			if !apperrors.Is(err, tc.want) {
				t.Errorf("err = %v, want %v", err, tc.want)
			}

			var se *apperrors.StatusError
			if !errors.As(err, &se) {
				t.Fatalf("err %T is not a StatusError", err)
			}
			if se.Status != tc.status || se.Code != tc.code {
				t.Errorf("status=%d code=%q, want status=%d code=%q", se.Status, se.Code, tc.status, tc.code)
			}
		})
	}
}

func TestRequestTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	t.Cleanup(srv.Close)

	client := NewClient(config.APIConfig{
		BaseURL:        srv.URL,
		RequestTimeout: 50 * time.Millisecond,
	}, logger.Nop())

	_, err := client.Login(context.Background(), "test@lingernote.com", "sup3r-secret")
	if !apperrors.Is(err, apperrors.ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
}

func TestUnreachableHost(t *testing.T) {
	client := NewClient(config.APIConfig{
		// Port 1 is never bound in the test environment.
		BaseURL:        "http://127.0.0.1:1",
		RequestTimeout: 2 * time.Second,
	}, logger.Nop())

	_, err := client.Login(context.Background(), "test@lingernote.com", "sup3r-secret")
	if !apperrors.Is(err, apperrors.ErrNetworkUnreachable) {
		t.Fatalf("err = %v, want ErrNetworkUnreachable", err)
	}
}

func TestRefreshTokenMissingPayload(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"success": true, "data": map[string]interface{}{}})
	}))

	_, err := client.RefreshToken(context.Background(), "refresh-1")
	if !apperrors.Is(err, apperrors.ErrRefreshFailed) {
		t.Fatalf("err = %v, want ErrRefreshFailed", err)
	}
}

func TestLogoutSendsBearerToken(t *testing.T) {
	var gotAuth string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(map[string]interface{}{"success": true})
	}))

	if err := client.Logout(context.Background(), "access-1"); err != nil {
		t.Fatal(err)
	}
	if gotAuth != "Bearer access-1" {
		t.Errorf("Authorization = %q, want Bearer access-1", gotAuth)
	}
}
