package session

import (
	"encoding/json"
	"strconv"
	"time"
)

// AccountStatus is the server-side standing of an account.
type AccountStatus string

const (
	StatusActive    AccountStatus = "active"
	StatusSuspended AccountStatus = "suspended"
	StatusPending   AccountStatus = "pending"
)

// User is the cached user record for the signed-in account.
type User struct {
	ID           string        `json:"id"`
	FullName     string        `json:"fullName"`
	EmailOrPhone string        `json:"emailOrPhone"`
	AvatarURL    string        `json:"avatar,omitempty"`
	Verified     bool          `json:"isVerified"`
	Status       AccountStatus `json:"status"`
}

// ToJSON serializes the user for the token store.
func (u *User) ToJSON() ([]byte, error) {
	return json.Marshal(u)
}

// ParseUser deserializes a stored user record.
func ParseUser(data []byte) (*User, error) {
	var u User
	if err := json.Unmarshal(data, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// TokenPair holds the credentials for an authenticated session.
type TokenPair struct {
	AccessToken     string
	RefreshToken    string
	AccessExpiresAt time.Time
}

// State is the session lifecycle state.
type State int

const (
	StateUninitialized State = iota
	StateRestoring
	StateLoggedOut
	StatePendingVerification
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateRestoring:
		return "restoring"
	case StateLoggedOut:
		return "logged_out"
	case StatePendingVerification:
		return "pending_verification"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// Session is the authoritative in-memory authentication state. Tokens being
// set implies User is set; an unverified user never carries tokens.
type Session struct {
	User         *User
	Tokens       *TokenPair
	LastActivity time.Time
}

// IsAuthenticated reports whether the session holds usable credentials.
func (s *Session) IsAuthenticated() bool {
	return s != nil && s.User != nil && s.Tokens != nil
}

// IdleExpired reports whether the session sat idle past the timeout.
func (s *Session) IdleExpired(now time.Time, timeout time.Duration) bool {
	if s == nil || s.LastActivity.IsZero() {
		return false
	}
	return now.Sub(s.LastActivity) > timeout
}

// Touch stamps the activity timestamp.
func (s *Session) Touch(now time.Time) {
	s.LastActivity = now
}

// FormatEpochMillis renders a timestamp for the token store.
func FormatEpochMillis(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}

// ParseEpochMillis parses a stored epoch-milliseconds timestamp.
func ParseEpochMillis(v string) (time.Time, error) {
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms).UTC(), nil
}
