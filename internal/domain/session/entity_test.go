package session

import (
	"testing"
	"time"
)

func TestUserJSONRoundTrip(t *testing.T) {
	u := &User{
		ID:           "user-1",
		FullName:     "Test Listener",
		EmailOrPhone: "test@lingernote.com",
		Verified:     true,
		Status:       StatusActive,
	}

	raw, err := u.ToJSON()
	if err != nil {
		t.Fatal(err)
	}
	got, err := ParseUser(raw)
	if err != nil {
		t.Fatal(err)
	}
	if *got != *u {
		t.Errorf("round trip = %+v, want %+v", got, u)
	}
}

func TestParseUserRejectsGarbage(t *testing.T) {
	if _, err := ParseUser([]byte("{broken")); err == nil {
		t.Error("corrupt record parsed without error")
	}
}

func TestSessionIdleExpired(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	timeout := 30 * time.Minute

	s := &Session{LastActivity: now.Add(-29 * time.Minute)}
	if s.IdleExpired(now, timeout) {
		t.Error("session expired before the timeout")
	}

	s.LastActivity = now.Add(-31 * time.Minute)
	if !s.IdleExpired(now, timeout) {
		t.Error("session not expired past the timeout")
	}

	// A session that never recorded activity cannot be idle-expired.
	if (&Session{}).IdleExpired(now, timeout) {
		t.Error("zero activity timestamp counted as expired")
	}
	var nilSession *Session
	if nilSession.IdleExpired(now, timeout) {
		t.Error("nil session counted as expired")
	}
}

func TestEpochMillisRoundTrip(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 0, 0, 500*int(time.Millisecond), time.UTC)

	got, err := ParseEpochMillis(FormatEpochMillis(ts))
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(ts) {
		t.Errorf("round trip = %v, want %v", got, ts)
	}

	if _, err := ParseEpochMillis("not-a-number"); err == nil {
		t.Error("garbage timestamp parsed without error")
	}
}

func TestStateString(t *testing.T) {
	cases := map[State]string{
		StateUninitialized:       "uninitialized",
		StateRestoring:           "restoring",
		StateLoggedOut:           "logged_out",
		StatePendingVerification: "pending_verification",
		StateAuthenticated:       "authenticated",
		State(99):                "unknown",
	}
	for st, want := range cases {
		if got := st.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", st, got, want)
		}
	}
}
