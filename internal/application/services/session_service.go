package services

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jere1233/LingerNote-F/config"
	"github.com/jere1233/LingerNote-F/internal/application/dto"
	"github.com/jere1233/LingerNote-F/internal/domain/session"
	apperrors "github.com/jere1233/LingerNote-F/pkg/errors"
	"github.com/jere1233/LingerNote-F/pkg/jwt"
	"github.com/jere1233/LingerNote-F/pkg/logger"
)

// LoginOutcome is what a login or signup resolves to for the UI layer.
type LoginOutcome struct {
	User                 *session.User
	RequiresVerification bool
	VerificationType     string
}

// SessionService is the authentication session state machine. It owns the
// authoritative in-memory session, persists it through the token store, and
// coordinates the clock and the refresher. One SessionService exists per
// process; construct it at start and drive it until logout.
type SessionService struct {
	store     session.Store
	api       AuthAPI
	refresher *RefreshService
	clock     *ClockService
	cfg       *config.Config
	log       logger.Logger
	now       func() time.Time

	mu    sync.Mutex
	state session.State
	sess  *session.Session
	// epoch increments on every transition into or out of Authenticated. A
	// refresh exchange captures it at start and commits only if it still
	// matches, so a refresh that outlives its session writes nothing.
	epoch uint64

	// refreshing guards the controller-level refresh flow against the
	// timer and a foreground check racing into it at the same time. The
	// refresher has its own single-flight underneath; this additionally
	// prevents duplicate activity stamping and timer re-arming.
	refreshing atomic.Bool
	loading    atomic.Bool
}

// NewSessionService wires the session controller and registers its clock
// handlers.
func NewSessionService(
	store session.Store,
	api AuthAPI,
	refresher *RefreshService,
	clock *ClockService,
	cfg *config.Config,
	log logger.Logger,
) *SessionService {
	s := &SessionService{
		store:     store,
		api:       api,
		refresher: refresher,
		clock:     clock,
		cfg:       cfg,
		log:       log.With(logger.Component("session")),
		now:       func() time.Time { return time.Now().UTC() },
		state:     session.StateUninitialized,
		sess:      &session.Session{},
	}
	clock.SetHandlers(ClockHandlers{
		RefreshCheck: s.onRefreshCheck,
		IdleCheck:    s.onIdleCheck,
	})
	return s
}

// State returns the current lifecycle state.
func (s *SessionService) State() session.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// CurrentUser returns a copy of the signed-in or pending user, or nil.
func (s *SessionService) CurrentUser() *session.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sess.User == nil {
		return nil
	}
	u := *s.sess.User
	return &u
}

// IsAuthenticated reports whether the session holds usable credentials.
func (s *SessionService) IsAuthenticated() bool {
	return s.State() == session.StateAuthenticated
}

// IsVerified reports whether the current user record is verified.
func (s *SessionService) IsVerified() bool {
	u := s.CurrentUser()
	return u != nil && u.Verified
}

// IsLoading reports whether a restore is in progress.
func (s *SessionService) IsLoading() bool {
	return s.loading.Load()
}

// Restore rebuilds the session from the token store at process start. It
// always resolves to a definitive state: a persisted session that is
// incomplete, idle-expired or unverified is purged and the service lands in
// LoggedOut. A refresh that is already due runs before restoration is
// declared complete; its failure also resolves to LoggedOut.
func (s *SessionService) Restore(ctx context.Context) (session.State, error) {
	s.loading.Store(true)
	defer s.loading.Store(false)
	s.setState(session.StateRestoring)

	accessToken, err := s.readStored(ctx, session.KeyAccessToken)
	if err != nil || accessToken == "" {
		// No credentials. A cached unverified user comes back as a pending
		// verification; anything else in the store is leftovers.
		if user := s.pendingUser(ctx); user != nil {
			s.mu.Lock()
			s.sess = &session.Session{User: user}
			s.state = session.StatePendingVerification
			s.mu.Unlock()
			return session.StatePendingVerification, nil
		}
		s.purge(ctx)
		return session.StateLoggedOut, nil
	}

	rawUser, err := s.readStored(ctx, session.KeyUser)
	if err != nil || rawUser == "" {
		// A token without its user record is an incomplete session; leaving
		// it in place would let it be resurrected later.
		s.purge(ctx)
		return session.StateLoggedOut, nil
	}

	user, err := session.ParseUser([]byte(rawUser))
	if err != nil {
		s.log.Warn("stored user record is corrupt, purging", logger.Error(err))
		s.purge(ctx)
		return session.StateLoggedOut, nil
	}

	now := s.now()
	if rawActivity, err := s.readStored(ctx, session.KeyLastActivity); err == nil && rawActivity != "" {
		last, perr := session.ParseEpochMillis(rawActivity)
		if perr == nil && s.clock.IdleExpired(last, now) {
			s.log.Info("session idle past timeout, not restoring",
				logger.Duration("idle", now.Sub(last)),
			)
			s.purge(ctx)
			return session.StateLoggedOut, nil
		}
	}

	// Hard security invariant: an unverified user must never come back as
	// an authenticated session, whatever else is in the store.
	if !user.Verified {
		s.log.Warn("refusing to restore unverified session", logger.UserID(user.ID))
		s.purge(ctx)
		return session.StateLoggedOut, nil
	}

	refreshToken, _ := s.readStored(ctx, session.KeyRefreshToken)
	rawExpiry, _ := s.readStored(ctx, session.KeyAccessExpiry)
	expiry, err := session.ParseEpochMillis(rawExpiry)
	if err != nil {
		s.log.Warn("stored token expiry is corrupt, purging", logger.Error(err))
		s.purge(ctx)
		return session.StateLoggedOut, nil
	}

	var last time.Time
	if rawActivity, err := s.readStored(ctx, session.KeyLastActivity); err == nil && rawActivity != "" {
		last, _ = session.ParseEpochMillis(rawActivity)
	}

	s.mu.Lock()
	s.epoch++
	s.sess = &session.Session{
		User: user,
		Tokens: &session.TokenPair{
			AccessToken:     accessToken,
			RefreshToken:    refreshToken,
			AccessExpiresAt: expiry,
		},
		LastActivity: last,
	}
	s.state = session.StateAuthenticated
	s.mu.Unlock()
	s.clock.Arm(expiry)
	s.log.Info("session restored", logger.UserID(user.ID))

	if s.clock.RefreshDue(expiry, now) {
		// Bounded by the refresher's own timeout; failure lands us in
		// LoggedOut rather than leaving restoration hanging.
		s.RefreshSession(ctx)
	}
	return s.State(), nil
}

// Login authenticates with the auth API. A response that still requires
// verification caches only the user record and parks the session in
// PendingVerification; tokens are never persisted for an unverified user.
func (s *SessionService) Login(ctx context.Context, emailOrPhone, password string) (*LoginOutcome, error) {
	res, err := s.api.Login(ctx, emailOrPhone, password)
	if err != nil {
		return nil, err
	}
	return s.acceptAuthResult(ctx, res)
}

// Signup registers a new account. It has the same shape as Login and
// normally lands in PendingVerification awaiting the OTP.
func (s *SessionService) Signup(ctx context.Context, fullName, emailOrPhone, password string) (*LoginOutcome, error) {
	res, err := s.api.Signup(ctx, fullName, emailOrPhone, password)
	if err != nil {
		return nil, err
	}
	return s.acceptAuthResult(ctx, res)
}

func (s *SessionService) acceptAuthResult(ctx context.Context, res *AuthResult) (*LoginOutcome, error) {
	if res.User == nil {
		return nil, apperrors.Wrap(apperrors.ErrInternal, "auth response missing user")
	}

	if res.RequiresVerification || res.Tokens == nil {
		s.mu.Lock()
		s.sess = &session.Session{User: res.User}
		s.state = session.StatePendingVerification
		s.mu.Unlock()

		// Cache the pending user so the verification screen survives a
		// restart; restore refuses to authenticate it either way.
		if raw, err := res.User.ToJSON(); err == nil {
			if serr := s.store.Set(ctx, session.KeyUser, string(raw)); serr != nil {
				s.log.Warn("failed to cache pending user", logger.Error(serr))
			}
		}
		return &LoginOutcome{
			User:                 res.User,
			RequiresVerification: true,
			VerificationType:     res.VerificationType,
		}, nil
	}

	if err := s.establish(ctx, res.User, res.Tokens); err != nil {
		return nil, err
	}
	return &LoginOutcome{User: res.User}, nil
}

// VerifyOTP confirms the pending account's one-time passcode and, on
// success, promotes the session to Authenticated.
func (s *SessionService) VerifyOTP(ctx context.Context, emailOrPhone, otp string, isSignup bool) (*session.User, error) {
	res, err := s.api.VerifyOTP(ctx, emailOrPhone, otp, isSignup)
	if err != nil {
		return nil, err
	}
	if err := s.CompleteVerification(ctx, res.User, res.Tokens); err != nil {
		return nil, err
	}
	return res.User, nil
}

// CompleteVerification is the only path that may persist tokens for a user
// coming out of PendingVerification. It re-checks the verified flag and
// rejects the call outright if the caller hands it an unverified user.
func (s *SessionService) CompleteVerification(ctx context.Context, user *session.User, tokens *dto.TokenPayload) error {
	if user == nil || !user.Verified {
		return apperrors.InvariantViolation("attempt to persist tokens for an unverified user")
	}
	return s.establish(ctx, user, tokens)
}

// ResendOTP requests a fresh passcode for the pending account.
func (s *SessionService) ResendOTP(ctx context.Context, emailOrPhone string) error {
	return s.api.ResendOTP(ctx, emailOrPhone)
}

// ForgotPassword starts the password-reset flow.
func (s *SessionService) ForgotPassword(ctx context.Context, emailOrPhone string) (string, error) {
	return s.api.ForgotPassword(ctx, emailOrPhone)
}

// VerifyResetOTP confirms the reset passcode and returns the reset token.
func (s *SessionService) VerifyResetOTP(ctx context.Context, emailOrPhone, otp string) (string, error) {
	return s.api.VerifyResetOTP(ctx, emailOrPhone, otp)
}

// ResetPassword completes the password-reset flow.
func (s *SessionService) ResetPassword(ctx context.Context, resetToken, newPassword string) error {
	return s.api.ResetPassword(ctx, resetToken, newPassword)
}

// establish persists the full session atomically and transitions to
// Authenticated.
func (s *SessionService) establish(ctx context.Context, user *session.User, tokens *dto.TokenPayload) error {
	if tokens == nil || tokens.AccessToken == "" || tokens.RefreshToken == "" {
		return apperrors.InvariantViolation("authenticated transition without a complete token pair")
	}

	expiry, err := jwt.Expiry(tokens.AccessToken)
	if err != nil {
		return err
	}

	raw, err := user.ToJSON()
	if err != nil {
		return apperrors.Wrap(err, "encode user")
	}

	now := s.now()
	values := map[session.Key]string{
		session.KeyUser:         string(raw),
		session.KeyAccessToken:  tokens.AccessToken,
		session.KeyRefreshToken: tokens.RefreshToken,
		session.KeyAccessExpiry: session.FormatEpochMillis(expiry),
		session.KeyLastActivity: session.FormatEpochMillis(now),
	}
	if err := s.store.SetMany(ctx, values); err != nil {
		// Safety-critical write; surfacing beats pretending the session
		// is durable.
		return apperrors.Wrap(err, "persist session")
	}

	s.mu.Lock()
	s.epoch++
	s.sess = &session.Session{
		User: user,
		Tokens: &session.TokenPair{
			AccessToken:     tokens.AccessToken,
			RefreshToken:    tokens.RefreshToken,
			AccessExpiresAt: expiry,
		},
		LastActivity: now,
	}
	s.state = session.StateAuthenticated
	s.mu.Unlock()
	s.clock.Arm(expiry)
	s.log.Info("session established", logger.UserID(user.ID))
	return nil
}

// Logout revokes the session server-side on a best-effort basis, then
// unconditionally cancels timers, purges the store and transitions to
// LoggedOut. A second call is a no-op.
func (s *SessionService) Logout(ctx context.Context) error {
	s.mu.Lock()
	if s.state == session.StateLoggedOut {
		s.mu.Unlock()
		return nil
	}
	var accessToken string
	if s.sess.Tokens != nil {
		accessToken = s.sess.Tokens.AccessToken
	}
	// Invalidate in-flight refreshes before any teardown so a late exchange
	// cannot commit over the purge.
	s.epoch++
	s.mu.Unlock()

	if accessToken != "" {
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.API.LogoutTimeout)
		if err := s.api.Logout(lctx, accessToken); err != nil {
			s.log.Warn("remote logout failed, continuing local cleanup", logger.Error(err))
		}
		cancel()
	}

	s.clock.Disarm()
	if err := s.store.Clear(ctx); err != nil {
		// Local safety first: even with a partially failed purge the
		// process must not keep behaving as authenticated.
		s.log.Error("failed to clear token store on logout", logger.Error(err))
	}

	s.mu.Lock()
	s.sess = &session.Session{}
	s.state = session.StateLoggedOut
	s.mu.Unlock()
	s.log.Info("logged out")
	return nil
}

// RefreshSession runs the controller-level refresh flow. A second caller
// while one is in progress is rejected immediately with false. Any refresh
// failure is absorbed into a forced logout; it is never surfaced as a
// retryable error because a dead refresh token cannot be repaired by
// retrying.
//
// The exchanged tokens are committed here, not in the refresher: the store
// write happens under the lock and only if the session epoch captured before
// the exchange still holds, so a logout completed mid-exchange stays final
// and the late result is discarded without a trace.
func (s *SessionService) RefreshSession(ctx context.Context) bool {
	if !s.refreshing.CompareAndSwap(false, true) {
		return false
	}
	defer s.refreshing.Store(false)

	s.mu.Lock()
	if s.state != session.StateAuthenticated {
		s.mu.Unlock()
		return false
	}
	epoch := s.epoch
	s.mu.Unlock()

	tokens, err := s.refresher.Refresh(ctx)
	if err != nil {
		s.mu.Lock()
		stale := s.epoch != epoch
		s.mu.Unlock()
		if stale {
			// The session already ended; there is nothing to tear down, and
			// forcing a logout here could kill a successor session.
			return false
		}
		s.log.Warn("session refresh failed, forcing logout", logger.Error(err))
		_ = s.Logout(context.WithoutCancel(ctx))
		return false
	}

	now := s.now()
	values := map[session.Key]string{
		session.KeyAccessToken:  tokens.AccessToken,
		session.KeyRefreshToken: tokens.RefreshToken,
		session.KeyAccessExpiry: session.FormatEpochMillis(tokens.AccessExpiresAt),
		session.KeyLastActivity: session.FormatEpochMillis(now),
	}

	s.mu.Lock()
	if s.state != session.StateAuthenticated || s.epoch != epoch {
		s.mu.Unlock()
		s.log.Info("discarding refresh that outlived its session")
		return false
	}
	if err := s.store.SetMany(ctx, values); err != nil {
		s.mu.Unlock()
		s.log.Warn("failed to persist refreshed tokens, forcing logout", logger.Error(err))
		_ = s.Logout(context.WithoutCancel(ctx))
		return false
	}
	s.sess.Tokens = tokens
	s.sess.Touch(now)
	s.mu.Unlock()

	s.clock.Arm(tokens.AccessExpiresAt)
	return true
}

// OnForeground re-validates the session the moment the app resumes. It runs
// the same checks the clock schedules, synchronously and in order (inactivity
// first, then refresh proximity), then stamps activity if the session
// survived them.
func (s *SessionService) OnForeground(ctx context.Context) {
	if s.State() != session.StateAuthenticated {
		return
	}
	s.clock.CheckNow()
	if s.State() == session.StateAuthenticated {
		s.touchActivity(ctx)
	}
}

// OnBackground stamps activity when the app is suspended. No refresh is
// attempted while backgrounded.
func (s *SessionService) OnBackground(ctx context.Context) {
	if s.State() != session.StateAuthenticated {
		return
	}
	s.touchActivity(ctx)
}

// touchActivity stamps last activity in memory and in the store.
func (s *SessionService) touchActivity(ctx context.Context) {
	now := s.now()
	s.mu.Lock()
	s.sess.Touch(now)
	s.mu.Unlock()
	if err := s.store.Set(ctx, session.KeyLastActivity, session.FormatEpochMillis(now)); err != nil {
		s.log.Warn("failed to stamp activity", logger.Error(err))
	}
}

// onRefreshCheck is the clock's near-expiry callback.
func (s *SessionService) onRefreshCheck() {
	s.mu.Lock()
	if s.state != session.StateAuthenticated || s.sess.Tokens == nil {
		s.mu.Unlock()
		return
	}
	expiry := s.sess.Tokens.AccessExpiresAt
	s.mu.Unlock()

	if s.clock.RefreshDue(expiry, s.now()) {
		s.RefreshSession(context.Background())
	}
}

// onIdleCheck is the clock's periodic inactivity callback.
func (s *SessionService) onIdleCheck() {
	s.mu.Lock()
	if s.state != session.StateAuthenticated {
		s.mu.Unlock()
		return
	}
	last := s.sess.LastActivity
	s.mu.Unlock()

	if s.clock.IdleExpired(last, s.now()) {
		s.log.Info("session idle past timeout, logging out")
		_ = s.Logout(context.Background())
	}
}

// pendingUser returns the cached user awaiting verification, if the store
// holds one without credentials.
func (s *SessionService) pendingUser(ctx context.Context) *session.User {
	raw, err := s.readStored(ctx, session.KeyUser)
	if err != nil || raw == "" {
		return nil
	}
	user, err := session.ParseUser([]byte(raw))
	if err != nil || user.Verified {
		return nil
	}
	return user
}

// readStored reads one key, treating storage failure as "no session".
func (s *SessionService) readStored(ctx context.Context, key session.Key) (string, error) {
	v, err := s.store.Get(ctx, key)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			return "", nil
		}
		s.log.Warn("token store read failed", logger.String("key", string(key)), logger.Error(err))
		return "", err
	}
	return v, nil
}

// purge clears persisted state best-effort and lands in LoggedOut. The epoch
// bump happens before the store is touched so a refresh committing
// concurrently either finishes first and gets wiped here, or sees the new
// epoch and writes nothing.
func (s *SessionService) purge(ctx context.Context) {
	s.clock.Disarm()
	s.mu.Lock()
	s.epoch++
	s.sess = &session.Session{}
	s.state = session.StateLoggedOut
	s.mu.Unlock()
	if err := s.store.Clear(ctx); err != nil {
		s.log.Error("failed to purge token store", logger.Error(err))
	}
}

func (s *SessionService) setState(st session.State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}
