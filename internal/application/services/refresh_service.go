package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jere1233/LingerNote-F/internal/domain/session"
	apperrors "github.com/jere1233/LingerNote-F/pkg/errors"
	"github.com/jere1233/LingerNote-F/pkg/jwt"
	"github.com/jere1233/LingerNote-F/pkg/logger"
)

// refreshCall is one network exchange shared by every concurrent caller.
type refreshCall struct {
	done   chan struct{}
	tokens *session.TokenPair
	err    error
}

// RefreshService performs the access-token renewal exchange with
// single-flight semantics: while one exchange is in flight, every other
// Refresh call joins it as a waiter and observes the same outcome. Failures
// are terminal for the attempt; the service never retries on its own.
type RefreshService struct {
	store   session.Store
	api     AuthAPI
	timeout time.Duration
	log     logger.Logger

	mu      sync.Mutex
	current *refreshCall
}

// NewRefreshService creates a token refresher.
func NewRefreshService(store session.Store, api AuthAPI, timeout time.Duration, log logger.Logger) *RefreshService {
	return &RefreshService{
		store:   store,
		api:     api,
		timeout: timeout,
		log:     log.With(logger.Component("token_refresher")),
	}
}

// InFlight reports whether an exchange is currently running.
func (s *RefreshService) InFlight() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current != nil
}

// Refresh exchanges the stored refresh token for a new token pair.
// Concurrent callers collapse into a single exchange. The pair is returned,
// not persisted: committing it to the store is the session controller's
// decision, made against the state the session is in when the exchange
// resolves.
func (s *RefreshService) Refresh(ctx context.Context) (*session.TokenPair, error) {
	s.mu.Lock()
	if call := s.current; call != nil {
		s.mu.Unlock()
		select {
		case <-call.done:
			return call.tokens, call.err
		case <-ctx.Done():
			return nil, apperrors.Wrap(apperrors.ErrTimeout, ctx.Err().Error())
		}
	}

	call := &refreshCall{done: make(chan struct{})}
	s.current = call
	s.mu.Unlock()

	call.tokens, call.err = s.exchange(ctx)

	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()
	close(call.done)

	if call.err != nil {
		s.log.Warn("token refresh failed", logger.Error(call.err))
	} else {
		s.log.Debug("token refresh completed",
			logger.Time("access_expires_at", call.tokens.AccessExpiresAt),
		)
	}
	return call.tokens, call.err
}

// exchange runs one refresh attempt. The attempt is detached from the
// leader's cancellation and bounded by its own timeout, so every waiter
// receives a definitive outcome even if the caller that started the
// exchange goes away.
func (s *RefreshService) exchange(ctx context.Context) (*session.TokenPair, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	refreshToken, err := s.store.Get(ctx, session.KeyRefreshToken)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrNoRefreshToken
		}
		return nil, apperrors.Wrap(err, "read refresh token")
	}
	if refreshToken == "" {
		return nil, apperrors.ErrNoRefreshToken
	}

	payload, err := s.api.RefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrRefreshFailed, err)
	}
	if payload == nil || payload.AccessToken == "" || payload.RefreshToken == "" {
		return nil, apperrors.Wrap(apperrors.ErrRefreshFailed, "incomplete token payload")
	}

	// The expiry comes from the token's own exp claim; a token we cannot
	// decode fails closed instead of assuming a default lifetime.
	expiry, err := jwt.Expiry(payload.AccessToken)
	if err != nil {
		return nil, err
	}

	return &session.TokenPair{
		AccessToken:     payload.AccessToken,
		RefreshToken:    payload.RefreshToken,
		AccessExpiresAt: expiry,
	}, nil
}
