package services

import (
	"sync"
	"time"

	"github.com/jere1233/LingerNote-F/config"
	"github.com/jere1233/LingerNote-F/pkg/logger"
)

// ClockHandlers are the callbacks the clock drives. Both must be safe to
// call at any time: the clock only decides *when* to check, the handlers
// re-validate session state and timestamps themselves.
type ClockHandlers struct {
	// RefreshCheck runs when the access token is near expiry.
	RefreshCheck func()
	// IdleCheck runs on the periodic inactivity sweep.
	IdleCheck func()
}

// ClockService decides when a session needs a token refresh or an
// inactivity logout, and schedules those checks against wall-clock time.
// Timers are re-armed whenever tokens change and canceled on every
// transition out of the authenticated state; a firing that outlives its
// session is a no-op.
type ClockService struct {
	cfg config.SessionConfig
	log logger.Logger
	now func() time.Time

	mu         sync.Mutex
	handlers   ClockHandlers
	generation uint64
	refresh    *time.Timer
	tickerStop chan struct{}
}

// NewClockService creates a session clock.
func NewClockService(cfg config.SessionConfig, log logger.Logger) *ClockService {
	return &ClockService{
		cfg: cfg,
		log: log.With(logger.Component("session_clock")),
		now: func() time.Time { return time.Now().UTC() },
	}
}

// SetHandlers registers the check callbacks. Call once during wiring,
// before the first Arm.
func (c *ClockService) SetHandlers(h ClockHandlers) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers = h
}

// RefreshDue reports whether a refresh should be triggered for a token
// expiring at expiry.
func (c *ClockService) RefreshDue(expiry, now time.Time) bool {
	return !now.Before(expiry.Add(-c.cfg.RefreshThreshold))
}

// IdleExpired reports whether the session sat idle past the timeout. A
// session with no recorded activity is not idle; it just has no history yet.
func (c *ClockService) IdleExpired(lastActivity, now time.Time) bool {
	if lastActivity.IsZero() {
		return false
	}
	return now.Sub(lastActivity) > c.cfg.InactivityTimeout
}

// Arm schedules a one-shot refresh check at expiry minus the refresh
// threshold and starts the periodic inactivity sweep. Any previously armed
// timers are canceled first.
func (c *ClockService) Arm(expiry time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.disarmLocked()
	c.generation++
	gen := c.generation

	delay := expiry.Add(-c.cfg.RefreshThreshold).Sub(c.now())
	if delay < 0 {
		delay = 0
	}
	c.refresh = time.AfterFunc(delay, func() {
		c.fire(gen, true)
	})

	stop := make(chan struct{})
	c.tickerStop = stop
	go c.sweep(gen, stop)

	c.log.Debug("timers armed",
		logger.Time("expiry", expiry),
		logger.Duration("refresh_in", delay),
	)
}

// Disarm cancels all scheduled checks.
func (c *ClockService) Disarm() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disarmLocked()
	c.generation++
}

func (c *ClockService) disarmLocked() {
	if c.refresh != nil {
		c.refresh.Stop()
		c.refresh = nil
	}
	if c.tickerStop != nil {
		close(c.tickerStop)
		c.tickerStop = nil
	}
}

// CheckNow runs both checks synchronously, without waiting for the next
// timer tick. Used on app foreground so a session cannot silently survive
// past its timeout while the process was suspended.
func (c *ClockService) CheckNow() {
	c.mu.Lock()
	h := c.handlers
	c.mu.Unlock()

	if h.IdleCheck != nil {
		h.IdleCheck()
	}
	if h.RefreshCheck != nil {
		h.RefreshCheck()
	}
}

func (c *ClockService) sweep(gen uint64, stop <-chan struct{}) {
	ticker := time.NewTicker(c.cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.fire(gen, false)
		case <-stop:
			return
		}
	}
}

// fire invokes a handler unless the timers were re-armed or disarmed since
// this firing was scheduled.
func (c *ClockService) fire(gen uint64, refresh bool) {
	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return
	}
	h := c.handlers
	c.mu.Unlock()

	if refresh {
		if h.RefreshCheck != nil {
			h.RefreshCheck()
		}
		return
	}
	if h.IdleCheck != nil {
		h.IdleCheck()
	}
}
