package application

import (
	"context"

	"github.com/jere1233/LingerNote-F/config"
	"github.com/jere1233/LingerNote-F/internal/application/services"
	"github.com/jere1233/LingerNote-F/internal/domain/queue"
	"github.com/jere1233/LingerNote-F/internal/domain/session"
	"github.com/jere1233/LingerNote-F/internal/infrastructure/monitor"
	"github.com/jere1233/LingerNote-F/pkg/logger"
)

// Services bundles the wired session core.
type Services struct {
	Session *services.SessionService
	Refresh *services.RefreshService
	Clock   *services.ClockService
	Queue   *services.QueueService
}

// Collaborators are the externally provided pieces the core is wired to.
type Collaborators struct {
	Store     session.Store
	QueueRepo queue.Repository
	API       services.AuthAPI
	Replay    services.ReplayTransport
	Network   *monitor.NetworkMonitor
	Lifecycle *monitor.AppLifecycle
}

// NewServices wires the session core: clock handlers, queue transport and
// network binding, and lifecycle subscriptions.
func NewServices(c Collaborators, cfg *config.Config, log logger.Logger) *Services {
	clock := services.NewClockService(cfg.Session, log)
	refresh := services.NewRefreshService(c.Store, c.API, cfg.API.RequestTimeout, log)
	sess := services.NewSessionService(c.Store, c.API, refresh, clock, cfg, log)

	q := services.NewQueueService(c.QueueRepo, cfg.Queue, log)
	if c.Replay != nil {
		q.SetTransport(c.Replay)
	}
	if c.Network != nil {
		q.BindNetwork(c.Network)
	}

	if c.Lifecycle != nil {
		c.Lifecycle.Subscribe(func(e monitor.LifecycleEvent) {
			ctx := context.Background()
			switch e {
			case monitor.EventForeground:
				sess.OnForeground(ctx)
			case monitor.EventBackground:
				sess.OnBackground(ctx)
			}
		})
	}

	return &Services{
		Session: sess,
		Refresh: refresh,
		Clock:   clock,
		Queue:   q,
	}
}
