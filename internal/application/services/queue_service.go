package services

import (
	"context"
	"sync"

	"github.com/jere1233/LingerNote-F/config"
	"github.com/jere1233/LingerNote-F/internal/domain/queue"
	"github.com/jere1233/LingerNote-F/internal/infrastructure/monitor"
	apperrors "github.com/jere1233/LingerNote-F/pkg/errors"
	"github.com/jere1233/LingerNote-F/pkg/logger"
)

// QueueService gives mutating calls at-least-once delivery while the app is
// offline or waiting on auth. Entries drain strictly in FIFO order, one at
// a time; a failed head stops the drain rather than letting later entries
// jump it, and an entry out of retries is dropped with a log line.
type QueueService struct {
	repo queue.Repository
	cfg  config.QueueConfig
	log  logger.Logger

	mu        sync.Mutex
	transport ReplayTransport
	draining  bool
	online    func() bool
}

// NewQueueService creates the offline request queue.
func NewQueueService(repo queue.Repository, cfg config.QueueConfig, log logger.Logger) *QueueService {
	return &QueueService{
		repo:   repo,
		cfg:    cfg,
		log:    log.With(logger.Component("request_queue")),
		online: func() bool { return true },
	}
}

// SetTransport wires the live transport. Draining before this is a no-op,
// not an error: the queue simply is not ready yet.
func (s *QueueService) SetTransport(t ReplayTransport) {
	s.mu.Lock()
	s.transport = t
	s.mu.Unlock()
}

// BindNetwork subscribes the queue to reachability transitions and uses the
// monitor as its online probe. Returns the unsubscribe func.
func (s *QueueService) BindNetwork(m *monitor.NetworkMonitor) func() {
	s.mu.Lock()
	s.online = m.Online
	s.mu.Unlock()

	return m.Subscribe(func(st monitor.NetworkStatus) {
		if st.Online() {
			go func() {
				if err := s.Drain(context.Background()); err != nil {
					s.log.Warn("drain after reconnect failed", logger.Error(err))
				}
			}()
		}
	})
}

// Enqueue durably appends a request and drains immediately when online.
func (s *QueueService) Enqueue(ctx context.Context, endpoint, method string, payload []byte) error {
	req := queue.NewQueuedRequest(endpoint, method, payload)
	if err := s.repo.Append(ctx, req); err != nil {
		return apperrors.Wrap(err, "enqueue request")
	}
	s.log.Debug("request queued",
		logger.Endpoint(endpoint),
		logger.Method(method),
	)

	s.mu.Lock()
	online := s.online()
	s.mu.Unlock()
	if online {
		return s.Drain(ctx)
	}
	return nil
}

// Drain replays the queue head-first until it is empty or the head fails
// with retries remaining. Only one drain runs at a time.
func (s *QueueService) Drain(ctx context.Context) error {
	s.mu.Lock()
	if s.transport == nil || s.draining {
		s.mu.Unlock()
		return nil
	}
	s.draining = true
	t := s.transport
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.draining = false
		s.mu.Unlock()
	}()

	for {
		req, err := s.repo.Head(ctx)
		if err != nil {
			if apperrors.Is(err, apperrors.ErrNotFound) {
				return nil
			}
			return apperrors.Wrap(err, "read queue head")
		}

		if err := t.Do(ctx, req.Method, req.Endpoint, req.Payload); err != nil {
			req.RetryCount++
			if req.Exhausted(s.cfg.MaxRetries) {
				s.log.Error("dropping request after max retries",
					logger.Endpoint(req.Endpoint),
					logger.Method(req.Method),
					logger.Int("retries", req.RetryCount),
					logger.Error(err),
				)
				if rerr := s.repo.Remove(ctx, req.ID); rerr != nil {
					return apperrors.Wrap(rerr, "drop exhausted request")
				}
				continue
			}
			if uerr := s.repo.Update(ctx, req); uerr != nil {
				return apperrors.Wrap(uerr, "record retry")
			}
			s.log.Warn("replay failed, stopping drain",
				logger.Endpoint(req.Endpoint),
				logger.Int("retries", req.RetryCount),
				logger.Error(err),
			)
			return nil
		}

		if err := s.repo.Remove(ctx, req.ID); err != nil {
			return apperrors.Wrap(err, "remove replayed request")
		}
		s.log.Debug("request replayed", logger.Endpoint(req.Endpoint))
	}
}

// Size returns the number of pending entries.
func (s *QueueService) Size(ctx context.Context) (int, error) {
	return s.repo.Size(ctx)
}
