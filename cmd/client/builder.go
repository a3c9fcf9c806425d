package main

import (
	"fmt"

	"github.com/jere1233/LingerNote-F/config"
	"github.com/jere1233/LingerNote-F/internal/application"
	"github.com/jere1233/LingerNote-F/internal/domain/queue"
	"github.com/jere1233/LingerNote-F/internal/domain/session"
	"github.com/jere1233/LingerNote-F/internal/infrastructure/cache/redis"
	"github.com/jere1233/LingerNote-F/internal/infrastructure/monitor"
	"github.com/jere1233/LingerNote-F/internal/infrastructure/persistence/sqlite"
	"github.com/jere1233/LingerNote-F/internal/infrastructure/transport"
	"github.com/jere1233/LingerNote-F/pkg/logger"
)

// app is the fully wired client.
type app struct {
	cfg      *config.Config
	log      logger.Logger
	services *application.Services
	cleanup  func()
}

func buildApp(cfg *config.Config, log logger.Logger) (*app, error) {
	store, queueRepo, cleanup, err := buildStorage(cfg, log)
	if err != nil {
		return nil, err
	}

	client := transport.NewClient(cfg.API, log)
	network := monitor.NewNetworkMonitor()
	lifecycle := monitor.NewAppLifecycle()

	svcs := application.NewServices(application.Collaborators{
		Store:     store,
		QueueRepo: queueRepo,
		API:       client,
		Replay:    transport.NewQueueTransport(client, store),
		Network:   network,
		Lifecycle: lifecycle,
	}, cfg, log)

	return &app{
		cfg:      cfg,
		log:      log,
		services: svcs,
		cleanup:  cleanup,
	}, nil
}

// buildStorage opens the configured storage driver. SQLite always backs the
// request queue; redis only replaces the token store.
func buildStorage(cfg *config.Config, log logger.Logger) (session.Store, queue.Repository, func(), error) {
	db, err := sqlite.Open(cfg.Storage.SQLitePath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open sqlite storage: %w", err)
	}
	queueRepo := sqlite.NewQueueRepository(db)

	switch cfg.Storage.Driver {
	case "redis":
		redisClient, err := redis.NewClient(&cfg.Redis)
		if err != nil {
			db.Close()
			return nil, nil, nil, fmt.Errorf("connect redis storage: %w", err)
		}
		log.Info("using redis token store",
			logger.Component("builder"),
			logger.String("host", cfg.Redis.Host),
		)
		cleanup := func() {
			redisClient.Close()
			db.Close()
		}
		return redis.NewTokenStore(redisClient), queueRepo, cleanup, nil

	case "sqlite":
		log.Info("using sqlite token store",
			logger.Component("builder"),
			logger.String("path", cfg.Storage.SQLitePath),
		)
		return sqlite.NewTokenStore(db), queueRepo, func() { db.Close() }, nil

	default:
		db.Close()
		return nil, nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}
