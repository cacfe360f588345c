// Package app assembles the engine and its collaborators from configuration.
// Both binaries use it so the server and the sweeper see the same store,
// notifiers and lock.
package app

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/campusfix/dispatch/internal/campus"
	"github.com/campusfix/dispatch/internal/classify"
	"github.com/campusfix/dispatch/internal/config"
	"github.com/campusfix/dispatch/internal/db"
	"github.com/campusfix/dispatch/internal/lock"
	"github.com/campusfix/dispatch/internal/notify"
	"github.com/campusfix/dispatch/internal/service"
)

// Build returns a ready engine and a cleanup func releasing every connection
// it opened. Optional transports that fail to connect are logged and skipped;
// only the database is fatal.
func Build(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*service.Engine, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	catalog, err := campus.Default()
	if err != nil {
		return nil, cleanup, err
	}

	var store service.Store
	if cfg.DatabaseURL == "" {
		logger.Warn().Msg("DATABASE_URL not set, using in-memory store")
		store = db.NewMemoryStore()
	} else {
		pg, err := db.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, cleanup, err
		}
		closers = append(closers, pg.Close)
		if err := pg.Migrate(logger); err != nil {
			return nil, cleanup, err
		}
		store = pg
	}

	var fanout notify.Fanout
	if cfg.NotifyWebhookURL != "" {
		fanout = append(fanout, notify.WebhookNotifier{URL: cfg.NotifyWebhookURL, ManagerEmail: cfg.ManagerEmail})
		logger.Info().Msg("webhook notifications enabled")
	}
	if cfg.RabbitURL != "" {
		mq, err := notify.NewAMQPNotifier(cfg.RabbitURL, cfg.RabbitExchange, cfg.ManagerEmail, logger)
		if err != nil {
			logger.Error().Err(err).Msg("rabbitmq unavailable, broker notifications disabled")
		} else {
			closers = append(closers, func() { _ = mq.Close() })
			fanout = append(fanout, mq)
		}
	}
	var notifier notify.Notifier = fanout
	if len(fanout) == 0 {
		notifier = notify.LogNotifier{Logger: logger}
		logger.Info().Msg("no notification transport configured, logging notifications")
	}

	var classifier classify.Classifier
	if cfg.ClassifierURL == "" {
		classifier = classify.KeywordClassifier{Buildings: catalog.Names()}
		logger.Info().Msg("using keyword email classifier")
	} else {
		classifier = classify.HTTPClassifier{BaseURL: cfg.ClassifierURL}
	}

	var locker lock.Locker = lock.NewLocalLocker()
	if cfg.RedisAddr != "" {
		rl, err := lock.NewRedisLocker(cfg.RedisAddr, logger)
		if err != nil {
			logger.Error().Err(err).Msg("redis unavailable, sweep lock is process-local")
		} else {
			closers = append(closers, func() { _ = rl.Close() })
			locker = rl
		}
	}

	engine := &service.Engine{
		Store:      store,
		Notifier:   notifier,
		Policy:     cfg.Policy,
		Logger:     logger,
		Catalog:    catalog,
		Classifier: classifier,
		Locker:     locker,
		LockTTL:    cfg.SweepLockTTL,
	}
	return engine, cleanup, nil
}

func Logger(cfg config.Config, name string) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	return log.Level(level).With().Str("service", name).Str("env", cfg.Env).Logger()
}
