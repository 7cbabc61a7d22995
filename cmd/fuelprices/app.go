package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/andygrunwald/fuelprices/internal/api/ok"
	"github.com/andygrunwald/fuelprices/internal/config"
	"github.com/andygrunwald/fuelprices/internal/database"
	"github.com/andygrunwald/fuelprices/internal/fetcher"
	"github.com/andygrunwald/fuelprices/internal/lookup"
	"github.com/andygrunwald/fuelprices/internal/memo"
	"github.com/andygrunwald/fuelprices/internal/metrics"
	"github.com/andygrunwald/fuelprices/internal/notifier"
	"github.com/andygrunwald/fuelprices/internal/queue"
	"github.com/andygrunwald/fuelprices/internal/reconciler"
	"github.com/andygrunwald/fuelprices/internal/storage"
	"github.com/andygrunwald/fuelprices/internal/storage/filesystem"
	"github.com/andygrunwald/fuelprices/internal/storage/memory"
	"github.com/andygrunwald/fuelprices/internal/storage/redis"
	"github.com/andygrunwald/fuelprices/internal/storage/s3"
)

// app holds the wired components shared by every command.
type app struct {
	registry   *prometheus.Registry
	metrics    *metrics.Metrics
	cold       storage.ColdStore
	hot        storage.HotStore
	fetcher    *fetcher.Fetcher
	reconciler *reconciler.Reconciler
	lookup     *lookup.Service
	memo       *memo.Cache
	runner     *queue.Runner
	notifier   *notifier.Notifier
	closers    []io.Closer
	logger     zerolog.Logger
}

func newApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*app, error) {
	a := &app{
		registry: prometheus.NewRegistry(),
		logger:   logger,
	}
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.metrics = metrics.New(a.registry)

	cold, err := openColdStore(ctx, cfg.ColdStore, logger)
	if err != nil {
		return nil, fmt.Errorf("opening cold store: %w", err)
	}
	a.cold = cold

	hot, closer, err := openHotStore(cfg.HotStore, logger)
	if err != nil {
		return nil, fmt.Errorf("opening hot store: %w", err)
	}
	a.hot = hot
	if closer != nil {
		a.closers = append(a.closers, closer)
	}

	provider := ok.New(cfg.Provider.URL, cfg.Provider.Timeout, logger)
	a.fetcher = fetcher.New(provider, a.cold, a.metrics, logger)
	a.reconciler = reconciler.New(a.cold, a.hot, reconciler.Options{
		WindowSize: cfg.Reconcile.WindowSize,
		TTL:        cfg.Reconcile.TTL,
	}, a.metrics, logger)
	a.lookup = lookup.New(a.hot, a.reconciler, cfg.Reconcile.ThresholdDays, a.metrics, logger)
	a.memo = memo.New(memory.New().Hot(), cfg.Memo.TTL, a.metrics)
	a.runner = queue.NewRunner(cfg.Queue.Concurrency, logger)

	source := notifier.MultiSource{
		notifier.StaticSource(cfg.Notifications.Subscriptions),
		notifier.NewHotStoreSource(a.hot),
	}
	a.notifier = notifier.New(source, map[notifier.Target]notifier.Dispatcher{
		notifier.TargetDiscord:  notifier.NewDiscordDispatcher(cfg.Notifications.DispatchTimeout),
		notifier.TargetTelegram: notifier.NewTelegramDispatcher(cfg.Notifications.TelegramAPIBase, cfg.Notifications.DispatchTimeout),
	}, a.metrics, logger)

	if cfg.Notifications.Enabled {
		var handler notifier.Handler = a.notifier
		if cfg.Notifications.RemoteURL != "" {
			handler = notifier.NewRemoteClient(cfg.Notifications.RemoteURL, cfg.Notifications.RemoteKey, cfg.Notifications.DispatchTimeout, logger)
		}
		broker := queue.NewLocalBroker(a.runner, handler, logger)
		a.reconciler.WithPublisher(queue.NewPublisher(broker, logger))
	}

	return a, nil
}

// purger returns the hot store when it supports purging expired entries.
func (a *app) purger() (*database.DB, bool) {
	db, ok := a.hot.(*database.DB)
	return db, ok
}

// close waits for detached work and releases store connections.
// shutdown waits for the scheduler to stop before closing, so no job can
// enqueue work into a draining runner or use a closed store.
func (a *app) shutdown(ctx context.Context, schedulerDone <-chan struct{}) error {
	var err error
	select {
	case <-schedulerDone:
	case <-ctx.Done():
		err = fmt.Errorf("waiting for scheduler: %w", ctx.Err())
	}
	return errors.Join(err, a.close(ctx))
}

func (a *app) close(ctx context.Context) error {
	err := a.runner.Shutdown(ctx)
	for _, c := range a.closers {
		err = errors.Join(err, c.Close())
	}
	return err
}

func openColdStore(ctx context.Context, cfg config.ColdStoreConfig, logger zerolog.Logger) (storage.ColdStore, error) {
	switch cfg.Driver {
	case "memory":
		return memory.New(), nil
	case "filesystem":
		return filesystem.New(cfg.Dir)
	case "s3":
		return s3.New(ctx, s3.Options{
			Bucket:          cfg.S3.Bucket,
			Prefix:          cfg.S3.Prefix,
			Endpoint:        cfg.S3.Endpoint,
			Region:          cfg.S3.Region,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
		}, logger)
	default:
		return nil, fmt.Errorf("unknown cold store driver %q", cfg.Driver)
	}
}

func openHotStore(cfg config.HotStoreConfig, logger zerolog.Logger) (storage.HotStore, io.Closer, error) {
	switch cfg.Driver {
	case "memory":
		return memory.New().Hot(), nil, nil
	case "redis":
		store := redis.New(redis.Options{
			Addr:      cfg.Redis.Addr,
			Username:  cfg.Redis.Username,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			KeyPrefix: cfg.Redis.KeyPrefix,
		})
		return store, store, nil
	case "postgres":
		db, err := database.NewPostgres(cfg.PostgresDSN, logger)
		if err != nil {
			return nil, nil, err
		}
		return db, db, nil
	case "mysql":
		db, err := database.NewMySQL(cfg.MySQLDSN, logger)
		if err != nil {
			return nil, nil, err
		}
		return db, db, nil
	case "sqlite":
		db, err := database.NewSQLite(cfg.SQLitePath, logger)
		if err != nil {
			return nil, nil, err
		}
		return db, db, nil
	default:
		return nil, nil, fmt.Errorf("unknown hot store driver %q", cfg.Driver)
	}
}
