package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/andygrunwald/fuelprices/internal/http"
	"github.com/andygrunwald/fuelprices/internal/scheduler"
	"github.com/andygrunwald/fuelprices/internal/storage"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server with the fetch and reconcile scheduler",
		Long:  "Starts the lookup API together with the cron scheduler that fetches and reconciles prices every hour.",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogger()

			logger.Info().
				Str("version", Version).
				Str("commit", Commit).
				Str("buildDate", BuildDate).
				Str("httpAddr", cfg.HTTP.Addr).
				Str("coldStore", cfg.ColdStore.Driver).
				Str("hotStore", cfg.HotStore.Driver).
				Msg("starting fuel price service")

			// Setup signal handling
			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			a, err := newApp(ctx, cfg, logger)
			if err != nil {
				return err
			}

			sched := scheduler.New(logger)
			if cfg.Scheduler.Enabled {
				if err := addJobs(sched, a); err != nil {
					return err
				}
			}

			httpServer := http.NewServer(http.Deps{
				Config:     cfg.HTTP,
				Lookup:     a.lookup,
				Memo:       a.memo,
				Fetcher:    a.fetcher,
				Reconciler: a.reconciler,
				Notifier:   a.notifier,
				Runner:     a.runner,
				Scheduler:  sched,
				Stores:     storeChecks(a),
				Gatherer:   a.registry,
				Logger:     logger,
			})

			// Start HTTP server in goroutine
			go func() {
				if err := httpServer.Start(); err != nil {
					logger.Error().Err(err).Msg("HTTP server error")
					cancel()
				}
			}()

			// Start scheduler in goroutine
			schedulerDone := make(chan struct{})
			if cfg.Scheduler.Enabled {
				go func() {
					defer close(schedulerDone)
					if err := sched.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
						logger.Error().Err(err).Msg("scheduler error")
						cancel()
					}
				}()
				if cfg.Scheduler.RunOnStart {
					a.runner.Go("initial_fetch", func(ctx context.Context) error {
						return sched.RunNow(ctx, scheduler.JobFetch)
					})
				}
			} else {
				close(schedulerDone)
			}

			<-ctx.Done()
			logger.Info().Msg("received signal, shutting down")

			// Graceful shutdown
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer shutdownCancel()

			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.Error().Err(err).Msg("HTTP server shutdown error")
			}
			if err := a.shutdown(shutdownCtx, schedulerDone); err != nil {
				logger.Error().Err(err).Msg("background work shutdown error")
			}

			logger.Info().Msg("shutdown complete")
			return nil
		},
	}
}

func addJobs(sched *scheduler.Scheduler, a *app) error {
	jobs := []scheduler.Job{
		scheduler.FetchJob(cfg.Scheduler.FetchSchedule, a.fetcher, a.reconciler),
		scheduler.ReconcileJob(cfg.Scheduler.ReconcileSchedule, a.reconciler),
	}
	if db, ok := a.purger(); ok && cfg.Scheduler.PurgeSchedule != "" {
		jobs = append(jobs, scheduler.PurgeJob(cfg.Scheduler.PurgeSchedule, db))
	}
	for _, job := range jobs {
		if err := sched.AddJob(job); err != nil {
			return fmt.Errorf("adding %s job: %w", job.Name, err)
		}
	}
	return nil
}

func storeChecks(a *app) map[string]http.Store {
	stores := map[string]http.Store{
		"cold": {Driver: cfg.ColdStore.Driver},
		"hot":  {Driver: cfg.HotStore.Driver},
	}
	if p, ok := a.cold.(storage.Pinger); ok {
		stores["cold"] = http.Store{Driver: cfg.ColdStore.Driver, Pinger: p}
	}
	if p, ok := a.hot.(storage.Pinger); ok {
		stores["hot"] = http.Store{Driver: cfg.HotStore.Driver, Pinger: p}
	}
	return stores
}
