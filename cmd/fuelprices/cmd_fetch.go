package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func fetchCmd() *cobra.Command {
	var reconcile bool

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Run a one-time fetch of every fuel type",
		Long:  "Fetches the full price history of every fuel type into the cold store. Useful for testing and for seeding a new cold store.",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogger()
			ctx := cmd.Context()

			a, err := newApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer closeApp(a)

			logger.Info().Bool("reconcile", reconcile).Msg("running one-time fetch")

			err = a.fetcher.FetchAll(ctx)
			if reconcile {
				err = errors.Join(err, a.reconciler.ReconcileAll(ctx))
			}
			if err != nil {
				return fmt.Errorf("fetching: %w", err)
			}

			logger.Info().Msg("fetch completed")
			return nil
		},
	}

	cmd.Flags().BoolVar(&reconcile, "reconcile", false, "Reconcile the hot store tiers after fetching")

	return cmd
}

func reconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Rebuild the hot store tiers from the cold store",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogger()
			ctx := cmd.Context()

			a, err := newApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer closeApp(a)

			if err := a.reconciler.ReconcileAll(ctx); err != nil {
				return fmt.Errorf("reconciling: %w", err)
			}

			logger.Info().Msg("reconcile completed")
			return nil
		},
	}
}

// closeApp waits for detached notification work before the process exits.
func closeApp(a *app) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := a.close(ctx); err != nil {
		a.logger.Error().Err(err).Msg("shutdown error")
	}
}
