package scheduler

import (
	"context"
	"errors"
)

// Names of the standard jobs.
const (
	JobFetch     = "fetch"
	JobReconcile = "reconcile"
	JobPurge     = "purge"
)

// Fetcher fetches every fuel type into the cold store.
type Fetcher interface {
	FetchAll(ctx context.Context) error
}

// Reconciler rebuilds the hot store tiers of every fuel type.
type Reconciler interface {
	ReconcileAll(ctx context.Context) error
}

// Purger removes expired hot store entries.
type Purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// FetchJob fetches every fuel type and reconciles afterwards, even when
// some fetches failed.
func FetchJob(schedule string, f Fetcher, r Reconciler) Job {
	return Job{
		Name:     JobFetch,
		Schedule: schedule,
		Run: func(ctx context.Context) error {
			fetchErr := f.FetchAll(ctx)
			return errors.Join(fetchErr, r.ReconcileAll(ctx))
		},
	}
}

// ReconcileJob reconciles every fuel type.
func ReconcileJob(schedule string, r Reconciler) Job {
	return Job{
		Name:     JobReconcile,
		Schedule: schedule,
		Run:      r.ReconcileAll,
	}
}

// PurgeJob deletes expired entries from SQL backed hot stores.
func PurgeJob(schedule string, p Purger) Job {
	return Job{
		Name:     JobPurge,
		Schedule: schedule,
		Run: func(ctx context.Context) error {
			_, err := p.PurgeExpired(ctx)
			return err
		},
	}
}
