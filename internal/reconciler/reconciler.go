// Package reconciler rebuilds the hot store tiers from the cold store and
// tracks price revisions between passes.
package reconciler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/rs/zerolog"

	"github.com/andygrunwald/fuelprices/internal/metrics"
	"github.com/andygrunwald/fuelprices/internal/models"
	"github.com/andygrunwald/fuelprices/internal/storage"
)

const (
	// DefaultWindowSize is the number of newest records kept in the recent tier.
	DefaultWindowSize = 33
	// DefaultTTL outlives the hourly refresh cadence by two minutes.
	DefaultTTL = 3720 * time.Second
)

// ChangePublisher receives the recent window before and after a pass.
type ChangePublisher interface {
	PublishChange(ctx context.Context, event models.ChangeEvent) error
}

// Options configures a Reconciler.
type Options struct {
	WindowSize int
	TTL        time.Duration
}

// Reconciler derives the recent and archive tiers of each fuel type.
// Concurrent passes for the same fuel type are not coordinated; the last
// writer wins.
type Reconciler struct {
	cold       storage.ColdStore
	hot        storage.HotStore
	publisher  ChangePublisher
	windowSize int
	ttl        time.Duration
	now        func() time.Time
	metrics    *metrics.Metrics
	logger     zerolog.Logger
}

// New creates a new Reconciler. Zero options fall back to the defaults.
func New(cold storage.ColdStore, hot storage.HotStore, opts Options, m *metrics.Metrics, logger zerolog.Logger) *Reconciler {
	if opts.WindowSize <= 0 {
		opts.WindowSize = DefaultWindowSize
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	return &Reconciler{
		cold:       cold,
		hot:        hot,
		windowSize: opts.WindowSize,
		ttl:        opts.TTL,
		now:        time.Now,
		metrics:    m,
		logger:     logger.With().Str("component", "reconciler").Logger(),
	}
}

// WithPublisher sets the publisher notified after each pass that had a
// previous recent window.
func (r *Reconciler) WithPublisher(p ChangePublisher) *Reconciler {
	r.publisher = p
	return r
}

// WithClock replaces the clock used for revision timestamps.
func (r *Reconciler) WithClock(now func() time.Time) *Reconciler {
	r.now = now
	return r
}

// ReconcileAll reconciles every fuel type sequentially. A failing fuel type
// is logged and does not stop the others.
func (r *Reconciler) ReconcileAll(ctx context.Context) error {
	var errs []error
	for _, ft := range models.AllFuelTypes {
		if err := r.Reconcile(ctx, ft); err != nil {
			r.logger.Error().
				Err(err).
				Str("fuel_type", string(ft)).
				Msg("failed to reconcile fuel type")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Reconcile rebuilds the tiers of fuelType. A missing cold document is not an
// error. A failing cold read leaves the hot store untouched.
func (r *Reconciler) Reconcile(ctx context.Context, fuelType models.FuelType) error {
	logger := r.logger.With().Str("fuel_type", string(fuelType)).Logger()

	data, err := r.cold.Get(ctx, fuelType.ColdKey())
	r.metrics.RecordStoreOperation("cold", "get", metrics.Status(ignoreNotFound(err)))
	if errors.Is(err, storage.ErrNotFound) {
		logger.Debug().Msg("no cold document, nothing to reconcile")
		return nil
	}
	if err != nil {
		r.metrics.RecordReconcile(string(fuelType), "error", 0)
		return fmt.Errorf("reading cold document %s: %w", fuelType.ColdKey(), err)
	}

	var doc models.ColdDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		r.metrics.RecordReconcile(string(fuelType), "error", 0)
		return fmt.Errorf("decoding cold document %s: %w", fuelType.ColdKey(), err)
	}

	var previous models.PriceHistory
	err = storage.GetJSON(ctx, r.hot, fuelType.HotKey(models.TierRecent), &previous)
	r.metrics.RecordStoreOperation("hot", "get", metrics.Status(ignoreNotFound(err)))
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		logger.Warn().Err(err).Msg("failed to read previous recent window, starting fresh")
		previous = nil
	}

	window, revisions := CarryRevisions(previous, doc.History.Latest(r.windowSize), r.now().UTC())

	writeErr := errors.Join(
		r.write(ctx, fuelType.HotKey(models.TierArchive), doc.History.Normalized()),
		r.write(ctx, fuelType.HotKey(models.TierRecent), window),
	)
	if writeErr != nil {
		logger.Error().Err(writeErr).Msg("failed to write hot store tiers")
	}
	r.metrics.RecordReconcile(string(fuelType), metrics.Status(writeErr), revisions)

	logger.Info().
		Int("archive_records", len(doc.History)).
		Int("recent_records", len(window)).
		Int("revisions", revisions).
		Msg("reconciled price tiers")

	if r.publisher != nil && len(previous) > 0 {
		event := models.ChangeEvent{
			FuelType:         fuelType,
			RecentPrices:     window,
			PrevRecentPrices: previous,
		}
		if err := r.publisher.PublishChange(ctx, event); err != nil {
			logger.Error().Err(err).Msg("failed to publish change event")
		}
	}

	return writeErr
}

func (r *Reconciler) write(ctx context.Context, key string, history models.PriceHistory) error {
	err := storage.PutJSON(ctx, r.hot, key, history, r.ttl)
	r.metrics.RecordStoreOperation("hot", "put", metrics.Status(err))
	if err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	return nil
}

// CarryRevisions returns next with the revision history of previous carried
// forward. A date whose price differs from previous gets the previous price
// appended as a revision detected at detectedAt. Dates missing from previous
// keep their own revisions. The second return value counts new revisions.
func CarryRevisions(previous, next models.PriceHistory, detectedAt time.Time) (models.PriceHistory, int) {
	prevByDate := previous.ByDate()
	out := next.Clone()
	revisions := 0

	for i := range out {
		rec := &out[i]
		old, ok := prevByDate[rec.Date]
		if !ok {
			if rec.PriorRevisions == nil {
				rec.PriorRevisions = []models.Revision{}
			}
			continue
		}

		revs := slices.Clone(old.PriorRevisions)
		if revs == nil {
			revs = []models.Revision{}
		}
		if !old.Price.Equal(rec.Price) {
			revs = append(revs, models.Revision{
				DetectedAt: detectedAt,
				Price:      old.Price,
			})
			revisions++
		}
		rec.PriorRevisions = revs
	}

	if out == nil {
		out = models.PriceHistory{}
	}
	return out, revisions
}

func ignoreNotFound(err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	return err
}
