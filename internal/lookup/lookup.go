// Package lookup serves point-in-time price lookups from the hot store.
package lookup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/andygrunwald/fuelprices/internal/metrics"
	"github.com/andygrunwald/fuelprices/internal/models"
	"github.com/andygrunwald/fuelprices/internal/storage"
)

// DefaultThresholdDays is the largest distance from today, in days, served
// from the recent tier.
const DefaultThresholdDays = 31

// ErrNotFound is returned when no record exists for the requested date.
var ErrNotFound = errors.New("no prices found for date")

// Reconciler fills the hot store tiers of a fuel type.
type Reconciler interface {
	Reconcile(ctx context.Context, fuelType models.FuelType) error
}

// Service looks up prices around a date.
type Service struct {
	hot        storage.HotStore
	reconciler Reconciler
	threshold  int
	now        func() time.Time
	metrics    *metrics.Metrics
	logger     zerolog.Logger
}

// New creates a lookup Service. A negative threshold uses DefaultThresholdDays.
func New(hot storage.HotStore, reconciler Reconciler, thresholdDays int, m *metrics.Metrics, logger zerolog.Logger) *Service {
	if thresholdDays < 0 {
		thresholdDays = DefaultThresholdDays
	}
	return &Service{
		hot:        hot,
		reconciler: reconciler,
		threshold:  thresholdDays,
		now:        time.Now,
		metrics:    m,
		logger:     logger.With().Str("component", "lookup").Logger(),
	}
}

// WithClock replaces the clock that defines today.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Today returns the current calendar day.
func (s *Service) Today() models.Day {
	return models.DayOf(s.now())
}

// SelectTier returns the tier serving day. Days at most the threshold away
// from today, in either direction, use the recent tier.
func (s *Service) SelectTier(day models.Day) models.Tier {
	diff := day.DaysSince(s.Today())
	if diff < 0 {
		diff = -diff
	}
	if diff <= s.threshold {
		return models.TierRecent
	}
	return models.TierArchive
}

// GetPrices returns the records of day and its neighbours. An empty tier is
// filled by a single synchronous reconcile before giving up.
func (s *Service) GetPrices(ctx context.Context, fuelType models.FuelType, day models.Day) (*models.DayPrices, error) {
	tier := s.SelectTier(day)

	history, err := s.load(ctx, fuelType, tier)
	if err != nil {
		return nil, err
	}

	today, ok := history.Find(day)
	if !ok {
		s.metrics.RecordLookup(string(tier), "not_found")
		return nil, fmt.Errorf("%s on %s: %w", fuelType, day, ErrNotFound)
	}

	result := &models.DayPrices{Today: today}
	if rec, ok := history.Find(day.AddDays(-1)); ok {
		result.Yesterday = &rec
	}
	if rec, ok := history.Find(day.AddDays(1)); ok {
		result.Tomorrow = &rec
	}

	s.metrics.RecordLookup(string(tier), "found")
	return result, nil
}

// Range returns the archived records from from to to, both inclusive.
func (s *Service) Range(ctx context.Context, fuelType models.FuelType, from, to models.Day) (models.PriceHistory, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("range end %s is before start %s", to, from)
	}
	history, err := s.load(ctx, fuelType, models.TierArchive)
	if err != nil {
		return nil, err
	}
	return history.Between(from, to), nil
}

// load reads a tier, reconciling once when it is empty.
func (s *Service) load(ctx context.Context, fuelType models.FuelType, tier models.Tier) (models.PriceHistory, error) {
	logger := s.logger.With().
		Str("fuel_type", string(fuelType)).
		Str("tier", string(tier)).
		Logger()

	history := s.read(ctx, logger, fuelType, tier)
	if len(history) > 0 {
		return history, nil
	}

	logger.Info().Msg("tier empty, reconciling")
	if err := s.reconciler.Reconcile(ctx, fuelType); err != nil {
		logger.Error().Err(err).Msg("lazy reconcile failed")
	}

	history = s.read(ctx, logger, fuelType, tier)
	if len(history) == 0 {
		s.metrics.RecordLookup(string(tier), "empty")
		return nil, fmt.Errorf("%s %s tier is empty: %w", fuelType, tier, ErrNotFound)
	}
	return history, nil
}

// read treats a failing read like an absent entry.
func (s *Service) read(ctx context.Context, logger zerolog.Logger, fuelType models.FuelType, tier models.Tier) models.PriceHistory {
	var history models.PriceHistory
	err := storage.GetJSON(ctx, s.hot, fuelType.HotKey(tier), &history)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		s.metrics.RecordStoreOperation("hot", "get", "error")
		logger.Warn().Err(err).Msg("failed to read tier")
		return nil
	}
	s.metrics.RecordStoreOperation("hot", "get", "success")
	return history
}
