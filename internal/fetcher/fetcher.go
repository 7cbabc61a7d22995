// Package fetcher pulls price histories from a provider into the cold store.
package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/andygrunwald/fuelprices/internal/api"
	"github.com/andygrunwald/fuelprices/internal/metrics"
	"github.com/andygrunwald/fuelprices/internal/models"
	"github.com/andygrunwald/fuelprices/internal/storage"
)

// Metrics holds fetch state for a fuel type.
type Metrics struct {
	mu               sync.RWMutex
	TotalRequests    int64
	TotalErrors      int64
	LastFetchAt      *time.Time
	LastFetchSuccess bool
	LastResponseTime time.Duration
	LastPrice        *float64
	LastError        *string
	RecordCount      int
}

// GetSnapshot returns a thread-safe snapshot of the metrics.
func (m *Metrics) GetSnapshot() models.FetchStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return models.FetchStatus{
		LastFetchAt:        m.LastFetchAt,
		LastFetchSuccess:   m.LastFetchSuccess,
		LastResponseTimeMs: m.LastResponseTime.Milliseconds(),
		LastPrice:          m.LastPrice,
		LastError:          m.LastError,
		RecordCount:        m.RecordCount,
		TotalRequests:      m.TotalRequests,
		TotalErrors:        m.TotalErrors,
	}
}

// Fetcher fetches the full history of each fuel type and overwrites its cold
// store document.
type Fetcher struct {
	provider api.Provider
	cold     storage.ColdStore
	metrics  *metrics.Metrics
	state    map[models.FuelType]*Metrics
	now      func() time.Time
	logger   zerolog.Logger
}

// New creates a new Fetcher. m may be nil.
func New(provider api.Provider, cold storage.ColdStore, m *metrics.Metrics, logger zerolog.Logger) *Fetcher {
	state := make(map[models.FuelType]*Metrics, len(models.AllFuelTypes))
	for _, ft := range models.AllFuelTypes {
		state[ft] = &Metrics{}
	}
	return &Fetcher{
		provider: provider,
		cold:     cold,
		metrics:  m,
		state:    state,
		now:      time.Now,
		logger:   logger.With().Str("component", "fetcher").Logger(),
	}
}

// WithClock replaces the clock used for fetch timestamps.
func (f *Fetcher) WithClock(now func() time.Time) *Fetcher {
	f.now = now
	return f
}

// Status returns the fetch state of every fuel type.
func (f *Fetcher) Status() map[models.FuelType]models.FetchStatus {
	out := make(map[models.FuelType]models.FetchStatus, len(f.state))
	for ft, m := range f.state {
		out[ft] = m.GetSnapshot()
	}
	return out
}

// FetchAll fetches every fuel type sequentially. A failing fuel type is
// logged and does not stop the others. The returned error joins all failures.
func (f *Fetcher) FetchAll(ctx context.Context) error {
	var errs []error
	for _, ft := range models.AllFuelTypes {
		if err := f.FetchAndStore(ctx, ft); err != nil {
			f.logger.Error().
				Err(err).
				Str("fuel_type", string(ft)).
				Msg("failed to fetch fuel type")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// FetchAndStore fetches the history of fuelType and overwrites its cold
// store document. Nothing is written unless the full payload parsed.
func (f *Fetcher) FetchAndStore(ctx context.Context, requested models.FuelType) error {
	fuelType, ok := models.ParseFuelType(string(requested))
	if !ok {
		return fmt.Errorf("unknown fuel type %q", requested)
	}
	state, ok := f.state[fuelType]
	if !ok {
		return fmt.Errorf("unknown fuel type %q", requested)
	}

	f.logger.Info().
		Str("provider", f.provider.Name()).
		Str("fuel_type", string(fuelType)).
		Msg("fetching price history")

	start := time.Now()
	state.mu.Lock()
	state.TotalRequests++
	state.mu.Unlock()

	history, err := f.provider.FetchHistory(ctx, fuelType)
	duration := time.Since(start)
	f.metrics.RecordProviderRequest(f.provider.Name(), string(fuelType), metrics.Status(err), duration.Seconds())

	if err == nil {
		err = f.store(ctx, fuelType, history)
	}

	now := f.now()
	state.mu.Lock()
	state.LastFetchAt = &now
	state.LastResponseTime = duration
	if err != nil {
		state.TotalErrors++
		state.LastFetchSuccess = false
		errStr := err.Error()
		state.LastError = &errStr
	} else {
		state.LastFetchSuccess = true
		state.LastError = nil
		state.RecordCount = len(history)
		if latest := history.Latest(1); len(latest) == 1 {
			price := latest[0].Price.InexactFloat64()
			state.LastPrice = &price
		}
	}
	state.mu.Unlock()

	if err != nil {
		f.logger.Error().
			Err(err).
			Str("fuel_type", string(fuelType)).
			Dur("duration", duration).
			Msg("failed to fetch and store prices")
		return err
	}

	if latest := history.Latest(1); len(latest) == 1 {
		f.metrics.RecordFetch(string(fuelType), float64(now.Unix()), latest[0].Price.InexactFloat64(), len(history))
	}

	f.logger.Info().
		Str("fuel_type", string(fuelType)).
		Int("count", len(history)).
		Dur("duration", duration).
		Msg("stored price history")

	return nil
}

func (f *Fetcher) store(ctx context.Context, fuelType models.FuelType, history models.PriceHistory) error {
	doc := models.ColdDocument{
		FuelType:  fuelType,
		FetchedAt: f.now().UTC(),
		History:   history.Normalized(),
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding cold document: %w", err)
	}
	err = f.cold.Put(ctx, fuelType.ColdKey(), data)
	f.metrics.RecordStoreOperation("cold", "put", metrics.Status(err))
	if err != nil {
		return fmt.Errorf("writing cold document %s: %w", fuelType.ColdKey(), err)
	}
	return nil
}
