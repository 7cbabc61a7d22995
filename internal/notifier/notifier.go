// Package notifier detects changes of today's price and notifies subscribers.
package notifier

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/andygrunwald/fuelprices/internal/metrics"
	"github.com/andygrunwald/fuelprices/internal/models"
)

// Handler consumes change events and reports how many notifications went out.
type Handler interface {
	HandleChangeEvent(ctx context.Context, event models.ChangeEvent) (int, error)
}

// Notifier compares today's price between two recent windows and dispatches
// to every subscription of the fuel type when it changed.
type Notifier struct {
	source      SubscriptionSource
	dispatchers map[Target]Dispatcher
	now         func() time.Time
	metrics     *metrics.Metrics
	logger      zerolog.Logger
}

// New creates a Notifier.
func New(source SubscriptionSource, dispatchers map[Target]Dispatcher, m *metrics.Metrics, logger zerolog.Logger) *Notifier {
	return &Notifier{
		source:      source,
		dispatchers: dispatchers,
		now:         time.Now,
		metrics:     m,
		logger:      logger.With().Str("component", "notifier").Logger(),
	}
}

// WithClock replaces the clock that defines today.
func (n *Notifier) WithClock(now func() time.Time) *Notifier {
	n.now = now
	return n
}

// HandleChangeEvent notifies subscribers when today's price differs between
// the previous and the new window. Every matching subscription is counted,
// dispatch failures are only logged.
func (n *Notifier) HandleChangeEvent(ctx context.Context, event models.ChangeEvent) (int, error) {
	today := models.DayOf(n.now())
	logger := n.logger.With().
		Str("fuel_type", string(event.FuelType)).
		Str("date", today.String()).
		Logger()

	current, ok := event.RecentPrices.Find(today)
	if !ok {
		logger.Debug().Msg("no price for today in new window")
		return 0, nil
	}
	previous, ok := event.PrevRecentPrices.Find(today)
	if !ok {
		logger.Debug().Msg("no price for today in previous window")
		return 0, nil
	}
	if current.Price.Equal(previous.Price) {
		return 0, nil
	}

	subs, err := n.source.Subscriptions(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing subscriptions: %w", err)
	}

	message := Message(event.FuelType, today, previous, current)
	sent := 0
	for _, sub := range subs {
		if sub.FuelType != event.FuelType {
			continue
		}
		sent++

		dispatcher, ok := n.dispatchers[sub.Target]
		if !ok {
			logger.Warn().Str("target", string(sub.Target)).Msg("no dispatcher for target")
			n.metrics.RecordNotification(string(sub.Target), "error")
			continue
		}
		err := dispatcher.Dispatch(ctx, sub, message)
		n.metrics.RecordNotification(string(sub.Target), metrics.Status(err))
		if err != nil {
			logger.Error().Err(err).Str("target", string(sub.Target)).Msg("failed to dispatch notification")
		}
	}

	logger.Info().
		Str("previous", previous.Price.String()).
		Str("current", current.Price.String()).
		Int("notifications", sent).
		Msg("price of today changed")

	return sent, nil
}

// Message is the notification text of a price change.
func Message(fuelType models.FuelType, day models.Day, previous, current models.PriceRecord) string {
	return fmt.Sprintf("Price of %s for %s has changed! Previous: %s, current: %s",
		fuelType, day, previous.Price.String(), current.Price.String())
}
