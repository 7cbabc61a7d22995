package queue

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/andygrunwald/fuelprices/internal/notifier"
)

// LocalBroker delivers messages in process, handling each one as a detached
// task on a Runner.
type LocalBroker struct {
	runner  *Runner
	handler notifier.Handler
	logger  zerolog.Logger
}

// NewLocalBroker creates a LocalBroker passing decoded events to handler.
func NewLocalBroker(runner *Runner, handler notifier.Handler, logger zerolog.Logger) *LocalBroker {
	return &LocalBroker{
		runner:  runner,
		handler: handler,
		logger:  logger.With().Str("component", "broker").Logger(),
	}
}

// SendBatch decodes every message and schedules its handling. Undecodable
// messages are reported, the rest are still scheduled.
func (b *LocalBroker) SendBatch(_ context.Context, batch [][]byte) error {
	var errs []error
	for i, data := range batch {
		env, event, err := Decode(data)
		if err != nil {
			errs = append(errs, fmt.Errorf("message %d: %w", i, err))
			continue
		}

		b.runner.Go("change-event", func(ctx context.Context) error {
			sent, err := b.handler.HandleChangeEvent(ctx, event)
			if err != nil {
				return fmt.Errorf("handling change event %s: %w", env.ID, err)
			}
			b.logger.Debug().
				Str("message_id", env.ID).
				Str("event_id", env.EventID).
				Int("seq", env.Sequence).
				Int("total", env.Total).
				Int("notifications", sent).
				Msg("handled change event")
			return nil
		})
	}
	return errors.Join(errs...)
}
