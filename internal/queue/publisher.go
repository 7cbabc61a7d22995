package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/andygrunwald/fuelprices/internal/models"
)

const (
	// MaxRecordsPerMessage bounds the new-window records of one message.
	MaxRecordsPerMessage = 25
	// MaxMessagesPerBatch bounds the messages handed to the broker at once.
	MaxMessagesPerBatch = 10
)

// Envelope wraps one chunk of a change event.
type Envelope struct {
	ID       string `msgpack:"id"`
	EventID  string `msgpack:"event_id"`
	Sequence int    `msgpack:"seq"`
	Total    int    `msgpack:"total"`
	FuelType string `msgpack:"fuel_type"`
	// Payload is the JSON encoded models.ChangeEvent chunk.
	Payload []byte `msgpack:"payload"`
}

// Broker delivers batches of encoded envelopes.
type Broker interface {
	SendBatch(ctx context.Context, batch [][]byte) error
}

// Publisher splits change events into bounded messages and sends them to a
// Broker.
type Publisher struct {
	broker Broker
	logger zerolog.Logger
}

// NewPublisher creates a Publisher.
func NewPublisher(broker Broker, logger zerolog.Logger) *Publisher {
	return &Publisher{
		broker: broker,
		logger: logger.With().Str("component", "publisher").Logger(),
	}
}

// PublishChange chunks event and sends it in batches. Failing batches do not
// stop later ones.
func (p *Publisher) PublishChange(ctx context.Context, event models.ChangeEvent) error {
	chunks := Split(event, MaxRecordsPerMessage)
	eventID := uuid.NewString()

	messages := make([][]byte, 0, len(chunks))
	for i, chunk := range chunks {
		data, err := Encode(eventID, i, len(chunks), chunk)
		if err != nil {
			return err
		}
		messages = append(messages, data)
	}

	var errs []error
	for start := 0; start < len(messages); start += MaxMessagesPerBatch {
		end := min(start+MaxMessagesPerBatch, len(messages))
		if err := p.broker.SendBatch(ctx, messages[start:end]); err != nil {
			errs = append(errs, fmt.Errorf("sending batch %d-%d: %w", start, end, err))
		}
	}

	p.logger.Debug().
		Str("event_id", eventID).
		Str("fuel_type", string(event.FuelType)).
		Int("messages", len(messages)).
		Msg("published change event")

	return errors.Join(errs...)
}

// Split cuts event into chunks of at most size new-window records. Each chunk
// carries the previous records of the same dates.
func Split(event models.ChangeEvent, size int) []models.ChangeEvent {
	if size <= 0 || len(event.RecentPrices) <= size {
		return []models.ChangeEvent{event}
	}

	prevByDate := event.PrevRecentPrices.ByDate()
	var chunks []models.ChangeEvent
	for start := 0; start < len(event.RecentPrices); start += size {
		end := min(start+size, len(event.RecentPrices))
		part := event.RecentPrices[start:end]

		prev := models.PriceHistory{}
		for _, rec := range part {
			if old, ok := prevByDate[rec.Date]; ok {
				prev = append(prev, old)
			}
		}
		chunks = append(chunks, models.ChangeEvent{
			FuelType:         event.FuelType,
			RecentPrices:     part,
			PrevRecentPrices: prev,
		})
	}
	return chunks
}

// Encode wraps a chunk into a msgpack envelope.
func Encode(eventID string, seq, total int, chunk models.ChangeEvent) ([]byte, error) {
	payload, err := json.Marshal(chunk)
	if err != nil {
		return nil, fmt.Errorf("encoding change event: %w", err)
	}
	data, err := msgpack.Marshal(&Envelope{
		ID:       uuid.NewString(),
		EventID:  eventID,
		Sequence: seq,
		Total:    total,
		FuelType: string(chunk.FuelType),
		Payload:  payload,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding envelope: %w", err)
	}
	return data, nil
}

// Decode unwraps an envelope produced by Encode.
func Decode(data []byte) (Envelope, models.ChangeEvent, error) {
	var env Envelope
	if err := msgpack.Unmarshal(data, &env); err != nil {
		return Envelope{}, models.ChangeEvent{}, fmt.Errorf("decoding envelope: %w", err)
	}
	var event models.ChangeEvent
	if err := json.Unmarshal(env.Payload, &event); err != nil {
		return env, models.ChangeEvent{}, fmt.Errorf("decoding change event %s: %w", env.ID, err)
	}
	return env, event, nil
}
