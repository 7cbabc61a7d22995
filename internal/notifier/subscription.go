package notifier

import (
	"context"
	"errors"
	"fmt"

	"github.com/andygrunwald/fuelprices/internal/models"
	"github.com/andygrunwald/fuelprices/internal/storage"
)

// SubscriptionsKey is the hot store key holding the subscription list.
const SubscriptionsKey = "notifications"

// Target is a notification channel.
type Target string

const (
	// TargetDiscord posts to a Discord webhook.
	TargetDiscord Target = "discord"
	// TargetTelegram sends a message through a Telegram bot.
	TargetTelegram Target = "telegram"
)

// Subscription asks for a notification when the price of a fuel type changes.
type Subscription struct {
	FuelType models.FuelType `json:"fuelType" mapstructure:"fuel_type"`
	Target   Target          `json:"target" mapstructure:"target"`
	URL      string          `json:"url,omitempty" mapstructure:"url"`
	ChatID   string          `json:"chatId,omitempty" mapstructure:"chat_id"`
	BotToken string          `json:"botToken,omitempty" mapstructure:"bot_token"`
}

// Normalize rewrites the fuel type to its canonical spelling. Unknown
// fuel types are left alone for Validate to report.
func (s Subscription) Normalize() Subscription {
	if ft, ok := models.ParseFuelType(string(s.FuelType)); ok {
		s.FuelType = ft
	}
	return s
}

// Validate checks that the subscription can be dispatched. The fuel type
// must be canonical, see Normalize.
func (s Subscription) Validate() error {
	if !s.FuelType.Valid() {
		return fmt.Errorf("unknown fuel type %q", s.FuelType)
	}
	switch s.Target {
	case TargetDiscord:
		if s.URL == "" {
			return errors.New("discord subscription needs a webhook url")
		}
	case TargetTelegram:
		if s.ChatID == "" || s.BotToken == "" {
			return errors.New("telegram subscription needs a chat id and bot token")
		}
	default:
		return fmt.Errorf("unknown target %q", s.Target)
	}
	return nil
}

// SubscriptionSource lists the registered subscriptions.
type SubscriptionSource interface {
	Subscriptions(ctx context.Context) ([]Subscription, error)
}

// StaticSource is a fixed subscription list, usually from configuration.
type StaticSource []Subscription

// Subscriptions returns the list with canonical fuel types.
func (s StaticSource) Subscriptions(context.Context) ([]Subscription, error) {
	out := make([]Subscription, len(s))
	for i, sub := range s {
		out[i] = sub.Normalize()
	}
	return out, nil
}

// HotStoreSource reads the subscription list from a JSON array in the hot store.
type HotStoreSource struct {
	store storage.HotStore
}

// NewHotStoreSource creates a HotStoreSource.
func NewHotStoreSource(store storage.HotStore) *HotStoreSource {
	return &HotStoreSource{store: store}
}

// Subscriptions returns the stored list. A missing key is an empty list.
func (s *HotStoreSource) Subscriptions(ctx context.Context) ([]Subscription, error) {
	var subs []Subscription
	err := storage.GetJSON(ctx, s.store, SubscriptionsKey, &subs)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading subscriptions: %w", err)
	}
	for i := range subs {
		subs[i] = subs[i].Normalize()
	}
	return subs, nil
}

// Save replaces the stored list. The entry never expires.
func (s *HotStoreSource) Save(ctx context.Context, subs []Subscription) error {
	normalized := make([]Subscription, len(subs))
	for i, sub := range subs {
		normalized[i] = sub.Normalize()
		if err := normalized[i].Validate(); err != nil {
			return fmt.Errorf("subscription %d: %w", i, err)
		}
	}
	return storage.PutJSON(ctx, s.store, SubscriptionsKey, normalized, 0)
}

// MultiSource concatenates several sources.
type MultiSource []SubscriptionSource

// Subscriptions returns the subscriptions of every source in order.
func (m MultiSource) Subscriptions(ctx context.Context) ([]Subscription, error) {
	var out []Subscription
	for _, src := range m {
		subs, err := src.Subscriptions(ctx)
		if err != nil {
			return nil, err
		}
		out = append(out, subs...)
	}
	return out, nil
}
