package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Dispatcher delivers a message to one subscription.
type Dispatcher interface {
	Dispatch(ctx context.Context, sub Subscription, message string) error
}

// DiscordDispatcher posts messages to Discord webhooks.
type DiscordDispatcher struct {
	client *http.Client
}

// NewDiscordDispatcher creates a DiscordDispatcher.
func NewDiscordDispatcher(timeout time.Duration) *DiscordDispatcher {
	return &DiscordDispatcher{client: &http.Client{Timeout: timeout}}
}

type discordPayload struct {
	Username string `json:"username"`
	Content  string `json:"content"`
}

// Dispatch posts message to the subscription's webhook URL.
func (d *DiscordDispatcher) Dispatch(ctx context.Context, sub Subscription, message string) error {
	return postJSON(ctx, d.client, sub.URL, discordPayload{
		Username: "Fuelprices",
		Content:  message,
	})
}

// DefaultTelegramURL is the Telegram Bot API base URL.
const DefaultTelegramURL = "https://api.telegram.org"

// TelegramDispatcher sends messages through the Telegram Bot API.
type TelegramDispatcher struct {
	client  *http.Client
	baseURL string
}

// NewTelegramDispatcher creates a TelegramDispatcher. An empty baseURL uses
// DefaultTelegramURL.
func NewTelegramDispatcher(baseURL string, timeout time.Duration) *TelegramDispatcher {
	if baseURL == "" {
		baseURL = DefaultTelegramURL
	}
	return &TelegramDispatcher{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

type telegramPayload struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

// Dispatch sends message to the subscription's chat.
func (d *TelegramDispatcher) Dispatch(ctx context.Context, sub Subscription, message string) error {
	url := fmt.Sprintf("%s/bot%s/sendMessage", d.baseURL, sub.BotToken)
	return postJSON(ctx, d.client, url, telegramPayload{
		ChatID: sub.ChatID,
		Text:   message,
	})
}

func postJSON(ctx context.Context, client *http.Client, url string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(msg))
	}
	return nil
}
