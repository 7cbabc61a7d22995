package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/andygrunwald/fuelprices/internal/models"
)

// RemoteClient forwards change events to the change event endpoint of
// another instance.
type RemoteClient struct {
	client *http.Client
	url    string
	key    string
	logger zerolog.Logger
}

// NewRemoteClient creates a RemoteClient posting to url with key as the
// Authorization header.
func NewRemoteClient(url, key string, timeout time.Duration, logger zerolog.Logger) *RemoteClient {
	return &RemoteClient{
		client: &http.Client{Timeout: timeout},
		url:    url,
		key:    key,
		logger: logger.With().Str("component", "notifier_remote").Logger(),
	}
}

// HandleChangeEvent posts event and returns the remote notification count.
func (c *RemoteClient) HandleChangeEvent(ctx context.Context, event models.ChangeEvent) (int, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return 0, fmt.Errorf("encoding change event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.key)

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(msg))
	}

	var result struct {
		NotificationsSent int `json:"notificationsSent"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, fmt.Errorf("decoding response: %w", err)
	}

	c.logger.Debug().
		Str("fuel_type", string(event.FuelType)).
		Int("notifications", result.NotificationsSent).
		Msg("forwarded change event")

	return result.NotificationsSent, nil
}

var (
	_ Handler = (*Notifier)(nil)
	_ Handler = (*RemoteClient)(nil)
)
