// Package ok provides an API client for the OK price history service.
package ok

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/andygrunwald/fuelprices/internal/api"
	"github.com/andygrunwald/fuelprices/internal/models"
	"github.com/andygrunwald/fuelprices/internal/useragent"
)

const (
	// ProviderName is the identifier for this provider.
	ProviderName = "ok"
	// DefaultURL is the product history endpoint of OK.
	DefaultURL = "https://www.ok.dk/privat/produkter/ok-kort/prisudvikling/getProduktHistorik"
)

// apiRequest is the body posted to the history endpoint.
type apiRequest struct {
	ItemNumber int  `json:"varenr"`
	PumpPrice  bool `json:"pumpepris"`
}

// apiResponse represents the JSON response from the OK API.
type apiResponse struct {
	ShowPricesFor1000Liter bool           `json:"visPriserFor1000Liter"`
	History                []historyValue `json:"historik"`
}

// historyValue represents a single price data point. Tax and item number
// fields of the payload are not decoded.
type historyValue struct {
	Date  *models.Day      `json:"dato"`
	Price *decimal.Decimal `json:"pris"`
}

// Provider implements the API provider interface for OK.
type Provider struct {
	client *http.Client
	url    string
	logger zerolog.Logger
}

// New creates a new OK provider posting to url. An empty url uses DefaultURL.
func New(url string, timeout time.Duration, logger zerolog.Logger) *Provider {
	if url == "" {
		url = DefaultURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Provider{
		client: &http.Client{
			Timeout: timeout,
		},
		url:    url,
		logger: logger.With().Str("provider", ProviderName).Logger(),
	}
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return ProviderName
}

// FetchHistory fetches the full price history of a fuel type.
func (p *Provider) FetchHistory(ctx context.Context, fuelType models.FuelType) (models.PriceHistory, error) {
	history, err := p.fetch(ctx, fuelType)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %w", api.ErrUpstream, ProviderName, fuelType, err)
	}
	return history, nil
}

func (p *Provider) fetch(ctx context.Context, fuelType models.FuelType) (models.PriceHistory, error) {
	payload, err := json.Marshal(apiRequest{
		ItemNumber: fuelType.ItemNumber(),
		PumpPrice:  true,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	p.logger.Debug().
		Str("url", p.url).
		Str("fuel_type", string(fuelType)).
		Int("item_number", fuelType.ItemNumber()).
		Msg("fetching prices from OK")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("User-Agent", useragent.Random())
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, truncate(body, 512))
	}

	var apiResp apiResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("parsing response JSON: %w", err)
	}

	if len(apiResp.History) == 0 {
		return nil, fmt.Errorf("response contains no price history")
	}

	history := make(models.PriceHistory, 0, len(apiResp.History))
	for i, v := range apiResp.History {
		if v.Date == nil || *v.Date == (models.Day{}) {
			return nil, fmt.Errorf("history entry %d has no date", i)
		}
		if v.Price == nil {
			return nil, fmt.Errorf("history entry %d (%s) has no price", i, v.Date)
		}
		history = append(history, models.PriceRecord{
			Date:           *v.Date,
			Price:          *v.Price,
			PriorRevisions: []models.Revision{},
		})
	}

	p.logger.Info().
		Str("fuel_type", string(fuelType)).
		Int("count", len(history)).
		Msg("fetched prices from OK")

	return history, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

var _ api.Provider = (*Provider)(nil)
