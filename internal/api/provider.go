// Package api provides the interface and types for fuel price providers.
package api

import (
	"context"
	"errors"

	"github.com/andygrunwald/fuelprices/internal/models"
)

// ErrUpstream marks failures talking to a price provider.
var ErrUpstream = errors.New("upstream fetch failed")

// Provider defines the interface for fuel price providers.
type Provider interface {
	// Name returns the provider identifier.
	Name() string

	// FetchHistory fetches the full price history of a fuel type.
	FetchHistory(ctx context.Context, fuelType models.FuelType) (models.PriceHistory, error)
}
