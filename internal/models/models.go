// Package models provides shared data types for the fuel price service.
//
// Importing models sets decimal.MarshalJSONWithoutQuotes for the whole
// process: every decimal.Decimal, inside this package or not, encodes as a
// JSON number such as 14.79 instead of the string "14.79". Stored documents
// and API responses rely on the number form, and decoding accepts both.
package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// init switches decimal encoding to JSON numbers process wide, see the
// package doc.
func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// FuelType identifies one of the supported fuel products.
type FuelType string

const (
	// FuelTypeUnleaded95 is unleaded octane 95 petrol.
	FuelTypeUnleaded95 FuelType = "Unleaded95"
	// FuelTypeOctane100 is octane 100 petrol.
	FuelTypeOctane100 FuelType = "Octane100"
	// FuelTypeDiesel is diesel.
	FuelTypeDiesel FuelType = "Diesel"
)

// AllFuelTypes lists every fuel type in the order batch jobs process them.
var AllFuelTypes = []FuelType{FuelTypeUnleaded95, FuelTypeOctane100, FuelTypeDiesel}

// ParseFuelType parses a fuel type case-insensitively.
func ParseFuelType(s string) (FuelType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "unleaded95":
		return FuelTypeUnleaded95, true
	case "octane100":
		return FuelTypeOctane100, true
	case "diesel":
		return FuelTypeDiesel, true
	default:
		return "", false
	}
}

// Valid reports whether f is one of the known fuel types in its canonical
// spelling. Use ParseFuelType for user input.
func (f FuelType) Valid() bool {
	canonical, ok := ParseFuelType(string(f))
	return ok && canonical == f
}

// ItemNumber returns the provider item number for the fuel type.
func (f FuelType) ItemNumber() int {
	switch f {
	case FuelTypeOctane100:
		return 533
	case FuelTypeDiesel:
		return 231
	default:
		return 536
	}
}

// ColdKey returns the cold store key holding the full history of the fuel type.
func (f FuelType) ColdKey() string {
	return fmt.Sprintf("prices/%s.json", f)
}

// HotKey returns the hot store key of the given tier for the fuel type.
func (f FuelType) HotKey(tier Tier) string {
	return fmt.Sprintf("%s:%s", tier, f)
}

// Tier is a hot store granularity.
type Tier string

const (
	// TierRecent holds the bounded window of the newest records.
	TierRecent Tier = "recent"
	// TierArchive holds the full price history.
	TierArchive Tier = "archive"
)

// Revision is a previously observed price for a date.
type Revision struct {
	// DetectedAt is when the price change was noticed.
	DetectedAt time.Time `json:"detectionTimestamp"`
	// Price is the price that was replaced.
	Price decimal.Decimal `json:"price"`
}

// PriceRecord is the price of a fuel type on a single calendar day.
type PriceRecord struct {
	Date  Day             `json:"date"`
	Price decimal.Decimal `json:"price"`
	// PriorRevisions is append-only, oldest detection first.
	PriorRevisions []Revision `json:"prevPrices"`
}

// DayPrices is the lookup result around a target date.
type DayPrices struct {
	Today     PriceRecord  `json:"today"`
	Yesterday *PriceRecord `json:"yesterday"`
	Tomorrow  *PriceRecord `json:"tomorrow"`
}

// ColdDocument is the cold store representation of a fetched history.
type ColdDocument struct {
	FuelType  FuelType     `json:"fuelType"`
	FetchedAt time.Time    `json:"fetchedAt"`
	History   PriceHistory `json:"historik"`
}

// ChangeEvent carries the recent window before and after a reconcile pass.
type ChangeEvent struct {
	FuelType         FuelType     `json:"fuelType"`
	RecentPrices     PriceHistory `json:"recentPrices"`
	PrevRecentPrices PriceHistory `json:"prevRecentPrices"`
}

// FetchStatus holds the operational state of fetching one fuel type.
type FetchStatus struct {
	LastFetchAt        *time.Time `json:"last_fetch_at"`
	LastFetchSuccess   bool       `json:"last_fetch_success"`
	LastResponseTimeMs int64      `json:"last_response_time_ms"`
	LastPrice          *float64   `json:"last_price"`
	LastError          *string    `json:"last_error"`
	RecordCount        int        `json:"record_count"`
	TotalRequests      int64      `json:"total_requests"`
	TotalErrors        int64      `json:"total_errors"`
}

// StatusResponse is the response for the /status endpoint.
type StatusResponse struct {
	Status           string                   `json:"status"`
	UptimeSeconds    int64                    `json:"uptime_seconds"`
	SchedulerRunning bool                     `json:"scheduler_running"`
	NextFetchAt      *time.Time               `json:"next_fetch_at,omitempty"`
	LastFetchRunAt   *time.Time               `json:"last_fetch_run_at,omitempty"`
	FuelTypes        map[FuelType]FetchStatus `json:"fuel_types"`
	Stores           map[string]StoreStatus   `json:"stores"`
	System           *SystemStatus            `json:"system,omitempty"`
}

// StoreStatus holds the reachability of a storage backend.
type StoreStatus struct {
	Driver    string  `json:"driver"`
	Connected bool    `json:"connected"`
	Error     *string `json:"error,omitempty"`
}

// SystemStatus holds host statistics of the serving machine.
type SystemStatus struct {
	Hostname      string  `json:"hostname"`
	UptimeSeconds uint64  `json:"uptime_sec"`
	MemUsedPct    float64 `json:"mem_used_pct"`
	Load1         float64 `json:"load1"`
}
