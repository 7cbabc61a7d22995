// Package metrics provides the Prometheus metrics of the fuel price service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics of the service.
// All methods are safe to call on a nil *Metrics.
type Metrics struct {
	// Provider request metrics
	ProviderRequestsTotal   *prometheus.CounterVec
	ProviderRequestDuration *prometheus.HistogramVec

	// Fetch metrics
	LastFetchTimestamp *prometheus.GaugeVec
	CurrentPriceDKK    *prometheus.GaugeVec
	HistoryRecords     *prometheus.GaugeVec

	// Reconcile metrics
	ReconcileRunsTotal  *prometheus.CounterVec
	PriceRevisionsTotal *prometheus.CounterVec

	// Lookup metrics
	LookupsTotal   *prometheus.CounterVec
	MemoCacheTotal *prometheus.CounterVec

	// Notification metrics
	NotificationsTotal *prometheus.CounterVec

	// Store metrics
	StoreOperationsTotal *prometheus.CounterVec
}

// New creates Prometheus metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ProviderRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fuelprices_provider_requests_total",
				Help: "Total number of provider requests by provider, fuel type and status",
			},
			[]string{"provider", "fuel_type", "status"},
		),
		ProviderRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fuelprices_provider_request_duration_seconds",
				Help:    "Provider request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"provider"},
		),
		LastFetchTimestamp: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "fuelprices_last_fetch_timestamp",
				Help: "Timestamp of the last successful fetch",
			},
			[]string{"fuel_type"},
		),
		CurrentPriceDKK: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "fuelprices_current_price_dkk",
				Help: "Latest fetched fuel price in DKK per liter",
			},
			[]string{"fuel_type"},
		),
		HistoryRecords: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "fuelprices_history_records",
				Help: "Number of records in the last fetched history",
			},
			[]string{"fuel_type"},
		),
		ReconcileRunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fuelprices_reconcile_runs_total",
				Help: "Total number of reconcile runs by fuel type and status",
			},
			[]string{"fuel_type", "status"},
		),
		PriceRevisionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fuelprices_price_revisions_total",
				Help: "Total number of detected price revisions by fuel type",
			},
			[]string{"fuel_type"},
		),
		LookupsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fuelprices_lookups_total",
				Help: "Total number of price lookups by tier and result",
			},
			[]string{"tier", "result"},
		),
		MemoCacheTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fuelprices_memo_cache_total",
				Help: "Local response cache lookups by result",
			},
			[]string{"result"},
		),
		NotificationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fuelprices_notifications_total",
				Help: "Total number of dispatched notifications by target and status",
			},
			[]string{"target", "status"},
		),
		StoreOperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fuelprices_store_operations_total",
				Help: "Total number of store operations by tier, operation and status",
			},
			[]string{"store", "operation", "status"},
		),
	}
}

// RecordProviderRequest records a provider request metric.
func (m *Metrics) RecordProviderRequest(provider, fuelType, status string, duration float64) {
	if m == nil {
		return
	}
	m.ProviderRequestsTotal.WithLabelValues(provider, fuelType, status).Inc()
	m.ProviderRequestDuration.WithLabelValues(provider).Observe(duration)
}

// RecordFetch records a successful fetch of a fuel type.
func (m *Metrics) RecordFetch(fuelType string, timestamp, latestPrice float64, records int) {
	if m == nil {
		return
	}
	m.LastFetchTimestamp.WithLabelValues(fuelType).Set(timestamp)
	m.CurrentPriceDKK.WithLabelValues(fuelType).Set(latestPrice)
	m.HistoryRecords.WithLabelValues(fuelType).Set(float64(records))
}

// RecordReconcile records a reconcile run and the revisions it detected.
func (m *Metrics) RecordReconcile(fuelType, status string, revisions int) {
	if m == nil {
		return
	}
	m.ReconcileRunsTotal.WithLabelValues(fuelType, status).Inc()
	if revisions > 0 {
		m.PriceRevisionsTotal.WithLabelValues(fuelType).Add(float64(revisions))
	}
}

// RecordLookup records a lookup served from tier.
func (m *Metrics) RecordLookup(tier, result string) {
	if m == nil {
		return
	}
	m.LookupsTotal.WithLabelValues(tier, result).Inc()
}

// RecordMemo records a local response cache hit or miss.
func (m *Metrics) RecordMemo(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.MemoCacheTotal.WithLabelValues(result).Inc()
}

// RecordNotification records a dispatched notification.
func (m *Metrics) RecordNotification(target, status string) {
	if m == nil {
		return
	}
	m.NotificationsTotal.WithLabelValues(target, status).Inc()
}

// RecordStoreOperation records a store operation metric.
func (m *Metrics) RecordStoreOperation(store, operation, status string) {
	if m == nil {
		return
	}
	m.StoreOperationsTotal.WithLabelValues(store, operation, status).Inc()
}

// Status maps an error to a metric status label.
func Status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
