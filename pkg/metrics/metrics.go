package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector provides application metrics collection
type Collector struct {
	// API Metrics
	APIRequestsTotal   *prometheus.CounterVec
	APIRequestDuration *prometheus.HistogramVec
	APIErrorsTotal     *prometheus.CounterVec

	// Simulation Metrics
	SimulationsTotal       *prometheus.CounterVec
	SimulationDuration     prometheus.Histogram
	SimulatedModules       prometheus.Histogram
	SimulatedYearlySavings prometheus.Histogram

	// Lead Metrics
	LeadsCreatedTotal *prometheus.CounterVec

	// Webhook Metrics
	WebhookDeliveriesTotal *prometheus.CounterVec
	WebhookDuration        prometheus.Histogram
	WebhooksInFlight       prometheus.Gauge

	// Catalog import
	CatalogRecordsTotal *prometheus.CounterVec

	// Database Metrics
	DBQueryDuration  *prometheus.HistogramVec
	DBConnectionPool *prometheus.GaugeVec
	DBErrorsTotal    *prometheus.CounterVec
}

// NewCollector creates a collector registered on the default Prometheus registry
func NewCollector(namespace string) *Collector {
	return NewCollectorWithRegistry(namespace, prometheus.DefaultRegisterer)
}

// NewCollectorWithRegistry creates a collector registered on reg. Tests pass a fresh
// prometheus.NewRegistry() so several collectors can coexist in one process.
func NewCollectorWithRegistry(namespace string, reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		APIRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "api_requests_total",
				Help:      "Total number of API requests by endpoint, method, and status",
			},
			[]string{"endpoint", "method", "status"},
		),

		APIRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "api_request_duration_seconds",
				Help:      "API request duration in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.02, 0.05, 0.1, 0.2, 0.5, 1.0, 2.0, 5.0},
			},
			[]string{"endpoint"},
		),

		APIErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "api_errors_total",
				Help:      "Total number of API errors by type",
			},
			[]string{"error_type", "endpoint"},
		),

		SimulationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "simulations_total",
				Help:      "Savings simulations by outcome (ok, invalid_input, error)",
			},
			[]string{"outcome"},
		),

		SimulationDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "simulation_duration_seconds",
				Help:      "Time to resolve inputs and compute a simulation",
				Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.02, 0.05, 0.1, 0.5},
			},
		),

		SimulatedModules: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "simulated_modules",
				Help:      "Number of DryCooler modules sized per simulation",
				Buckets:   []float64{1, 2, 3, 5, 8, 13, 21, 34, 55},
			},
		),

		SimulatedYearlySavings: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "simulated_yearly_savings_liters",
				Help:      "Yearly water savings in liters per simulation",
				Buckets:   prometheus.ExponentialBuckets(10000, 4, 10),
			},
		),

		LeadsCreatedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "leads_created_total",
				Help:      "Total number of leads stored, by city",
			},
			[]string{"city_id"},
		),

		WebhookDeliveriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "webhook_deliveries_total",
				Help:      "Outbound webhook deliveries by event and result (success, http_error, transport_error)",
			},
			[]string{"event", "result"},
		),

		WebhookDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "webhook_duration_seconds",
				Help:      "Outbound webhook round-trip duration in seconds",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
		),

		WebhooksInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "webhooks_in_flight",
				Help:      "Number of webhook deliveries currently in progress",
			},
		),

		CatalogRecordsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "catalog_records_imported_total",
				Help:      "Catalog records imported by kind (city, tariff)",
			},
			[]string{"kind"},
		),

		DBQueryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "db_query_duration_seconds",
				Help:      "Database query duration in seconds by query type",
				Buckets:   []float64{0.001, 0.002, 0.005, 0.01, 0.02, 0.05, 0.1, 0.2, 0.5},
			},
			[]string{"query_type"},
		),

		DBConnectionPool: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "db_connection_pool",
				Help:      "Database connection pool statistics",
			},
			[]string{"state"}, // "in_use", "idle", "total"
		),

		DBErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "db_errors_total",
				Help:      "Total number of database errors by type",
			},
			[]string{"error_type"},
		),
	}
}

// Timer provides timing functionality for operations
type Timer struct {
	start    time.Time
	observer prometheus.Observer
}

// NewTimer creates a new timer
func (c *Collector) NewTimer(histogram prometheus.Observer) *Timer {
	return &Timer{
		start:    time.Now(),
		observer: histogram,
	}
}

// ObserveDuration records the elapsed time since timer creation
func (t *Timer) ObserveDuration() time.Duration {
	duration := time.Since(t.start)
	if t.observer != nil {
		t.observer.Observe(duration.Seconds())
	}
	return duration
}

// RecordAPIRequest increments API request counter
func (c *Collector) RecordAPIRequest(endpoint, method, status string) {
	c.APIRequestsTotal.WithLabelValues(endpoint, method, status).Inc()
}

// RecordAPIError increments API error counter
func (c *Collector) RecordAPIError(errorType, endpoint string) {
	c.APIErrorsTotal.WithLabelValues(errorType, endpoint).Inc()
}

// RecordSimulation records a simulation outcome
func (c *Collector) RecordSimulation(outcome string) {
	c.SimulationsTotal.WithLabelValues(outcome).Inc()
}

// RecordWebhookDelivery records one webhook attempt
func (c *Collector) RecordWebhookDelivery(event, result string, d time.Duration) {
	c.WebhookDeliveriesTotal.WithLabelValues(event, result).Inc()
	c.WebhookDuration.Observe(d.Seconds())
}

// RecordDBError increments database error counter
func (c *Collector) RecordDBError(errorType string) {
	c.DBErrorsTotal.WithLabelValues(errorType).Inc()
}

// UpdateDBConnectionPool updates database connection pool metrics
func (c *Collector) UpdateDBConnectionPool(inUse, idle, total int) {
	c.DBConnectionPool.WithLabelValues("in_use").Set(float64(inUse))
	c.DBConnectionPool.WithLabelValues("idle").Set(float64(idle))
	c.DBConnectionPool.WithLabelValues("total").Set(float64(total))
}
