package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Sync metrics
	SyncRunsTotal   *prometheus.CounterVec
	SyncDuration    *prometheus.HistogramVec
	DaysUpserted    prometheus.Counter
	ProviderErrors  *prometheus.CounterVec
	StoresProcessed *prometheus.CounterVec

	// Database metrics
	DBConnections prometheus.Gauge
}

// New creates a new Metrics instance with all metrics registered
func New() *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),

		SyncRunsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sync_runs_total",
				Help: "Total number of sync runs",
			},
			[]string{"job", "outcome"}, // job: daily_spend, products, traffic; outcome: success, error
		),
		SyncDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sync_duration_seconds",
				Help:    "Duration of sync runs in seconds",
				Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			},
			[]string{"job"},
		),
		DaysUpserted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "daily_metric_days_upserted_total",
			Help: "Total number of daily metric rows upserted",
		}),
		ProviderErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "provider_errors_total",
				Help: "Total number of provider fetch failures",
			},
			[]string{"provider"}, // shopify, facebook, google
		),
		StoresProcessed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stores_processed_total",
				Help: "Total number of stores processed by scheduled jobs",
			},
			[]string{"job", "outcome"},
		),

		DBConnections: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "db_connections_active",
			Help: "Number of active database connections",
		}),
	}

	return m
}

// Middleware creates an Echo middleware for Prometheus metrics
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()
			path := c.Path() // Use route pattern, not actual path (e.g., /api/v1/stores/:id)

			err := next(c)

			status := c.Response().Status
			duration := time.Since(start).Seconds()

			m.HTTPRequestsTotal.WithLabelValues(req.Method, path, strconv.Itoa(status)).Inc()
			m.HTTPRequestDuration.WithLabelValues(req.Method, path, strconv.Itoa(status)).Observe(duration)

			return err
		}
	}
}

// RecordSyncRun increments the sync run counter for a job
func (m *Metrics) RecordSyncRun(job string, success bool) {
	outcome := "error"
	if success {
		outcome = "success"
	}
	m.SyncRunsTotal.WithLabelValues(job, outcome).Inc()
}

// RecordSyncDuration records how long a sync run took
func (m *Metrics) RecordSyncDuration(job string, duration time.Duration) {
	m.SyncDuration.WithLabelValues(job).Observe(duration.Seconds())
}

// RecordDaysUpserted adds to the upserted row counter
func (m *Metrics) RecordDaysUpserted(n int) {
	m.DaysUpserted.Add(float64(n))
}

// RecordProviderError increments the fetch failure counter for a provider
func (m *Metrics) RecordProviderError(provider string) {
	m.ProviderErrors.WithLabelValues(provider).Inc()
}

// RecordStoreProcessed increments the per-store job counter
func (m *Metrics) RecordStoreProcessed(job string, success bool) {
	outcome := "error"
	if success {
		outcome = "success"
	}
	m.StoresProcessed.WithLabelValues(job, outcome).Inc()
}

// UpdateDBConnections updates active database connections gauge
func (m *Metrics) UpdateDBConnections(count float64) {
	m.DBConnections.Set(count)
}
