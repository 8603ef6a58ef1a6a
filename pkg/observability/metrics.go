package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Comparison and validation metrics
	ComparisonsTotal  prometheus.Counter
	ValidationsTotal  *prometheus.CounterVec
	ChangesDetected   *prometheus.CounterVec

	// Plan generation metrics
	PlansGeneratedTotal  *prometheus.CounterVec
	PlanGenerationErrors *prometheus.CounterVec

	// Execution metrics
	MigrationsTotal       *prometheus.CounterVec
	MigrationStepsTotal   *prometheus.CounterVec
	StepDuration          *prometheus.HistogramVec
	MigrationDuration     *prometheus.HistogramVec
	RecordsAffectedTotal  *prometheus.CounterVec
	HistoryWriteFailures  prometheus.Counter

	// History cache metrics
	CacheHitsTotal   prometheus.Counter
	CacheMissesTotal prometheus.Counter

	registry *prometheus.Registry
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	m := &Metrics{
		registry: registry,
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "schemaflow_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "schemaflow_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		ComparisonsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "schemaflow_comparisons_total",
				Help: "Total number of schema comparisons",
			},
		),
		ValidationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "schemaflow_validations_total",
				Help: "Total number of schema validations by outcome",
			},
			[]string{"outcome"},
		),
		ChangesDetected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "schemaflow_changes_detected_total",
				Help: "Total number of detected schema changes by kind",
			},
			[]string{"kind"},
		),
		PlansGeneratedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "schemaflow_plans_generated_total",
				Help: "Total number of migration plans generated by dialect",
			},
			[]string{"dialect"},
		),
		PlanGenerationErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "schemaflow_plan_generation_errors_total",
				Help: "Total number of plan generation failures by dialect",
			},
			[]string{"dialect"},
		),
		MigrationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "schemaflow_migrations_total",
				Help: "Total number of executed migrations by dialect and status",
			},
			[]string{"dialect", "status"},
		),
		MigrationStepsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "schemaflow_migration_steps_total",
				Help: "Total number of executed migration steps by dialect and status",
			},
			[]string{"dialect", "status"},
		),
		StepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "schemaflow_migration_step_duration_seconds",
				Help:    "Migration step duration in seconds",
				Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
			},
			[]string{"dialect"},
		),
		MigrationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "schemaflow_migration_duration_seconds",
				Help:    "End-to-end migration duration in seconds",
				Buckets: prometheus.ExponentialBuckets(0.1, 4, 8),
			},
			[]string{"dialect"},
		),
		RecordsAffectedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "schemaflow_records_affected_total",
				Help: "Total number of records touched by migrations",
			},
			[]string{"dialect"},
		),
		HistoryWriteFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "schemaflow_history_write_failures_total",
				Help: "Total number of post-commit history persistence failures",
			},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "schemaflow_history_cache_hits_total",
				Help: "Total number of history cache hits",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "schemaflow_history_cache_misses_total",
				Help: "Total number of history cache misses",
			},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.ComparisonsTotal,
		m.ValidationsTotal,
		m.ChangesDetected,
		m.PlansGeneratedTotal,
		m.PlanGenerationErrors,
		m.MigrationsTotal,
		m.MigrationStepsTotal,
		m.StepDuration,
		m.MigrationDuration,
		m.RecordsAffectedTotal,
		m.HistoryWriteFailures,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
	)

	return m
}

// Handler returns the /metrics HTTP handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveHTTPRequest records one served HTTP request.
func (m *Metrics) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}
