// Package metrics provides Prometheus metrics for the evaluation engine.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Manager owns every Prometheus collector of the service. A nil Manager
// is valid and records nothing.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	registry         *prometheus.Registry

	// Engine metrics
	aggregations     *prometheus.CounterVec
	cohortSize       *prometheus.GaugeVec
	payrollRuns      *prometheus.CounterVec
	payrollLines     prometheus.Counter
	payrollSkipped   prometheus.Counter
	payrollDuration  prometheus.Histogram
	payrollNetAmount prometheus.Gauge

	// Scheduler metrics
	overdueMarked    prometheus.Counter
	overduePenalties prometheus.Counter
	sweepErrors      prometheus.Counter

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// NewManager creates a metrics manager. Without WithPrometheusRegistry a
// private registry is used so that tests and multiple managers never
// collide on the default registerer.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "evaluation",
		subsystem:        "engine",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.aggregations = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "aggregations_total",
		Help:      "Person aggregations computed, by outcome (data or no_data)",
	}, []string{"outcome"})

	m.cohortSize = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cohort_size",
		Help:      "Size of the last ranked cohort per role",
	}, []string{"role"})

	m.payrollRuns = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "payroll_runs_total",
		Help:      "Payroll runs by status (ok or failed)",
	}, []string{"status"})

	m.payrollLines = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "payroll_lines_total",
		Help:      "Compensation lines produced by payroll runs",
	})

	m.payrollSkipped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "payroll_skipped_total",
		Help:      "Persons skipped by payroll runs because no evaluation was completed",
	})

	m.payrollDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "payroll_duration_seconds",
		Help:      "Duration of payroll runs in seconds",
		Buckets:   m.histogramBuckets,
	})

	m.payrollNetAmount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "payroll_net_amount",
		Help:      "Total net amount of the last payroll run",
	})

	m.overdueMarked = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "scheduler",
		Name:      "overdue_marked_total",
		Help:      "Pending evaluations marked overdue",
	})

	m.overduePenalties = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "scheduler",
		Name:      "overdue_penalties_total",
		Help:      "Penalty records appended for overdue evaluations",
	})

	m.sweepErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "scheduler",
		Name:      "sweep_errors_total",
		Help:      "Overdue sweeps that failed",
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by route, method and status code",
	}, []string{"route", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request duration in seconds",
		Buckets:   m.histogramBuckets,
	}, []string{"route", "method"})
}

func (m *Manager) active() bool { return m != nil && m.enabled }

// Registry returns the registry the manager registers on.
func (m *Manager) Registry() *prometheus.Registry { return m.registry }

// Handler serves the manager's registry in the Prometheus text format.
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// =============================================================================
// RECORDERS
// =============================================================================

// RecordAggregation counts one aggregation and whether it found data.
func (m *Manager) RecordAggregation(hasData bool) {
	if !m.active() {
		return
	}
	outcome := "data"
	if !hasData {
		outcome = "no_data"
	}
	m.aggregations.WithLabelValues(outcome).Inc()
}

// SetCohortSize records the size of a ranked cohort.
func (m *Manager) SetCohortSize(role string, size int) {
	if !m.active() {
		return
	}
	m.cohortSize.WithLabelValues(role).Set(float64(size))
}

// RecordPayrollRun records a completed or failed payroll run.
func (m *Manager) RecordPayrollRun(d time.Duration, lines, skipped int, net float64, err error) {
	if !m.active() {
		return
	}
	if err != nil {
		m.payrollRuns.WithLabelValues("failed").Inc()
		return
	}
	m.payrollRuns.WithLabelValues("ok").Inc()
	m.payrollLines.Add(float64(lines))
	m.payrollSkipped.Add(float64(skipped))
	m.payrollDuration.Observe(d.Seconds())
	m.payrollNetAmount.Set(net)
}

// RecordSweep records the outcome of one overdue sweep.
func (m *Manager) RecordSweep(marked, penalties int, err error) {
	if !m.active() {
		return
	}
	if err != nil {
		m.sweepErrors.Inc()
	}
	m.overdueMarked.Add(float64(marked))
	m.overduePenalties.Add(float64(penalties))
}

// RecordHTTPRequest records one served request.
func (m *Manager) RecordHTTPRequest(route, method string, status int, d time.Duration) {
	if !m.active() {
		return
	}
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(route, method).Observe(d.Seconds())
}
