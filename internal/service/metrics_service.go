package service

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/centerdesk/center-api/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation for the HTTP surface
// and the scheduling domain. A nil receiver is a no-op everywhere so wiring
// stays optional.
type MetricsService struct {
	registry *prometheus.Registry
	handler  http.Handler

	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	conflictChecks    *prometheus.CounterVec
	conflictsDetected *prometheus.CounterVec
	schedulerRuns     prometheus.Counter
	autoTransitions   *prometheus.CounterVec
}

// NewMetricsService registers the collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	conflictChecks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "schedule_conflict_checks_total",
		Help: "Total schedule conflict checks by subject kind",
	}, []string{"subject"})

	conflictsDetected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "schedule_conflicts_detected_total",
		Help: "Conflict checks that found at least one overlap",
	}, []string{"subject"})

	schedulerRuns := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "status_scheduler_runs_total",
		Help: "Completed automatic transition scheduler runs",
	})

	autoTransitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "status_auto_transitions_total",
		Help: "Automatic class status transitions by target status",
	}, []string{"target"})

	registry.MustRegister(requestDuration, requestTotal, conflictChecks, conflictsDetected, schedulerRuns, autoTransitions)

	return &MetricsService{
		registry:          registry,
		handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:   requestDuration,
		requestTotal:      requestTotal,
		conflictChecks:    conflictChecks,
		conflictsDetected: conflictsDetected,
		schedulerRuns:     schedulerRuns,
		autoTransitions:   autoTransitions,
	}
}

// Handler exposes the Prometheus scrape endpoint.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return m.handler
}

// ObserveHTTPRequest records one served request.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labels := []string{method, path, strconv.Itoa(status)}
	m.requestDuration.WithLabelValues(labels...).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(labels...).Inc()
}

// ObserveConflictCheck records one conflict query and whether it matched.
func (m *MetricsService) ObserveConflictCheck(subject string, found bool) {
	if m == nil {
		return
	}
	m.conflictChecks.WithLabelValues(subject).Inc()
	if found {
		m.conflictsDetected.WithLabelValues(subject).Inc()
	}
}

// ObserveSchedulerRun records one completed scheduler run.
func (m *MetricsService) ObserveSchedulerRun() {
	if m == nil {
		return
	}
	m.schedulerRuns.Inc()
}

// ObserveAutoTransitions records automatic transitions applied in a batch.
func (m *MetricsService) ObserveAutoTransitions(target models.ClassStatus, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.autoTransitions.WithLabelValues(string(target)).Add(float64(count))
}
