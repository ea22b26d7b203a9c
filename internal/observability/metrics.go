package observability

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector exports quiz metrics to Prometheus. A nil collector is a no-op.
type MetricsCollector struct {
	gatherer prometheus.Gatherer

	submissions     *prometheus.CounterVec
	rateLimitDenied prometheus.Counter
	scoringDuration prometheus.Histogram
	adminLogins     *prometheus.CounterVec
	sessionsPurged  prometheus.Counter
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
}

// NewMetricsCollector registers the quiz collectors on reg. A nil reg gets a
// private registry. Disabled config returns nil.
func NewMetricsCollector(config MetricsConfig, reg *prometheus.Registry) (*MetricsCollector, error) {
	if !config.Enabled {
		return nil, nil
	}
	namespace := config.Namespace
	if namespace == "" {
		namespace = "quiz"
	}
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	m := &MetricsCollector{gatherer: reg}
	var err error
	if m.submissions, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "submissions_total",
		Help:      "Quiz submissions by outcome.",
	}, []string{"outcome"})); err != nil {
		return nil, err
	}
	if m.rateLimitDenied, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rate_limit_denials_total",
		Help:      "Submission attempts rejected by the sliding window limiter.",
	})); err != nil {
		return nil, err
	}
	if m.scoringDuration, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "scoring_duration_seconds",
		Help:      "Time spent scoring one answer set.",
		Buckets:   []float64{.00001, .00005, .0001, .0005, .001, .005, .01},
	})); err != nil {
		return nil, err
	}
	if m.adminLogins, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "admin_logins_total",
		Help:      "Admin login attempts by outcome.",
	}, []string{"outcome"})); err != nil {
		return nil, err
	}
	if m.sessionsPurged, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sessions_purged_total",
		Help:      "Stale quiz sessions removed by the sweeper.",
	})); err != nil {
		return nil, err
	}
	if m.httpRequests, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by method, route and status.",
	}, []string{"method", "route", "status"})); err != nil {
		return nil, err
	}
	if m.httpDuration, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by method and route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})); err != nil {
		return nil, err
	}
	return m, nil
}

// register adds c to reg, reusing an identical collector already registered.
func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		var zero T
		return zero, fmt.Errorf("register collector: %w", err)
	}
	return c, nil
}

// Handler serves the Prometheus exposition format for the collector's registry.
func (m *MetricsCollector) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// RecordSubmission counts a submission outcome.
func (m *MetricsCollector) RecordSubmission(outcome string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(outcome).Inc()
}

// RecordRateLimitDenial counts a limiter rejection.
func (m *MetricsCollector) RecordRateLimitDenial() {
	if m == nil {
		return
	}
	m.rateLimitDenied.Inc()
}

// ObserveScoring records scoring latency.
func (m *MetricsCollector) ObserveScoring(d time.Duration) {
	if m == nil {
		return
	}
	m.scoringDuration.Observe(d.Seconds())
}

// RecordAdminLogin counts a login attempt outcome.
func (m *MetricsCollector) RecordAdminLogin(outcome string) {
	if m == nil {
		return
	}
	m.adminLogins.WithLabelValues(outcome).Inc()
}

// RecordSessionsPurged adds n purged sessions.
func (m *MetricsCollector) RecordSessionsPurged(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.sessionsPurged.Add(float64(n))
}

// RecordHTTPRequest records one served request.
func (m *MetricsCollector) RecordHTTPRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
