package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// RefreshMetrics records route refresh outcomes.
type RefreshMetrics struct {
	duration *prometheus.HistogramVec
	success  *prometheus.CounterVec
	failure  *prometheus.CounterVec
	skipped  *prometheus.CounterVec
}

// NewRefreshMetrics registers the route refresh metrics on the provided registerer.
func NewRefreshMetrics(reg prometheus.Registerer) *RefreshMetrics {
	if reg == nil {
		return &RefreshMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "route_refresh_duration_seconds",
		Help:    "Duration of route refresh cycles in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"trigger"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "route_refresh_success",
		Help: "Completed route refresh cycles.",
	}, []string{"trigger"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "route_refresh_failure",
		Help: "Failed route refresh cycles.",
	}, []string{"trigger"})
	skipped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "route_refresh_skipped",
		Help: "Route refresh cycles skipped because one was already running.",
	}, []string{"trigger"})
	reg.MustRegister(duration, success, failure, skipped)
	return &RefreshMetrics{
		duration: duration,
		success:  success,
		failure:  failure,
		skipped:  skipped,
	}
}

// ObserveDuration records the duration of a refresh cycle for the named trigger.
func (m *RefreshMetrics) ObserveDuration(trigger string, duration time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(trigger)).Observe(duration.Seconds())
}

// IncSuccess increments the success counter for the named trigger.
func (m *RefreshMetrics) IncSuccess(trigger string) {
	if m == nil || m.success == nil {
		return
	}
	m.success.WithLabelValues(normalizeLabel(trigger)).Inc()
}

// IncFailure increments the failure counter for the named trigger.
func (m *RefreshMetrics) IncFailure(trigger string) {
	if m == nil || m.failure == nil {
		return
	}
	m.failure.WithLabelValues(normalizeLabel(trigger)).Inc()
}

// IncSkipped increments the skipped counter for the named trigger.
func (m *RefreshMetrics) IncSkipped(trigger string) {
	if m == nil || m.skipped == nil {
		return
	}
	m.skipped.WithLabelValues(normalizeLabel(trigger)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
