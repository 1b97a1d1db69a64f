package observability

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"lessonchain/core/events"
	"lessonchain/native/progress"
)

type moduleMetrics struct {
	requests  *prometheus.CounterVec
	errors    *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	throttles *prometheus.CounterVec
}

var (
	moduleMetricsOnce sync.Once
	moduleRegistry    *moduleMetrics

	progressMetricsOnce sync.Once
	progressRegistry    *ProgressMetrics
)

// ModuleMetrics returns the lazily-initialised module metrics registry used to
// record RPC module activity.
func ModuleMetrics() *moduleMetrics {
	moduleMetricsOnce.Do(func() {
		moduleRegistry = &moduleMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "lesson",
				Subsystem: "rpc",
				Name:      "requests_total",
				Help:      "Total JSON-RPC requests segmented by method and outcome.",
			}, []string{"method", "outcome"}),
			errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "lesson",
				Subsystem: "rpc",
				Name:      "errors_total",
				Help:      "Total JSON-RPC errors segmented by method and error code.",
			}, []string{"method", "code"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "lesson",
				Subsystem: "rpc",
				Name:      "request_duration_seconds",
				Help:      "Latency distribution for JSON-RPC handlers.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"method"}),
			throttles: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "lesson",
				Subsystem: "rpc",
				Name:      "throttles_total",
				Help:      "Count of requests rejected due to throttling policies.",
			}, []string{"reason"}),
		}
		prometheus.MustRegister(
			moduleRegistry.requests,
			moduleRegistry.errors,
			moduleRegistry.latency,
			moduleRegistry.throttles,
		)
	})
	return moduleRegistry
}

// Observe records the outcome of an RPC request. code is the JSON-RPC error
// code, or zero on success.
func (m *moduleMetrics) Observe(method string, code int, duration time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "unknown"
	}
	outcome := "success"
	if code != 0 {
		outcome = "error"
		m.errors.WithLabelValues(method, fmt.Sprintf("%d", code)).Inc()
	}
	m.requests.WithLabelValues(method, outcome).Inc()
	m.latency.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordThrottle increments the throttle counter. Reasons should be stable
// strings such as "rate_limit".
func (m *moduleMetrics) RecordThrottle(reason string) {
	if m == nil {
		return
	}
	if reason == "" {
		reason = "unspecified"
	}
	m.throttles.WithLabelValues(reason).Inc()
}

// ProgressMetrics tracks progress engine operations and the events they emit.
type ProgressMetrics struct {
	operations *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	events     *prometheus.CounterVec
	rewards    prometheus.Counter
}

var (
	_ progress.Observer = (*ProgressMetrics)(nil)
	_ events.Emitter    = (*ProgressMetrics)(nil)
)

// Progress returns the singleton metrics registry for the progress engine.
func Progress() *ProgressMetrics {
	progressMetricsOnce.Do(func() {
		progressRegistry = &ProgressMetrics{
			operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "lesson",
				Subsystem: "progress",
				Name:      "operations_total",
				Help:      "Count of progress operations segmented by operation and outcome.",
			}, []string{"operation", "outcome"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "lesson",
				Subsystem: "progress",
				Name:      "operation_duration_seconds",
				Help:      "Latency distribution for progress operations.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"operation"}),
			events: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "lesson",
				Subsystem: "progress",
				Name:      "events_total",
				Help:      "Count of committed progress events segmented by type.",
			}, []string{"type"}),
			rewards: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "lesson",
				Subsystem: "progress",
				Name:      "rewards_minted_total",
				Help:      "Count of lesson reward tokens issued.",
			}),
		}
		prometheus.MustRegister(
			progressRegistry.operations,
			progressRegistry.latency,
			progressRegistry.events,
			progressRegistry.rewards,
		)
	})
	return progressRegistry
}

// Observe implements progress.Observer.
func (m *ProgressMetrics) Observe(operation string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	op := strings.TrimSpace(operation)
	if op == "" {
		op = "unknown"
	}
	m.operations.WithLabelValues(op, Outcome(err)).Inc()
	m.latency.WithLabelValues(op).Observe(duration.Seconds())
}

// Emit implements events.Emitter by counting events per type.
func (m *ProgressMetrics) Emit(evt events.Event) {
	if m == nil || evt == nil {
		return
	}
	typ := evt.EventType()
	if typ == "" {
		typ = "unknown"
	}
	m.events.WithLabelValues(typ).Inc()
	if typ == progress.EventTypeNftMinted {
		m.rewards.Inc()
	}
}

// Outcome maps an engine error onto a bounded label set.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, progress.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, progress.ErrInvalidLessonID):
		return "invalid_lesson"
	case errors.Is(err, progress.ErrNotInitialized):
		return "not_initialized"
	case progress.IsStateConflict(err):
		return "conflict"
	case errors.Is(err, progress.ErrIssuanceFailed):
		return "issuance_failed"
	default:
		return "error"
	}
}
