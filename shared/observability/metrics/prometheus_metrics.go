// Package metrics provides Prometheus-compatible metrics collection for the
// acquisition pipeline. Metric names are prefixed with the component name.
package metrics

import (
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusMetrics implements the Metrics interface using the Prometheus
// client library.
type PrometheusMetrics struct {
	prefix string

	processedTotal  *prometheus.CounterVec
	errorsTotal     *prometheus.CounterVec
	durationSeconds *prometheus.HistogramVec
	fileSizeBytes   *prometheus.HistogramVec
	inProgress      *prometheus.GaugeVec
}

// New creates PrometheusMetrics registered with the default registry.
// It panics on duplicate registration.
func New(component string) *PrometheusMetrics {
	return NewWithRegisterer(component, prometheus.DefaultRegisterer)
}

// NewWithRegisterer creates PrometheusMetrics registered with reg.
//
// Collectors:
//   - {prefix}_processed_total{status,type}
//   - {prefix}_errors_total{error_type,operation}
//   - {prefix}_duration_seconds{operation}
//   - {prefix}_file_size_bytes{file_type}
//   - {prefix}_in_progress{operation}
func NewWithRegisterer(component string, reg prometheus.Registerer) *PrometheusMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	prefix := MetricPrefix(component)

	m := &PrometheusMetrics{prefix: prefix}

	m.processedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_processed_total",
			Help: fmt.Sprintf("Total processed items by %s", component),
		},
		[]string{"status", "type"},
	)

	m.errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_errors_total",
			Help: fmt.Sprintf("Total errors in %s", component),
		},
		[]string{"error_type", "operation"},
	)

	// Direct transfers and extractor runs take minutes, so the default
	// buckets are stretched out to 15m.
	m.durationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_duration_seconds",
			Help:    fmt.Sprintf("Operation duration in %s", component),
			Buckets: []float64{0.05, 0.25, 1, 5, 15, 30, 60, 120, 300, 600, 900},
		},
		[]string{"operation"},
	)

	m.fileSizeBytes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: prefix + "_file_size_bytes",
			Help: fmt.Sprintf("File sizes produced by %s", component),
			Buckets: []float64{
				1 << 10,   // 1KiB
				1 << 20,   // 1MiB
				10 << 20,  // 10MiB
				49 << 20,  // video delivery ceiling
				80 << 20,  // direct transfer ceiling
				256 << 20, // 256MiB
				1 << 30,   // 1GiB
			},
		},
		[]string{"file_type"},
	)

	m.inProgress = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: prefix + "_in_progress",
			Help: fmt.Sprintf("Operations in progress in %s", component),
		},
		[]string{"operation"},
	)

	reg.MustRegister(
		m.processedTotal,
		m.errorsTotal,
		m.durationSeconds,
		m.fileSizeBytes,
		m.inProgress,
	)

	return m
}

// MetricPrefix turns a component name into a valid metric name prefix by
// replacing every character outside [a-zA-Z0-9_] with an underscore.
func MetricPrefix(component string) string {
	var b strings.Builder
	for i, r := range component {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			if i == 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "component"
	}
	return b.String()
}

// RecordSuccess increments the success counter for a specific operation type.
//
// Example:
//
//	metrics.RecordSuccess("extract")
func (m *PrometheusMetrics) RecordSuccess(operationType string) {
	m.processedTotal.WithLabelValues("success", operationType).Inc()
}

// RecordError increments both the processed counter (with status="error") and
// the detailed error counter.
//
// Example:
//
//	metrics.RecordError("fetch", "REMOTE_TOO_LARGE")
func (m *PrometheusMetrics) RecordError(operationType string, errorType string) {
	m.processedTotal.WithLabelValues("error", operationType).Inc()
	m.errorsTotal.WithLabelValues(errorType, operationType).Inc()
}

// RecordDuration records the duration of an operation in seconds.
func (m *PrometheusMetrics) RecordDuration(operation string, duration float64) {
	m.durationSeconds.WithLabelValues(operation).Observe(duration)
}

// RecordFileSize records the size of a produced file in bytes.
func (m *PrometheusMetrics) RecordFileSize(fileType string, bytes int64) {
	m.fileSizeBytes.WithLabelValues(fileType).Observe(float64(bytes))
}

// StartOperation increments the in-progress gauge for an operation.
//
//	metrics.StartOperation("acquire")
//	defer metrics.EndOperation("acquire")
func (m *PrometheusMetrics) StartOperation(operation string) {
	m.inProgress.WithLabelValues(operation).Inc()
}

// EndOperation decrements the in-progress gauge for an operation.
func (m *PrometheusMetrics) EndOperation(operation string) {
	m.inProgress.WithLabelValues(operation).Dec()
}
