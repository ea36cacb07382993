package metrics

import (
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

// MetricsCollector centralizes all metrics recording for the document service
type MetricsCollector struct {
	prometheus *PrometheusMetrics
	logger     *zap.Logger
}

// NewMetricsCollector creates a new MetricsCollector instance
func NewMetricsCollector(namespace string, logger *zap.Logger) *MetricsCollector {
	return &MetricsCollector{
		prometheus: NewPrometheusMetrics(namespace, logger),
		logger:     logger,
	}
}

// NewMetricsCollectorWithPrometheus wraps an existing PrometheusMetrics,
// used by tests that need a private registry.
func NewMetricsCollectorWithPrometheus(pm *PrometheusMetrics, logger *zap.Logger) *MetricsCollector {
	return &MetricsCollector{
		prometheus: pm,
		logger:     logger,
	}
}

// RecordHTTPRequest records an HTTP request by endpoint and status code
func (mc *MetricsCollector) RecordHTTPRequest(endpoint, status string) {
	mc.prometheus.RecordHTTPRequest(endpoint, status)
}

// RecordExtraction records an extraction outcome (success, bad_input, no_tags, internal_error)
func (mc *MetricsCollector) RecordExtraction(status string) {
	mc.prometheus.RecordExtraction(status)
}

// RecordGeneration records a generation outcome (success, bad_input, render_error, internal_error)
func (mc *MetricsCollector) RecordGeneration(status string) {
	mc.prometheus.RecordGeneration(status)
}

// RecordExtractionDuration records extraction duration in seconds
func (mc *MetricsCollector) RecordExtractionDuration(seconds float64) {
	mc.prometheus.RecordExtractionDuration(seconds)
}

// RecordGenerationDuration records generation duration in seconds
func (mc *MetricsCollector) RecordGenerationDuration(seconds float64) {
	mc.prometheus.RecordGenerationDuration(seconds)
}

// RecordUploadSize records the size of an uploaded document in bytes
func (mc *MetricsCollector) RecordUploadSize(bytes int) {
	mc.prometheus.RecordUploadSize(float64(bytes))
}

// RecordTagCount records the number of unique tags found in a document
func (mc *MetricsCollector) RecordTagCount(count int) {
	mc.prometheus.RecordTagCount(float64(count))
}

// IncActiveRequests increments the in-flight request gauge
func (mc *MetricsCollector) IncActiveRequests() {
	mc.prometheus.IncActiveRequests()
}

// DecActiveRequests decrements the in-flight request gauge
func (mc *MetricsCollector) DecActiveRequests() {
	mc.prometheus.DecActiveRequests()
}

// RecordPanicRecovered records a panic caught at the request boundary
func (mc *MetricsCollector) RecordPanicRecovered() {
	mc.prometheus.RecordPanicRecovered()
}

// ServeHTTP serves Prometheus metrics via HTTP
func (mc *MetricsCollector) ServeHTTP(ctx *fasthttp.RequestCtx) {
	mc.prometheus.ServeHTTP(ctx)
}
