package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
	"go.uber.org/zap"
)

// PrometheusMetrics provides metrics collection for the document service
type PrometheusMetrics struct {
	// HTTP metrics
	httpRequests *prometheus.CounterVec

	// Pipeline metrics
	extractionsTotal   *prometheus.CounterVec
	generationsTotal   *prometheus.CounterVec
	extractionDuration prometheus.Histogram
	generationDuration prometheus.Histogram

	// Document metrics
	uploadSize      prometheus.Histogram
	tagsPerDocument prometheus.Histogram

	// Process metrics
	activeRequests  prometheus.Gauge
	panicsRecovered prometheus.Counter

	logger      *zap.Logger
	httpHandler func(*fasthttp.RequestCtx)
}

// NewPrometheusMetrics creates a new Prometheus-based metrics collector
func NewPrometheusMetrics(namespace string, logger *zap.Logger) *PrometheusMetrics {
	return NewPrometheusMetricsWithRegistry(namespace, prometheus.DefaultRegisterer, logger)
}

// NewPrometheusMetricsWithRegistry creates a new Prometheus-based metrics collector with custom registry
func NewPrometheusMetricsWithRegistry(namespace string, registerer prometheus.Registerer, logger *zap.Logger) *PrometheusMetrics {
	pm := &PrometheusMetrics{
		logger: logger,
	}

	pm.httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "service",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests by endpoint and status",
	}, []string{"endpoint", "status"})

	pm.extractionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "service",
		Name:      "extractions_total",
		Help:      "Total placeholder extraction requests by outcome",
	}, []string{"status"}) // status: success, bad_input, no_tags, internal_error

	pm.generationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "service",
		Name:      "generations_total",
		Help:      "Total document generation requests by outcome",
	}, []string{"status"}) // status: success, bad_input, render_error, internal_error

	pm.extractionDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "service",
		Name:      "extraction_duration_seconds",
		Help:      "Time spent extracting placeholders",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
	})

	pm.generationDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "service",
		Name:      "generation_duration_seconds",
		Help:      "Time spent generating filled documents",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
	})

	pm.uploadSize = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "service",
		Name:      "upload_size_bytes",
		Help:      "Size of uploaded documents",
		Buckets:   prometheus.ExponentialBuckets(1024, 4, 8), // 1KB to ~16MB
	})

	pm.tagsPerDocument = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "service",
		Name:      "tags_per_document",
		Help:      "Number of unique placeholder tags per extracted document",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 10), // 1 to 512
	})

	pm.activeRequests = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "service",
		Name:      "active_requests",
		Help:      "Number of API requests currently in flight",
	})

	pm.panicsRecovered = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "service",
		Name:      "panics_recovered_total",
		Help:      "Total panics caught at the request boundary",
	})

	registerer.MustRegister(
		pm.httpRequests,
		pm.extractionsTotal,
		pm.generationsTotal,
		pm.extractionDuration,
		pm.generationDuration,
		pm.uploadSize,
		pm.tagsPerDocument,
		pm.activeRequests,
		pm.panicsRecovered,
	)

	gatherer, ok := registerer.(prometheus.Gatherer)
	if !ok {
		gatherer = prometheus.DefaultGatherer
	}
	pm.httpHandler = fasthttpadaptor.NewFastHTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	logger.Info("Document service Prometheus metrics initialized")
	return pm
}

// RecordHTTPRequest records an HTTP request
func (pm *PrometheusMetrics) RecordHTTPRequest(endpoint, status string) {
	pm.httpRequests.WithLabelValues(endpoint, status).Inc()
}

// RecordExtraction records an extraction outcome
func (pm *PrometheusMetrics) RecordExtraction(status string) {
	pm.extractionsTotal.WithLabelValues(status).Inc()
}

// RecordGeneration records a generation outcome
func (pm *PrometheusMetrics) RecordGeneration(status string) {
	pm.generationsTotal.WithLabelValues(status).Inc()
}

// RecordExtractionDuration records extraction duration
func (pm *PrometheusMetrics) RecordExtractionDuration(seconds float64) {
	pm.extractionDuration.Observe(seconds)
}

// RecordGenerationDuration records generation duration
func (pm *PrometheusMetrics) RecordGenerationDuration(seconds float64) {
	pm.generationDuration.Observe(seconds)
}

// RecordUploadSize records the byte size of an uploaded document
func (pm *PrometheusMetrics) RecordUploadSize(bytes float64) {
	pm.uploadSize.Observe(bytes)
}

// RecordTagCount records the unique tag count of an extracted document
func (pm *PrometheusMetrics) RecordTagCount(count float64) {
	pm.tagsPerDocument.Observe(count)
}

// IncActiveRequests increments the in-flight request gauge
func (pm *PrometheusMetrics) IncActiveRequests() {
	pm.activeRequests.Inc()
}

// DecActiveRequests decrements the in-flight request gauge
func (pm *PrometheusMetrics) DecActiveRequests() {
	pm.activeRequests.Dec()
}

// RecordPanicRecovered records a panic caught at the request boundary
func (pm *PrometheusMetrics) RecordPanicRecovered() {
	pm.panicsRecovered.Inc()
}

// ServeHTTP serves Prometheus metrics via HTTP
func (pm *PrometheusMetrics) ServeHTTP(ctx *fasthttp.RequestCtx) {
	pm.httpHandler(ctx)
}
