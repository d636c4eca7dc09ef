// Package observability wires Prometheus metrics and OpenTelemetry tracing
// across the HTTP surface and the research pipeline.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for this module. A nil *Metrics
// is always safe to call methods on, so callers that build Deps without an
// observability config can pass it through unchanged.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	pipelineRuns      *prometheus.CounterVec
	pipelineDuration  *prometheus.HistogramVec
	pipelineStepError *prometheus.CounterVec

	llmCalls        *prometheus.CounterVec
	llmCallDuration *prometheus.HistogramVec
	llmErrors       *prometheus.CounterVec
}

// NewMetrics builds a fresh registry and registers every collector. Pass
// the resulting *Metrics around; it is nil-safe so disabling observability
// just means constructing no Metrics at all.
func NewMetrics() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "newsspark", Subsystem: "http", Name: "requests_total",
		Help: "Total number of HTTP requests handled by the memory-service API.",
	}, []string{"method", "path", "status"})

	m.httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "newsspark", Subsystem: "http", Name: "request_duration_seconds",
		Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	m.pipelineRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "newsspark", Subsystem: "pipeline", Name: "runs_total",
		Help: "Total number of research pipeline runs, labeled by final step.",
	}, []string{"final_step"})

	m.pipelineDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "newsspark", Subsystem: "pipeline", Name: "run_duration_seconds",
		Help: "Full pipeline run duration in seconds.", Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
	}, []string{"final_step"})

	m.pipelineStepError = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "newsspark", Subsystem: "pipeline", Name: "step_errors_total",
		Help: "Total number of pipeline runs that terminated in error, labeled by the inferred cause.",
	}, []string{"reason"})

	m.llmCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "newsspark", Subsystem: "llm", Name: "calls_total",
		Help: "Total number of structured chat-completion calls.",
	}, []string{"model"})

	m.llmCallDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "newsspark", Subsystem: "llm", Name: "call_duration_seconds",
		Help: "Chat-completion call duration in seconds.", Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	}, []string{"model"})

	m.llmErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "newsspark", Subsystem: "llm", Name: "errors_total",
		Help: "Total number of failed chat-completion calls.",
	}, []string{"model"})

	m.registry.MustRegister(
		m.httpRequests, m.httpDuration,
		m.pipelineRuns, m.pipelineDuration, m.pipelineStepError,
		m.llmCalls, m.llmCallDuration, m.llmErrors,
	)
	return m
}

// RecordHTTPRequest records one completed HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, path, statusClass(status)).Inc()
	m.httpDuration.WithLabelValues(method, path).Observe(d.Seconds())
}

// RecordPipelineRun records one completed orchestrator.Run, labeled by the
// step the pipeline state was in when it returned.
func (m *Metrics) RecordPipelineRun(finalStep string, d time.Duration) {
	if m == nil {
		return
	}
	m.pipelineRuns.WithLabelValues(finalStep).Inc()
	m.pipelineDuration.WithLabelValues(finalStep).Observe(d.Seconds())
}

// RecordPipelineStepError records a pipeline run that ended in StepError,
// labeled by the human-readable reason nodeError inferred.
func (m *Metrics) RecordPipelineStepError(reason string) {
	if m == nil {
		return
	}
	m.pipelineStepError.WithLabelValues(reason).Inc()
}

// RecordLLMCall records a ChatStructured call's model and duration.
func (m *Metrics) RecordLLMCall(model string, d time.Duration) {
	if m == nil {
		return
	}
	m.llmCalls.WithLabelValues(model).Inc()
	m.llmCallDuration.WithLabelValues(model).Observe(d.Seconds())
}

// RecordLLMError records a failed ChatStructured call.
func (m *Metrics) RecordLLMError(model string) {
	if m == nil {
		return
	}
	m.llmErrors.WithLabelValues(model).Inc()
}

// Handler returns the /metrics scrape endpoint. A nil Metrics still
// returns a handler, so callers can mount it unconditionally.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "metrics disabled", http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func statusClass(status int) string {
	switch {
	case status >= 200 && status < 300:
		return "2xx"
	case status >= 300 && status < 400:
		return "3xx"
	case status >= 400 && status < 500:
		return "4xx"
	case status >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
