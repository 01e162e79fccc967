package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Generations
	Generations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contentgen_generations_total",
			Help: "Generation attempts by outcome",
		},
		[]string{"result"}, // result: ok|empty_topic|invalid|missing_credential|auth|error
	)

	// LLM
	LLMRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contentgen_llm_requests_total",
			Help: "Number of LLM requests by model",
		},
		[]string{"model"},
	)
	LLMDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "contentgen_llm_duration_seconds",
			Help:    "Latency of LLM requests",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 9), // 0.25s..64s
		},
	)

	// HTTP
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed.",
		},
		[]string{"method", "route"},
	)
	HTTPDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	// Errors
	Errors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contentgen_errors_total",
			Help: "Errors encountered in components",
		},
		[]string{"component", "type"},
	)
)

func init() {
	prometheus.MustRegister(
		Generations,
		LLMRequests,
		LLMDurationSeconds,
		HTTPRequests,
		HTTPDurationSeconds,
		Errors,
	)
}

func IncGeneration(result string) {
	Generations.WithLabelValues(result).Inc()
}

func IncLLMRequest(model string) {
	LLMRequests.WithLabelValues(model).Inc()
}

func ObserveLLMDuration(d time.Duration) {
	LLMDurationSeconds.Observe(d.Seconds())
}

func ObserveHTTPRequest(method, route, status string, d time.Duration) {
	HTTPRequests.WithLabelValues(method, route).Inc()
	HTTPDurationSeconds.WithLabelValues(method, route, status).Observe(d.Seconds())
}

func IncError(component, typ string) {
	Errors.WithLabelValues(component, typ).Inc()
}
