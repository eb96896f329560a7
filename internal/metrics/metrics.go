// Package metrics exposes Prometheus collectors for the audit service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	auditsTotal                *prometheus.CounterVec
	agentRunsTotal             *prometheus.CounterVec
	agentDurationSeconds       *prometheus.HistogramVec
	extractionsTotal           *prometheus.CounterVec
	fetchBytesTotal            prometheus.Counter
	overallScore               prometheus.Histogram
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec
	llmWaitSeconds             prometheus.Histogram

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		auditsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "siteaudit_audits_total",
				Help: "Total number of audits, labeled by final status.",
			},
			[]string{"status"},
		)

		agentRunsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "siteaudit_agent_runs_total",
				Help: "Total number of agent runs, labeled by task and result source.",
			},
			[]string{"task", "source"},
		)

		agentDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "siteaudit_agent_duration_seconds",
				Help:    "Histogram of agent run latencies, labeled by task.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 3, 5, 8},
			},
			[]string{"task"},
		)

		extractionsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "siteaudit_extractions_total",
				Help: "Total number of page extractions, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		fetchBytesTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "siteaudit_fetch_bytes_total",
				Help: "Total number of page bytes fetched.",
			},
		)

		overallScore = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "siteaudit_overall_score",
				Help:    "Distribution of overall audit scores.",
				Buckets: []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
			},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"method", "route"},
		)

		llmWaitSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "siteaudit_llm_rate_limit_wait_seconds",
				Help:    "Histogram of time spent waiting on the LLM rate limiter.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
			},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	Init()
	return promhttp.Handler()
}

// ObserveAudit increments the audit counter for the given status.
func ObserveAudit(status string) {
	Init()
	auditsTotal.WithLabelValues(status).Inc()
}

// ObserveAgent records one agent run.
func ObserveAgent(task, source string, duration time.Duration) {
	Init()
	agentRunsTotal.WithLabelValues(task, source).Inc()
	agentDurationSeconds.WithLabelValues(task).Observe(duration.Seconds())
}

// ObserveExtraction counts an extraction outcome (ok, degraded, cache_hit).
func ObserveExtraction(outcome string) {
	Init()
	extractionsTotal.WithLabelValues(outcome).Inc()
}

// ObserveFetch adds fetched page bytes. The counter is unlabeled because
// audited hosts are unbounded user input.
func ObserveFetch(bytesFetched int) {
	Init()
	if bytesFetched > 0 {
		fetchBytesTotal.Add(float64(bytesFetched))
	}
}

// ObserveScore records a finished audit's overall score.
func ObserveScore(score int) {
	Init()
	overallScore.Observe(float64(score))
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveRateLimitDelay records the duration of an LLM rate limit wait.
func ObserveRateLimitDelay(duration time.Duration) {
	Init()
	llmWaitSeconds.Observe(duration.Seconds())
}
