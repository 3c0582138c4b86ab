// Package metrics provides Prometheus metrics for threadpress.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LLMRequestsTotal counts chat-completion calls by task and outcome.
	LLMRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "threadpress",
			Name:      "llm_requests_total",
			Help:      "Total number of LLM completion requests",
		},
		[]string{"task", "status"},
	)

	// LLMRequestDuration measures chat-completion latency.
	LLMRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "threadpress",
			Name:      "llm_request_duration_seconds",
			Help:      "Duration of LLM completion requests in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 80},
		},
		[]string{"task"},
	)

	// PublishTotal counts Qiita publish attempts.
	PublishTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "threadpress",
			Name:      "publish_total",
			Help:      "Total number of article publish attempts",
		},
		[]string{"target", "status"},
	)

	// BackgroundRepliesTotal counts assistant replies generated after a user message.
	BackgroundRepliesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "threadpress",
			Name:      "background_replies_total",
			Help:      "Total number of background assistant replies",
		},
		[]string{"status"},
	)

	// HTTPRequestsTotal counts API requests.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "threadpress",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "code"},
	)

	// HTTPRequestDuration measures API latency.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "threadpress",
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// RecordLLMRequest records a completion call.
func RecordLLMRequest(task, status string, duration float64) {
	LLMRequestsTotal.WithLabelValues(task, status).Inc()
	LLMRequestDuration.WithLabelValues(task).Observe(duration)
}

// RecordPublish records a publish attempt.
func RecordPublish(target, status string) {
	PublishTotal.WithLabelValues(target, status).Inc()
}

// RecordReply records the outcome of a background reply.
func RecordReply(status string) {
	BackgroundRepliesTotal.WithLabelValues(status).Inc()
}

// RecordHTTPRequest records a served request.
func RecordHTTPRequest(method, route, code string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, route, code).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(duration)
}
