// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ChatMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_messages_total",
			Help: "Total number of chat messages handled",
		},
		[]string{"tier"},
	)

	ChatIntentResolved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_intent_resolved_total",
			Help: "Classifications resolved per intent and tier",
		},
		[]string{"intent", "tier"},
	)

	ChatDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "chat_request_duration_seconds",
			Help: "Duration of chat request handling in seconds",
		},
		[]string{"tier"},
	)

	CacheOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_operations_total",
			Help: "Cache operations by result",
		},
		[]string{"backend", "op", "result"},
	)

	LLMFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_fallbacks_total",
			Help: "Generative fallback invocations by outcome",
		},
		[]string{"outcome"},
	)

	ScrapeRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scrape_refreshes_total",
			Help: "Scrape refresh attempts by source and result",
		},
		[]string{"source", "result"},
	)
)
