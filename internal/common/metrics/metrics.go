package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MessagesHandled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_messages_total",
			Help: "Inbound messages by handling path",
		},
		[]string{"path"},
	)

	MessageFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_message_failures_total",
			Help: "Messages whose handling ended in an error reply",
		},
		[]string{"error_code"},
	)

	RouteDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_route_decisions_total",
			Help: "Intent router outcomes",
		},
		[]string{"choice", "fallback"},
	)

	QueryRejections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "assistant_query_rejections_total",
			Help: "Synthesized queries refused by the read-only gate",
		},
	)

	QueryDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "assistant_query_duration_seconds",
			Help:    "Inventory query execution time",
			Buckets: prometheus.DefBuckets,
		},
	)

	ExternalCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "assistant_external_call_duration_seconds",
			Help:    "Latency of calls to the completion, plant and image services",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"service", "outcome"},
	)

	StateTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_state_transitions_total",
			Help: "Guided flow transitions",
		},
		[]string{"from", "to"},
	)
)
