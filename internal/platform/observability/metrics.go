package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	UpdatesReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ekki_updates_received_total",
		Help: "The total number of platform updates received",
	}, []string{"source"})

	UpdatesRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ekki_updates_rejected_total",
		Help: "Updates acknowledged without processing, by reason",
	}, []string{"reason"})

	DispatchOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ekki_dispatch_outcomes_total",
		Help: "The total number of dispatched messages by outcome",
	}, []string{"outcome"})

	DispatchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ekki_dispatch_duration_seconds",
		Help:    "Duration of handling one inbound message",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	})

	LLMRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ekki_llm_request_duration_seconds",
		Help:    "Duration of completion requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"model"})

	LLMRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ekki_llm_requests_total",
		Help: "The total number of completion requests by status",
	}, []string{"model", "status"})

	LLMTokens = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ekki_llm_tokens_total",
		Help: "Completion token usage",
	}, []string{"model", "type"})

	LLMCircuitOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ekki_llm_circuit_open",
		Help: "1 when the completion circuit breaker is open",
	})

	ModerationActions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ekki_moderation_actions_total",
		Help: "The total number of moderation actions by kind and status",
	}, []string{"kind", "status"})

	PlatformRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ekki_platform_requests_total",
		Help: "Bot API calls by method and status",
	}, []string{"method", "status"})

	StorageErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ekki_storage_errors_total",
		Help: "Tolerated storage failures by operation",
	}, []string{"operation"})

	AdminRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ekki_admin_requests_total",
		Help: "Admin API requests by action and status code",
	}, []string{"action", "code"})

	AudienceSize = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ekki_audience_size",
		Help: "Stored identities by kind and block status, refreshed periodically",
	}, []string{"kind", "status"})

	InteractionLogsStored = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ekki_interaction_logs_stored",
		Help: "Interaction log entries in storage, refreshed periodically",
	})

	BroadcastMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ekki_broadcast_messages_total",
		Help: "Broadcast deliveries by target kind and status",
	}, []string{"target", "status"})
)

// Metric status label values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusRefused = "refused"
	StatusEmpty   = "empty"
	StatusTimeout = "timeout"
)
