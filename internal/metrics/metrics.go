// Package metrics exposes Prometheus counters for the webhook, the flow
// engine and outbound delivery.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	WebhookMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "washbot_webhook_messages_total",
			Help: "Inbound webhook messages by normalized kind (unsupported when skipped)",
		},
		[]string{"kind"},
	)

	WebhookStatuses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "washbot_webhook_statuses_total",
			Help: "Delivery status updates received from Meta",
		},
		[]string{"status"},
	)

	WebhookRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "washbot_webhook_rejected_total",
			Help: "Webhook deliveries dropped before processing",
		},
		[]string{"reason"},
	)

	Transitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "washbot_flow_transitions_total",
			Help: "Conversation state transitions",
		},
		[]string{"from", "to"},
	)

	ProcessErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "washbot_flow_process_errors_total",
			Help: "Messages whose processing failed before the session was persisted",
		},
	)

	DuplicateMessages = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "washbot_duplicate_messages_total",
			Help: "Redelivered inbound messages skipped by id",
		},
	)

	ThrottledMessages = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "washbot_throttled_messages_total",
			Help: "Inbound messages dropped by the per-phone rate limit",
		},
	)

	OutboundFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "washbot_outbound_failures_total",
			Help: "Failed calls to the WhatsApp Cloud API",
		},
		[]string{"kind"},
	)
)

var registry = prometheus.NewRegistry()

func init() {
	registry.MustRegister(
		WebhookMessages,
		WebhookStatuses,
		WebhookRejected,
		Transitions,
		ProcessErrors,
		DuplicateMessages,
		ThrottledMessages,
		OutboundFailures,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
}

// Handler serves the metrics registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
