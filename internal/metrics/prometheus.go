package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var HttpRequestsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests received",
	},
	[]string{"route", "status", "method"},
)

var HttpRequestDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"route", "method"},
)

var SweepCyclesTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "sla_sweep_cycles_total",
		Help: "SLA sweep cycles by outcome (run, skipped)",
	},
	[]string{"outcome"},
)

var SweepCheckFailuresTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "sla_sweep_check_failures_total",
		Help: "Failures inside an individual sweep check",
	},
	[]string{"check"},
)

var SweepCycleDuration = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "sla_sweep_cycle_duration_seconds",
		Help:    "Wall time of one SLA sweep cycle",
		Buckets: prometheus.DefBuckets,
	},
)

var SweepTransitionsTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "sla_sweep_transitions_total",
		Help: "Reports moved to SLAVencida by the sweep",
	},
)

var NotificationsCreatedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "notifications_created_total",
		Help: "In-app notifications written, by type",
	},
	[]string{"type"},
)

var EmailsSentTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "emails_sent_total",
		Help: "Outbound email attempts by provider and outcome",
	},
	[]string{"provider", "outcome"},
)

var EmailSendDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "email_send_duration_seconds",
		Help:    "Time taken to hand an email to the provider",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"provider"},
)

var WebhooksReceivedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "webhooks_received_total",
		Help: "Webhook deliveries by source and outcome",
	},
	[]string{"source", "outcome"},
)

var registerOnce sync.Once

// Init registers every collector with the default registry. Safe to call
// more than once.
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(HttpRequestsTotal)
		prometheus.MustRegister(HttpRequestDuration)
		prometheus.MustRegister(SweepCyclesTotal)
		prometheus.MustRegister(SweepCheckFailuresTotal)
		prometheus.MustRegister(SweepCycleDuration)
		prometheus.MustRegister(SweepTransitionsTotal)
		prometheus.MustRegister(NotificationsCreatedTotal)
		prometheus.MustRegister(EmailsSentTotal)
		prometheus.MustRegister(EmailSendDuration)
		prometheus.MustRegister(WebhooksReceivedTotal)
	})
}
