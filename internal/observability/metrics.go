package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics wraps the service's Prometheus collectors. A nil *Metrics is a no-op.
type Metrics struct {
	registry            *prometheus.Registry
	requests            *prometheus.CounterVec
	requestDuration     *prometheus.HistogramVec
	errors              *prometheus.CounterVec
	ingested            *prometheus.CounterVec
	attachmentFailures  prometheus.Counter
	emailsSent          prometheus.Counter
	deliveryFailures    prometheus.Counter
	transitions         *prometheus.CounterVec
	ingestRunsSucceeded prometheus.Counter
	ingestRunsFailed    prometheus.Counter
}

// NewMetrics registers every collector on a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "helpdesk_http_requests_total",
			Help: "Total HTTP requests",
		}, []string{"method", "path", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "helpdesk_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"method", "path"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "helpdesk_http_errors_total",
			Help: "HTTP responses rendered from domain errors",
		}, []string{"method", "path", "code"}),
		ingested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "helpdesk_ingested_messages_total",
			Help: "Inbound messages processed, by outcome",
		}, []string{"outcome"}),
		attachmentFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "helpdesk_attachment_filing_failures_total",
			Help: "Inbound attachments skipped because filing failed",
		}),
		emailsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "helpdesk_emails_sent_total",
			Help: "Outbound ticket emails delivered",
		}),
		deliveryFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "helpdesk_email_delivery_failures_total",
			Help: "Outbound ticket emails rejected by the transport",
		}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "helpdesk_ticket_transitions_total",
			Help: "Ticket state transitions, by target state",
		}, []string{"to"}),
		ingestRunsSucceeded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "helpdesk_ingest_runs_succeeded_total",
			Help: "Mailbox ingestion runs that committed",
		}),
		ingestRunsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "helpdesk_ingest_runs_failed_total",
			Help: "Mailbox ingestion runs that failed",
		}),
	}
	m.registry.MustRegister(
		m.requests, m.requestDuration, m.errors, m.ingested, m.attachmentFailures,
		m.emailsSent, m.deliveryFailures, m.transitions,
		m.ingestRunsSucceeded, m.ingestRunsFailed,
	)
	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(method, path, code).Inc()
}

// RecordIngested counts one inbound message by outcome: created, follow_up
// or unparseable.
func (m *Metrics) RecordIngested(outcome string) {
	if m == nil {
		return
	}
	m.ingested.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordAttachmentFailure() {
	if m == nil {
		return
	}
	m.attachmentFailures.Inc()
}

func (m *Metrics) RecordEmailSent() {
	if m == nil {
		return
	}
	m.emailsSent.Inc()
}

func (m *Metrics) RecordDeliveryFailure() {
	if m == nil {
		return
	}
	m.deliveryFailures.Inc()
}

func (m *Metrics) RecordTransition(to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(to).Inc()
}

// RecordIngestRun counts a scheduled ingestion run by result.
func (m *Metrics) RecordIngestRun(err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.ingestRunsFailed.Inc()
		return
	}
	m.ingestRunsSucceeded.Inc()
}
