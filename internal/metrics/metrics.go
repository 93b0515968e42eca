// Package metrics exposes Prometheus counters for the shorten, redirect and
// analytics paths.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome label values
const (
	OutcomeOK          = "ok"
	OutcomeInvalid     = "invalid"
	OutcomeRateLimited = "rate_limited"
	OutcomeNotFound    = "not_found"
	OutcomeError       = "error"
	OutcomeDropped     = "dropped"
)

// Rate limiter decision label values. The error variants record which way
// the configured policy resolved a counter store failure.
const (
	DecisionAllowed      = "allowed"
	DecisionDenied       = "denied"
	DecisionErrorAllowed = "error_allowed"
	DecisionErrorDenied  = "error_denied"
)

// Metrics owns its registry so tests can create as many as they like
type Metrics struct {
	registry *prometheus.Registry

	Shortens        *prometheus.CounterVec
	Redirects       *prometheus.CounterVec
	AnalyticsEvents *prometheus.CounterVec
	KeyCollisions   prometheus.Counter
	Reconciled      prometheus.Counter
	RequestDuration *prometheus.HistogramVec

	RateLimitDecisions *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Shortens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "urldiet",
			Name:      "shorten_requests_total",
			Help:      "Shorten requests by outcome.",
		}, []string{"outcome"}),
		Redirects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "urldiet",
			Name:      "redirects_total",
			Help:      "Redirect lookups by outcome.",
		}, []string{"outcome"}),
		AnalyticsEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "urldiet",
			Name:      "analytics_events_total",
			Help:      "Redirect analytics events by outcome.",
		}, []string{"outcome"}),
		KeyCollisions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "urldiet",
			Name:      "key_collisions_total",
			Help:      "Generated keys that were already taken.",
		}),
		Reconciled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "urldiet",
			Name:      "reconciled_links_total",
			Help:      "Link rows backfilled by the reconciliation sweep.",
		}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "urldiet",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "status"}),
		RateLimitDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "urldiet",
			Name:      "ratelimit_decisions_total",
			Help:      "Rate limiter decisions by result.",
		}, []string{"decision"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.Shortens,
		m.Redirects,
		m.AnalyticsEvents,
		m.KeyCollisions,
		m.Reconciled,
		m.RequestDuration,
		m.RateLimitDecisions,
	)
	return m
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
