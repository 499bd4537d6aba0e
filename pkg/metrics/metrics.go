// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SearchRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eventa_search_requests_total",
		Help: "Total number of searches, labelled by outcome (ok, invalid, error).",
	}, []string{"outcome"})

	SearchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "eventa_search_duration_ms",
		Help:    "End-to-end search latency in milliseconds.",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
	})

	SearchResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eventa_search_results_total",
		Help: "Total number of results returned, labelled by source.",
	}, []string{"source"})

	WebSearchCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eventa_web_search_calls_total",
		Help: "Total number of web search supplements, labelled by outcome (results, empty, disabled).",
	}, []string{"outcome"})

	Admissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eventa_external_admissions_total",
		Help: "Total number of external records checked, labelled by provider and result code.",
	}, []string{"provider", "result"})

	GuardDenials = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eventa_guard_denials_total",
		Help: "Total number of provider calls refused, labelled by provider and guard.",
	}, []string{"provider", "guard"})

	ProviderFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eventa_provider_fetches_total",
		Help: "Total number of provider fetches, labelled by provider and status.",
	}, []string{"provider", "status"})

	ModerationDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eventa_moderation_decisions_total",
		Help: "Total number of moderation decisions, labelled by resulting status.",
	}, []string{"status"})

	Submissions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "eventa_submissions_total",
		Help: "Total number of events submitted or imported.",
	})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eventa_http_requests_total",
		Help: "Total number of HTTP requests, labelled by method and status code.",
	}, []string{"method", "code"})

	LiveClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "eventa_live_clients",
		Help: "Number of connected live feed clients.",
	})
)
