// Package metrics exposes Prometheus counters for authentication outcomes
// and token lifecycle events.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	AuthAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_attempts_total",
			Help: "Total number of authentication attempts by outcome.",
		},
		[]string{"outcome"},
	)
	Lockouts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "auth_lockouts_total",
			Help: "Total number of accounts locked after exceeding the attempt limit.",
		},
	)
	TokensIssued = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tokens_issued_total",
			Help: "Total number of refresh/access token pairs issued.",
		},
	)
	TokensBlacklisted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tokens_blacklisted_total",
			Help: "Total number of refresh tokens blacklisted.",
		},
	)
)

// Outcome labels for AuthAttempts.
const (
	OutcomeSuccess  = "success"
	OutcomeFailed   = "failed"
	OutcomeLocked   = "locked"
	OutcomeExceeded = "exceeded"
	OutcomeNotFound = "not_found"
	OutcomeInactive = "inactive"
)

func Register(registry *prometheus.Registry) {
	registry.MustRegister(AuthAttempts, Lockouts, TokensIssued, TokensBlacklisted)
}

// Handler returns a scrape endpoint serving the package counters plus the
// standard Go runtime and process collectors.
func Handler() http.Handler {
	registry := prometheus.NewRegistry()
	Register(registry)
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
