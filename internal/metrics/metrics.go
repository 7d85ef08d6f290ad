// Package metrics declares the prometheus collectors of the service.
package metrics

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// LoginTotal counts login attempts by outcome.
	LoginTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pumpwood_auth_login_total",
			Help: "Login attempts by outcome.",
		},
		[]string{"outcome"},
	)

	// CacheLookups counts cache reads by cache namespace and result.
	CacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pumpwood_auth_cache_lookups_total",
			Help: "Cache lookups by namespace and result (hit, miss, error).",
		},
		[]string{"cache", "result"},
	)

	// PermissionDecisions counts resolved permission checks.
	PermissionDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pumpwood_auth_permission_decisions_total",
			Help: "Permission checks by decision.",
		},
		[]string{"decision"},
	)

	// MFADelivery counts MFA code deliveries by backend and result.
	MFADelivery = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pumpwood_auth_mfa_delivery_total",
			Help: "MFA code deliveries by backend and result.",
		},
		[]string{"backend", "result"},
	)

	// HTTPRequests counts served requests.
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pumpwood_auth_http_requests_total",
			Help: "HTTP requests by method, route and status.",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPDuration observes request latency.
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pumpwood_auth_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// Register adds every collector to reg. Collectors already registered are ignored.
func Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		LoginTotal, CacheLookups, PermissionDecisions, MFADelivery, HTTPRequests, HTTPDuration,
	} {
		if err := reg.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if errors.As(err, &already) {
				continue
			}
			return err
		}
	}
	return nil
}

// Handler returns the prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
