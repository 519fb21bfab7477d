// Package metrics exposes the service's prometheus instrumentation.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RedirectsTotal counts served redirects by routing rule and tier.
	RedirectsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "smartlinks",
		Name:      "redirects_total",
		Help:      "Redirects served, by routing rule and behavior tier.",
	}, []string{"rule", "tier"})

	// BlockedTotal counts clicks rejected before the redirect, by reason.
	BlockedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "smartlinks",
		Name:      "blocked_total",
		Help:      "Clicks blocked before the redirect, by reason.",
	}, []string{"reason"})

	// EscalationsTotal counts protection level escalations by target level.
	EscalationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "smartlinks",
		Name:      "protection_escalations_total",
		Help:      "Protection state machine escalations, by target level.",
	}, []string{"level"})

	// SuspiciousVisitsTotal counts visits flagged as bot-like.
	SuspiciousVisitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "smartlinks",
		Name:      "suspicious_visits_total",
		Help:      "Visits flagged suspicious by the per-visit detector.",
	})
)

// Handler returns the /metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
