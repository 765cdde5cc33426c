package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LoginAttemptsTotal counts login attempts by outcome.
	LoginAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_service_login_attempts_total",
		Help: "The total number of login attempts by outcome",
	}, []string{"status"})

	// RegistrationAttemptsTotal counts registration attempts by outcome.
	RegistrationAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_service_registration_attempts_total",
		Help: "The total number of registration attempts by outcome",
	}, []string{"status"})

	// TokenRefreshTotal counts refresh-token exchanges by outcome.
	TokenRefreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_service_token_refresh_total",
		Help: "The total number of token refreshes by outcome",
	}, []string{"status"})

	// SessionsEvictedTotal counts sessions evicted by the per-user cap.
	SessionsEvictedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "auth_service_sessions_evicted_total",
		Help: "The total number of sessions evicted by the per-user cap",
	})

	// SessionsSweptTotal counts sessions deactivated by the expiry sweep.
	SessionsSweptTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "auth_service_sessions_swept_total",
		Help: "The total number of expired sessions swept",
	})

	// ExternalLoginsTotal counts completed external logins by provider and
	// outcome.
	ExternalLoginsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_service_external_logins_total",
		Help: "The total number of external login completions",
	}, []string{"provider", "status"})

	// LinkConflictsTotal counts detected linking conflicts by type.
	LinkConflictsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_service_link_conflicts_total",
		Help: "The total number of account-linking conflicts detected",
	}, []string{"type"})

	// HTTPRequestDuration observes HTTP request latency by route and status.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "auth_service_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})
)
