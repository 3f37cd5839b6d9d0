package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration observes HTTP handler latency by route and status.
	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "auth_service_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	// LoginAttemptsTotal counts login outcomes: success, mfa_required,
	// invalid_credentials, blocked.
	LoginAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_service_login_attempts_total",
		Help: "Login attempts by outcome",
	}, []string{"outcome"})

	// TokenRefreshTotal counts refresh outcomes: success, invalid, reuse.
	TokenRefreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_service_token_refresh_total",
		Help: "Refresh token rotations by outcome",
	}, []string{"outcome"})

	// MFAVerificationsTotal counts second-factor checks: totp, backup, failed.
	MFAVerificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_service_mfa_verifications_total",
		Help: "MFA login verifications by method/outcome",
	}, []string{"outcome"})

	// TrustedDeviceBypassTotal counts MFA bypass attempts via trust cookie.
	TrustedDeviceBypassTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_service_trusted_device_bypass_total",
		Help: "Trusted-device MFA bypass attempts by outcome",
	}, []string{"outcome"})

	// SecurityRevocationsTotal counts bulk revocation cascades by trigger:
	// password_change, password_reset, mfa_disable, logout_all, token_reuse.
	SecurityRevocationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_service_security_revocations_total",
		Help: "Bulk session/device revocations by trigger",
	}, []string{"trigger"})
)
