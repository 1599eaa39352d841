package service

import (
	"github.com/AlibekovAA/taskflow/backend/internal/observability/metrics"
)

const (
	originLogin    = "login"
	originRegister = "register"

	rejectMissing  = "missing"
	rejectInvalid  = "invalid_signature"
	rejectUnknown  = "not_found"
	rejectExpired  = "expired"
	rejectReuse    = "reuse"
	rejectRotation = "rotation_conflict"
)

func incrementSessionsIssued(origin string) {
	metrics.SessionsIssued.WithLabelValues(origin).Inc()
}

func incrementRefreshTokensUsed() {
	metrics.RefreshTokensUsed.Inc()
}

func incrementRefreshTokensRotated() {
	metrics.RefreshTokensRotated.Inc()
}

func incrementRefreshTokensRevoked() {
	metrics.RefreshTokensRevoked.Inc()
}

func incrementRefreshTokensExpired() {
	metrics.RefreshTokensExpired.Inc()
}

func incrementRefreshTokensRejected(reason string) {
	metrics.RefreshTokensRejected.WithLabelValues(reason).Inc()
}

func incrementRefreshTokenReuseDetected() {
	metrics.RefreshTokenReuseDetected.Inc()
}
