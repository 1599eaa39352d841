package http

import (
	"net/http"

	"github.com/go-chi/cors"

	"github.com/AlibekovAA/taskflow/backend/internal/common/constants"
	"github.com/AlibekovAA/taskflow/backend/internal/common/logger"
)

// BuildBaseHandler wraps handler with the middleware every service shares.
// Request metrics are collected by the service router itself.
func BuildBaseHandler(allowedOrigins []string, log *logger.Logger, handler http.Handler) http.Handler {
	recovery := RecoveryMiddleware(log)
	traceID := TraceIDMiddleware
	maxRequestSize := MaxRequestSizeMiddleware(constants.DefaultMaxRequestSize)
	securityHeaders := SecurityHeadersMiddleware
	csp := ContentSecurityPolicyMiddleware("")
	corsHandler := CORSMiddleware(allowedOrigins)

	return securityHeaders(csp(corsHandler(recovery(traceID(maxRequestSize(handler))))))
}

func CORSMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization", traceIDHeader},
		ExposedHeaders:   []string{traceIDHeader},
		AllowCredentials: true,
		MaxAge:           constants.CORSMaxAge,
	})
}
