package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AlibekovAA/taskflow/backend/internal/auth/service"
	commonhttp "github.com/AlibekovAA/taskflow/backend/internal/common/http"
	"github.com/AlibekovAA/taskflow/backend/internal/common/httpmetrics"
	"github.com/AlibekovAA/taskflow/backend/internal/common/jwtverify"
	"github.com/AlibekovAA/taskflow/backend/internal/common/logger"
)

const serviceName = "taskflow-auth"

type Options struct {
	Service        *service.AuthService
	Verifier       jwtverify.Verifier
	RefreshTTL     time.Duration
	Production     bool
	RequestTimeout time.Duration
	// RateLimiter is optional; nil disables per-route limits.
	RateLimiter *commonhttp.StrictRateLimiter
	Now         func() time.Time
}

func NewRouter(opts Options, log *logger.Logger) http.Handler {
	h := &Handler{
		auth:       opts.Service,
		cookie:     cookiePolicy{maxAge: opts.RefreshTTL, production: opts.Production},
		errHandler: commonhttp.NewErrorHandler(log),
		log:        log,
	}

	limit := func(path string) func(http.Handler) http.Handler {
		if opts.RateLimiter == nil {
			return func(next http.Handler) http.Handler { return next }
		}
		return opts.RateLimiter.MiddlewareForPath(path)
	}

	r := chi.NewRouter()
	r.Use(httpmetrics.New("auth").Wrap)
	r.NotFound(commonhttp.NotFoundHandler)
	r.MethodNotAllowed(commonhttp.MethodNotAllowedHandler)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		commonhttp.WriteJSON(w, http.StatusOK, bannerResponse{Service: serviceName, Status: "running"})
	})
	r.Get("/health", commonhttp.HealthHandler(opts.Now))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/auth", func(ar chi.Router) {
		ar.Use(commonhttp.TimeoutMiddleware(opts.RequestTimeout))

		ar.With(limit("/api/auth/register")).Post("/register", h.register)
		ar.With(limit("/api/auth/login")).Post("/login", h.login)
		ar.With(limit("/api/auth/refresh")).Post("/refresh", h.refresh)
		ar.With(limit("/api/auth/logout")).Post("/logout", h.logout)

		ar.Group(func(pr chi.Router) {
			pr.Use(limit("/api/auth/profile"))
			pr.Use(jwtverify.Middleware(opts.Verifier, log))
			pr.Get("/profile", h.profile)
			pr.Put("/profile", h.updateProfile)
		})
	})

	return r
}
