package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/otakuogeek/clinic-callcenter/internal/http/handlers"
	httpmiddleware "github.com/otakuogeek/clinic-callcenter/internal/http/middleware"
	"github.com/otakuogeek/clinic-callcenter/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger       *logging.Logger
	CallHandler  *handlers.CallHandler
	RelayHandler *handlers.RelayHandler

	// AdminJWTSecret guards everything under /api. Empty disables the
	// protected routes entirely rather than serving them open.
	AdminJWTSecret string

	// Rate limiting for call trigger endpoints.
	RateLimitPerSecond float64
	RateLimitBurst     int

	MetricsHandler     http.Handler
	CORSAllowedOrigins []string

	// HealthCheck reports readiness of downstream dependencies.
	HealthCheck http.HandlerFunc
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints
	r.Group(func(public chi.Router) {
		if cfg.HealthCheck != nil {
			public.Get("/health", cfg.HealthCheck)
		} else {
			public.Get("/health", defaultHealth)
		}
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	// Protected API
	r.Route("/api", func(api chi.Router) {
		api.Use(httpmiddleware.AdminJWT(cfg.AdminJWTSecret))

		if cfg.CallHandler != nil {
			api.Route("/calls", func(calls chi.Router) {
				if cfg.RateLimitPerSecond > 0 {
					calls.Use(httpmiddleware.RateLimit(cfg.RateLimitPerSecond, cfg.RateLimitBurst))
				}
				cfg.CallHandler.RegisterRoutes(calls)
			})
		}
		if cfg.RelayHandler != nil {
			api.Route("/relay", cfg.RelayHandler.RegisterRoutes)
		}
	})

	return r
}

func defaultHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
