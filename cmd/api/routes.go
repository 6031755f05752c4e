package main

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/notebook/notebook/internal/config"
	"github.com/notebook/notebook/internal/handler"
	"github.com/notebook/notebook/internal/metrics"
	"github.com/notebook/notebook/internal/middleware"
	"github.com/notebook/notebook/internal/routing"
)

// routes collects everything setupRouter mounts.
type routes struct {
	base     *handler.Handler
	health   *handler.HealthHandler
	metrics  *handler.MetricsHandler
	notes    *handler.NoteHandler
	actions  *handler.ActionHandler
	pages    *handler.PageHandler
	router   *routing.Router
	sessions middleware.SessionResolver
	limiter  middleware.ActionLimiter
	recorder metrics.Recorder
}

// setupRouter configures the chi router with all routes and middleware.
func setupRouter(rt routes, cfg *config.Config, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	securityCfg := middleware.DefaultSecurityConfig()
	securityCfg.IsDevelopment = !cfg.IsProduction()
	if cfg.MaxRequestBodySize > 0 {
		securityCfg.MaxRequestBodySize = cfg.MaxRequestBodySize
	}

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger, "/healthz", "/readyz", "/metrics", "/static/"))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.Security(securityCfg))
	r.Use(middleware.MaxBodySize(securityCfg.MaxRequestBodySize))

	// Operational endpoints (no auth required)
	r.Get("/healthz", rt.health.Healthz)
	r.Get("/readyz", rt.health.Readyz)
	r.Get("/metrics", rt.metrics.Metrics)
	r.Handle("/static/*", handler.Static())

	// JSON API: session required, 401 otherwise
	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.APIAuth(middleware.AuthConfig{
			Logger:   logger,
			Sessions: rt.sessions,
		}))
		rt.notes.Routes(r)
	})

	// Account actions, rate limited per client IP
	r.Route("/actions", func(r chi.Router) {
		r.Use(middleware.RateLimitActions(middleware.RateLimitConfig{
			Logger:  logger,
			Limiter: rt.limiter,
			Metrics: rt.recorder,
			Enabled: cfg.RateLimitActionsEnabled,
			RPS:     cfg.RateLimitActionsRPS,
			Burst:   cfg.RateLimitActionsBurst,
		}))
		r.Post("/login", rt.actions.Login)
		r.Post("/sign-up", rt.actions.SignUp)
		r.Post("/logout", rt.actions.LogOut)
	})

	// Pages: the request router decides redirects before any page renders
	r.Group(func(r chi.Router) {
		r.Use(rt.router.Middleware)
		r.Get(routing.PathRoot, rt.pages.Editor)
		r.Get(routing.PathLogin, rt.pages.Login)
		r.Get(routing.PathSignUp, rt.pages.SignUp)
	})

	// 404 and 405 handlers
	r.NotFound(rt.base.NotFound)
	r.MethodNotAllowed(rt.base.MethodNotAllowed)

	return r
}
