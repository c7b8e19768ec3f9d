// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/olegiv/soilstation/internal/metrics"
	"github.com/olegiv/soilstation/internal/middleware"
	"github.com/olegiv/soilstation/internal/model"
)

// DefaultRequestTimeout bounds requests when RouterConfig leaves it unset.
const DefaultRequestTimeout = 60 * time.Second

// RouterConfig collects what NewRouter wires together.
type RouterConfig struct {
	Sessions *scs.SessionManager
	Auth     *AuthHandler
	Soil     *SoilHandler
	Health   *HealthHandler

	// LoginProtection guards POST /login when set.
	LoginProtection *middleware.LoginProtection
	// RateLimiter applies to every request except health checks when set.
	RateLimiter *middleware.IPRateLimiter

	RequestTimeout time.Duration
	IsDevelopment  bool
	// ExposeMetrics mounts the Prometheus handler at /metrics.
	ExposeMetrics bool
	// TrustProxy takes the client address from forwarding headers. Leave
	// it off unless a reverse proxy overwrites them.
	TrustProxy bool
}

// NewRouter builds the HTTP surface of the workflow.
func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	if cfg.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(metrics.Middleware)
	r.Use(chimw.GetHead)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	// Handlers run on the timeout goroutine, so recovery must sit below it.
	r.Use(chimw.Recoverer)

	securityConfig := middleware.DefaultSecurityHeadersConfig(cfg.IsDevelopment)
	securityConfig.ExcludePaths = []string{RouteMetrics}
	r.Use(middleware.SecurityHeaders(securityConfig))
	r.Use(middleware.RequestPath)

	r.Get(RouteHealthLive, cfg.Health.Liveness)
	if cfg.ExposeMetrics {
		r.Method(http.MethodGet, RouteMetrics, metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(cfg.Sessions.LoadAndSave)
		r.Use(middleware.LoadState(cfg.Sessions))

		r.Get(RouteHealth, cfg.Health.Health)
		r.Get(RouteHealthReady, cfg.Health.Readiness)

		r.Group(func(r chi.Router) {
			if cfg.RateLimiter != nil {
				r.Use(cfg.RateLimiter.Middleware())
			}

			r.Group(func(r chi.Router) {
				if cfg.LoginProtection != nil {
					r.Use(cfg.LoginProtection.Middleware())
				}
				r.Post(RouteSignup, cfg.Auth.Signup)
				r.Post(RouteLogin, cfg.Auth.Login)
			})
			r.Post(RouteLogout, cfg.Auth.Logout)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAuth)

				r.Post(RoutePredict, cfg.Soil.Predict)
				r.Get(RouteHistory, cfg.Soil.History)
				r.Get(RoutePlants, cfg.Soil.Plants)

				r.Get(RouteSoilCategory, cfg.Soil.Shortcut)
				r.Post(RouteSoilCategory, cfg.Soil.Shortcut)
				for _, c := range model.SoilCategories {
					r.Get("/"+c.Slug(), cfg.Soil.ShortcutFor(c))
				}
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSONError(w, http.StatusNotFound, "Not found.")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed.")
	})

	return r
}
