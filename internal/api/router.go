// SPDX-License-Identifier: MIT

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/1001011000101101/lers-plugins-sub000/internal/log"
)

// Router builds the gateway's chi router with the full middleware stack.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.Recoverer)
	r.Use(log.Middleware())
	r.Use(s.allowlistMiddleware)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	})

	r.Route("/lersproxy", func(r chi.Router) {
		// Unauthenticated surface.
		r.Get("/health", s.handleHealth)
		r.Get("/ready", s.handleReady)
		r.Get("/version", s.handleVersion)
		r.Post("/login", s.handleLogin)

		// Everything else requires a live session.
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)
			if s.cfg.APIRateLimit > 0 {
				r.Use(httprate.Limit(
					s.cfg.APIRateLimit,
					s.cfg.APIRateWindow,
					httprate.WithKeyFuncs(func(req *http.Request) (string, error) {
						return s.clientIP(req), nil
					}),
				))
			}

			r.Post("/logout", s.handleLogout)
			r.Get("/measurepoints", s.handleMeasurePoints)
			r.Get("/measurepoints/coverage", s.handleCoverage)
			r.Get("/measurepoints/{id}", s.handleMeasurePoint)
			r.Get("/nodes", s.handleNodes)
			r.Get("/reports/templates", s.handleTemplates)
			r.Get("/reports/apartment-templates", s.handleApartmentTemplates)
			r.Post("/reports/templates/invalidate", s.handleInvalidateTemplates)
			r.Post("/reports/generate", s.handleGenerate)
		})
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
