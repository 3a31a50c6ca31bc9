// Shelfplay - Board Game Collection and Match Tracker
// SPDX-License-Identifier: MIT
// https://github.com/shelfplay/shelfplay

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter builds the Chi router with the full middleware stack and all
// API routes.
func NewRouter(h *Handlers, m *Middleware) chi.Router {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.Recoverer)
	r.Use(SecurityHeaders())
	r.Use(m.CORS())
	r.Use(Instrument())

	r.With(m.Timeout()).Get("/health", h.Health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(m.RateLimit())

		r.Group(func(r chi.Router) {
			r.Use(m.Timeout())

			r.Get("/health", h.Health)

			r.Route("/players", func(r chi.Router) {
				r.Get("/", h.ListPlayers)
				r.Post("/", h.CreatePlayer)
				r.Get("/{id}", h.GetPlayer)
				r.Put("/{id}", h.UpdatePlayer)
				r.Patch("/{id}", h.UpdatePlayer)
				r.Delete("/{id}", h.DeletePlayer)
			})

			r.Route("/games", func(r chi.Router) {
				r.Get("/", h.ListGames)
				r.Post("/", h.CreateGame)
				r.Get("/{id}", h.GetGame)
				r.Put("/{id}", h.UpdateGame)
				r.Patch("/{id}", h.UpdateGame)
				r.Delete("/{id}", h.DeleteGame)
				r.Get("/{id}/stats", h.GetGameStats)
			})

			r.Route("/matches", func(r chi.Router) {
				r.Get("/", h.ListMatches)
				r.Post("/", h.CreateMatch)
				r.Get("/{id}", h.GetMatch)
				r.Put("/{id}", h.UpdateMatch)
				r.Patch("/{id}", h.UpdateMatch)
				r.Delete("/{id}", h.DeleteMatch)
			})

			r.Route("/stats", func(r chi.Router) {
				r.Get("/", h.ListStats)
				r.Get("/{id}", h.GetGameStats)
			})
		})

		// The sync trigger blocks for the whole upstream retry budget, so it
		// carries its own timeout instead of the server-wide one.
		r.Route("/bgg", func(r chi.Router) {
			r.With(m.RateLimitSync(), m.SyncTimeout()).Post("/sync/{username}", h.SyncCollection)
			r.With(m.Timeout()).Get("/game/{id}", h.GetBGGGame)
		})
	})

	return r
}
