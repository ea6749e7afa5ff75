package handlers

import (
	"github.com/go-chi/chi"
)

func (h *Handler) SetRoutes(r *chi.Mux) {
	r.Route("/v1", func(r chi.Router) {
		r.Get("/health", h.HealthHandler)

		r.Route("/rooms/{roomID}/users", func(r chi.Router) {
			r.Post("/", h.RegisterUserHandler)
			r.Patch("/{userID}", h.RenameUserHandler)

			r.Route("/{userID}/rounds", func(r chi.Router) {
				r.Post("/", h.StartRoundHandler)
				r.Patch("/{roundID}", h.ToggleRoundHandler)
				r.Post("/{roundID}/answers", h.SubmitAnswerHandler)
				r.Get("/{roundID}/score", h.LiveScoreHandler)
				r.Patch("/{roundID}/results", h.PatchResultsHandler)
			})
		})

		r.Route("/leaderboards", func(r chi.Router) {
			r.Get("/", h.LeaderboardHandler)
			r.Get("/updated", h.LeaderboardUpdatedHandler)
			r.Post("/refresh", h.RefreshLeaderboardsHandler)
		})

		r.Post("/admin/recompute", h.RecomputeAllHandler)
	})
}
