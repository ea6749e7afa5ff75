package handlers

import (
	"net/http"
	"time"

	"github.com/quizroom/quiz-services/internal/scoresvc/service"
)

// LeaderboardHandler reads one or more ranking caches. The type query
// parameter is a comma-separated subset of the four kinds.
func (h *Handler) LeaderboardHandler(w http.ResponseWriter, r *http.Request) {
	kinds, err := service.ParseKinds(r.URL.Query().Get("type"))
	if err != nil {
		h.fail(w, err)
		return
	}

	boards, err := h.leaderboards.Read(r.Context(), kinds)
	if err != nil {
		h.fail(w, err)
		return
	}

	h.ok(w, boards)
}

// LeaderboardUpdatedHandler exposes each kind's last refresh time.
func (h *Handler) LeaderboardUpdatedHandler(w http.ResponseWriter, r *http.Request) {
	freshness, err := h.leaderboards.Freshness(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}

	stamped := make(map[string]string, len(freshness))
	for kind, at := range freshness {
		stamped[kind] = at.Format(time.RFC3339)
	}

	h.ok(w, stamped)
}

// RefreshLeaderboardsHandler is the standalone refresh trigger used by
// operators and the sweep service to catch up after skipped refreshes.
func (h *Handler) RefreshLeaderboardsHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.leaderboards.RefreshStandalone(r.Context(), service.AllKinds); err != nil {
		h.fail(w, err)
		return
	}

	h.ok(w, nil)
}

// RecomputeAllHandler runs the bulk per-user recompute.
func (h *Handler) RecomputeAllHandler(w http.ResponseWriter, r *http.Request) {
	report, err := h.admin.RecomputeAll(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}

	h.ok(w, report)
}
