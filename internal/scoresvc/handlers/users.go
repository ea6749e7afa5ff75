package handlers

import (
	"encoding/json"
	"net/http"
	"unicode/utf8"

	"github.com/quizroom/quiz-services/internal/scoresvc/apperr"
)

const maxNameLength = 20

type registerRequest struct {
	UserID int    `json:"user_id"`
	Name   string `json:"name"`
}

type renameRequest struct {
	Name string `json:"name"`
}

func validateName(name string) error {
	if utf8.RuneCountInString(name) > maxNameLength {
		return apperr.New(apperr.Validation, "name exceeds %d characters", maxNameLength)
	}
	return nil
}

// RegisterUserHandler creates (or returns) the user for the room.
func (h *Handler) RegisterUserHandler(w http.ResponseWriter, r *http.Request) {
	roomID, err := urlInt(r, "roomID")
	if err != nil {
		h.fail(w, err)
		return
	}

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.fail(w, apperr.New(apperr.Validation, "malformed request body"))
		return
	}
	if req.UserID <= 0 {
		h.fail(w, apperr.New(apperr.Validation, "user_id must be a positive integer"))
		return
	}
	if err := validateName(req.Name); err != nil {
		h.fail(w, err)
		return
	}

	u, err := h.users.Register(r.Context(), roomID, req.UserID, req.Name)
	if err != nil {
		h.fail(w, err)
		return
	}

	h.ok(w, u)
}

// RenameUserHandler edits the display name.
func (h *Handler) RenameUserHandler(w http.ResponseWriter, r *http.Request) {
	roomID, err := urlInt(r, "roomID")
	if err != nil {
		h.fail(w, err)
		return
	}
	userID, err := urlInt(r, "userID")
	if err != nil {
		h.fail(w, err)
		return
	}

	var req renameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.fail(w, apperr.New(apperr.Validation, "malformed request body"))
		return
	}
	if req.Name == "" {
		h.fail(w, apperr.New(apperr.Validation, "name must not be empty"))
		return
	}
	if err := validateName(req.Name); err != nil {
		h.fail(w, err)
		return
	}

	u, err := h.users.Rename(r.Context(), roomID, userID, req.Name)
	if err != nil {
		h.fail(w, err)
		return
	}

	h.ok(w, u)
}
