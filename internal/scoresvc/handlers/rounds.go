package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/quizroom/quiz-services/internal/scoresvc/apperr"
	"github.com/quizroom/quiz-services/internal/scoresvc/service"
)

type startRoundRequest struct {
	RoomID int `json:"room_id"`
}

type toggleRoundRequest struct {
	Finished *bool `json:"finished"`
}

type submitAnswerRequest struct {
	IsCorrect *bool `json:"is_correct"`
}

// resultPatchValue distinguishes the delete sentinel (literal null)
// from an is_correct upsert, including an explicit is_correct null.
type resultPatchValue struct {
	IsCorrect *bool `json:"is_correct"`
}

// StartRoundHandler opens a new round, force-closing any open one.
func (h *Handler) StartRoundHandler(w http.ResponseWriter, r *http.Request) {
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

	var req startRoundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.fail(w, apperr.New(apperr.Validation, "malformed request body"))
		return
	}
	if req.RoomID <= 0 {
		h.fail(w, apperr.New(apperr.Validation, "room_id must be a positive integer"))
		return
	}

	roundID, err := h.rounds.StartRound(r.Context(), roomID, userID, req.RoomID)
	if err != nil {
		h.fail(w, err)
		return
	}

	h.ok(w, map[string]int{"round_id": roundID})
}

// ToggleRoundHandler closes or reopens a round.
func (h *Handler) ToggleRoundHandler(w http.ResponseWriter, r *http.Request) {
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
	roundID, err := urlInt(r, "roundID")
	if err != nil {
		h.fail(w, err)
		return
	}

	var req toggleRoundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.fail(w, apperr.New(apperr.Validation, "malformed request body"))
		return
	}
	if req.Finished == nil {
		h.fail(w, apperr.New(apperr.Validation, "finished must be a boolean"))
		return
	}

	if err := h.rounds.SetFinished(r.Context(), roomID, userID, roundID, *req.Finished); err != nil {
		h.fail(w, err)
		return
	}

	h.ok(w, map[string]bool{"finished": *req.Finished})
}

// SubmitAnswerHandler appends an answer; is_correct null is an explicit
// pass.
func (h *Handler) SubmitAnswerHandler(w http.ResponseWriter, r *http.Request) {
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
	roundID, err := urlInt(r, "roundID")
	if err != nil {
		h.fail(w, err)
		return
	}

	var req submitAnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.fail(w, apperr.New(apperr.Validation, "malformed request body"))
		return
	}

	answerID, err := h.rounds.SubmitAnswer(r.Context(), roomID, userID, roundID, req.IsCorrect)
	if err != nil {
		h.fail(w, err)
		return
	}

	h.ok(w, map[string]int{"answer_id": answerID})
}

// LiveScoreHandler returns the round's current unpersisted score.
func (h *Handler) LiveScoreHandler(w http.ResponseWriter, r *http.Request) {
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
	roundID, err := urlInt(r, "roundID")
	if err != nil {
		h.fail(w, err)
		return
	}

	score, err := h.rounds.LiveScore(r.Context(), roomID, userID, roundID)
	if err != nil {
		h.fail(w, err)
		return
	}

	h.ok(w, map[string]int{"score": score})
}

// parseResultsPatch decodes the administrative results patch: keys are
// answer-id strings, values either {"is_correct": ...} or literal null
// as a delete sentinel.
func parseResultsPatch(body []byte) (map[int]service.ResultPatch, error) {
	var raw map[string]*resultPatchValue
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, apperr.New(apperr.Validation, "malformed results patch")
	}

	patch := make(map[int]service.ResultPatch, len(raw))
	for key, value := range raw {
		answerID, err := strconv.Atoi(key)
		if err != nil || answerID <= 0 {
			return nil, apperr.New(apperr.Validation, "invalid answer id %q", key)
		}

		if value == nil {
			patch[answerID] = service.ResultPatch{Delete: true}
		} else {
			patch[answerID] = service.ResultPatch{IsCorrect: value.IsCorrect}
		}
	}

	return patch, nil
}

// PatchResultsHandler applies per-answer corrections to a round.
func (h *Handler) PatchResultsHandler(w http.ResponseWriter, r *http.Request) {
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
	roundID, err := urlInt(r, "roundID")
	if err != nil {
		h.fail(w, err)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.fail(w, apperr.New(apperr.Validation, "failed to read request body"))
		return
	}

	patch, err := parseResultsPatch(body)
	if err != nil {
		h.fail(w, err)
		return
	}

	if err := h.rounds.PatchResults(r.Context(), roomID, userID, roundID, patch); err != nil {
		h.fail(w, err)
		return
	}

	h.ok(w, map[string]int{"patched": len(patch)})
}
