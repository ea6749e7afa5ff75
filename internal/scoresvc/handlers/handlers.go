package handlers

import (
	"encoding/json"
	"net/http"
	"os"
	"strconv"

	"github.com/go-chi/chi"
	log "github.com/sirupsen/logrus"

	"github.com/quizroom/quiz-services/internal/scoresvc/apperr"
	"github.com/quizroom/quiz-services/internal/scoresvc/service"
)

type Handler struct {
	users        *service.UserService
	rounds       *service.RoundService
	leaderboards *service.LeaderboardService
	admin        *service.AdminService
}

func NewHandler(users *service.UserService, rounds *service.RoundService,
	leaderboards *service.LeaderboardService, admin *service.AdminService) *Handler {
	return &Handler{
		users:        users,
		rounds:       rounds,
		leaderboards: leaderboards,
		admin:        admin,
	}
}

type Response struct {
	Message string      `json:"message"`
	Code    int         `json:"code"`
	Data    interface{} `json:"data"`
	Error   string      `json:"error,omitempty"`
}

func (h *Handler) CreateResponse(w http.ResponseWriter, rsp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(rsp.Code)

	if err := json.NewEncoder(w).Encode(rsp); err != nil {
		log.Errorf("Failed to encode response: %v", err)
	}
}

// fail maps the service error taxonomy onto HTTP codes.
func (h *Handler) fail(w http.ResponseWriter, err error) {
	code := apperr.HTTPStatus(err)
	if code >= http.StatusInternalServerError {
		log.Errorf("request failed: %v", err)
	}
	h.CreateResponse(w, Response{Code: code, Error: err.Error()})
}

func (h *Handler) ok(w http.ResponseWriter, data interface{}) {
	h.CreateResponse(w, Response{Message: "ok", Code: http.StatusOK, Data: data})
}

// urlInt parses a positive integer path parameter.
func urlInt(r *http.Request, name string) (int, error) {
	raw := chi.URLParam(r, name)
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return 0, apperr.New(apperr.Validation, "invalid %s %q", name, raw)
	}
	return v, nil
}

func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	rsp := Response{
		Message: "score service is running at port " + os.Getenv("SCORE_SERVICE_PORT"),
		Code:    200,
		Data:    nil,
	}
	if err := json.NewEncoder(w).Encode(rsp); err != nil {
		log.Errorf("Failed to encode health response: %v", err)
	}
}
