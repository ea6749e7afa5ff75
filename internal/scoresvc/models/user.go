package models

import (
	"time"
)

// User represents the users table in the database. The cached score
// aggregates are nullable until the user finishes a round; only the
// aggregate recompute writes them.
type User struct {
	ID              int64     `json:"id"`      // internal surrogate key
	RoomID          int       `json:"room_id"` // registration room
	UserID          int       `json:"user_id"` // public id, unique per room
	Name            string    `json:"name"`
	ScoreTotal      *int      `json:"score_total"`
	ScoreRoundMax   *int      `json:"score_round_max"`
	ScoreTodayTotal *int      `json:"score_today_total"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
