package models

import (
	"time"
)

// LeaderboardEntry is one denormalized row of a ranking cache table.
// RoundID, RoomID and FinishedAt are only set for the round-based kinds.
type LeaderboardEntry struct {
	Name       string     `json:"name"`
	UserID     int        `json:"user_id"`
	RoomID     int        `json:"room_id"`
	Score      int        `json:"score"`
	RoundID    *int       `json:"round_id,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// LeaderboardFreshness is the rankings_cache_updated row for one kind.
type LeaderboardFreshness struct {
	Kind      string    `json:"kind"`
	UpdatedAt time.Time `json:"updated_at"`
}
