package models

import (
	"time"
)

// Round is one play-session. RoundID counts from 1 per user; RoomID is
// the room the round was played in, which may differ from the user's
// registration room. Score stays null while the round is open.
type Round struct {
	ID             int64      `json:"id"` // Primary key
	UserInternalID int64      `json:"user_internal_id"`
	RoundID        int        `json:"round_id"`
	RoomID         int        `json:"room_id"`
	StartedAt      time.Time  `json:"started_at"`
	FinishedAt     *time.Time `json:"finished_at"`
	Score          *int       `json:"score"`
}

func (r *Round) Finished() bool {
	return r.FinishedAt != nil
}

// Answer is one entry in a round's ordered answer sequence. AnswerID
// counts from 1 per round and its ascending order is the authoritative
// scoring order. IsCorrect is tri-state: true, false, or null for an
// explicit pass.
type Answer struct {
	ID              int64     `json:"id"` // Primary key
	RoundInternalID int64     `json:"round_internal_id"`
	AnswerID        int       `json:"answer_id"`
	IsCorrect       *bool     `json:"is_correct"`
	AnsweredAt      time.Time `json:"answered_at"`
}
