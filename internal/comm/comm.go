package comm

import (
	"encoding/json"
	"time"
)

type WSMessage struct {
	Type     string          `json:"type"` // e.g. "watch", "leaderboard-updated"
	Data     json.RawMessage `json:"data"`
	SocketId string          `json:"socketid"`
}

// LeaderboardUpdate tells the socket service that one or more ranking
// caches were refreshed and clients should re-fetch.
type LeaderboardUpdate struct {
	Kinds     []string  `json:"kinds"`
	UpdatedAt time.Time `json:"updated_at"`
}
