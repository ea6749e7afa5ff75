package config

import (
	"os"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
)

// Scoring carries every tunable of the scoring core. One struct, loaded
// once at startup and handed to the services, so there is a single place
// where the point values live.
type Scoring struct {
	CorrectPoints    int           // added per consecutive correct answer, times streak length
	IncorrectPenalty int           // added per consecutive incorrect answer, times streak length
	LeaderboardLimit int           // top-N window for the ranking caches
	LatestWindow     time.Duration // rolling window for the per-room latest-round cache
}

const (
	defaultCorrectPoints    = 100
	defaultIncorrectPenalty = -500
	defaultLeaderboardLimit = 30
	defaultLatestWindow     = 5 * time.Minute
)

func Load() Scoring {
	return Scoring{
		CorrectPoints:    envInt("SCORE_CORRECT_POINTS", defaultCorrectPoints),
		IncorrectPenalty: envInt("SCORE_INCORRECT_PENALTY", defaultIncorrectPenalty),
		LeaderboardLimit: envInt("LEADERBOARD_LIMIT", defaultLeaderboardLimit),
		LatestWindow:     envDuration("LEADERBOARD_LATEST_WINDOW", defaultLatestWindow),
	}
}

func envInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		log.Warnf("invalid %s value %q, using default %d", key, raw, fallback)
		return fallback
	}
	return v
}

func envDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		log.Warnf("invalid %s value %q, using default %s", key, raw, fallback)
		return fallback
	}
	return v
}
