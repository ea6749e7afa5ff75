package store

import (
	"context"
	"fmt"
	"time"

	"github.com/quizroom/quiz-services/internal/scoresvc/db"
	"github.com/quizroom/quiz-services/internal/scoresvc/models"
)

// LeaderboardStore maintains the denormalized rankings_cache_* tables.
// Every refresh is a full replace of the top-N window, not an
// incremental diff; the enclosing transaction keeps partial state from
// ever becoming visible.
type LeaderboardStore struct {
	db db.DBTX
}

func NewLeaderboardStore(q db.DBTX) *LeaderboardStore {
	return &LeaderboardStore{db: q}
}

const topTodayTotal = `
	SELECT id, room_id, user_id, name, score_today_total AS score, created_at
	FROM users
	WHERE score_today_total IS NOT NULL AND score_today_total > 0
	ORDER BY score_today_total DESC, created_at ASC
	LIMIT $1
`

// RefreshTodayTotal upserts the current top-N by today's total, then
// trims every cached row that fell out of the window. Ties rank earlier
// registrants first.
func (s *LeaderboardStore) RefreshTodayTotal(ctx context.Context, limit int) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO rankings_cache_today_total (user_internal_id, room_id, user_id, name, score, registered_at)
		`+topTodayTotal+`
		ON CONFLICT (user_internal_id) DO UPDATE
		SET room_id = EXCLUDED.room_id,
		    user_id = EXCLUDED.user_id,
		    name = EXCLUDED.name,
		    score = EXCLUDED.score,
		    registered_at = EXCLUDED.registered_at
	`, limit)
	if err != nil {
		return fmt.Errorf("failed to refresh today_total cache: %w", err)
	}

	_, err = s.db.Exec(ctx, `
		DELETE FROM rankings_cache_today_total
		WHERE user_internal_id NOT IN (SELECT id FROM (`+topTodayTotal+`) top)
	`, limit)
	if err != nil {
		return fmt.Errorf("failed to trim today_total cache: %w", err)
	}

	return nil
}

const topRoundMax = `
	SELECT id, room_id, user_id, name, score_round_max AS score, created_at
	FROM users
	WHERE score_round_max IS NOT NULL
	ORDER BY score_round_max DESC, created_at ASC
	LIMIT $1
`

func (s *LeaderboardStore) RefreshRoundMax(ctx context.Context, limit int) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO rankings_cache_round_max (user_internal_id, room_id, user_id, name, score, registered_at)
		`+topRoundMax+`
		ON CONFLICT (user_internal_id) DO UPDATE
		SET room_id = EXCLUDED.room_id,
		    user_id = EXCLUDED.user_id,
		    name = EXCLUDED.name,
		    score = EXCLUDED.score,
		    registered_at = EXCLUDED.registered_at
	`, limit)
	if err != nil {
		return fmt.Errorf("failed to refresh round_max cache: %w", err)
	}

	_, err = s.db.Exec(ctx, `
		DELETE FROM rankings_cache_round_max
		WHERE user_internal_id NOT IN (SELECT id FROM (`+topRoundMax+`) top)
	`, limit)
	if err != nil {
		return fmt.Errorf("failed to trim round_max cache: %w", err)
	}

	return nil
}

const topRound = `
	SELECT r.id, r.room_id, u.user_id, u.name, r.score, r.round_id, r.finished_at
	FROM users_rounds r
	JOIN users u ON u.id = r.user_internal_id
	WHERE r.finished_at IS NOT NULL AND r.score IS NOT NULL
	ORDER BY r.score DESC, r.id ASC
	LIMIT $1
`

// RefreshRound ranks individual finished rounds, keyed by the round's
// own surrogate id. Score ties break by insertion order.
func (s *LeaderboardStore) RefreshRound(ctx context.Context, limit int) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO rankings_cache_round (round_internal_id, room_id, user_id, name, score, round_id, finished_at)
		`+topRound+`
		ON CONFLICT (round_internal_id) DO UPDATE
		SET room_id = EXCLUDED.room_id,
		    user_id = EXCLUDED.user_id,
		    name = EXCLUDED.name,
		    score = EXCLUDED.score,
		    round_id = EXCLUDED.round_id,
		    finished_at = EXCLUDED.finished_at
	`, limit)
	if err != nil {
		return fmt.Errorf("failed to refresh round cache: %w", err)
	}

	_, err = s.db.Exec(ctx, `
		DELETE FROM rankings_cache_round
		WHERE round_internal_id NOT IN (SELECT id FROM (`+topRound+`) top)
	`, limit)
	if err != nil {
		return fmt.Errorf("failed to trim round cache: %w", err)
	}

	return nil
}

// RefreshRoundLatest rebuilds the per-room most-recently-finished-round
// cache from scratch: one row per room, only rounds finished within the
// rolling window. finished_at ties break by insertion order.
func (s *LeaderboardStore) RefreshRoundLatest(ctx context.Context, window time.Duration) error {
	_, err := s.db.Exec(ctx, `DELETE FROM rankings_cache_round_latest`)
	if err != nil {
		return fmt.Errorf("failed to clear round_latest cache: %w", err)
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO rankings_cache_round_latest (room_id, user_id, name, score, round_id, finished_at)
		SELECT room_id, user_id, name, score, round_id, finished_at
		FROM (
			SELECT r.room_id, u.user_id, u.name, COALESCE(r.score, 0) AS score, r.round_id, r.finished_at,
			       ROW_NUMBER() OVER (PARTITION BY r.room_id ORDER BY r.finished_at DESC, r.id DESC) AS rn
			FROM users_rounds r
			JOIN users u ON u.id = r.user_internal_id
			WHERE r.finished_at IS NOT NULL
			  AND r.finished_at > now() - make_interval(secs => $1)
		) latest
		WHERE rn = 1
	`, window.Seconds())
	if err != nil {
		return fmt.Errorf("failed to refresh round_latest cache: %w", err)
	}

	return nil
}

// StampUpdated records the refresh time for one leaderboard kind.
func (s *LeaderboardStore) StampUpdated(ctx context.Context, kind string) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO rankings_cache_updated (kind, updated_at)
		VALUES ($1, now())
		ON CONFLICT (kind) DO UPDATE SET updated_at = now()
	`, kind)
	if err != nil {
		return fmt.Errorf("failed to stamp cache freshness: %w", err)
	}
	return nil
}

// ListUserKind reads the today_total or round_max cache, best first.
func (s *LeaderboardStore) ListUserKind(ctx context.Context, table string) ([]models.LeaderboardEntry, error) {
	rows, err := s.db.Query(ctx, `
		SELECT name, user_id, room_id, score
		FROM `+table+`
		ORDER BY score DESC, registered_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", table, err)
	}
	defer rows.Close()

	var entries []models.LeaderboardEntry
	for rows.Next() {
		var e models.LeaderboardEntry
		if err := rows.Scan(&e.Name, &e.UserID, &e.RoomID, &e.Score); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}

// ListRound reads the per-round ranking cache, best first.
func (s *LeaderboardStore) ListRound(ctx context.Context) ([]models.LeaderboardEntry, error) {
	rows, err := s.db.Query(ctx, `
		SELECT name, user_id, room_id, score, round_id, finished_at
		FROM rankings_cache_round
		ORDER BY score DESC, round_internal_id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to read rankings_cache_round: %w", err)
	}
	defer rows.Close()

	var entries []models.LeaderboardEntry
	for rows.Next() {
		var e models.LeaderboardEntry
		if err := rows.Scan(&e.Name, &e.UserID, &e.RoomID, &e.Score, &e.RoundID, &e.FinishedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}

// ListRoundLatest reads the per-room latest-round cache, newest first.
func (s *LeaderboardStore) ListRoundLatest(ctx context.Context) ([]models.LeaderboardEntry, error) {
	rows, err := s.db.Query(ctx, `
		SELECT name, user_id, room_id, score, round_id, finished_at
		FROM rankings_cache_round_latest
		ORDER BY finished_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to read rankings_cache_round_latest: %w", err)
	}
	defer rows.Close()

	var entries []models.LeaderboardEntry
	for rows.Next() {
		var e models.LeaderboardEntry
		if err := rows.Scan(&e.Name, &e.UserID, &e.RoomID, &e.Score, &e.RoundID, &e.FinishedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}

// Freshness returns every kind's last-refreshed timestamp.
func (s *LeaderboardStore) Freshness(ctx context.Context) ([]models.LeaderboardFreshness, error) {
	rows, err := s.db.Query(ctx, `SELECT kind, updated_at FROM rankings_cache_updated`)
	if err != nil {
		return nil, fmt.Errorf("failed to read cache freshness: %w", err)
	}
	defer rows.Close()

	var all []models.LeaderboardFreshness
	for rows.Next() {
		var f models.LeaderboardFreshness
		if err := rows.Scan(&f.Kind, &f.UpdatedAt); err != nil {
			return nil, err
		}
		all = append(all, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return all, nil
}
