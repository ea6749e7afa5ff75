package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/quizroom/quiz-services/internal/scoresvc/db"
	"github.com/quizroom/quiz-services/internal/scoresvc/models"
)

type RoundStore struct {
	db db.DBTX
}

func NewRoundStore(q db.DBTX) *RoundStore {
	return &RoundStore{db: q}
}

const roundColumns = `id, user_internal_id, round_id, room_id, started_at, finished_at, score`

func scanRound(row pgx.Row) (*models.Round, error) {
	r := &models.Round{}
	err := row.Scan(
		&r.ID,
		&r.UserInternalID,
		&r.RoundID,
		&r.RoomID,
		&r.StartedAt,
		&r.FinishedAt,
		&r.Score,
	)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// GetByUserAndRoundID returns nil, nil when the user has no such round.
func (s *RoundStore) GetByUserAndRoundID(ctx context.Context, userInternalID int64, roundID int) (*models.Round, error) {
	r, err := scanRound(s.db.QueryRow(ctx, `
		SELECT `+roundColumns+`
		FROM users_rounds
		WHERE user_internal_id = $1 AND round_id = $2
	`, userInternalID, roundID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get round: %w", err)
	}
	return r, nil
}

// GetOpenRound returns the user's open round, or nil, nil. At most one
// round per user is ever open.
func (s *RoundStore) GetOpenRound(ctx context.Context, userInternalID int64) (*models.Round, error) {
	r, err := scanRound(s.db.QueryRow(ctx, `
		SELECT `+roundColumns+`
		FROM users_rounds
		WHERE user_internal_id = $1 AND finished_at IS NULL
		LIMIT 1
	`, userInternalID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get open round: %w", err)
	}
	return r, nil
}

// ListByUser returns all of a user's rounds ordered by round_id.
func (s *RoundStore) ListByUser(ctx context.Context, userInternalID int64) ([]*models.Round, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+roundColumns+`
		FROM users_rounds
		WHERE user_internal_id = $1
		ORDER BY round_id ASC
	`, userInternalID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rounds: %w", err)
	}
	defer rows.Close()

	var rounds []*models.Round
	for rows.Next() {
		r := &models.Round{}
		err := rows.Scan(
			&r.ID,
			&r.UserInternalID,
			&r.RoundID,
			&r.RoomID,
			&r.StartedAt,
			&r.FinishedAt,
			&r.Score,
		)
		if err != nil {
			return nil, err
		}
		rounds = append(rounds, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return rounds, nil
}

// ListRoundIDs returns the user's round ids, used by the bulk recompute.
func (s *RoundStore) ListRoundIDs(ctx context.Context, userInternalID int64) ([]int, error) {
	rows, err := s.db.Query(ctx, `
		SELECT round_id FROM users_rounds WHERE user_internal_id = $1 ORDER BY round_id ASC
	`, userInternalID)
	if err != nil {
		return nil, fmt.Errorf("failed to list round ids: %w", err)
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return ids, nil
}

// Create inserts a new open round with the next sequential round_id.
// Concurrent starts for the same user collide on unique_user_round and
// are resolved by the allocator's bounded retry.
func (s *RoundStore) Create(ctx context.Context, userInternalID int64, roomID int) (int, error) {
	next := func(ctx context.Context) (int, error) {
		var n int
		err := s.db.QueryRow(ctx, `
			SELECT COALESCE(MAX(round_id), 0) + 1 FROM users_rounds WHERE user_internal_id = $1
		`, userInternalID).Scan(&n)
		if err != nil {
			return 0, fmt.Errorf("failed to get next round id: %w", err)
		}
		return n, nil
	}

	insert := func(ctx context.Context, q db.DBTX, seq int) error {
		_, err := q.Exec(ctx, `
			INSERT INTO users_rounds (user_internal_id, round_id, room_id)
			VALUES ($1, $2, $3)
		`, userInternalID, seq, roomID)
		return err
	}

	return allocateSeq(ctx, s.db, next, insert)
}

// SetFinished stamps or clears finished_at.
func (s *RoundStore) SetFinished(ctx context.Context, id int64, finished bool) error {
	var query string
	if finished {
		query = `UPDATE users_rounds SET finished_at = now() WHERE id = $1`
	} else {
		query = `UPDATE users_rounds SET finished_at = NULL WHERE id = $1`
	}

	tag, err := s.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to set round finished state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// UpdateScore persists a recomputed score. nil clears it (open round).
func (s *RoundStore) UpdateScore(ctx context.Context, id int64, score *int) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE users_rounds SET score = $2 WHERE id = $1
	`, id, score)
	if err != nil {
		return fmt.Errorf("failed to update round score: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
