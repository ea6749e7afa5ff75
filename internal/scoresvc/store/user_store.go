package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/quizroom/quiz-services/internal/scoresvc/db"
	"github.com/quizroom/quiz-services/internal/scoresvc/models"
)

type UserStore struct {
	db db.DBTX
}

func NewUserStore(q db.DBTX) *UserStore {
	return &UserStore{db: q}
}

// GetByIdentity looks a user up by its public (room_id, user_id) pair.
// Returns nil, nil when no such user exists.
func (s *UserStore) GetByIdentity(ctx context.Context, roomID, userID int) (*models.User, error) {
	query := `
		SELECT id, room_id, user_id, name, score_total, score_round_max, score_today_total, created_at, updated_at
		FROM users
		WHERE room_id = $1 AND user_id = $2
	`

	u := &models.User{}
	err := s.db.QueryRow(ctx, query, roomID, userID).Scan(
		&u.ID,
		&u.RoomID,
		&u.UserID,
		&u.Name,
		&u.ScoreTotal,
		&u.ScoreRoundMax,
		&u.ScoreTodayTotal,
		&u.CreatedAt,
		&u.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user by identity: %w", err)
	}

	return u, nil
}

// GetByInternalID returns nil, nil when the surrogate id is unknown.
func (s *UserStore) GetByInternalID(ctx context.Context, id int64) (*models.User, error) {
	query := `
		SELECT id, room_id, user_id, name, score_total, score_round_max, score_today_total, created_at, updated_at
		FROM users
		WHERE id = $1
	`

	u := &models.User{}
	err := s.db.QueryRow(ctx, query, id).Scan(
		&u.ID,
		&u.RoomID,
		&u.UserID,
		&u.Name,
		&u.ScoreTotal,
		&u.ScoreRoundMax,
		&u.ScoreTodayTotal,
		&u.CreatedAt,
		&u.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}

	return u, nil
}

func (s *UserStore) Create(ctx context.Context, roomID, userID int, name string) (*models.User, error) {
	query := `
		INSERT INTO users (room_id, user_id, name)
		VALUES ($1, $2, $3)
		RETURNING id, room_id, user_id, name, score_total, score_round_max, score_today_total, created_at, updated_at
	`

	u := &models.User{}
	err := s.db.QueryRow(ctx, query, roomID, userID, name).Scan(
		&u.ID,
		&u.RoomID,
		&u.UserID,
		&u.Name,
		&u.ScoreTotal,
		&u.ScoreRoundMax,
		&u.ScoreTodayTotal,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("could not create user: %w", err)
	}

	return u, nil
}

func (s *UserStore) UpdateName(ctx context.Context, id int64, name string) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE users SET name = $2, updated_at = now() WHERE id = $1
	`, id, name)
	if err != nil {
		return fmt.Errorf("failed to update user name: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// UpdateAggregates writes the three cached score fields in one statement.
func (s *UserStore) UpdateAggregates(ctx context.Context, id int64, total, roundMax, todayTotal *int) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE users
		SET score_total = $2, score_round_max = $3, score_today_total = $4, updated_at = now()
		WHERE id = $1
	`, id, total, roundMax, todayTotal)
	if err != nil {
		return fmt.Errorf("failed to update user aggregates: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// ListIDs returns every user's surrogate id, oldest registration first.
func (s *UserStore) ListIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.db.Query(ctx, `SELECT id FROM users ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list user ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
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
