package store

import (
	"context"
	"fmt"

	"github.com/quizroom/quiz-services/internal/scoresvc/db"
	"github.com/quizroom/quiz-services/internal/scoresvc/models"
)

type AnswerStore struct {
	db db.DBTX
}

func NewAnswerStore(q db.DBTX) *AnswerStore {
	return &AnswerStore{db: q}
}

// ListByRound returns a round's answers ordered by answer_id ascending.
// This ordering is the authoritative scoring sequence.
func (s *AnswerStore) ListByRound(ctx context.Context, roundInternalID int64) ([]*models.Answer, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, round_internal_id, answer_id, is_correct, answered_at
		FROM users_rounds_answers
		WHERE round_internal_id = $1
		ORDER BY answer_id ASC
	`, roundInternalID)
	if err != nil {
		return nil, fmt.Errorf("failed to list answers: %w", err)
	}
	defer rows.Close()

	var answers []*models.Answer
	for rows.Next() {
		a := &models.Answer{}
		err := rows.Scan(
			&a.ID,
			&a.RoundInternalID,
			&a.AnswerID,
			&a.IsCorrect,
			&a.AnsweredAt,
		)
		if err != nil {
			return nil, err
		}
		answers = append(answers, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return answers, nil
}

// Create appends an answer with the next sequential answer_id, retrying
// on collisions with concurrent submissions to the same round.
func (s *AnswerStore) Create(ctx context.Context, roundInternalID int64, isCorrect *bool) (int, error) {
	next := func(ctx context.Context) (int, error) {
		var n int
		err := s.db.QueryRow(ctx, `
			SELECT COALESCE(MAX(answer_id), 0) + 1 FROM users_rounds_answers WHERE round_internal_id = $1
		`, roundInternalID).Scan(&n)
		if err != nil {
			return 0, fmt.Errorf("failed to get next answer id: %w", err)
		}
		return n, nil
	}

	insert := func(ctx context.Context, q db.DBTX, seq int) error {
		_, err := q.Exec(ctx, `
			INSERT INTO users_rounds_answers (round_internal_id, answer_id, is_correct)
			VALUES ($1, $2, $3)
		`, roundInternalID, seq, isCorrect)
		return err
	}

	return allocateSeq(ctx, s.db, next, insert)
}

// Upsert sets is_correct for an existing answer id or inserts the row.
// Sibling answer ids are never renumbered; this is the administrative
// correction path.
func (s *AnswerStore) Upsert(ctx context.Context, roundInternalID int64, answerID int, isCorrect *bool) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO users_rounds_answers (round_internal_id, answer_id, is_correct)
		VALUES ($1, $2, $3)
		ON CONFLICT (round_internal_id, answer_id) DO UPDATE SET is_correct = EXCLUDED.is_correct
	`, roundInternalID, answerID, isCorrect)
	if err != nil {
		return fmt.Errorf("failed to upsert answer: %w", err)
	}
	return nil
}

// Delete removes an answer row. Deleting an absent row is a no-op.
func (s *AnswerStore) Delete(ctx context.Context, roundInternalID int64, answerID int) error {
	_, err := s.db.Exec(ctx, `
		DELETE FROM users_rounds_answers WHERE round_internal_id = $1 AND answer_id = $2
	`, roundInternalID, answerID)
	if err != nil {
		return fmt.Errorf("failed to delete answer: %w", err)
	}
	return nil
}
