package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/quizroom/quiz-services/internal/scoresvc/apperr"
	"github.com/quizroom/quiz-services/internal/scoresvc/db"
)

const allocAttempts = 3

// allocateSeq assigns the next value of a per-parent sequence (round ids
// per user, answer ids per round) optimistically: read max+1, insert, and
// retry on a unique-constraint collision with a concurrent request. The
// read-then-write is not serialized by a row lock, so the retry loop is
// what resolves races. Exhausting the attempts is treated as fatal.
func allocateSeq(ctx context.Context, q db.DBTX, next func(ctx context.Context) (int, error), insert func(ctx context.Context, q db.DBTX, seq int) error) (int, error) {
	var lastErr error
	for attempt := 0; attempt < allocAttempts; attempt++ {
		seq, err := next(ctx)
		if err != nil {
			return 0, err
		}

		err = guardedInsert(ctx, q, seq, insert)
		if err == nil {
			return seq, nil
		}
		if !IsUniqueViolation(err) {
			return 0, err
		}
		lastErr = err
	}

	return 0, apperr.Wrap(apperr.Fatal, lastErr, "sequential id allocation kept colliding")
}

// guardedInsert shields the enclosing transaction from a failed insert.
// A unique violation aborts an open postgres transaction until a
// rollback, so inside one the insert runs under a savepoint that is
// rolled back on failure, keeping the transaction usable for the next
// attempt. Against the bare pool every statement stands alone and no
// savepoint is needed.
func guardedInsert(ctx context.Context, q db.DBTX, seq int, insert func(ctx context.Context, q db.DBTX, seq int) error) error {
	tx, ok := q.(pgx.Tx)
	if !ok {
		return insert(ctx, q, seq)
	}

	sp, err := tx.Begin(ctx) // SAVEPOINT
	if err != nil {
		return err
	}
	if err := insert(ctx, sp, seq); err != nil {
		sp.Rollback(ctx)
		return err
	}
	return sp.Commit(ctx)
}

// IsUniqueViolation reports whether err is a postgres unique-constraint
// violation (SQLSTATE 23505).
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
