package store

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quizroom/quiz-services/internal/scoresvc/apperr"
	"github.com/quizroom/quiz-services/internal/scoresvc/db"
)

func uniqueViolation() error {
	return &pgconn.PgError{Code: "23505", ConstraintName: "unique_user_round"}
}

// stubDB is a pool-like handle: not a transaction, so a failed insert
// needs no savepoint shielding.
type stubDB struct{}

func (stubDB) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}
func (stubDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (stubDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row { return nil }

func TestAllocateSeqFirstAttempt(t *testing.T) {
	ctx := context.Background()

	next := func(ctx context.Context) (int, error) { return 4, nil }
	insert := func(ctx context.Context, q db.DBTX, seq int) error { return nil }

	seq, err := allocateSeq(ctx, stubDB{}, next, insert)
	require.NoError(t, err)
	assert.Equal(t, 4, seq)
}

func TestAllocateSeqRetriesOnCollision(t *testing.T) {
	ctx := context.Background()

	// a concurrent writer grabs ids 4 and 5 before us
	current := 3
	next := func(ctx context.Context) (int, error) {
		current++
		return current, nil
	}

	collisions := 2
	insert := func(ctx context.Context, q db.DBTX, seq int) error {
		if collisions > 0 {
			collisions--
			return uniqueViolation()
		}
		return nil
	}

	seq, err := allocateSeq(ctx, stubDB{}, next, insert)
	require.NoError(t, err)
	assert.Equal(t, 6, seq)
}

func TestAllocateSeqExhaustsRetries(t *testing.T) {
	ctx := context.Background()

	calls := 0
	next := func(ctx context.Context) (int, error) { calls++; return calls, nil }
	insert := func(ctx context.Context, q db.DBTX, seq int) error { return uniqueViolation() }

	_, err := allocateSeq(ctx, stubDB{}, next, insert)
	require.Error(t, err)
	assert.Equal(t, apperr.Fatal, apperr.KindOf(err))
	assert.Equal(t, allocAttempts, calls)
}

func TestAllocateSeqStopsOnOtherErrors(t *testing.T) {
	ctx := context.Background()

	boom := errors.New("connection reset")
	calls := 0
	next := func(ctx context.Context) (int, error) { return 1, nil }
	insert := func(ctx context.Context, q db.DBTX, seq int) error { calls++; return boom }

	_, err := allocateSeq(ctx, stubDB{}, next, insert)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls, "non-collision errors must not be retried")
}

// fakeTx mimics how postgres transactions fail: after one statement
// errors, every further statement on the transaction returns SQLSTATE
// 25P02 until the savepoint containing the failure is rolled back.
type fakeTx struct {
	parent *fakeTx

	aborted    bool
	taken      map[int]bool
	savepoints int
	released   int
	rolledBack int
}

func newFakeTx(taken ...int) *fakeTx {
	m := make(map[int]bool, len(taken))
	for _, v := range taken {
		m[v] = true
	}
	return &fakeTx{taken: m}
}

func (t *fakeTx) root() *fakeTx {
	if t.parent == nil {
		return t
	}
	return t.parent.root()
}

func (t *fakeTx) Begin(ctx context.Context) (pgx.Tx, error) {
	t.root().savepoints++
	return &fakeTx{parent: t}, nil
}

func (t *fakeTx) Commit(ctx context.Context) error {
	r := t.root()
	if r.aborted {
		return &pgconn.PgError{Code: "25P02"}
	}
	if t.parent != nil {
		r.released++
	}
	return nil
}

func (t *fakeTx) Rollback(ctx context.Context) error {
	if t.parent != nil {
		r := t.root()
		r.aborted = false
		r.rolledBack++
	}
	return nil
}

func (t *fakeTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	r := t.root()
	if r.aborted {
		return pgconn.CommandTag{}, &pgconn.PgError{Code: "25P02"}
	}
	if sql == "INSERT" {
		seq := arguments[0].(int)
		if r.taken[seq] {
			r.aborted = true
			return pgconn.CommandTag{}, &pgconn.PgError{Code: "23505", ConstraintName: "unique_user_round"}
		}
		r.taken[seq] = true
	}
	return pgconn.CommandTag{}, nil
}

func (t *fakeTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *fakeTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row { return nil }
func (t *fakeTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *fakeTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *fakeTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *fakeTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *fakeTx) Conn() *pgx.Conn { return nil }

// A collision inside an open transaction must not poison the retry:
// each insert attempt runs under its own savepoint, leaving the
// transaction usable for the next max+1 read.
func TestAllocateSeqRecoversInsideTransaction(t *testing.T) {
	ctx := context.Background()

	// ids 1 and 2 belong to concurrent writers whose rows our max+1
	// snapshot does not see
	tx := newFakeTx(1, 2)

	current := 0
	next := func(ctx context.Context) (int, error) {
		// runs on the outer transaction, exactly like the stores do
		if _, err := tx.Exec(ctx, "SELECT"); err != nil {
			return 0, err
		}
		current++
		return current, nil
	}
	insert := func(ctx context.Context, q db.DBTX, seq int) error {
		_, err := q.Exec(ctx, "INSERT", seq)
		return err
	}

	seq, err := allocateSeq(ctx, tx, next, insert)
	require.NoError(t, err)
	assert.Equal(t, 3, seq)

	assert.False(t, tx.aborted, "transaction must stay usable after the collisions")
	assert.Equal(t, 3, tx.savepoints)
	assert.Equal(t, 2, tx.rolledBack, "each collision rolls its savepoint back")
	assert.Equal(t, 1, tx.released)
}
