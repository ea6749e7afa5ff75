package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quizroom/quiz-services/internal/scoresvc/config"
	"github.com/quizroom/quiz-services/internal/scoresvc/store"
)

// These tests need a real database. Point POSTGRES_TEST_URL at a
// postgres the tests may truncate; they are skipped otherwise.

func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv("POSTGRES_TEST_URL")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_URL not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	schema, err := os.ReadFile(filepath.Join("..", "..", "..", "scripts", "schema.sql"))
	require.NoError(t, err)
	_, err = pool.Exec(ctx, string(schema))
	require.NoError(t, err)

	_, err = pool.Exec(ctx, `
		TRUNCATE users, users_rounds, users_rounds_answers,
			rankings_cache_today_total, rankings_cache_round_max,
			rankings_cache_round, rankings_cache_round_latest,
			rankings_cache_updated
		RESTART IDENTITY CASCADE
	`)
	require.NoError(t, err)

	return pool
}

func testScoringConfig() config.Scoring {
	return config.Scoring{
		CorrectPoints:    100,
		IncorrectPenalty: -500,
		LeaderboardLimit: 2,
		LatestWindow:     time.Minute,
	}
}

func boolPtr(v bool) *bool { return &v }

func TestStartRoundForceClosesOpenRound(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()

	orch := NewOrchestrator(pool, testScoringConfig(), nil)
	users := NewUserService(pool)
	rounds := NewRoundService(pool, orch)

	u, err := users.Register(ctx, 1, 10, "ada")
	require.NoError(t, err)

	first, err := rounds.StartRound(ctx, 1, 10, 7)
	require.NoError(t, err)
	assert.Equal(t, 1, first)

	_, err = rounds.SubmitAnswer(ctx, 1, 10, first, boolPtr(true))
	require.NoError(t, err)

	second, err := rounds.StartRound(ctx, 1, 10, 7)
	require.NoError(t, err)
	assert.Equal(t, 2, second)

	// the force-closed round got scored on the way out
	closed, err := store.NewRoundStore(pool).GetByUserAndRoundID(ctx, u.ID, first)
	require.NoError(t, err)
	require.NotNil(t, closed)
	require.True(t, closed.Finished())
	require.NotNil(t, closed.Score)
	assert.Equal(t, 100, *closed.Score)

	// only the new round is open
	open, err := store.NewRoundStore(pool).GetOpenRound(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, open)
	assert.Equal(t, second, open.RoundID)
}

func TestOnRoundsChangedSkipsNoOpRecompute(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()

	orch := NewOrchestrator(pool, testScoringConfig(), nil)
	users := NewUserService(pool)
	rounds := NewRoundService(pool, orch)

	u, err := users.Register(ctx, 1, 10, "")
	require.NoError(t, err)

	id, err := rounds.StartRound(ctx, 1, 10, 7)
	require.NoError(t, err)
	_, err = rounds.SubmitAnswer(ctx, 1, 10, id, boolPtr(false))
	require.NoError(t, err)
	require.NoError(t, rounds.SetFinished(ctx, 1, 10, id, true))

	// everything is already derived, so a second pass writes nothing
	changed, err := orch.OnRoundsChanged(ctx, u.ID, []int{id})
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestReopenClearsStoredScore(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()

	orch := NewOrchestrator(pool, testScoringConfig(), nil)
	users := NewUserService(pool)
	rounds := NewRoundService(pool, orch)

	u, err := users.Register(ctx, 1, 10, "ada")
	require.NoError(t, err)

	id, err := rounds.StartRound(ctx, 1, 10, 7)
	require.NoError(t, err)
	_, err = rounds.SubmitAnswer(ctx, 1, 10, id, boolPtr(true))
	require.NoError(t, err)
	require.NoError(t, rounds.SetFinished(ctx, 1, 10, id, true))

	require.NoError(t, rounds.SetFinished(ctx, 1, 10, id, false))

	reopened, err := store.NewRoundStore(pool).GetByUserAndRoundID(ctx, u.ID, id)
	require.NoError(t, err)
	require.NotNil(t, reopened)
	assert.False(t, reopened.Finished())
	assert.Nil(t, reopened.Score)

	// with no scored rounds left the aggregates fall back to null
	refreshed, err := store.NewUserStore(pool).GetByInternalID(ctx, u.ID)
	require.NoError(t, err)
	assert.Nil(t, refreshed.ScoreTotal)
	assert.Nil(t, refreshed.ScoreRoundMax)
	assert.Nil(t, refreshed.ScoreTodayTotal)

	boards, err := orch.Leaderboards().Read(ctx, []Kind{KindRound})
	require.NoError(t, err)
	assert.Empty(t, boards[KindRound])
}

func TestScoringFlowEndToEnd(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()

	orch := NewOrchestrator(pool, testScoringConfig(), nil)
	users := NewUserService(pool)
	rounds := NewRoundService(pool, orch)

	u, err := users.Register(ctx, 1, 10, "ada")
	require.NoError(t, err)

	id, err := rounds.StartRound(ctx, 1, 10, 7)
	require.NoError(t, err)

	// correct, correct, incorrect, pass, correct
	for _, outcome := range []*bool{boolPtr(true), boolPtr(true), boolPtr(false), nil, boolPtr(true)} {
		_, err = rounds.SubmitAnswer(ctx, 1, 10, id, outcome)
		require.NoError(t, err)
	}

	live, err := rounds.LiveScore(ctx, 1, 10, id)
	require.NoError(t, err)
	assert.Equal(t, 100+200-500+0+100, live)

	require.NoError(t, rounds.SetFinished(ctx, 1, 10, id, true))

	refreshed, err := store.NewUserStore(pool).GetByInternalID(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, refreshed.ScoreTotal)
	assert.Equal(t, -100, *refreshed.ScoreTotal)
	require.NotNil(t, refreshed.ScoreRoundMax)
	assert.Equal(t, -100, *refreshed.ScoreRoundMax)
	require.NotNil(t, refreshed.ScoreTodayTotal)
	assert.Equal(t, -100, *refreshed.ScoreTodayTotal)

	boards, err := orch.Leaderboards().Read(ctx, AllKinds)
	require.NoError(t, err)

	// negative totals never make the today board
	assert.Empty(t, boards[KindTodayTotal])
	require.Len(t, boards[KindRound], 1)
	assert.Equal(t, -100, boards[KindRound][0].Score)
	require.Len(t, boards[KindRoundLatest], 1)
	assert.Equal(t, 7, boards[KindRoundLatest][0].RoomID)

	freshness, err := orch.Leaderboards().Freshness(ctx)
	require.NoError(t, err)
	for _, kind := range AllKinds {
		assert.Contains(t, freshness, string(kind))
	}
}

func TestLeaderboardRefreshKeepsTopN(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()

	// LeaderboardLimit is 2, third place must fall out of the caches
	orch := NewOrchestrator(pool, testScoringConfig(), nil)
	users := NewUserService(pool)
	rounds := NewRoundService(pool, orch)

	players := []struct {
		userID   int
		corrects int
		want     int
	}{
		{21, 1, 100},
		{22, 2, 300},
		{23, 3, 600},
	}

	for _, p := range players {
		_, err := users.Register(ctx, 1, p.userID, "")
		require.NoError(t, err)

		id, err := rounds.StartRound(ctx, 1, p.userID, 7)
		require.NoError(t, err)
		for i := 0; i < p.corrects; i++ {
			_, err = rounds.SubmitAnswer(ctx, 1, p.userID, id, boolPtr(true))
			require.NoError(t, err)
		}
		require.NoError(t, rounds.SetFinished(ctx, 1, p.userID, id, true))
	}

	boards, err := orch.Leaderboards().Read(ctx, []Kind{KindTodayTotal, KindRound})
	require.NoError(t, err)

	require.Len(t, boards[KindTodayTotal], 2)
	assert.Equal(t, 600, boards[KindTodayTotal][0].Score)
	assert.Equal(t, 300, boards[KindTodayTotal][1].Score)

	require.Len(t, boards[KindRound], 2)
	assert.Equal(t, 600, boards[KindRound][0].Score)
	assert.Equal(t, 300, boards[KindRound][1].Score)
}
