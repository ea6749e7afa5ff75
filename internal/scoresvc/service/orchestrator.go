package service

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"github.com/quizroom/quiz-services/internal/scoresvc/config"
	"github.com/quizroom/quiz-services/internal/scoresvc/db"
)

// Notifier announces a committed leaderboard refresh to the outside
// world. Implemented by the NATS broker; may be nil when no messaging
// is wired (tests, one-off tools).
type Notifier interface {
	PublishLeaderboardUpdated(kinds []string, at time.Time)
}

// Orchestrator is the transaction boundary for scoring mutations: it
// ties round rescoring, user aggregates and leaderboard refresh into
// one atomic unit.
type Orchestrator struct {
	pool         *pgxpool.Pool
	aggregates   *AggregateService
	leaderboards *LeaderboardService
	notifier     Notifier
}

func NewOrchestrator(pool *pgxpool.Pool, cfg config.Scoring, notifier Notifier) *Orchestrator {
	return &Orchestrator{
		pool:         pool,
		aggregates:   NewAggregateService(cfg),
		leaderboards: NewLeaderboardService(pool, cfg),
		notifier:     notifier,
	}
}

func (o *Orchestrator) Aggregates() *AggregateService { return o.aggregates }

func (o *Orchestrator) Leaderboards() *LeaderboardService { return o.leaderboards }

// OnRoundsChanged recomputes everything derived from the given rounds.
// It joins the caller's transaction when there is one, otherwise it
// opens its own. When the recompute turns out to be a no-op the
// leaderboards are left alone. Returns whether anything changed.
func (o *Orchestrator) OnRoundsChanged(ctx context.Context, userInternalID int64, roundIDs []int) (bool, error) {
	affected := make(map[int]bool, len(roundIDs))
	for _, id := range roundIDs {
		affected[id] = true
	}

	changed := false
	err := db.RunInTx(ctx, o.pool, func(ctx context.Context, q db.DBTX) error {
		ch, err := o.aggregates.Recompute(ctx, q, userInternalID, affected)
		if err != nil {
			return err
		}
		changed = ch
		if !ch {
			return nil
		}

		// which kinds a change could reach is not worked out here; all
		// four are rebuilt whenever anything changed
		return o.leaderboards.Refresh(ctx, q, AllKinds)
	})
	if err != nil {
		return false, err
	}

	return changed, nil
}

// NotifyLeaderboardUpdated publishes the refresh notification. Callers
// invoke it only after their transaction committed.
func (o *Orchestrator) NotifyLeaderboardUpdated() {
	if o.notifier == nil {
		return
	}

	kinds := make([]string, len(AllKinds))
	for i, k := range AllKinds {
		kinds[i] = string(k)
	}
	o.notifier.PublishLeaderboardUpdated(kinds, time.Now())
	log.Debugf("published leaderboard update for kinds %v", kinds)
}
