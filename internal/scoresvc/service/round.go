package service

import (
	"context"
	"sort"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quizroom/quiz-services/internal/scoresvc/apperr"
	"github.com/quizroom/quiz-services/internal/scoresvc/db"
	"github.com/quizroom/quiz-services/internal/scoresvc/models"
	"github.com/quizroom/quiz-services/internal/scoresvc/store"
)

// RoundService owns the round lifecycle: start, close/reopen, answer
// submission and administrative result patching. Every mutation runs in
// one transaction together with the recompute it triggers.
type RoundService struct {
	pool *pgxpool.Pool
	orch *Orchestrator
}

func NewRoundService(pool *pgxpool.Pool, orch *Orchestrator) *RoundService {
	return &RoundService{pool: pool, orch: orch}
}

// ResultPatch is one value of the administrative results patch: either
// a deletion or a new tri-state correctness for that answer id.
type ResultPatch struct {
	Delete    bool
	IsCorrect *bool
}

func resolveUser(ctx context.Context, q db.DBTX, roomID, userID int) (*models.User, error) {
	u, err := store.NewUserStore(q).GetByIdentity(ctx, roomID, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, apperr.New(apperr.NotFound, "user %d not registered in room %d", userID, roomID)
	}
	return u, nil
}

func resolveRound(ctx context.Context, q db.DBTX, u *models.User, roundID int) (*models.Round, error) {
	r, err := store.NewRoundStore(q).GetByUserAndRoundID(ctx, u.ID, roundID)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, apperr.New(apperr.NotFound, "round %d not found for user %d", roundID, u.UserID)
	}
	return r, nil
}

// StartRound force-closes any open round (rescoring it before this call
// returns), then inserts a new open round with the next round_id.
func (s *RoundService) StartRound(ctx context.Context, roomID, userID, playRoomID int) (int, error) {
	var (
		newRoundID int
		changed    bool
	)

	err := db.RunInTx(ctx, s.pool, func(ctx context.Context, q db.DBTX) error {
		u, err := resolveUser(ctx, q, roomID, userID)
		if err != nil {
			return err
		}

		rounds := store.NewRoundStore(q)

		open, err := rounds.GetOpenRound(ctx, u.ID)
		if err != nil {
			return err
		}
		if open != nil {
			if err := rounds.SetFinished(ctx, open.ID, true); err != nil {
				return err
			}
			changed, err = s.orch.OnRoundsChanged(ctx, u.ID, []int{open.RoundID})
			if err != nil {
				return err
			}
		}

		newRoundID, err = rounds.Create(ctx, u.ID, playRoomID)
		return err
	})
	if err != nil {
		return 0, err
	}

	if changed {
		s.orch.NotifyLeaderboardUpdated()
	}
	return newRoundID, nil
}

// SetFinished closes or reopens a round. Requesting the state the round
// is already in is a conflict, not a silent no-op. Either direction
// triggers a recompute: closing persists the final score, reopening
// clears the now-stale one.
func (s *RoundService) SetFinished(ctx context.Context, roomID, userID, roundID int, finished bool) error {
	var changed bool

	err := db.RunInTx(ctx, s.pool, func(ctx context.Context, q db.DBTX) error {
		u, err := resolveUser(ctx, q, roomID, userID)
		if err != nil {
			return err
		}
		r, err := resolveRound(ctx, q, u, roundID)
		if err != nil {
			return err
		}

		if r.Finished() == finished {
			if finished {
				return apperr.New(apperr.Conflict, "round %d is already closed", roundID)
			}
			return apperr.New(apperr.Conflict, "round %d is already open", roundID)
		}

		if err := store.NewRoundStore(q).SetFinished(ctx, r.ID, finished); err != nil {
			return err
		}

		changed, err = s.orch.OnRoundsChanged(ctx, u.ID, []int{roundID})
		return err
	})
	if err != nil {
		return err
	}

	if changed {
		s.orch.NotifyLeaderboardUpdated()
	}
	return nil
}

// SubmitAnswer appends an answer to an open round. Closed rounds reject
// submissions with a conflict.
func (s *RoundService) SubmitAnswer(ctx context.Context, roomID, userID, roundID int, isCorrect *bool) (int, error) {
	var (
		answerID int
		changed  bool
	)

	err := db.RunInTx(ctx, s.pool, func(ctx context.Context, q db.DBTX) error {
		u, err := resolveUser(ctx, q, roomID, userID)
		if err != nil {
			return err
		}
		r, err := resolveRound(ctx, q, u, roundID)
		if err != nil {
			return err
		}
		if r.Finished() {
			return apperr.New(apperr.Conflict, "round %d is already closed", roundID)
		}

		answerID, err = store.NewAnswerStore(q).Create(ctx, r.ID, isCorrect)
		if err != nil {
			return err
		}

		changed, err = s.orch.OnRoundsChanged(ctx, u.ID, []int{roundID})
		return err
	})
	if err != nil {
		return 0, err
	}

	if changed {
		s.orch.NotifyLeaderboardUpdated()
	}
	return answerID, nil
}

// LiveScore computes the round's current score from its answers without
// persisting anything. Works for open rounds; the stored score is
// untouched.
func (s *RoundService) LiveScore(ctx context.Context, roomID, userID, roundID int) (int, error) {
	u, err := resolveUser(ctx, s.pool, roomID, userID)
	if err != nil {
		return 0, err
	}
	r, err := resolveRound(ctx, s.pool, u, roundID)
	if err != nil {
		return 0, err
	}

	seq, err := store.NewAnswerStore(s.pool).ListByRound(ctx, r.ID)
	if err != nil {
		return 0, err
	}

	return s.orch.Aggregates().LiveScore(seq), nil
}

// PatchResults applies the administrative per-answer correction map:
// upsert or delete per answer id, no renumbering of siblings, then one
// recompute for the round.
func (s *RoundService) PatchResults(ctx context.Context, roomID, userID, roundID int, patch map[int]ResultPatch) error {
	var changed bool

	err := db.RunInTx(ctx, s.pool, func(ctx context.Context, q db.DBTX) error {
		u, err := resolveUser(ctx, q, roomID, userID)
		if err != nil {
			return err
		}
		r, err := resolveRound(ctx, q, u, roundID)
		if err != nil {
			return err
		}

		answers := store.NewAnswerStore(q)

		// deterministic apply order
		ids := make([]int, 0, len(patch))
		for id := range patch {
			ids = append(ids, id)
		}
		sort.Ints(ids)

		for _, id := range ids {
			p := patch[id]
			if p.Delete {
				err = answers.Delete(ctx, r.ID, id)
			} else {
				err = answers.Upsert(ctx, r.ID, id, p.IsCorrect)
			}
			if err != nil {
				return err
			}
		}

		changed, err = s.orch.OnRoundsChanged(ctx, u.ID, []int{roundID})
		return err
	})
	if err != nil {
		return err
	}

	if changed {
		s.orch.NotifyLeaderboardUpdated()
	}
	return nil
}
