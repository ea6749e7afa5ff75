package service

import (
	"context"
	"time"

	"github.com/quizroom/quiz-services/internal/scoresvc/apperr"
	"github.com/quizroom/quiz-services/internal/scoresvc/config"
	"github.com/quizroom/quiz-services/internal/scoresvc/db"
	"github.com/quizroom/quiz-services/internal/scoresvc/models"
	"github.com/quizroom/quiz-services/internal/scoresvc/scoring"
	"github.com/quizroom/quiz-services/internal/scoresvc/store"
)

// AggregateService keeps the per-user cached score fields consistent
// with the rounds they are derived from. It always runs inside the
// caller's transaction so a reader never sees a round score that
// disagrees with the user aggregates.
type AggregateService struct {
	scorer scoring.Scorer
}

func NewAggregateService(cfg config.Scoring) *AggregateService {
	return &AggregateService{
		scorer: scoring.Scorer{
			CorrectPoints:    cfg.CorrectPoints,
			IncorrectPenalty: cfg.IncorrectPenalty,
		},
	}
}

// Recompute rescores every affected round and refreshes the user's
// aggregates. Open rounds never keep a stored score. Writes are skipped
// when nothing actually changed; the returned bool says whether any
// write happened.
func (s *AggregateService) Recompute(ctx context.Context, q db.DBTX, userInternalID int64, affected map[int]bool) (bool, error) {
	users := store.NewUserStore(q)
	rounds := store.NewRoundStore(q)
	answers := store.NewAnswerStore(q)

	all, err := rounds.ListByUser(ctx, userInternalID)
	if err != nil {
		return false, err
	}

	changed := false
	for _, r := range all {
		if !affected[r.RoundID] {
			continue
		}

		if r.Finished() {
			seq, err := answers.ListByRound(ctx, r.ID)
			if err != nil {
				return false, err
			}
			score := s.scorer.Score(0, OutcomeSequence(seq))
			if r.Score == nil || *r.Score != score {
				if err := rounds.UpdateScore(ctx, r.ID, &score); err != nil {
					return false, err
				}
				r.Score = &score
				changed = true
			}
		} else if r.Score != nil {
			// reopened round: its stored score is stale, clear it
			if err := rounds.UpdateScore(ctx, r.ID, nil); err != nil {
				return false, err
			}
			r.Score = nil
			changed = true
		}
	}

	u, err := users.GetByInternalID(ctx, userInternalID)
	if err != nil {
		return false, err
	}
	if u == nil {
		// the triggering mutation saw this user a moment ago
		return false, apperr.New(apperr.Fatal, "user %d vanished during aggregate recompute", userInternalID)
	}

	total, roundMax, todayTotal := aggregateRounds(all, time.Now())
	if !equalInt(u.ScoreTotal, total) || !equalInt(u.ScoreRoundMax, roundMax) || !equalInt(u.ScoreTodayTotal, todayTotal) {
		if err := users.UpdateAggregates(ctx, u.ID, total, roundMax, todayTotal); err != nil {
			return false, err
		}
		changed = true
	}

	return changed, nil
}

// LiveScore computes the ephemeral score of a round's current answer
// sequence without persisting anything.
func (s *AggregateService) LiveScore(seq []*models.Answer) int {
	return s.scorer.Score(0, OutcomeSequence(seq))
}

// OutcomeSequence projects answers onto the scorer's tri-state input,
// preserving answer_id order.
func OutcomeSequence(seq []*models.Answer) []*bool {
	outcomes := make([]*bool, len(seq))
	for i, a := range seq {
		outcomes[i] = a.IsCorrect
	}
	return outcomes
}

// aggregateRounds derives the three cached fields from a user's rounds.
// Only finished rounds with a stored score contribute; with none of
// those, all aggregates stay null. The "today" filter uses the server's
// local calendar day.
func aggregateRounds(rounds []*models.Round, now time.Time) (total, roundMax, todayTotal *int) {
	year, month, day := now.Date()

	for _, r := range rounds {
		if !r.Finished() || r.Score == nil {
			continue
		}
		score := *r.Score

		if total == nil {
			total = new(int)
		}
		*total += score

		if roundMax == nil || score > *roundMax {
			v := score
			roundMax = &v
		}

		fy, fm, fd := r.FinishedAt.In(now.Location()).Date()
		if fy == year && fm == month && fd == day {
			if todayTotal == nil {
				todayTotal = new(int)
			}
			*todayTotal += score
		}
	}

	return total, roundMax, todayTotal
}

func equalInt(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
