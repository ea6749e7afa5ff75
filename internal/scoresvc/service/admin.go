package service

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"github.com/quizroom/quiz-services/internal/scoresvc/db"
	"github.com/quizroom/quiz-services/internal/scoresvc/store"
)

const maxReportedErrors = 10

// RecomputeReport summarizes a bulk recompute run.
type RecomputeReport struct {
	Processed  int      `json:"processed"`
	Successful int      `json:"successful"`
	Failed     int      `json:"failed"`
	Errors     []string `json:"errors"`
}

// AdminService hosts maintenance operations. Unlike the request path,
// the bulk recompute isolates per-user failures so one broken user does
// not abort the batch.
type AdminService struct {
	pool *pgxpool.Pool
	orch *Orchestrator
}

func NewAdminService(pool *pgxpool.Pool, orch *Orchestrator) *AdminService {
	return &AdminService{pool: pool, orch: orch}
}

// RecomputeAll re-derives every user's round scores, aggregates and the
// leaderboards from scratch. Each user gets their own transaction.
func (s *AdminService) RecomputeAll(ctx context.Context) (*RecomputeReport, error) {
	ids, err := store.NewUserStore(s.pool).ListIDs(ctx)
	if err != nil {
		return nil, err
	}

	report := &RecomputeReport{Errors: []string{}}
	for _, id := range ids {
		report.Processed++

		err := db.RunInTx(ctx, s.pool, func(ctx context.Context, q db.DBTX) error {
			roundIDs, err := store.NewRoundStore(q).ListRoundIDs(ctx, id)
			if err != nil {
				return err
			}
			_, err = s.orch.OnRoundsChanged(ctx, id, roundIDs)
			return err
		})
		if err != nil {
			report.Failed++
			if len(report.Errors) < maxReportedErrors {
				report.Errors = append(report.Errors, fmt.Sprintf("user %d: %v", id, err))
			}
			log.Errorf("bulk recompute failed for user %d: %v", id, err)
			continue
		}

		report.Successful++
	}

	if report.Successful > 0 {
		s.orch.NotifyLeaderboardUpdated()
	}

	log.Infof("bulk recompute done: %d processed, %d ok, %d failed",
		report.Processed, report.Successful, report.Failed)
	return report, nil
}
