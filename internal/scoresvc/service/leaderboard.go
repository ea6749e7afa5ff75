package service

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quizroom/quiz-services/internal/scoresvc/apperr"
	"github.com/quizroom/quiz-services/internal/scoresvc/config"
	"github.com/quizroom/quiz-services/internal/scoresvc/db"
	"github.com/quizroom/quiz-services/internal/scoresvc/models"
	"github.com/quizroom/quiz-services/internal/scoresvc/store"
)

// Kind names one of the four independently cached ranking views.
type Kind string

const (
	KindTodayTotal  Kind = "today_total"
	KindRound       Kind = "round"
	KindRoundMax    Kind = "round_max"
	KindRoundLatest Kind = "round_latest"
)

var AllKinds = []Kind{KindTodayTotal, KindRound, KindRoundMax, KindRoundLatest}

// ParseKinds parses the comma-separated type parameter of the
// leaderboard read endpoint. Unknown values are a validation error.
func ParseKinds(raw string) ([]Kind, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, apperr.New(apperr.Validation, "leaderboard type parameter is required")
	}

	seen := make(map[Kind]bool)
	var kinds []Kind
	for _, part := range strings.Split(raw, ",") {
		k := Kind(strings.TrimSpace(part))
		switch k {
		case KindTodayTotal, KindRound, KindRoundMax, KindRoundLatest:
		default:
			return nil, apperr.New(apperr.Validation, "unknown leaderboard type %q", part)
		}
		if !seen[k] {
			seen[k] = true
			kinds = append(kinds, k)
		}
	}

	return kinds, nil
}

type LeaderboardService struct {
	pool *pgxpool.Pool
	cfg  config.Scoring
}

func NewLeaderboardService(pool *pgxpool.Pool, cfg config.Scoring) *LeaderboardService {
	return &LeaderboardService{pool: pool, cfg: cfg}
}

// Refresh rebuilds the requested cache tables inside the caller's
// transaction and stamps each kind's freshness record. Any failure
// aborts the whole refresh; the rollback keeps partial state invisible.
func (s *LeaderboardService) Refresh(ctx context.Context, q db.DBTX, kinds []Kind) error {
	lb := store.NewLeaderboardStore(q)

	for _, kind := range kinds {
		var err error
		switch kind {
		case KindTodayTotal:
			err = lb.RefreshTodayTotal(ctx, s.cfg.LeaderboardLimit)
		case KindRound:
			err = lb.RefreshRound(ctx, s.cfg.LeaderboardLimit)
		case KindRoundMax:
			err = lb.RefreshRoundMax(ctx, s.cfg.LeaderboardLimit)
		case KindRoundLatest:
			err = lb.RefreshRoundLatest(ctx, s.cfg.LatestWindow)
		}
		if err != nil {
			return err
		}

		if err := lb.StampUpdated(ctx, string(kind)); err != nil {
			return err
		}
	}

	return nil
}

// RefreshStandalone is the administrative/cron entry point: the same
// refresh, in its own transaction, independent of any scoring write.
func (s *LeaderboardService) RefreshStandalone(ctx context.Context, kinds []Kind) error {
	return db.RunInTx(ctx, s.pool, func(ctx context.Context, q db.DBTX) error {
		return s.Refresh(ctx, q, kinds)
	})
}

// Read returns the cached entries for each requested kind, in rank order.
func (s *LeaderboardService) Read(ctx context.Context, kinds []Kind) (map[Kind][]models.LeaderboardEntry, error) {
	lb := store.NewLeaderboardStore(s.pool)

	result := make(map[Kind][]models.LeaderboardEntry, len(kinds))
	for _, kind := range kinds {
		var (
			entries []models.LeaderboardEntry
			err     error
		)
		switch kind {
		case KindTodayTotal:
			entries, err = lb.ListUserKind(ctx, "rankings_cache_today_total")
		case KindRoundMax:
			entries, err = lb.ListUserKind(ctx, "rankings_cache_round_max")
		case KindRound:
			entries, err = lb.ListRound(ctx)
		case KindRoundLatest:
			entries, err = lb.ListRoundLatest(ctx)
		}
		if err != nil {
			return nil, err
		}
		if entries == nil {
			entries = []models.LeaderboardEntry{}
		}
		result[kind] = entries
	}

	return result, nil
}

// Freshness returns each kind's last refresh time. Kinds never refreshed
// are absent from the map.
func (s *LeaderboardService) Freshness(ctx context.Context) (map[string]time.Time, error) {
	lb := store.NewLeaderboardStore(s.pool)

	all, err := lb.Freshness(ctx)
	if err != nil {
		return nil, err
	}

	result := make(map[string]time.Time, len(all))
	for _, f := range all {
		result[f.Kind] = f.UpdatedAt
	}

	return result, nil
}
