package service

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"github.com/quizroom/quiz-services/internal/scoresvc/db"
	"github.com/quizroom/quiz-services/internal/scoresvc/models"
	"github.com/quizroom/quiz-services/internal/scoresvc/store"
)

const DefaultName = "guest"

// UserService handles registration and display-name edits. Aggregates
// on the user row belong to the AggregateService and are never written
// here.
type UserService struct {
	pool *pgxpool.Pool
}

func NewUserService(pool *pgxpool.Pool) *UserService {
	return &UserService{pool: pool}
}

// Register creates the user for (roomID, userID) or returns the
// existing one. An empty name falls back to the default. A concurrent
// registration racing the insert is resolved by re-reading.
func (s *UserService) Register(ctx context.Context, roomID, userID int, name string) (*models.User, error) {
	if name == "" {
		name = DefaultName
	}

	// single-statement steps, deliberately not wrapped in a transaction:
	// the unique constraint arbitrates concurrent registrations
	users := store.NewUserStore(s.pool)

	existing, err := users.GetByIdentity(ctx, roomID, userID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	created, err := users.Create(ctx, roomID, userID, name)
	if err != nil {
		if store.IsUniqueViolation(err) {
			// lost the race to a concurrent registration
			log.Infof("user %d in room %d registered concurrently, re-reading", userID, roomID)
			return users.GetByIdentity(ctx, roomID, userID)
		}
		return nil, err
	}

	return created, nil
}

// Rename updates the display name.
func (s *UserService) Rename(ctx context.Context, roomID, userID int, name string) (*models.User, error) {
	var result *models.User
	err := db.RunInTx(ctx, s.pool, func(ctx context.Context, q db.DBTX) error {
		u, err := resolveUser(ctx, q, roomID, userID)
		if err != nil {
			return err
		}

		if err := store.NewUserStore(q).UpdateName(ctx, u.ID, name); err != nil {
			return err
		}

		u.Name = name
		result = u
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}
