package main

import (
	"context"
	"os"
	"time"

	log "github.com/sirupsen/logrus"

	appconfig "github.com/quizroom/quiz-services/configs"
	natscli "github.com/quizroom/quiz-services/internal/nats"
	"github.com/quizroom/quiz-services/internal/scoresvc/broker"
	"github.com/quizroom/quiz-services/internal/scoresvc/config"
	"github.com/quizroom/quiz-services/internal/scoresvc/db"
	"github.com/quizroom/quiz-services/internal/scoresvc/service"
)

// sweepsvc periodically rebuilds the ranking caches, independent of the
// request path. It catches up after skipped or failed inline refreshes;
// the time-windowed round_latest cache in particular goes stale on its
// own when no one is playing.

const SERVICE_NAME = "sweep"

var instanceId string

func init() {
	instanceId = appconfig.CreateUniqueInstance(SERVICE_NAME)
	appconfig.Logging(SERVICE_NAME + "_service_" + instanceId)
	appconfig.LoadEnv(SERVICE_NAME)
}

func main() {
	// pg connection
	dbpool, err := db.Connect()
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer db.ClosePool()
	log.Printf("pg connection established successfully")

	// Connect to NATS
	n, err := natscli.Connect()
	if err != nil {
		log.Errorf("Error: unable to connect to NATS server %v", err)
		os.Exit(1)
	}
	defer n.Conn.Close()
	log.Printf("NATS connection established successfully %s", n.Url)

	scoringCfg := config.Load()
	leaderboards := service.NewLeaderboardService(dbpool, scoringCfg)
	b := broker.NewBroker(n.Conn)

	interval := 60 * time.Second
	if raw := os.Getenv("SWEEP_INTERVAL"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			log.Fatalf("Invalid SWEEP_INTERVAL value: %v", err)
		}
		interval = parsed
	}

	ctx := context.Background()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Infof("sweep loop started, interval %s", interval)

	for range ticker.C {
		if err := leaderboards.RefreshStandalone(ctx, service.AllKinds); err != nil {
			log.Errorf("leaderboard sweep failed: %v", err)
			continue
		}

		kinds := make([]string, len(service.AllKinds))
		for i, k := range service.AllKinds {
			kinds[i] = string(k)
		}
		b.PublishLeaderboardUpdated(kinds, time.Now())
	}
}
