package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/httprate"

	appconfig "github.com/quizroom/quiz-services/configs"
	nats "github.com/quizroom/quiz-services/internal/nats"
	"github.com/quizroom/quiz-services/internal/scoresvc/broker"
	"github.com/quizroom/quiz-services/internal/scoresvc/config"
	"github.com/quizroom/quiz-services/internal/scoresvc/db"
	"github.com/quizroom/quiz-services/internal/scoresvc/handlers"
	"github.com/quizroom/quiz-services/internal/scoresvc/service"
	log "github.com/sirupsen/logrus"
)

const SERVICE_NAME = "score"

var instanceId string

func init() {
	instanceId = "001"
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
	n, err := nats.Connect()
	if err != nil {
		log.Errorf("Error: unable to connect to NATS server %v", err)
		os.Exit(0)
	}

	defer n.Conn.Close()
	log.Printf("NATS connection established successfully %s", n.Url)

	scoringCfg := config.Load()
	log.Infof("scoring config: correct=%d incorrect=%d limit=%d latest-window=%s",
		scoringCfg.CorrectPoints, scoringCfg.IncorrectPenalty,
		scoringCfg.LeaderboardLimit, scoringCfg.LatestWindow)

	b := broker.NewBroker(n.Conn)

	orch := service.NewOrchestrator(dbpool, scoringCfg, b)
	userService := service.NewUserService(dbpool)
	roundService := service.NewRoundService(dbpool, orch)
	adminService := service.NewAdminService(dbpool, orch)

	// Setup router
	r := chi.NewRouter()
	c := appconfig.CORS()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(appconfig.CustomLoggerMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(c.Handler)

	// to protect the service api from any over requests
	rateLimitStr := os.Getenv("RATE_LIMIT")
	rateLimit, err := strconv.Atoi(rateLimitStr)
	if err != nil {
		log.Fatalf("Invalid RATE_LIMIT value: %v", err)
	}
	r.Use(httprate.LimitByIP(rateLimit, 1*time.Minute))

	// Init handlers and routes
	h := handlers.NewHandler(userService, roundService, orch.Leaderboards(), adminService)
	h.SetRoutes(r)

	// Create server with timeout settings
	server := &http.Server{
		Addr:         ":" + os.Getenv("SCORE_SERVICE_PORT"),
		Handler:      r,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe(): %v", err)
		}
	}()
	log.Infof("%s service running at port %s", SERVICE_NAME, server.Addr)

	// Wait for interrupt signal to gracefully shutdown the server
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("%s service shutdown Failed:%+v", SERVICE_NAME, err)
	}
	log.Infof("%s service gracefully stopped", SERVICE_NAME)
}
