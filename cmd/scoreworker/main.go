package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	natsadapter "github.com/asiergil/ctfgeo/internal/adapters/nats"
	"github.com/asiergil/ctfgeo/internal/adapters/postgres"
	"github.com/asiergil/ctfgeo/internal/core/domain"
	"github.com/asiergil/ctfgeo/internal/core/usecases"
	"github.com/asiergil/ctfgeo/internal/pkg/config"
	"github.com/asiergil/ctfgeo/internal/pkg/logging"
	"github.com/asiergil/ctfgeo/internal/pkg/metrics"
	"github.com/asiergil/ctfgeo/internal/workflows"
)

// The scoreworker consumes the durable solve stream and recomputes
// dynamic challenge values. With Temporal enabled each solve starts a
// ScoreDecayWorkflow; otherwise recalculation runs inline.
func main() {
	cfg, err := config.Load("ctfgeo-scoreworker")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logging.Setup(logLevel, "json")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	challengeRepo := postgres.NewChallengeRepo(db)
	attemptRepo := postgres.NewAttemptRepo(db)

	// Publisher for score_update broadcasts and first-blood alerts
	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats publisher: %v", err)
	}
	defer pub.Close()

	scoreSvc := usecases.NewScoreService(challengeRepo, attemptRepo, pub)

	// Temporal (optional)
	var temporalClient client.Client
	if cfg.Temporal.Enabled {
		temporalClient, err = client.Dial(client.Options{
			HostPort: cfg.Temporal.HostPort,
		})
		if err != nil {
			log.Fatalf("temporal client: %v", err)
		}
		defer temporalClient.Close()

		w := worker.New(temporalClient, cfg.Temporal.TaskQueue, worker.Options{})
		w.RegisterWorkflow(workflows.ScoreDecayWorkflow)
		w.RegisterActivity(&workflows.ScoringActivities{
			Scores: scoreSvc,
			Events: pub,
		})

		go func() {
			if err := w.Run(worker.InterruptCh()); err != nil {
				log.Fatalf("temporal worker: %v", err)
			}
		}()
		slog.Info("temporal worker started", "task_queue", cfg.Temporal.TaskQueue)
	}

	// Durable solve stream consumer
	sub, err := natsadapter.NewSubscriber(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats subscriber: %v", err)
	}
	defer sub.Close()

	handler := func(ctx context.Context, ev *domain.SolveEvent) error {
		if ev.Kind != domain.AttemptSolve {
			return nil
		}
		if ev.FirstBlood {
			metrics.FirstBloods.Inc()
		}

		if temporalClient != nil {
			_, err := temporalClient.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
				ID:        "score-decay-" + ev.ChallengeID + "-" + ev.At.Format("20060102150405"),
				TaskQueue: cfg.Temporal.TaskQueue,
			}, workflows.ScoreDecayWorkflow, workflows.ScoreDecayInput{
				ChallengeID:   ev.ChallengeID,
				ChallengeName: ev.ChallengeName,
				SolverUserID:  ev.UserID,
				FirstBlood:    ev.FirstBlood,
			})
			if err != nil {
				metrics.ScoreRecalcs.WithLabelValues("error").Inc()
				return err
			}
			metrics.ScoreRecalcs.WithLabelValues("scheduled").Inc()
			return nil
		}

		if _, err := scoreSvc.Recalculate(ctx, ev.ChallengeID); err != nil {
			metrics.ScoreRecalcs.WithLabelValues("error").Inc()
			return err
		}
		metrics.ScoreRecalcs.WithLabelValues("ok").Inc()
		return nil
	}

	if err := sub.SubscribeSolveEvents(ctx, handler); err != nil {
		log.Fatalf("subscribe solves: %v", err)
	}
	slog.Info("solve stream consumer started")

	// Metrics endpoint
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("metrics listening", "addr", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			slog.Error("metrics server", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig.String())
}
