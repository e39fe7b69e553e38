package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/asiergil/ctfgeo/internal/adapters/http"
	natsadapter "github.com/asiergil/ctfgeo/internal/adapters/nats"
	"github.com/asiergil/ctfgeo/internal/adapters/postgres"
	"github.com/asiergil/ctfgeo/internal/adapters/valkey"
	"github.com/asiergil/ctfgeo/internal/core/ports"
	"github.com/asiergil/ctfgeo/internal/core/usecases"
	"github.com/asiergil/ctfgeo/internal/pkg/config"
	"github.com/asiergil/ctfgeo/internal/pkg/logging"
	"github.com/asiergil/ctfgeo/internal/pkg/metrics"
	"github.com/asiergil/ctfgeo/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("ctfgeo-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Structured logging
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logging.Setup(logLevel, "json")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.OTLPAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Database
	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Export pool stats
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				metrics.UpdateDBPoolMetrics(db.Stat())
			case <-ctx.Done():
				return
			}
		}
	}()

	// Cache
	cache, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		slog.Warn("valkey unavailable", "error", err)
	} else {
		defer cache.Close()
	}

	// NATS
	nc, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable", "error", err)
	} else {
		defer nc.Close()
	}

	// Raw NATS connection for WebSocket relay
	natsConn, err := natsadapter.RawConn(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats ws conn unavailable", "error", err)
	}

	// Repos
	challengeRepo := postgres.NewChallengeRepo(db)
	attemptRepo := postgres.NewAttemptRepo(db)

	// Challenge kind registry
	registry := usecases.NewTypeRegistry()
	if err := registry.Register(usecases.NewGeoChallengeType(attemptRepo)); err != nil {
		log.Fatalf("register challenge kind: %v", err)
	}

	// A typed nil adapter must not end up inside a non-nil interface,
	// the services check the interface against nil.
	var cacheSvc ports.CacheService
	if cache != nil {
		cacheSvc = cache
	}
	var events ports.EventPublisher
	if nc != nil {
		events = nc
	}

	challengeSvc := usecases.NewChallengeService(challengeRepo, attemptRepo, cacheSvc)
	attemptSvc := usecases.NewAttemptService(challengeRepo, attemptRepo, registry, events, cacheSvc)
	scoreSvc := usecases.NewScoreService(challengeRepo, attemptRepo, events)

	deps := &http.Dependencies{
		Challenges: challengeSvc,
		Attempts:   attemptSvc,
		Scores:     scoreSvc,
		Registry:   registry,
		NATS:       natsConn,
		DB:         db,
		Cache:      cache,
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024, // 1 MB max request body
		AppName:      "ctfgeo API",
	})
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "http://localhost:3000, http://localhost:5173",
		AllowMethods:     "GET,POST,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-User-ID, X-Team-ID",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	// Give in-flight requests up to 10s to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}
