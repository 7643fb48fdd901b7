package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/sharpline/sharpline-go/internal/api"
	"github.com/sharpline/sharpline-go/internal/cache"
	"github.com/sharpline/sharpline-go/internal/config"
	"github.com/sharpline/sharpline-go/internal/database"
	"github.com/sharpline/sharpline-go/internal/logging"
	"github.com/sharpline/sharpline-go/internal/providers"
	"github.com/sharpline/sharpline-go/internal/services"
	"github.com/sharpline/sharpline-go/internal/telemetry"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Application failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize telemetry first so everything after it traces
	if err := telemetry.InitTelemetry(telemetry.TelemetryConfig{
		Enabled:     cfg.Telemetry.Enabled,
		Endpoint:    cfg.Telemetry.OTLPEndpoint,
		Environment: cfg.Environment,
		Release:     telemetry.ServiceVersion,
		SampleRate:  cfg.Telemetry.SampleRate,
	}); err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to shutdown telemetry: %v\n", err)
		}
	}()

	// Structured event logger plus a logrus logger for the services
	// that log through it. With telemetry on, events ship to the OTLP
	// endpoint alongside traces.
	events := logging.NewStandardLogger(cfg.LogLevel, cfg.Environment)
	if cfg.Telemetry.Enabled {
		events = logging.NewStandardOTLPLogger(logging.OTLPConfig{
			Enabled:        true,
			Endpoint:       cfg.Telemetry.OTLPEndpoint,
			ServiceName:    cfg.Telemetry.ServiceName,
			ServiceVersion: telemetry.ServiceVersion,
			Environment:    cfg.Environment,
			LogLevel:       cfg.LogLevel,
		})
	}

	logrusLogger := logrus.New()
	logrusLogger.SetFormatter(&logrus.JSONFormatter{})
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logrusLogger.SetLevel(level)
	}

	// Initialize database
	db, err := database.NewPostgresConnection(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if err := database.EnsureSchema(context.Background(), db.Pool); err != nil {
		return err
	}

	// Initialize Redis
	redis, err := database.NewRedisConnection(cfg.Redis)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	defer redis.Close()

	// Repositories share one traced pool so every query lands in a span
	pool := database.NewTracedDB(db.Pool)
	games := database.NewGameRepository(pool)
	snapshots := database.NewSnapshotRepository(pool)
	alerts := database.NewAlertRepository(pool)
	opportunities := database.NewOpportunityRepository(pool)
	predictions := database.NewPredictionRepository(pool)
	ratings := database.NewRatingRepository(pool)
	bets := database.NewBetRepository(pool)

	// Cache analytics with periodic stat reporting
	ctx := context.Background()
	cacheAnalytics := services.NewCacheAnalyticsService(redis.Client)
	cacheAnalytics.StartPeriodicReporting(ctx, 5*time.Minute)

	// Odds feed, team name normalization and the model inputs the
	// pipeline composes
	oddsClient := providers.NewTheOddsAPIClient(&cfg.Providers, events)
	teamCache := cache.NewRedisTeamCache(redis.Client)
	normalizer := services.NewNormalizer(teamCache, oddsClient.Name())

	// Seed team aliases from stored games so the first collection cycle
	// resolves names without misses
	warming := services.NewCacheWarmingService(games, teamCache, cfg.Providers.Sports)
	if err := warming.WarmCache(ctx); err != nil {
		logrusLogger.WithError(err).Warn("Cache warming failed")
	}
	ratingService := services.NewRatingService(ratings, cfg.Ensemble)
	calibrator := services.NewConfidenceCalibrator(predictions, cfg.Calibration)

	// Collection pipeline: poll odds, snapshot, detect movement, predict
	pipeline, err := services.NewPipelineService(
		games,
		snapshots,
		alerts,
		predictions,
		oddsClient,
		oddsClient,
		providers.NewStubBettingFeed(),
		normalizer,
		ratingService,
		calibrator,
		cfg,
		events,
	)
	if err != nil {
		return fmt.Errorf("failed to build pipeline service: %w", err)
	}
	if err := pipeline.Start(); err != nil {
		return fmt.Errorf("failed to start pipeline service: %w", err)
	}
	defer pipeline.Stop()

	// Alert push channel
	recovery := services.NewErrorRecoveryManager(logrusLogger)
	notifier := services.NewNotificationService(alerts, games, recovery, cfg.Telegram)
	if err := notifier.Start(); err != nil {
		return fmt.Errorf("failed to start notification service: %w", err)
	}
	defer notifier.Stop()

	// Cross-book opportunity scan
	calculator := services.NewOpportunityCalculator(cfg.Arbitrage, cfg.Middle)
	scanner := services.NewOpportunityScanService(games, snapshots, opportunities, calculator, notifier, cfg.Arbitrage, cfg.Providers.Sports)
	if err := scanner.Start(); err != nil {
		return fmt.Errorf("failed to start opportunity scan service: %w", err)
	}
	defer scanner.Stop()

	// Retention cleanup
	cleanup := services.NewCleanupService(snapshots, alerts, opportunities, games, cfg.Cleanup)
	if err := cleanup.Start(); err != nil {
		return fmt.Errorf("failed to start cleanup service: %w", err)
	}
	defer cleanup.Stop()

	// Request-scoped services
	advisor := services.NewStakeAdvisor(bets, cfg.Bankroll)
	exporter := services.NewExportService(snapshots, alerts)

	// Setup Gin router
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(cfg.Telemetry.ServiceName))

	// Setup routes
	api.SetupRoutes(router, db, redis, snapshots, alerts, opportunities, predictions, advisor, exporter, pipeline, cleanup, notifier, cacheAnalytics, cfg, logrusLogger)

	// Create HTTP server with security timeouts
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       15 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		events.LogStartup(cfg.Telemetry.ServiceName, telemetry.ServiceVersion, cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrusLogger.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	events.LogShutdown(cfg.Telemetry.ServiceName, "signal received")

	// Give outstanding requests a deadline for completion
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logrusLogger.Info("Server exited gracefully")
	return nil
}
