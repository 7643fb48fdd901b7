package api

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/sharpline/sharpline-go/internal/api/handlers"
	"github.com/sharpline/sharpline-go/internal/config"
	"github.com/sharpline/sharpline-go/internal/database"
	"github.com/sharpline/sharpline-go/internal/middleware"
	"github.com/sharpline/sharpline-go/internal/models"
	"github.com/sharpline/sharpline-go/internal/services"
)

const apiVersion = "1.0.0"

// SetupRoutes wires the HTTP surface: health probes, the public odds,
// movement, opportunity and prediction reads, the stake advisor, CSV
// export and the token-gated admin group.
func SetupRoutes(
	router *gin.Engine,
	db handlers.DatabaseHealthChecker,
	redisClient *database.RedisClient,
	snapshots handlers.OddsStore,
	alerts handlers.MovementStore,
	opportunities handlers.OpportunityStore,
	predictions handlers.PredictionStore,
	advisor handlers.BetAdvisor,
	exportService *services.ExportService,
	pipeline handlers.PipelineRunner,
	cleanup handlers.CleanupRunner,
	notifier handlers.AlertNotifier,
	cacheAnalytics *services.CacheAnalyticsService,
	cfg *config.Config,
	logger *logrus.Logger,
) {
	authMiddleware := middleware.NewAuthMiddleware(cfg.Security)
	adminMiddleware := middleware.NewAdminMiddleware(cfg.Security, authMiddleware)

	sports := make([]models.Sport, 0, len(cfg.Providers.Sports))
	for _, s := range cfg.Providers.Sports {
		sports = append(sports, models.Sport(s))
	}

	oddsHandler := handlers.NewOddsHandler(snapshots, redisClient, cacheAnalytics, logger)
	movementHandler := handlers.NewMovementHandler(alerts, redisClient, cacheAnalytics, logger)
	opportunityHandler := handlers.NewOpportunityHandler(opportunities, redisClient, cacheAnalytics, logger)
	predictionHandler := handlers.NewPredictionHandler(predictions, redisClient, cacheAnalytics, logger)
	advisorHandler := handlers.NewAdvisorHandler(advisor)
	exportHandler := handlers.NewExportHandler(exportService)
	adminHandler := handlers.NewAdminHandler(authMiddleware, adminMiddleware, pipeline, cleanup, notifier, cacheAnalytics, sports, logger)
	healthHandler := handlers.NewHealthHandler(db, redisClient, apiVersion)

	// Health endpoints live outside /api/v1 so probes keep working
	// across API versions.
	router.GET("/health", healthHandler.HealthCheck)
	router.HEAD("/health", healthHandler.HealthCheck)
	router.GET("/ready", healthHandler.ReadinessCheck)
	router.GET("/live", healthHandler.LivenessCheck)

	v1 := router.Group("/api/v1")
	{
		odds := v1.Group("/odds")
		{
			odds.GET("/:gameID", oddsHandler.GetLatestOdds)
			odds.GET("/:gameID/history", oddsHandler.GetOddsHistory)
		}

		movements := v1.Group("/movements")
		{
			movements.GET("", movementHandler.ListMovements)
			movements.POST("/:id/read", movementHandler.MarkMovementRead)
		}

		v1.GET("/opportunities", opportunityHandler.ListOpportunities)
		v1.GET("/predictions/:gameID", predictionHandler.GetPrediction)

		advisorGroup := v1.Group("/advisor")
		{
			advisorGroup.GET("/kelly", advisorHandler.GetKellyStake)
			advisorGroup.GET("/ev", advisorHandler.GetExpectedValue)
			advisorGroup.POST("/bets", advisorHandler.RecordBet)
			advisorGroup.GET("/bets", advisorHandler.ListBets)
			advisorGroup.POST("/bets/:id/clv", advisorHandler.SettleBet)
			advisorGroup.GET("/clv", advisorHandler.GetCLVReport)
		}

		export := v1.Group("/export")
		{
			export.GET("/snapshots.csv", exportHandler.ExportSnapshots)
			export.GET("/alerts.csv", exportHandler.ExportAlerts)
		}

		admin := v1.Group("/admin")
		{
			// Token minting self-gates on the API key; everything else
			// requires the minted token or the key.
			admin.POST("/token", adminHandler.CreateToken)

			ops := admin.Group("")
			ops.Use(adminMiddleware.RequireAdminAuth())
			{
				ops.POST("/pipeline/run", adminHandler.RunPipeline)
				ops.GET("/pipeline/status", adminHandler.GetPipelineStatus)
				ops.POST("/cleanup/run", adminHandler.RunCleanup)
				ops.POST("/notifications/run", adminHandler.RunNotifications)

				cache := ops.Group("/cache")
				{
					cache.GET("/stats", adminHandler.GetCacheStats)
					cache.GET("/metrics", adminHandler.GetCacheMetrics)
					cache.POST("/reset", adminHandler.ResetCacheStats)
				}
			}
		}
	}
}
