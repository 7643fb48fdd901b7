package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/sharpline/sharpline-go/internal/middleware"
	"github.com/sharpline/sharpline-go/internal/models"
	"github.com/sharpline/sharpline-go/internal/services"
)

// PipelineRunner is the pipeline surface the admin endpoints drive.
type PipelineRunner interface {
	RunCycle(ctx context.Context, sport models.Sport) (*services.BatchSummary, error)
	GetStatus() (bool, time.Time, []services.BatchSummary)
	ProviderStats() map[string]services.CircuitBreakerStats
}

// CleanupRunner is the retention surface the admin endpoints drive.
type CleanupRunner interface {
	RunCleanup(ctx context.Context) (int64, error)
	PurgeGames(ctx context.Context, cutoff time.Time) (int64, error)
	GetStatus() (bool, time.Time, int64)
}

// AlertNotifier flushes unnotified movement alerts to the notification
// channel.
type AlertNotifier interface {
	NotifyMovementAlerts(ctx context.Context) (int, error)
	GetStatus() (bool, time.Time)
}

// CacheAnalyticsInterface defines the interface for cache analytics
// operations.
type CacheAnalyticsInterface interface {
	GetAllStats() map[string]services.CacheStats
	GetMetrics(ctx context.Context) (*services.CacheMetrics, error)
	ResetStats()
}

var (
	_ PipelineRunner          = (*services.PipelineService)(nil)
	_ CleanupRunner           = (*services.CleanupService)(nil)
	_ AlertNotifier           = (*services.NotificationService)(nil)
	_ CacheAnalyticsInterface = (*services.CacheAnalyticsService)(nil)
)

// AdminHandler serves the operational endpoints: token minting, manual
// pipeline, cleanup and notification runs, and cache statistics.
type AdminHandler struct {
	auth           *middleware.AuthMiddleware
	admin          *middleware.AdminMiddleware
	pipeline       PipelineRunner
	cleanup        CleanupRunner
	notifier       AlertNotifier
	cacheAnalytics CacheAnalyticsInterface
	sports         []models.Sport
	logger         *logrus.Logger
}

// NewAdminHandler creates an admin handler over the background workers.
func NewAdminHandler(
	auth *middleware.AuthMiddleware,
	admin *middleware.AdminMiddleware,
	pipeline PipelineRunner,
	cleanup CleanupRunner,
	notifier AlertNotifier,
	cacheAnalytics CacheAnalyticsInterface,
	sports []models.Sport,
	logger *logrus.Logger,
) *AdminHandler {
	return &AdminHandler{
		auth:           auth,
		admin:          admin,
		pipeline:       pipeline,
		cleanup:        cleanup,
		notifier:       notifier,
		cacheAnalytics: cacheAnalytics,
		sports:         sports,
		logger:         logger,
	}
}

// TokenRequest carries the admin API key for token minting.
type TokenRequest struct {
	APIKey string `json:"api_key"`
}

// CreateToken exchanges the admin API key for a short-lived bearer
// token. The key may arrive in the JSON body or the X-API-Key header.
func (h *AdminHandler) CreateToken(c *gin.Context) {
	var req TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid token request"})
		return
	}
	key := req.APIKey
	if key == "" {
		key = c.GetHeader("X-API-Key")
	}

	if !h.admin.ValidateAdminKey(key) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid API key"})
		return
	}

	token, expiresAt, err := h.auth.GenerateToken()
	if err != nil {
		h.logger.WithError(err).Error("Failed to mint admin token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "token": token, "expires_at": expiresAt})
}

// RunPipeline triggers a collection cycle outside the schedule. With
// ?sport= only that sport runs; otherwise every configured sport does.
// A failed sport reports inside its own summary so one dead feed does
// not hide the others.
func (h *AdminHandler) RunPipeline(c *gin.Context) {
	sports := h.sports
	if s := c.Query("sport"); s != "" {
		requested := models.Sport(s)
		if !h.configured(requested) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown sport: " + s})
			return
		}
		sports = []models.Sport{requested}
	}

	summaries := make([]services.BatchSummary, 0, len(sports))
	for _, sport := range sports {
		summary, err := h.pipeline.RunCycle(c.Request.Context(), sport)
		if err != nil {
			middleware.RecordError(c, err, "pipeline cycle failed")
			h.logger.WithError(err).WithField("sport", sport).Error("Manual pipeline cycle failed")
			summaries = append(summaries, services.BatchSummary{Sport: sport, Errors: []string{err.Error()}})
			continue
		}
		summaries = append(summaries, *summary)
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": summaries})
}

func (h *AdminHandler) configured(sport models.Sport) bool {
	for _, s := range h.sports {
		if s == sport {
			return true
		}
	}
	return false
}

// GetPipelineStatus reports the background workers: pipeline run state
// with per-provider circuit breakers, the cleanup sweeper and the
// notifier.
func (h *AdminHandler) GetPipelineStatus(c *gin.Context) {
	pipelineRunning, lastRun, lastRuns := h.pipeline.GetStatus()
	cleanupRunning, lastCleanup, lastRemoved := h.cleanup.GetStatus()
	notifierRunning, lastNotified := h.notifier.GetStatus()

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"pipeline": gin.H{
				"running":   pipelineRunning,
				"last_run":  lastRun,
				"last_runs": lastRuns,
				"providers": h.pipeline.ProviderStats(),
			},
			"cleanup": gin.H{
				"running":      cleanupRunning,
				"last_run":     lastCleanup,
				"last_removed": lastRemoved,
			},
			"notifier": gin.H{
				"running":  notifierRunning,
				"last_run": lastNotified,
			},
		},
	})
}

// RunCleanup triggers a retention sweep. ?purge_games_days=N
// additionally removes games older than N days together with their
// cascaded results and predictions.
func (h *AdminHandler) RunCleanup(c *gin.Context) {
	purgeDays := 0
	if days := c.Query("purge_games_days"); days != "" {
		n, err := strconv.Atoi(days)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "purge_games_days must be a positive integer"})
			return
		}
		purgeDays = n
	}

	removed, err := h.cleanup.RunCleanup(c.Request.Context())
	if err != nil {
		middleware.RecordError(c, err, "cleanup run failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Cleanup run failed"})
		return
	}

	resp := gin.H{"success": true, "removed": removed}
	if purgeDays > 0 {
		purged, err := h.cleanup.PurgeGames(c.Request.Context(), time.Now().AddDate(0, 0, -purgeDays))
		if err != nil {
			middleware.RecordError(c, err, "game purge failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Game purge failed"})
			return
		}
		resp["games_purged"] = purged
	}

	c.JSON(http.StatusOK, resp)
}

// RunNotifications flushes unnotified movement alerts outside the
// polling schedule.
func (h *AdminHandler) RunNotifications(c *gin.Context) {
	notified, err := h.notifier.NotifyMovementAlerts(c.Request.Context())
	if err != nil {
		middleware.RecordError(c, err, "notification flush failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Notification flush failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "notified": notified})
}

// GetCacheStats returns hit and miss counters for all cache categories.
func (h *AdminHandler) GetCacheStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": h.cacheAnalytics.GetAllStats()})
}

// GetCacheMetrics returns cache statistics together with Redis server
// info and the key count.
func (h *AdminHandler) GetCacheMetrics(c *gin.Context) {
	metrics, err := h.cacheAnalytics.GetMetrics(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to collect cache metrics")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve cache metrics"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": metrics})
}

// ResetCacheStats zeroes the hit and miss counters.
func (h *AdminHandler) ResetCacheStats(c *gin.Context) {
	h.cacheAnalytics.ResetStats()
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Cache statistics reset"})
}
