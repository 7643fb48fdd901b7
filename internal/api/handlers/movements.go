package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/sharpline/sharpline-go/internal/database"
	"github.com/sharpline/sharpline-go/internal/middleware"
	"github.com/sharpline/sharpline-go/internal/models"
	"github.com/sharpline/sharpline-go/internal/services"
)

const (
	// Alert lists change on every pipeline cycle and carry the read
	// flag, so they get the short TTL.
	movementsCacheTTL = 5 * time.Second
	movementsLimitMax = 500
)

// MovementStore is the alert surface the movement endpoints use.
type MovementStore interface {
	List(ctx context.Context, req models.AlertListRequest) ([]models.LineMovementAlert, error)
	MarkRead(ctx context.Context, id uuid.UUID) error
}

var _ MovementStore = (*database.AlertRepository)(nil)

// MovementHandler serves line movement alerts.
type MovementHandler struct {
	alerts         MovementStore
	redis          *database.RedisClient
	cacheAnalytics *services.CacheAnalyticsService
	logger         *logrus.Logger
}

// NewMovementHandler creates a movement alert handler.
func NewMovementHandler(alerts MovementStore, redis *database.RedisClient, cacheAnalytics *services.CacheAnalyticsService, logger *logrus.Logger) *MovementHandler {
	return &MovementHandler{
		alerts:         alerts,
		redis:          redis,
		cacheAnalytics: cacheAnalytics,
		logger:         logger,
	}
}

// MovementListResponse is a filtered page of movement alerts.
type MovementListResponse struct {
	Data      []models.LineMovementAlert `json:"data"`
	Total     int                        `json:"total"`
	Timestamp time.Time                  `json:"timestamp"`
	Cached    bool                       `json:"cached,omitempty"`
}

// CacheMovements stores an alert list in Redis.
func (h *MovementHandler) CacheMovements(ctx context.Context, cacheKey string, list *MovementListResponse) {
	if h.redis == nil {
		return
	}
	jsonData, err := json.Marshal(list)
	if err != nil {
		h.logger.WithError(err).Warn("Failed to marshal movement list for cache")
		return
	}
	if err := h.redis.Set(ctx, cacheKey, string(jsonData), movementsCacheTTL); err != nil {
		h.logger.WithError(err).Warn("Failed to cache movement list")
	}
}

// GetCachedMovements retrieves a cached alert list, recording the hit
// or miss against the movements category.
func (h *MovementHandler) GetCachedMovements(ctx context.Context, cacheKey string) (*MovementListResponse, bool) {
	if h.redis == nil {
		if h.cacheAnalytics != nil {
			h.cacheAnalytics.RecordMiss(services.CacheCategoryMovements)
		}
		return nil, false
	}

	cached, err := h.redis.Get(ctx, cacheKey)
	if err != nil {
		if h.cacheAnalytics != nil {
			h.cacheAnalytics.RecordMiss(services.CacheCategoryMovements)
		}
		return nil, false
	}

	var list MovementListResponse
	if err := json.Unmarshal([]byte(cached), &list); err != nil {
		h.logger.WithError(err).Warn("Failed to unmarshal cached movement list")
		if h.cacheAnalytics != nil {
			h.cacheAnalytics.RecordMiss(services.CacheCategoryMovements)
		}
		return nil, false
	}

	list.Cached = true
	if h.cacheAnalytics != nil {
		h.cacheAnalytics.RecordHit(services.CacheCategoryMovements)
	}
	return &list, true
}

// ListMovements returns active alerts newest first, filtered by ?sport,
// ?severity, ?unread and ?limit.
func (h *MovementHandler) ListMovements(c *gin.Context) {
	var req models.AlertListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid movement query: " + err.Error()})
		return
	}
	if req.Severity != "" {
		switch models.Severity(req.Severity) {
		case models.SeverityLow, models.SeverityMedium, models.SeverityHigh, models.SeverityCritical:
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown severity: " + req.Severity})
			return
		}
	}
	if req.Limit < 1 || req.Limit > movementsLimitMax {
		req.Limit = movementsLimitMax
	}

	cacheKey := fmt.Sprintf("movements:%s:%s:%t:%d", req.Sport, req.Severity, req.Unread, req.Limit)
	if cached, found := h.GetCachedMovements(c.Request.Context(), cacheKey); found {
		c.JSON(http.StatusOK, cached)
		return
	}

	alerts, err := h.alerts.List(c.Request.Context(), req)
	if err != nil {
		middleware.RecordError(c, err, "failed to list movement alerts")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve movement alerts"})
		return
	}

	list := &MovementListResponse{
		Data:      alerts,
		Total:     len(alerts),
		Timestamp: time.Now(),
	}
	h.CacheMovements(c.Request.Context(), cacheKey, list)
	c.JSON(http.StatusOK, list)
}

// MarkMovementRead flags one alert as read, which also stops the
// notifier from sending it.
func (h *MovementHandler) MarkMovementRead(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid alert id"})
		return
	}

	if err := h.alerts.MarkRead(c.Request.Context(), id); err != nil {
		if errors.Is(err, database.ErrAlertNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Alert not found"})
			return
		}
		middleware.RecordError(c, err, "failed to mark alert read")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to mark alert read"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
