package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/sharpline/sharpline-go/internal/database"
	"github.com/sharpline/sharpline-go/internal/middleware"
	"github.com/sharpline/sharpline-go/internal/models"
	"github.com/sharpline/sharpline-go/internal/services"
)

const predictionCacheTTL = 10 * time.Second

// PredictionStore is the persistence surface the prediction endpoint
// reads from. Get returns nil without error when the game has no
// prediction.
type PredictionStore interface {
	Get(ctx context.Context, gameID string) (*models.EnsemblePrediction, error)
}

var _ PredictionStore = (*database.PredictionRepository)(nil)

// PredictionHandler serves stored ensemble predictions.
type PredictionHandler struct {
	predictions    PredictionStore
	redis          *database.RedisClient
	cacheAnalytics *services.CacheAnalyticsService
	logger         *logrus.Logger
}

// NewPredictionHandler creates a prediction handler.
func NewPredictionHandler(predictions PredictionStore, redis *database.RedisClient, cacheAnalytics *services.CacheAnalyticsService, logger *logrus.Logger) *PredictionHandler {
	return &PredictionHandler{
		predictions:    predictions,
		redis:          redis,
		cacheAnalytics: cacheAnalytics,
		logger:         logger,
	}
}

// PredictionResponse wraps one game's ensemble prediction.
type PredictionResponse struct {
	Data      *models.EnsemblePrediction `json:"data"`
	Timestamp time.Time                  `json:"timestamp"`
	Cached    bool                       `json:"cached,omitempty"`
}

// CachePrediction stores a prediction response in Redis.
func (h *PredictionHandler) CachePrediction(ctx context.Context, cacheKey string, resp *PredictionResponse) {
	if h.redis == nil {
		return
	}
	jsonData, err := json.Marshal(resp)
	if err != nil {
		h.logger.WithError(err).Warn("Failed to marshal prediction for cache")
		return
	}
	if err := h.redis.Set(ctx, cacheKey, string(jsonData), predictionCacheTTL); err != nil {
		h.logger.WithError(err).Warn("Failed to cache prediction")
	}
}

// GetCachedPrediction retrieves a cached prediction response, recording
// the hit or miss against the predictions category.
func (h *PredictionHandler) GetCachedPrediction(ctx context.Context, cacheKey string) (*PredictionResponse, bool) {
	if h.redis == nil {
		if h.cacheAnalytics != nil {
			h.cacheAnalytics.RecordMiss(services.CacheCategoryPredictions)
		}
		return nil, false
	}

	cached, err := h.redis.Get(ctx, cacheKey)
	if err != nil {
		if h.cacheAnalytics != nil {
			h.cacheAnalytics.RecordMiss(services.CacheCategoryPredictions)
		}
		return nil, false
	}

	var resp PredictionResponse
	if err := json.Unmarshal([]byte(cached), &resp); err != nil {
		h.logger.WithError(err).Warn("Failed to unmarshal cached prediction")
		if h.cacheAnalytics != nil {
			h.cacheAnalytics.RecordMiss(services.CacheCategoryPredictions)
		}
		return nil, false
	}

	resp.Cached = true
	if h.cacheAnalytics != nil {
		h.cacheAnalytics.RecordHit(services.CacheCategoryPredictions)
	}
	return &resp, true
}

// GetPrediction returns the ensemble prediction for a game with its
// calibrated confidence, model breakdown and reasoning.
func (h *PredictionHandler) GetPrediction(c *gin.Context) {
	gameID := c.Param("gameID")
	cacheKey := "predictions:" + gameID

	if cached, found := h.GetCachedPrediction(c.Request.Context(), cacheKey); found {
		c.JSON(http.StatusOK, cached)
		return
	}

	prediction, err := h.predictions.Get(c.Request.Context(), gameID)
	if err != nil {
		middleware.RecordError(c, err, "failed to load prediction")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve prediction"})
		return
	}
	if prediction == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No prediction for game " + gameID})
		return
	}

	resp := &PredictionResponse{
		Data:      prediction,
		Timestamp: time.Now(),
	}
	h.CachePrediction(c.Request.Context(), cacheKey, resp)
	c.JSON(http.StatusOK, resp)
}
