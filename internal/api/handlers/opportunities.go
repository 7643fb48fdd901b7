package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/sharpline/sharpline-go/internal/database"
	"github.com/sharpline/sharpline-go/internal/middleware"
	"github.com/sharpline/sharpline-go/internal/models"
	"github.com/sharpline/sharpline-go/internal/services"
	"github.com/sharpline/sharpline-go/pkg/interfaces"
)

const (
	opportunitiesCacheTTL = 10 * time.Second
	opportunitiesLimitMax = 200
)

// OpportunityStore is the persistence surface the opportunity endpoint
// reads from.
type OpportunityStore interface {
	List(ctx context.Context, req models.OpportunityListRequest) ([]models.Opportunity, error)
}

var _ OpportunityStore = (*database.OpportunityRepository)(nil)

// OpportunityHandler serves arbitrage and middle opportunities.
type OpportunityHandler struct {
	opportunities  OpportunityStore
	redis          *database.RedisClient
	cacheAnalytics *services.CacheAnalyticsService
	logger         *logrus.Logger
}

// NewOpportunityHandler creates an opportunity handler.
func NewOpportunityHandler(opportunities OpportunityStore, redis *database.RedisClient, cacheAnalytics *services.CacheAnalyticsService, logger *logrus.Logger) *OpportunityHandler {
	return &OpportunityHandler{
		opportunities:  opportunities,
		redis:          redis,
		cacheAnalytics: cacheAnalytics,
		logger:         logger,
	}
}

// OpportunityListResponse is the current opportunity set.
type OpportunityListResponse struct {
	Data      []interfaces.OpportunityResponse `json:"data"`
	Total     int                              `json:"total"`
	Timestamp time.Time                        `json:"timestamp"`
	Cached    bool                             `json:"cached,omitempty"`
}

// CacheOpportunities stores an opportunity list in Redis.
func (h *OpportunityHandler) CacheOpportunities(ctx context.Context, cacheKey string, list *OpportunityListResponse) {
	if h.redis == nil {
		return
	}
	jsonData, err := json.Marshal(list)
	if err != nil {
		h.logger.WithError(err).Warn("Failed to marshal opportunity list for cache")
		return
	}
	if err := h.redis.Set(ctx, cacheKey, string(jsonData), opportunitiesCacheTTL); err != nil {
		h.logger.WithError(err).Warn("Failed to cache opportunity list")
	}
}

// GetCachedOpportunities retrieves a cached opportunity list, recording
// the hit or miss against the opportunities category.
func (h *OpportunityHandler) GetCachedOpportunities(ctx context.Context, cacheKey string) (*OpportunityListResponse, bool) {
	if h.redis == nil {
		if h.cacheAnalytics != nil {
			h.cacheAnalytics.RecordMiss(services.CacheCategoryOpportunities)
		}
		return nil, false
	}

	cached, err := h.redis.Get(ctx, cacheKey)
	if err != nil {
		if h.cacheAnalytics != nil {
			h.cacheAnalytics.RecordMiss(services.CacheCategoryOpportunities)
		}
		return nil, false
	}

	var list OpportunityListResponse
	if err := json.Unmarshal([]byte(cached), &list); err != nil {
		h.logger.WithError(err).Warn("Failed to unmarshal cached opportunity list")
		if h.cacheAnalytics != nil {
			h.cacheAnalytics.RecordMiss(services.CacheCategoryOpportunities)
		}
		return nil, false
	}

	list.Cached = true
	if h.cacheAnalytics != nil {
		h.cacheAnalytics.RecordHit(services.CacheCategoryOpportunities)
	}
	return &list, true
}

// ListOpportunities returns stored opportunities newest first, filtered
// by ?kind, ?sport, ?min_roi and ?limit.
func (h *OpportunityHandler) ListOpportunities(c *gin.Context) {
	var req models.OpportunityListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid opportunity query: " + err.Error()})
		return
	}
	if req.Kind != "" {
		switch models.OpportunityKind(req.Kind) {
		case models.OpportunityArbitrage, models.OpportunityMiddle:
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown kind: " + req.Kind})
			return
		}
	}
	if req.Limit < 1 || req.Limit > opportunitiesLimitMax {
		req.Limit = opportunitiesLimitMax
	}

	cacheKey := fmt.Sprintf("opportunities:%s:%s:%.2f:%d", req.Kind, req.Sport, req.MinROI, req.Limit)
	if cached, found := h.GetCachedOpportunities(c.Request.Context(), cacheKey); found {
		c.JSON(http.StatusOK, cached)
		return
	}

	found, err := h.opportunities.List(c.Request.Context(), req)
	if err != nil {
		middleware.RecordError(c, err, "failed to list opportunities")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve opportunities"})
		return
	}

	list := &OpportunityListResponse{
		Data:      make([]interfaces.OpportunityResponse, len(found)),
		Total:     len(found),
		Timestamp: time.Now(),
	}
	for i := range found {
		list.Data[i] = opportunityResponse(&found[i])
	}

	h.CacheOpportunities(c.Request.Context(), cacheKey, list)
	c.JSON(http.StatusOK, list)
}

func opportunityResponse(o *models.Opportunity) interfaces.OpportunityResponse {
	resp := interfaces.OpportunityResponse{
		ID:                o.ID.String(),
		Kind:              string(o.Kind),
		Sport:             string(o.Sport),
		Market:            string(o.Market),
		GameID:            o.GameID,
		HomeTeam:          o.HomeTeam,
		AwayTeam:          o.AwayTeam,
		GameTime:          o.GameTime,
		Confidence:        string(o.Confidence),
		Leg1:              opportunityLegResponse(o.Leg1),
		Leg2:              opportunityLegResponse(o.Leg2),
		TotalStake:        o.TotalStake,
		MaxProfit:         o.MaxProfit,
		ROIPercent:        o.ROIPercent,
		MiddleProbability: o.MiddleProbability,
		DetectedAt:        o.DetectedAt,
	}
	if o.MiddleRange != nil {
		resp.MiddleRange = &interfaces.MiddleWindowResponse{
			Min: o.MiddleRange.Min,
			Max: o.MiddleRange.Max,
		}
	}
	return resp
}

func opportunityLegResponse(leg models.OpportunityLeg) interfaces.OpportunityLegResponse {
	return interfaces.OpportunityLegResponse{
		Bookmaker:       leg.Bookmaker,
		Selection:       leg.Selection,
		AmericanOdds:    leg.AmericanOdds,
		DecimalOdds:     leg.DecimalOdds,
		Stake:           leg.Stake,
		PotentialReturn: leg.PotentialReturn,
	}
}
