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
	"github.com/sharpline/sharpline-go/pkg/interfaces"
)

const (
	boardCacheTTL   = 10 * time.Second
	historyLimitMax = 1000
)

// OddsStore is the snapshot surface the odds endpoints read from.
type OddsStore interface {
	LatestPerBook(ctx context.Context, gameID string) ([]models.OddsSnapshot, error)
	History(ctx context.Context, req models.OddsHistoryRequest) ([]models.OddsSnapshot, error)
}

var _ OddsStore = (*database.SnapshotRepository)(nil)

// OddsHandler serves the current board and the snapshot history per game.
type OddsHandler struct {
	snapshots      OddsStore
	redis          *database.RedisClient
	cacheAnalytics *services.CacheAnalyticsService
	logger         *logrus.Logger
}

// NewOddsHandler creates an odds handler.
func NewOddsHandler(snapshots OddsStore, redis *database.RedisClient, cacheAnalytics *services.CacheAnalyticsService, logger *logrus.Logger) *OddsHandler {
	return &OddsHandler{
		snapshots:      snapshots,
		redis:          redis,
		cacheAnalytics: cacheAnalytics,
		logger:         logger,
	}
}

// OddsBoardResponse is the latest quote per bookmaker for one game.
type OddsBoardResponse struct {
	GameID    string                `json:"game_id"`
	Books     []interfaces.BookOdds `json:"books"`
	Total     int                   `json:"total"`
	Timestamp time.Time             `json:"timestamp"`
	Cached    bool                  `json:"cached,omitempty"`
}

// OddsHistoryResponse is the ordered snapshot trail for one game.
type OddsHistoryResponse struct {
	GameID    string                `json:"game_id"`
	Data      []models.OddsSnapshot `json:"data"`
	Total     int                   `json:"total"`
	Timestamp time.Time             `json:"timestamp"`
}

// CacheOddsBoard stores a board response in Redis. Boards go stale
// within seconds, so failures only log.
func (h *OddsHandler) CacheOddsBoard(ctx context.Context, cacheKey string, board *OddsBoardResponse) {
	if h.redis == nil {
		return
	}
	jsonData, err := json.Marshal(board)
	if err != nil {
		h.logger.WithError(err).Warn("Failed to marshal odds board for cache")
		return
	}
	if err := h.redis.Set(ctx, cacheKey, string(jsonData), boardCacheTTL); err != nil {
		h.logger.WithError(err).Warn("Failed to cache odds board")
	}
}

// GetCachedOddsBoard retrieves a cached board response, recording the
// hit or miss against the odds category.
func (h *OddsHandler) GetCachedOddsBoard(ctx context.Context, cacheKey string) (*OddsBoardResponse, bool) {
	if h.redis == nil {
		if h.cacheAnalytics != nil {
			h.cacheAnalytics.RecordMiss(services.CacheCategoryOdds)
		}
		return nil, false
	}

	cached, err := h.redis.Get(ctx, cacheKey)
	if err != nil {
		if h.cacheAnalytics != nil {
			h.cacheAnalytics.RecordMiss(services.CacheCategoryOdds)
		}
		return nil, false
	}

	var board OddsBoardResponse
	if err := json.Unmarshal([]byte(cached), &board); err != nil {
		h.logger.WithError(err).Warn("Failed to unmarshal cached odds board")
		if h.cacheAnalytics != nil {
			h.cacheAnalytics.RecordMiss(services.CacheCategoryOdds)
		}
		return nil, false
	}

	board.Cached = true
	if h.cacheAnalytics != nil {
		h.cacheAnalytics.RecordHit(services.CacheCategoryOdds)
	}
	return &board, true
}

// GetLatestOdds returns the most recent snapshot per bookmaker for a
// game, serving from Redis when a fresh board is cached.
func (h *OddsHandler) GetLatestOdds(c *gin.Context) {
	gameID := c.Param("gameID")
	cacheKey := "odds:board:" + gameID

	if cached, found := h.GetCachedOddsBoard(c.Request.Context(), cacheKey); found {
		c.JSON(http.StatusOK, cached)
		return
	}

	books, err := h.snapshots.LatestPerBook(c.Request.Context(), gameID)
	if err != nil {
		middleware.RecordError(c, err, "failed to load odds board")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve odds"})
		return
	}
	if len(books) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "No odds recorded for game " + gameID})
		return
	}

	board := &OddsBoardResponse{
		GameID:    gameID,
		Books:     make([]interfaces.BookOdds, len(books)),
		Total:     len(books),
		Timestamp: time.Now(),
	}
	for i := range books {
		board.Books[i] = bookOddsResponse(&books[i])
	}

	h.CacheOddsBoard(c.Request.Context(), cacheKey, board)
	c.JSON(http.StatusOK, board)
}

// GetOddsHistory returns a game's snapshots in capture order, optionally
// starting at ?since (RFC 3339).
func (h *OddsHandler) GetOddsHistory(c *gin.Context) {
	var req models.OddsHistoryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid history query: " + err.Error()})
		return
	}
	req.GameID = c.Param("gameID")
	if req.Limit < 1 || req.Limit > historyLimitMax {
		req.Limit = historyLimitMax
	}

	snapshots, err := h.snapshots.History(c.Request.Context(), req)
	if err != nil {
		middleware.RecordError(c, err, "failed to load odds history")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve odds history"})
		return
	}

	c.JSON(http.StatusOK, OddsHistoryResponse{
		GameID:    req.GameID,
		Data:      snapshots,
		Total:     len(snapshots),
		Timestamp: time.Now(),
	})
}

func bookOddsResponse(s *models.OddsSnapshot) interfaces.BookOdds {
	return interfaces.BookOdds{
		GameID:        s.GameID,
		Bookmaker:     s.Bookmaker,
		SpreadHome:    s.SpreadHome,
		TotalLine:     s.TotalLine,
		MoneylineHome: s.MoneylineHome,
		MoneylineAway: s.MoneylineAway,
		SnapshotAt:    s.SnapshotAt,
	}
}
