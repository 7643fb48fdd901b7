package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sharpline/sharpline-go/internal/api/handlers/testmocks"
	"github.com/sharpline/sharpline-go/internal/models"
	"github.com/sharpline/sharpline-go/internal/services"
)

func oddsTestSnapshot(bookmaker string) models.OddsSnapshot {
	return models.OddsSnapshot{
		ID:             uuid.New(),
		GameID:         "game-a",
		Bookmaker:      bookmaker,
		SnapshotAt:     time.Date(2025, 11, 2, 18, 0, 0, 0, time.UTC),
		SpreadHome:     decimal.RequireFromString("-3.5"),
		SpreadHomeOdds: -110,
		SpreadAwayOdds: -110,
		TotalLine:      decimal.RequireFromString("47.5"),
		OverOdds:       -105,
		UnderOdds:      -115,
		MoneylineHome:  -180,
		MoneylineAway:  155,
	}
}

func oddsTestRouter(h *OddsHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/odds/:gameID", h.GetLatestOdds)
	router.GET("/odds/:gameID/history", h.GetOddsHistory)
	return router
}

func TestGetLatestOdds(t *testing.T) {
	store := new(testmocks.MockOddsStore)
	redisClient, analytics := testCache(t)
	router := oddsTestRouter(NewOddsHandler(store, redisClient, analytics, testLogger()))

	snapshots := []models.OddsSnapshot{oddsTestSnapshot("draftkings"), oddsTestSnapshot("fanduel")}
	store.On("LatestPerBook", mock.Anything, "game-a").Return(snapshots, nil).Once()

	w := performRequest(router, http.MethodGet, "/odds/game-a", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var board OddsBoardResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &board))
	assert.Equal(t, "game-a", board.GameID)
	assert.Equal(t, 2, board.Total)
	assert.False(t, board.Cached)
	require.Len(t, board.Books, 2)
	assert.Equal(t, "draftkings", board.Books[0].Bookmaker)
	assert.Equal(t, -180, board.Books[0].MoneylineHome)
	assert.Equal(t, 155, board.Books[0].MoneylineAway)
	assert.True(t, board.Books[0].SpreadHome.Equal(decimal.RequireFromString("-3.5")))

	// Second request is served from Redis without touching the store.
	w = performRequest(router, http.MethodGet, "/odds/game-a", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &board))
	assert.True(t, board.Cached)
	store.AssertNumberOfCalls(t, "LatestPerBook", 1)

	stats := analytics.GetStats(services.CacheCategoryOdds)
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
}

func TestGetLatestOddsNotFound(t *testing.T) {
	store := new(testmocks.MockOddsStore)
	redisClient, analytics := testCache(t)
	router := oddsTestRouter(NewOddsHandler(store, redisClient, analytics, testLogger()))

	store.On("LatestPerBook", mock.Anything, "ghost").Return([]models.OddsSnapshot{}, nil)

	w := performRequest(router, http.MethodGet, "/odds/ghost", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "No odds recorded")

	// Empty boards are not cached.
	performRequest(router, http.MethodGet, "/odds/ghost", nil)
	store.AssertNumberOfCalls(t, "LatestPerBook", 2)
}

func TestGetLatestOddsStoreError(t *testing.T) {
	store := new(testmocks.MockOddsStore)
	redisClient, analytics := testCache(t)
	router := oddsTestRouter(NewOddsHandler(store, redisClient, analytics, testLogger()))

	store.On("LatestPerBook", mock.Anything, "game-a").Return(nil, errors.New("db down"))

	w := performRequest(router, http.MethodGet, "/odds/game-a", nil)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Failed to retrieve odds")
}

func TestGetOddsHistory(t *testing.T) {
	store := new(testmocks.MockOddsStore)
	redisClient, analytics := testCache(t)
	router := oddsTestRouter(NewOddsHandler(store, redisClient, analytics, testLogger()))

	snapshots := []models.OddsSnapshot{oddsTestSnapshot("draftkings"), oddsTestSnapshot("draftkings")}
	store.On("History", mock.Anything, mock.MatchedBy(func(req models.OddsHistoryRequest) bool {
		return req.GameID == "game-a" && req.Since.IsZero() && req.Limit == historyLimitMax
	})).Return(snapshots, nil)

	w := performRequest(router, http.MethodGet, "/odds/game-a/history", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp OddsHistoryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "game-a", resp.GameID)
	assert.Equal(t, 2, resp.Total)
	require.Len(t, resp.Data, 2)
	assert.Equal(t, "draftkings", resp.Data[0].Bookmaker)
}

func TestGetOddsHistoryWindow(t *testing.T) {
	store := new(testmocks.MockOddsStore)
	redisClient, analytics := testCache(t)
	router := oddsTestRouter(NewOddsHandler(store, redisClient, analytics, testLogger()))

	since := time.Date(2025, 11, 2, 12, 0, 0, 0, time.UTC)
	store.On("History", mock.Anything, mock.MatchedBy(func(req models.OddsHistoryRequest) bool {
		return req.GameID == "game-a" && req.Since.Equal(since) && req.Limit == 50
	})).Return([]models.OddsSnapshot{}, nil)

	w := performRequest(router, http.MethodGet, "/odds/game-a/history?since=2025-11-02T12:00:00Z&limit=50", nil)
	require.Equal(t, http.StatusOK, w.Code)
	store.AssertExpectations(t)
}

func TestGetOddsHistoryBadSince(t *testing.T) {
	store := new(testmocks.MockOddsStore)
	redisClient, analytics := testCache(t)
	router := oddsTestRouter(NewOddsHandler(store, redisClient, analytics, testLogger()))

	w := performRequest(router, http.MethodGet, "/odds/game-a/history?since=yesterday", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	store.AssertNotCalled(t, "History", mock.Anything, mock.Anything)
}
