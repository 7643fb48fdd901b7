package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sharpline/sharpline-go/internal/middleware"
	"github.com/sharpline/sharpline-go/internal/models"
	"github.com/sharpline/sharpline-go/internal/services"
	"github.com/sharpline/sharpline-go/internal/utils"
	"github.com/sharpline/sharpline-go/pkg/oddsmath"
)

const betsLimitMax = 500

// BetAdvisor is the advisor surface behind the stake and bet endpoints.
type BetAdvisor interface {
	Kelly(req models.KellyRequest) (*oddsmath.KellyResult, error)
	ExpectedValue(req models.EVRequest) (*oddsmath.EVResult, error)
	RecordBet(ctx context.Context, req models.RecordBetRequest) (*models.BetRecord, error)
	SettleBet(ctx context.Context, id uuid.UUID, req models.SettleBetRequest) (*models.BetRecord, error)
	ListBets(ctx context.Context, status models.BetStatus, limit int) ([]models.BetRecord, error)
	CLVReport(ctx context.Context) (*models.CLVSummary, error)
}

var _ BetAdvisor = (*services.StakeAdvisor)(nil)

// AdvisorHandler serves stake sizing, expected value and the bet log.
type AdvisorHandler struct {
	advisor BetAdvisor
}

// NewAdvisorHandler creates an advisor handler.
func NewAdvisorHandler(advisor BetAdvisor) *AdvisorHandler {
	return &AdvisorHandler{advisor: advisor}
}

// GetKellyStake sizes a stake from ?odds and ?prob. ?bankroll and
// ?fraction are optional and fall back to the configured defaults.
func (h *AdvisorHandler) GetKellyStake(c *gin.Context) {
	odds, err := strconv.Atoi(c.Query("odds"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid odds parameter"})
		return
	}
	prob, err := strconv.ParseFloat(c.Query("prob"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid prob parameter"})
		return
	}
	bankroll, err := strconv.ParseFloat(c.DefaultQuery("bankroll", "0"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid bankroll parameter"})
		return
	}
	fraction, err := strconv.ParseFloat(c.DefaultQuery("fraction", "0"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid fraction parameter"})
		return
	}

	result, err := h.advisor.Kelly(models.KellyRequest{
		AmericanOdds: odds,
		TrueProb:     prob,
		Bankroll:     bankroll,
		Fraction:     fraction,
	})
	if err != nil {
		if utils.IsValidationError(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		middleware.RecordError(c, err, "kelly sizing failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to size stake"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": result})
}

// GetExpectedValue prices a stake from ?odds, ?prob and ?stake.
func (h *AdvisorHandler) GetExpectedValue(c *gin.Context) {
	odds, err := strconv.Atoi(c.Query("odds"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid odds parameter"})
		return
	}
	prob, err := strconv.ParseFloat(c.Query("prob"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid prob parameter"})
		return
	}
	stake, err := strconv.ParseFloat(c.Query("stake"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid stake parameter"})
		return
	}

	result, err := h.advisor.ExpectedValue(models.EVRequest{
		AmericanOdds: odds,
		TrueProb:     prob,
		Stake:        stake,
	})
	if err != nil {
		if utils.IsValidationError(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		middleware.RecordError(c, err, "ev pricing failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to price stake"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": result})
}

// RecordBet logs a bet with its price frozen at record time.
func (h *AdvisorHandler) RecordBet(c *gin.Context) {
	var req models.RecordBetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid bet request: " + err.Error()})
		return
	}

	bet, err := h.advisor.RecordBet(c.Request.Context(), req)
	if err != nil {
		if utils.IsValidationError(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		middleware.RecordError(c, err, "failed to record bet")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record bet"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "data": bet})
}

// SettleBet closes a pending bet with the game result and grades its
// closing line value.
func (h *AdvisorHandler) SettleBet(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid bet id"})
		return
	}

	var req models.SettleBetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid settle request: " + err.Error()})
		return
	}

	bet, err := h.advisor.SettleBet(c.Request.Context(), id, req)
	if err != nil {
		if utils.IsValidationError(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		middleware.RecordError(c, err, "failed to settle bet")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to settle bet"})
		return
	}
	if bet == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Bet not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": bet})
}

// ListBets returns the bet log newest first, optionally filtered by
// ?status.
func (h *AdvisorHandler) ListBets(c *gin.Context) {
	status := models.BetStatus(c.Query("status"))
	if status != "" {
		switch status {
		case models.BetPending, models.BetWon, models.BetLost, models.BetPush:
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown status: " + string(status)})
			return
		}
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil || limit < 1 || limit > betsLimitMax {
		limit = 100
	}

	bets, err := h.advisor.ListBets(c.Request.Context(), status, limit)
	if err != nil {
		middleware.RecordError(c, err, "failed to list bets")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve bets"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": bets, "total": len(bets)})
}

// GetCLVReport aggregates closing line value across the settled bet log.
func (h *AdvisorHandler) GetCLVReport(c *gin.Context) {
	summary, err := h.advisor.CLVReport(c.Request.Context())
	if err != nil {
		middleware.RecordError(c, err, "failed to build clv report")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build CLV report"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": summary})
}
