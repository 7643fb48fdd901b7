package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sharpline/sharpline-go/internal/utils"
)

// BetStatus tracks a recorded bet through settlement
type BetStatus string

const (
	BetPending BetStatus = "pending"
	BetWon     BetStatus = "won"
	BetLost    BetStatus = "lost"
	BetPush    BetStatus = "push"
)

// BetRecord represents one logged bet. Odds are frozen at record time;
// the closing line is filled in at settlement so CLV can be graded.
type BetRecord struct {
	ID           uuid.UUID       `json:"id" db:"id"`
	GameID       string          `json:"game_id" db:"game_id"`
	Sport        Sport           `json:"sport" db:"sport"`
	Market       MarketType      `json:"market" db:"market"`
	Selection    string          `json:"selection" db:"selection"`
	Bookmaker    string          `json:"bookmaker" db:"bookmaker"`
	AmericanOdds int             `json:"american_odds" db:"american_odds"`
	Line         decimal.Decimal `json:"line" db:"line"`
	Stake        decimal.Decimal `json:"stake" db:"stake"`
	Status       BetStatus       `json:"status" db:"status"`
	ClosingOdds  *int            `json:"closing_odds,omitempty" db:"closing_odds"`
	CLVPercent   *float64        `json:"clv_percent,omitempty" db:"clv_percent"`
	BeatClose    *bool           `json:"beat_close,omitempty" db:"beat_close"`
	Profit       decimal.Decimal `json:"profit" db:"profit"`
	PlacedAt     time.Time       `json:"placed_at" db:"placed_at"`
	SettledAt    *time.Time      `json:"settled_at,omitempty" db:"settled_at"`
}

// Validate checks a bet before it is recorded
func (b *BetRecord) Validate() error {
	if b.GameID == "" {
		return utils.NewValidationError("bet game_id is required")
	}
	if b.Selection == "" {
		return utils.NewValidationError("bet selection is required")
	}
	if b.AmericanOdds == 0 {
		return utils.NewValidationError("bet odds are required")
	}
	if b.Stake.LessThanOrEqual(decimal.Zero) {
		return utils.NewValidationError("bet stake must be positive")
	}
	switch b.Market {
	case MarketMoneyline, MarketSpread, MarketTotal:
	default:
		return utils.NewValidationErrorf("unknown market %q", b.Market)
	}
	return nil
}

// IsSettled reports whether the bet has left pending state
func (b *BetRecord) IsSettled() bool {
	return b.Status != BetPending
}

// KellyRequest is the advisor input for stake sizing
type KellyRequest struct {
	AmericanOdds int     `json:"american_odds" binding:"required"`
	TrueProb     float64 `json:"true_prob" binding:"required"`
	Bankroll     float64 `json:"bankroll" binding:"required"`
	Fraction     float64 `json:"fraction"`
}

// EVRequest is the advisor input for expected value
type EVRequest struct {
	AmericanOdds int     `json:"american_odds" binding:"required"`
	TrueProb     float64 `json:"true_prob" binding:"required"`
	Stake        float64 `json:"stake" binding:"required"`
}

// RecordBetRequest is the advisor input for logging a bet
type RecordBetRequest struct {
	GameID       string  `json:"game_id" binding:"required"`
	Sport        string  `json:"sport"`
	Market       string  `json:"market" binding:"required"`
	Selection    string  `json:"selection" binding:"required"`
	Bookmaker    string  `json:"bookmaker"`
	AmericanOdds int     `json:"american_odds" binding:"required"`
	Line         float64 `json:"line"`
	Stake        float64 `json:"stake" binding:"required"`
}

// SettleBetRequest closes out a pending bet with the game outcome and
// the closing odds for CLV grading
type SettleBetRequest struct {
	Result      string `json:"result" binding:"required"`
	ClosingOdds int    `json:"closing_odds" binding:"required"`
}

// CLVSummary aggregates closing line value across settled bets
type CLVSummary struct {
	Bets          int     `json:"bets"`
	BeatCloseRate float64 `json:"beat_close_rate"`
	AvgCLVPercent float64 `json:"avg_clv_percent"`
	TotalProfit   float64 `json:"total_profit"`
}
