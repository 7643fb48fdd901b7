package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sharpline/sharpline-go/internal/utils"
)

// AlertType classifies a line movement alert
type AlertType string

const (
	AlertSignificantMove AlertType = "significant_move"
	AlertSteamMove       AlertType = "steam_move"
	AlertReverseLine     AlertType = "reverse_line_movement"
)

// Severity grades how strong a movement alert is
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// TrendDirection describes which way the smoothed line has been drifting
type TrendDirection string

const (
	TrendTowardHome TrendDirection = "toward_home"
	TrendTowardAway TrendDirection = "toward_away"
	TrendFlat       TrendDirection = "flat"
)

// LineMovementAlert represents a derived movement fact for one game,
// bookmaker and market. Alerts are never mutated after creation except
// for the read flag, and they expire at game start.
type LineMovementAlert struct {
	ID              uuid.UUID       `json:"id" db:"id"`
	GameID          string          `json:"game_id" db:"game_id"`
	AlertType       AlertType       `json:"alert_type" db:"alert_type"`
	Severity        Severity        `json:"severity" db:"severity"`
	Market          MarketType      `json:"market" db:"market"`
	Bookmaker       string          `json:"bookmaker" db:"bookmaker"`
	OpeningLine     decimal.Decimal `json:"opening_line" db:"opening_line"`
	CurrentLine     decimal.Decimal `json:"current_line" db:"current_line"`
	Movement        decimal.Decimal `json:"movement" db:"movement"`
	MovementPercent decimal.Decimal `json:"movement_percent" db:"movement_percent"`
	SharpMoney      bool            `json:"sharp_money" db:"sharp_money"`
	ReverseLine     bool            `json:"reverse_line" db:"reverse_line"`
	TrendDirection  TrendDirection  `json:"trend_direction" db:"trend_direction"`
	Fingerprint     string          `json:"fingerprint" db:"fingerprint"`
	Read            bool            `json:"read" db:"read"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
	ExpiresAt       time.Time       `json:"expires_at" db:"expires_at"`
}

// Validate checks the invariants an alert must satisfy before it is stored
func (a *LineMovementAlert) Validate() error {
	if a.GameID == "" {
		return utils.NewValidationError("alert game_id is required")
	}
	switch a.AlertType {
	case AlertSignificantMove, AlertSteamMove, AlertReverseLine:
	default:
		return utils.NewValidationErrorf("unknown alert type %q", a.AlertType)
	}
	switch a.Severity {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
	default:
		return utils.NewValidationErrorf("unknown severity %q", a.Severity)
	}
	if a.Fingerprint == "" {
		return utils.NewValidationError("alert fingerprint is required")
	}
	return nil
}

// IsExpired reports whether the alert has outlived its game start
func (a *LineMovementAlert) IsExpired(now time.Time) bool {
	return !a.ExpiresAt.IsZero() && now.After(a.ExpiresAt)
}

// PublicBettingSnapshot represents the public bet split for one game and
// market, supplied by an external feed
type PublicBettingSnapshot struct {
	GameID         string    `json:"game_id" db:"game_id"`
	Market         MarketType `json:"market" db:"market"`
	HomeBetPercent float64   `json:"home_bet_percent" db:"home_bet_percent"`
	AwayBetPercent float64   `json:"away_bet_percent" db:"away_bet_percent"`
	FetchedAt      time.Time `json:"fetched_at" db:"fetched_at"`
}

// MajoritySide returns the side holding the majority of public bets, or
// an empty string on an even split
func (p *PublicBettingSnapshot) MajoritySide() string {
	switch {
	case p.HomeBetPercent > p.AwayBetPercent:
		return WinnerHome
	case p.AwayBetPercent > p.HomeBetPercent:
		return WinnerAway
	default:
		return ""
	}
}

// AlertListRequest represents query parameters for listing alerts
type AlertListRequest struct {
	Sport    string `json:"sport" form:"sport"`
	Severity string `json:"severity" form:"severity"`
	Unread   bool   `json:"unread" form:"unread"`
	Limit    int    `json:"limit" form:"limit"`
}
