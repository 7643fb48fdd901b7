package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sharpline/sharpline-go/internal/utils"
)

// MarketType identifies the bet market a quote belongs to
type MarketType string

const (
	MarketMoneyline MarketType = "moneyline"
	MarketSpread    MarketType = "spread"
	MarketTotal     MarketType = "total"
)

// OddsSnapshot represents one bookmaker's full quote for one game at one
// instant. Snapshots are immutable once written and ordered by SnapshotAt
// per (game, bookmaker); the chronologically first snapshot for a game is
// its opening line.
type OddsSnapshot struct {
	ID             uuid.UUID       `json:"id" db:"id"`
	GameID         string          `json:"game_id" db:"game_id"`
	Bookmaker      string          `json:"bookmaker" db:"bookmaker"`
	SnapshotAt     time.Time       `json:"snapshot_at" db:"snapshot_at"`
	SpreadHome     decimal.Decimal `json:"spread_home" db:"spread_home"`
	SpreadHomeOdds int             `json:"spread_home_odds" db:"spread_home_odds"`
	SpreadAwayOdds int             `json:"spread_away_odds" db:"spread_away_odds"`
	TotalLine      decimal.Decimal `json:"total_line" db:"total_line"`
	OverOdds       int             `json:"over_odds" db:"over_odds"`
	UnderOdds      int             `json:"under_odds" db:"under_odds"`
	MoneylineHome  int             `json:"moneyline_home" db:"moneyline_home"`
	MoneylineAway  int             `json:"moneyline_away" db:"moneyline_away"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
	Game           *Game           `json:"game,omitempty"`
}

// Validate checks that the snapshot carries the fields every consumer
// depends on
func (s *OddsSnapshot) Validate() error {
	if s.GameID == "" {
		return utils.NewValidationError("snapshot game_id is required")
	}
	if s.Bookmaker == "" {
		return utils.NewValidationError("snapshot bookmaker is required")
	}
	if s.SnapshotAt.IsZero() {
		return utils.NewValidationError("snapshot timestamp is required")
	}
	return nil
}

// HasMarket reports whether both sides of the given market are quoted
func (s *OddsSnapshot) HasMarket(market MarketType) bool {
	switch market {
	case MarketMoneyline:
		return s.MoneylineHome != 0 && s.MoneylineAway != 0
	case MarketSpread:
		return s.SpreadHomeOdds != 0 && s.SpreadAwayOdds != 0
	case MarketTotal:
		return s.OverOdds != 0 && s.UnderOdds != 0
	default:
		return false
	}
}

// SideOdds returns the two American prices of a market in (home/over,
// away/under) order
func (s *OddsSnapshot) SideOdds(market MarketType) (int, int) {
	switch market {
	case MarketMoneyline:
		return s.MoneylineHome, s.MoneylineAway
	case MarketSpread:
		return s.SpreadHomeOdds, s.SpreadAwayOdds
	case MarketTotal:
		return s.OverOdds, s.UnderOdds
	default:
		return 0, 0
	}
}

// MarketLine returns the quoted line for a pointed market, zero for
// moneyline
func (s *OddsSnapshot) MarketLine(market MarketType) decimal.Decimal {
	switch market {
	case MarketSpread:
		return s.SpreadHome
	case MarketTotal:
		return s.TotalLine
	default:
		return decimal.Zero
	}
}

// BookOdds represents the latest quote per bookmaker for API responses
type BookOdds struct {
	Bookmaker     string          `json:"bookmaker"`
	SnapshotAt    time.Time       `json:"snapshot_at"`
	SpreadHome    decimal.Decimal `json:"spread_home"`
	TotalLine     decimal.Decimal `json:"total_line"`
	MoneylineHome int             `json:"moneyline_home"`
	MoneylineAway int             `json:"moneyline_away"`
}

// OddsHistoryRequest represents query parameters for snapshot history
type OddsHistoryRequest struct {
	GameID string    `json:"game_id" form:"game_id"`
	Since  time.Time `json:"since" form:"since"`
	Limit  int       `json:"limit" form:"limit"`
}
