package interfaces

import (
	"time"

	"github.com/shopspring/decimal"
)

// BookOdds represents one bookmaker's current lines on a game for API responses
type BookOdds struct {
	GameID        string          `json:"game_id"`
	Bookmaker     string          `json:"bookmaker"`
	SpreadHome    decimal.Decimal `json:"spread_home"`
	TotalLine     decimal.Decimal `json:"total_line"`
	MoneylineHome int             `json:"moneyline_home"`
	MoneylineAway int             `json:"moneyline_away"`
	SnapshotAt    time.Time       `json:"snapshot_at"`
}

// BookOddsInterface defines the interface for per-book odds data
type BookOddsInterface interface {
	GetGameID() string
	GetBookmaker() string
	GetSpreadHome() float64
	GetTotalLine() float64
	GetMoneylineHome() int
	GetMoneylineAway() int
	GetSnapshotAt() time.Time
}

// GetGameID returns the game identifier
func (b *BookOdds) GetGameID() string {
	return b.GameID
}

// GetBookmaker returns the bookmaker key
func (b *BookOdds) GetBookmaker() string {
	return b.Bookmaker
}

// GetSpreadHome returns the home spread as float64
func (b *BookOdds) GetSpreadHome() float64 {
	return b.SpreadHome.InexactFloat64()
}

// GetTotalLine returns the total line as float64
func (b *BookOdds) GetTotalLine() float64 {
	return b.TotalLine.InexactFloat64()
}

// GetMoneylineHome returns the home moneyline in American odds
func (b *BookOdds) GetMoneylineHome() int {
	return b.MoneylineHome
}

// GetMoneylineAway returns the away moneyline in American odds
func (b *BookOdds) GetMoneylineAway() int {
	return b.MoneylineAway
}

// GetSnapshotAt returns when the lines were captured
func (b *BookOdds) GetSnapshotAt() time.Time {
	return b.SnapshotAt
}
