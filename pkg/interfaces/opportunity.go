package interfaces

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// OpportunityLegResponse represents one side of a two-leg opportunity for API responses
type OpportunityLegResponse struct {
	Bookmaker       string          `json:"bookmaker"`
	Selection       string          `json:"selection"`
	AmericanOdds    int             `json:"american_odds"`
	DecimalOdds     float64         `json:"decimal_odds"`
	Stake           decimal.Decimal `json:"stake"`
	PotentialReturn decimal.Decimal `json:"potential_return"`
}

// MiddleWindowResponse is the scoring window where both legs of a middle cash
type MiddleWindowResponse struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// OpportunityResponse represents a detected cross-book opportunity for API
// responses. ROI and stakes are decimals so consumers can render them without
// float drift.
type OpportunityResponse struct {
	ID                string                 `json:"id"`
	Kind              string                 `json:"kind"`
	Sport             string                 `json:"sport"`
	Market            string                 `json:"market"`
	GameID            string                 `json:"game_id"`
	HomeTeam          string                 `json:"home_team"`
	AwayTeam          string                 `json:"away_team"`
	GameTime          time.Time              `json:"game_time"`
	Confidence        string                 `json:"confidence"`
	Leg1              OpportunityLegResponse `json:"leg1"`
	Leg2              OpportunityLegResponse `json:"leg2"`
	TotalStake        decimal.Decimal        `json:"total_stake"`
	MaxProfit         decimal.Decimal        `json:"max_profit"`
	ROIPercent        decimal.Decimal        `json:"roi_percent"`
	MiddleRange       *MiddleWindowResponse  `json:"middle_range,omitempty"`
	MiddleProbability *float64               `json:"middle_probability,omitempty"`
	DetectedAt        time.Time              `json:"detected_at"`
}

// OpportunityInterface defines the interface for opportunity data
type OpportunityInterface interface {
	GetKind() string
	GetSport() string
	GetMarket() string
	GetMatchup() string
	GetConfidence() string
	GetTotalStake() decimal.Decimal
	GetMaxProfit() decimal.Decimal
	GetROIPercent() decimal.Decimal
	GetDetectedAt() time.Time
}

// GetKind returns the opportunity variant
func (o *OpportunityResponse) GetKind() string {
	return o.Kind
}

// GetSport returns the sport key
func (o *OpportunityResponse) GetSport() string {
	return o.Sport
}

// GetMarket returns the market the opportunity spans
func (o *OpportunityResponse) GetMarket() string {
	return o.Market
}

// GetMatchup returns the game label as "away @ home"
func (o *OpportunityResponse) GetMatchup() string {
	return fmt.Sprintf("%s @ %s", o.AwayTeam, o.HomeTeam)
}

// GetConfidence returns the confidence label
func (o *OpportunityResponse) GetConfidence() string {
	return o.Confidence
}

// GetTotalStake returns the combined stake across both legs
func (o *OpportunityResponse) GetTotalStake() decimal.Decimal {
	return o.TotalStake
}

// GetMaxProfit returns the best-case profit
func (o *OpportunityResponse) GetMaxProfit() decimal.Decimal {
	return o.MaxProfit
}

// GetROIPercent returns the return on the combined stake
func (o *OpportunityResponse) GetROIPercent() decimal.Decimal {
	return o.ROIPercent
}

// GetDetectedAt returns when the scan found the opportunity
func (o *OpportunityResponse) GetDetectedAt() time.Time {
	return o.DetectedAt
}
