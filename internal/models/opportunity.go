package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sharpline/sharpline-go/internal/utils"
)

// OpportunityKind tags the variant of a detected opportunity
type OpportunityKind string

const (
	OpportunityArbitrage OpportunityKind = "arbitrage"
	OpportunityMiddle    OpportunityKind = "middle"
)

// ConfidenceLevel labels how strong an opportunity or modifier is
type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "high"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceLow    ConfidenceLevel = "low"
)

// OpportunityLeg represents one side of a two-leg opportunity
type OpportunityLeg struct {
	Bookmaker       string          `json:"bookmaker"`
	Selection       string          `json:"selection"`
	AmericanOdds    int             `json:"american_odds"`
	DecimalOdds     float64         `json:"decimal_odds"`
	Stake           decimal.Decimal `json:"stake"`
	PotentialReturn decimal.Decimal `json:"potential_return"`
}

// MiddleRange is the scoring window where both legs of a middle cash
type MiddleRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Opportunity represents a two-leg cross-book opportunity, either a
// guaranteed-profit arbitrage or a middle. Opportunities are derived on
// each scan and recomputable at any time from snapshots; persisted rows
// are point-in-time captures, not mutable state.
type Opportunity struct {
	ID                uuid.UUID       `json:"id" db:"id"`
	Kind              OpportunityKind `json:"kind" db:"kind"`
	Sport             Sport           `json:"sport" db:"sport"`
	Market            MarketType      `json:"market" db:"market"`
	GameID            string          `json:"game_id" db:"game_id"`
	HomeTeam          string          `json:"home_team" db:"home_team"`
	AwayTeam          string          `json:"away_team" db:"away_team"`
	GameTime          time.Time       `json:"game_time" db:"game_time"`
	Confidence        ConfidenceLevel `json:"confidence" db:"confidence"`
	Leg1              OpportunityLeg  `json:"leg1"`
	Leg2              OpportunityLeg  `json:"leg2"`
	TotalStake        decimal.Decimal `json:"total_stake" db:"total_stake"`
	MaxProfit         decimal.Decimal `json:"max_profit" db:"max_profit"`
	ROIPercent        decimal.Decimal `json:"roi_percent" db:"roi_percent"`
	MiddleRange       *MiddleRange    `json:"middle_range,omitempty"`
	MiddleProbability *float64        `json:"middle_probability,omitempty"`
	DetectedAt        time.Time       `json:"detected_at" db:"detected_at"`
}

// Validate checks the structural invariants of an opportunity
func (o *Opportunity) Validate() error {
	switch o.Kind {
	case OpportunityArbitrage, OpportunityMiddle:
	default:
		return utils.NewValidationErrorf("unknown opportunity kind %q", o.Kind)
	}
	if o.GameID == "" {
		return utils.NewValidationError("opportunity game_id is required")
	}
	if o.Leg1.Bookmaker == "" || o.Leg2.Bookmaker == "" {
		return utils.NewValidationError("both legs need a bookmaker")
	}
	if o.Kind == OpportunityMiddle {
		if o.MiddleRange == nil || o.MiddleProbability == nil {
			return utils.NewValidationError("middle needs a range and probability")
		}
		if o.Market == MarketMoneyline {
			return utils.NewValidationError("middles exist on pointed markets only")
		}
	}
	return nil
}

// IsMiddle reports whether the opportunity is the middle variant
func (o *Opportunity) IsMiddle() bool {
	return o.Kind == OpportunityMiddle
}

// OpportunityListRequest represents query parameters for listing
// opportunities
type OpportunityListRequest struct {
	Kind   string `json:"kind" form:"kind"`
	Sport  string `json:"sport" form:"sport"`
	MinROI float64 `json:"min_roi" form:"min_roi"`
	Limit  int    `json:"limit" form:"limit"`
}
