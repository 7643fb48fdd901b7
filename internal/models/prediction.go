package models

import (
	"time"

	"github.com/sharpline/sharpline-go/internal/utils"
)

// Winner side labels shared by results, predictions and betting splits
const (
	WinnerHome = "home"
	WinnerAway = "away"
)

// ModelPrediction is one sub-model's view of a game
type ModelPrediction struct {
	ModelName      string  `json:"model_name"`
	Winner         string  `json:"winner"`
	Confidence     float64 `json:"confidence"`
	Spread         float64 `json:"spread"`
	Total          float64 `json:"total"`
	WinProbability float64 `json:"win_probability"`
}

// EnsemblePrediction is the blended output across all sub-models.
// Spread follows the home-negative convention: a negative final spread
// means the home team is favored.
type EnsemblePrediction struct {
	GameID          string             `json:"game_id" db:"game_id"`
	Sport           Sport              `json:"sport" db:"sport"`
	HomeTeam        string             `json:"home_team" db:"home_team"`
	AwayTeam        string             `json:"away_team" db:"away_team"`
	FinalWinner     string             `json:"final_winner" db:"final_winner"`
	FinalConfidence float64            `json:"final_confidence" db:"final_confidence"`
	FinalSpread     float64            `json:"final_spread" db:"final_spread"`
	FinalTotal      float64            `json:"final_total" db:"final_total"`
	WinProbability  float64            `json:"win_probability" db:"win_probability"`
	Models          []ModelPrediction  `json:"models"`
	ModelWeights    map[string]float64 `json:"model_weights"`
	Reasoning       []string           `json:"reasoning"`
	PredictedAt     time.Time          `json:"predicted_at" db:"predicted_at"`
}

// Validate checks an ensemble prediction before persisting
func (p *EnsemblePrediction) Validate() error {
	if p.GameID == "" {
		return utils.NewValidationError("prediction game_id is required")
	}
	if p.FinalWinner != WinnerHome && p.FinalWinner != WinnerAway {
		return utils.NewValidationErrorf("unknown winner %q", p.FinalWinner)
	}
	if p.FinalConfidence < 0 || p.FinalConfidence > 100 {
		return utils.NewValidationErrorf("confidence %.2f out of range", p.FinalConfidence)
	}
	return nil
}

// ConfidenceModifier captures how a situational bucket has historically
// shifted model accuracy. Modifier multiplies a base confidence, so 1.0
// is neutral.
type ConfidenceModifier struct {
	Situation          string          `json:"situation" db:"situation"`
	Modifier           float64         `json:"modifier" db:"modifier"`
	BasedOnGames       int             `json:"based_on_games" db:"based_on_games"`
	HistoricalAccuracy float64         `json:"historical_accuracy" db:"historical_accuracy"`
	ExpectedAccuracy   float64         `json:"expected_accuracy" db:"expected_accuracy"`
	ConfidenceLevel    ConfidenceLevel `json:"confidence_level" db:"confidence_level"`
}

// MLFeatures is the deterministic feature vector fed to the pluggable
// sub-models. Every field is derivable from stored snapshots, ratings
// and game metadata, so feature extraction is reproducible.
type MLFeatures struct {
	EloDiff            float64 `json:"elo_diff"`
	RecentFormHome     float64 `json:"recent_form_home"`
	RecentFormAway     float64 `json:"recent_form_away"`
	MarketSpread       float64 `json:"market_spread"`
	MarketTotal        float64 `json:"market_total"`
	HomeFieldAdvantage float64 `json:"home_field_advantage"`
	RestDayDiff        float64 `json:"rest_day_diff"`
	WeatherImpact      float64 `json:"weather_impact"`
}

// PredictionAccuracy summarizes graded predictions for a sport over a
// lookback window
type PredictionAccuracy struct {
	Sport         Sport   `json:"sport"`
	ModelName     string  `json:"model_name"`
	Graded        int     `json:"graded"`
	Correct       int     `json:"correct"`
	AccuracyRate  float64 `json:"accuracy_rate"`
	AvgConfidence float64 `json:"avg_confidence"`
}
