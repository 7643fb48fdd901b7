package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sharpline/sharpline-go/internal/config"
	"github.com/sharpline/sharpline-go/internal/models"
)

func TestNewPredictionEnsemble(t *testing.T) {
	// Empty weights default to an equal split across the five models.
	ensemble, err := NewPredictionEnsemble(config.EnsembleConfig{})
	require.NoError(t, err)

	weights := ensemble.Weights()
	require.Len(t, weights, 5)
	for _, name := range []string{ModelMarket, ModelElo, ModelRegression, ModelMomentum, ModelSituational} {
		assert.InDelta(t, 0.2, weights[name], 1e-9)
	}

	_, err = NewPredictionEnsemble(config.EnsembleConfig{
		Weights: map[string]float64{ModelMarket: 0.5, ModelElo: 0.3},
	})
	require.Error(t, err)

	// A valid sum that skips a model is still unusable.
	_, err = NewPredictionEnsemble(config.EnsembleConfig{
		Weights: map[string]float64{ModelMarket: 0.6, ModelElo: 0.4},
	})
	require.Error(t, err)

	_, err = NewPredictionEnsemble(config.EnsembleConfig{
		Weights: map[string]float64{
			ModelMarket: 0.3, ModelElo: 0.3, ModelRegression: 0.2, ModelMomentum: 0.1, ModelSituational: 0.1,
		},
	})
	require.NoError(t, err)
}

func TestValidateModelWeights(t *testing.T) {
	tests := []struct {
		name    string
		weights map[string]float64
		wantErr bool
	}{
		{"exact sum", map[string]float64{"a": 0.5, "b": 0.5}, false},
		{"inside tolerance", map[string]float64{"a": 0.505, "b": 0.5}, false},
		{"under", map[string]float64{"a": 0.5, "b": 0.45}, true},
		{"over", map[string]float64{"a": 0.7, "b": 0.4}, true},
		{"negative entry", map[string]float64{"a": 1.2, "b": -0.2}, true},
		{"empty", map[string]float64{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateModelWeights(tt.weights)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRecomputeModelWeights(t *testing.T) {
	accuracy := map[string]float64{ModelMarket: 60, ModelElo: 40}

	weights := RecomputeModelWeights(accuracy)
	assert.InDelta(t, 0.6, weights[ModelMarket], 1e-9)
	assert.InDelta(t, 0.4, weights[ModelElo], 1e-9)
	require.NoError(t, ValidateModelWeights(weights))

	// The input map is untouched.
	assert.Equal(t, 60.0, accuracy[ModelMarket])

	// No signal yet falls back to an equal split.
	weights = RecomputeModelWeights(map[string]float64{ModelMarket: 0, ModelElo: 0})
	assert.InDelta(t, 0.5, weights[ModelMarket], 1e-9)
	assert.InDelta(t, 0.5, weights[ModelElo], 1e-9)

	// A negative trailing score contributes nothing.
	weights = RecomputeModelWeights(map[string]float64{ModelMarket: 50, ModelElo: -10})
	assert.InDelta(t, 1.0, weights[ModelMarket], 1e-9)
	assert.InDelta(t, 0.0, weights[ModelElo], 1e-9)

	assert.Empty(t, RecomputeModelWeights(nil))
}

func TestEnsemblePredictUnanimousHome(t *testing.T) {
	ensemble, err := NewPredictionEnsemble(config.EnsembleConfig{})
	require.NoError(t, err)

	// A clear home favorite everywhere: books, ratings and form all
	// point the same way.
	gc := GameContext{
		Game: calculatorTestGame(),
		Features: models.MLFeatures{
			EloDiff:            100,
			RecentFormHome:     0.8,
			RecentFormAway:     0.4,
			MarketSpread:       -4.5,
			MarketTotal:        47.5,
			HomeFieldAdvantage: 2,
			RestDayDiff:        1,
		},
		Books: []models.OddsSnapshot{
			{Bookmaker: "draftkings", MoneylineHome: -200, MoneylineAway: 170},
		},
	}

	pred, err := ensemble.Predict(context.Background(), gc)
	require.NoError(t, err)
	require.NoError(t, pred.Validate())

	assert.Equal(t, models.WinnerHome, pred.FinalWinner)
	assert.Negative(t, pred.FinalSpread)
	assert.Greater(t, pred.WinProbability, 0.5)
	assert.GreaterOrEqual(t, pred.FinalConfidence, 50.0)
	assert.LessOrEqual(t, pred.FinalConfidence, 100.0)
	require.Len(t, pred.Models, 5)

	var weightSum float64
	for _, w := range pred.ModelWeights {
		weightSum += w
	}
	assert.InDelta(t, 1.0, weightSum, 1e-9)

	require.Len(t, pred.Reasoning, 2)
	assert.Equal(t, "unanimous: all 5 models pick home", pred.Reasoning[0])
	assert.Contains(t, pred.Reasoning[1], "high model agreement")
}

func TestEnsemblePredictSplitFollowsSpreadSign(t *testing.T) {
	ensemble, err := NewPredictionEnsemble(config.EnsembleConfig{})
	require.NoError(t, err)

	// Market, momentum and scheduling lean away while the rating gap
	// leans home hard; the blended spread still lands below zero, so
	// the winner follows the spread sign rather than the vote count.
	gc := GameContext{
		Game: calculatorTestGame(),
		Features: models.MLFeatures{
			EloDiff:            120,
			RecentFormHome:     0.3,
			RecentFormAway:     0.7,
			MarketSpread:       1.5,
			MarketTotal:        44,
			HomeFieldAdvantage: 2,
			RestDayDiff:        -2,
		},
		Books: []models.OddsSnapshot{
			{Bookmaker: "draftkings", MoneylineHome: 110, MoneylineAway: -130},
		},
	}

	pred, err := ensemble.Predict(context.Background(), gc)
	require.NoError(t, err)

	assert.Equal(t, "split 3-2 toward away", pred.Reasoning[0])
	assert.Equal(t, models.WinnerHome, pred.FinalWinner)
	assert.Negative(t, pred.FinalSpread)
	assert.Contains(t, pred.Reasoning[1], "diverge")
}

func TestEnsembleSkipsModelWithoutInputs(t *testing.T) {
	ensemble, err := NewPredictionEnsemble(config.EnsembleConfig{})
	require.NoError(t, err)

	// No books means the market model cannot vote; its weight is
	// redistributed over the remaining four.
	gc := GameContext{
		Game: calculatorTestGame(),
		Features: models.MLFeatures{
			EloDiff:      80,
			MarketSpread: -3,
			MarketTotal:  47,
		},
	}

	pred, err := ensemble.Predict(context.Background(), gc)
	require.NoError(t, err)
	require.Len(t, pred.Models, 4)

	for _, p := range pred.Models {
		assert.NotEqual(t, ModelMarket, p.ModelName)
	}
	var weightSum float64
	for _, w := range pred.ModelWeights {
		weightSum += w
	}
	assert.InDelta(t, 1.0, weightSum, 1e-9)
	assert.InDelta(t, 0.25, pred.ModelWeights[ModelElo], 1e-9)
}

func TestCombineModelPredictions(t *testing.T) {
	game := calculatorTestGame()
	preds := []models.ModelPrediction{
		{ModelName: ModelMarket, Winner: models.WinnerHome, Confidence: 80, Spread: -7, Total: 44, WinProbability: 0.7},
		{ModelName: ModelElo, Winner: models.WinnerAway, Confidence: 60, Spread: 3, Total: 50, WinProbability: 0.4},
	}
	weights := map[string]float64{ModelMarket: 0.75, ModelElo: 0.25}

	final, err := CombineModelPredictions(game, preds, weights)
	require.NoError(t, err)

	assert.InDelta(t, -4.5, final.FinalSpread, 1e-9)
	assert.InDelta(t, 45.5, final.FinalTotal, 1e-9)
	assert.InDelta(t, 75.0, final.FinalConfidence, 1e-9)
	assert.InDelta(t, 0.625, final.WinProbability, 1e-9)
	assert.Equal(t, models.WinnerHome, final.FinalWinner)
	assert.Equal(t, game.ID, final.GameID)
	assert.Equal(t, "split 1-1 with no majority", final.Reasoning[0])
}

func TestCombineModelPredictionsRejectsBadWeights(t *testing.T) {
	game := calculatorTestGame()
	preds := []models.ModelPrediction{
		{ModelName: ModelMarket, Winner: models.WinnerHome, Spread: -3, WinProbability: 0.6},
	}

	_, err := CombineModelPredictions(game, preds, map[string]float64{ModelMarket: 0.5})
	require.Error(t, err)

	// A model with no configured weight cannot be blended.
	_, err = CombineModelPredictions(game, preds, map[string]float64{ModelElo: 1.0})
	require.Error(t, err)

	_, err = CombineModelPredictions(game, nil, map[string]float64{ModelMarket: 1.0})
	require.Error(t, err)
}
