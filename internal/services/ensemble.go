package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/sharpline/sharpline-go/internal/config"
	"github.com/sharpline/sharpline-go/internal/models"
	"github.com/sharpline/sharpline-go/internal/utils"
	"github.com/sharpline/sharpline-go/pkg/oddsmath"
)

// Sub-model names double as weight map keys.
const (
	ModelMarket      = "market"
	ModelElo         = "elo"
	ModelRegression  = "regression"
	ModelMomentum    = "momentum"
	ModelSituational = "situational"
)

// weightSumTolerance is how far a weight map may drift from summing to 1.
const weightSumTolerance = 0.01

// lowVarianceThreshold is the spread variance below which the models are
// read as agreeing on the margin.
const lowVarianceThreshold = 3.0

const defaultEloPointsPerRating = 25.0

// Placeholder coefficients for the pluggable linear slots. They are
// deterministic stand-ins until trained models are registered.
const (
	regressionMarketShare = 0.6
	regressionEloShare    = 0.4
	momentumMarketShare   = 0.5
	formGapSpreadPoints   = 14.0
	restDaySpreadPoints   = 0.7
	weatherTotalShare     = 0.5
)

// GameContext carries the inputs a sub-model may draw on: the game
// record, the extracted feature vector and the latest snapshot per
// bookmaker.
type GameContext struct {
	Game     *models.Game
	Features models.MLFeatures
	Books    []models.OddsSnapshot
}

// SubModel is one voice in the prediction ensemble.
type SubModel interface {
	// Name returns the stable model name used as its weight key.
	Name() string
	// Predict produces the model's view of the game.
	Predict(ctx context.Context, gc GameContext) (models.ModelPrediction, error)
}

// PredictionEnsemble blends the five sub-models into one prediction.
// Weights are read at construction and passed explicitly through the
// combination step; recomputed weights produce a new map rather than
// mutating shared state.
type PredictionEnsemble struct {
	subModels []SubModel
	weights   map[string]float64
}

// NewPredictionEnsemble builds the standard five-model ensemble. An
// empty weight map defaults to an equal split; a map that does not sum
// to 1 is rejected.
func NewPredictionEnsemble(cfg config.EnsembleConfig) (*PredictionEnsemble, error) {
	pointsPerRating := cfg.EloPointsPerRating
	if pointsPerRating <= 0 {
		pointsPerRating = defaultEloPointsPerRating
	}
	homeField := cfg.HomeFieldPoints
	if homeField <= 0 {
		homeField = 2.0
	}

	subModels := []SubModel{
		&marketModel{},
		&eloModel{pointsPerRating: pointsPerRating, homeFieldPoints: homeField},
		&regressionModel{},
		&momentumModel{},
		&situationalModel{},
	}

	weights := make(map[string]float64, len(subModels))
	if len(cfg.Weights) == 0 {
		for _, m := range subModels {
			weights[m.Name()] = 1.0 / float64(len(subModels))
		}
	} else {
		for name, w := range cfg.Weights {
			weights[name] = w
		}
		if err := ValidateModelWeights(weights); err != nil {
			return nil, err
		}
		for _, m := range subModels {
			if _, ok := weights[m.Name()]; !ok {
				return nil, utils.NewValidationErrorf("no weight configured for model %q", m.Name())
			}
		}
	}

	return &PredictionEnsemble{subModels: subModels, weights: weights}, nil
}

// Predict runs every sub-model and combines the results under the
// configured weights. A sub-model that cannot produce a prediction is
// left out and the remaining weights are renormalized.
func (e *PredictionEnsemble) Predict(ctx context.Context, gc GameContext) (*models.EnsemblePrediction, error) {
	return e.PredictWithWeights(ctx, gc, e.weights)
}

// PredictWithWeights is Predict with an explicit weight map, for
// callers holding recomputed weights.
func (e *PredictionEnsemble) PredictWithWeights(ctx context.Context, gc GameContext, weights map[string]float64) (*models.EnsemblePrediction, error) {
	if gc.Game == nil {
		return nil, utils.NewValidationError("prediction needs a game")
	}

	preds := make([]models.ModelPrediction, 0, len(e.subModels))
	for _, m := range e.subModels {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p, err := m.Predict(ctx, gc)
		if err != nil {
			continue
		}
		p.ModelName = m.Name()
		preds = append(preds, p)
	}

	return CombineModelPredictions(gc.Game, preds, weights)
}

// Weights returns a copy of the configured weight map.
func (e *PredictionEnsemble) Weights() map[string]float64 {
	out := make(map[string]float64, len(e.weights))
	for name, w := range e.weights {
		out[name] = w
	}
	return out
}

// CombineModelPredictions blends sub-model outputs into the final
// prediction: weighted averages of spread, total, confidence and win
// probability, the winner from the sign of the blended spread, and
// reasoning strings from model agreement and spread variance. Weights
// must cover every present model and sum to 1; models that produced
// nothing have their weight redistributed proportionally.
func CombineModelPredictions(game *models.Game, preds []models.ModelPrediction, weights map[string]float64) (*models.EnsemblePrediction, error) {
	if len(preds) == 0 {
		return nil, fmt.Errorf("no model predictions to combine")
	}
	if err := ValidateModelWeights(weights); err != nil {
		return nil, err
	}

	var presentSum float64
	for _, p := range preds {
		w, ok := weights[p.ModelName]
		if !ok {
			return nil, utils.NewValidationErrorf("no weight configured for model %q", p.ModelName)
		}
		presentSum += w
	}
	if presentSum <= 0 {
		return nil, utils.NewValidationError("weights of producing models sum to zero")
	}

	effective := make(map[string]float64, len(preds))
	final := &models.EnsemblePrediction{
		GameID:      game.ID,
		Sport:       game.Sport,
		HomeTeam:    game.HomeTeam,
		AwayTeam:    game.AwayTeam,
		Models:      preds,
		PredictedAt: time.Now().UTC(),
	}
	for _, p := range preds {
		w := weights[p.ModelName] / presentSum
		effective[p.ModelName] = w
		final.FinalSpread += w * p.Spread
		final.FinalTotal += w * p.Total
		final.FinalConfidence += w * p.Confidence
		final.WinProbability += w * p.WinProbability
	}
	final.ModelWeights = effective

	// Home spreads are negative when home is favored, so a negative
	// blend points home. A dead-even spread falls back to probability.
	switch {
	case final.FinalSpread < 0:
		final.FinalWinner = models.WinnerHome
	case final.FinalSpread > 0:
		final.FinalWinner = models.WinnerAway
	case final.WinProbability >= 0.5:
		final.FinalWinner = models.WinnerHome
	default:
		final.FinalWinner = models.WinnerAway
	}

	final.Reasoning = combinationReasoning(preds)
	return final, nil
}

// ValidateModelWeights checks a weight map sums to 1 within tolerance
// and carries no negative entries.
func ValidateModelWeights(weights map[string]float64) error {
	if len(weights) == 0 {
		return utils.NewValidationError("model weights are required")
	}
	var sum float64
	for name, w := range weights {
		if w < 0 {
			return utils.NewValidationErrorf("model %q has negative weight %.3f", name, w)
		}
		sum += w
	}
	if math.Abs(sum-1.0) > weightSumTolerance {
		return utils.NewValidationErrorf("model weights sum to %.3f, want 1.0 +/- %.2f", sum, weightSumTolerance)
	}
	return nil
}

// RecomputeModelWeights derives a fresh weight map proportional to each
// model's trailing accuracy. The input is never mutated; an all-zero
// accuracy map falls back to an equal split.
func RecomputeModelWeights(trailingAccuracy map[string]float64) map[string]float64 {
	if len(trailingAccuracy) == 0 {
		return map[string]float64{}
	}

	var total float64
	for _, acc := range trailingAccuracy {
		if acc > 0 {
			total += acc
		}
	}

	out := make(map[string]float64, len(trailingAccuracy))
	if total == 0 {
		for name := range trailingAccuracy {
			out[name] = 1.0 / float64(len(trailingAccuracy))
		}
		return out
	}
	for name, acc := range trailingAccuracy {
		if acc < 0 {
			acc = 0
		}
		out[name] = acc / total
	}
	return out
}

func combinationReasoning(preds []models.ModelPrediction) []string {
	var home, away int
	for _, p := range preds {
		if p.Winner == models.WinnerHome {
			home++
		} else {
			away++
		}
	}

	var reasoning []string
	switch {
	case home == len(preds):
		reasoning = append(reasoning, fmt.Sprintf("unanimous: all %d models pick home", len(preds)))
	case away == len(preds):
		reasoning = append(reasoning, fmt.Sprintf("unanimous: all %d models pick away", len(preds)))
	case home > away:
		reasoning = append(reasoning, fmt.Sprintf("split %d-%d toward home", home, away))
	case away > home:
		reasoning = append(reasoning, fmt.Sprintf("split %d-%d toward away", away, home))
	default:
		reasoning = append(reasoning, fmt.Sprintf("split %d-%d with no majority", home, away))
	}

	variance := spreadVariance(preds)
	if variance < lowVarianceThreshold {
		reasoning = append(reasoning, fmt.Sprintf("low spread variance (%.1f): high model agreement", variance))
	} else {
		reasoning = append(reasoning, fmt.Sprintf("spread variance %.1f: models diverge on the margin", variance))
	}
	return reasoning
}

func spreadVariance(preds []models.ModelPrediction) float64 {
	if len(preds) == 0 {
		return 0
	}
	var mean float64
	for _, p := range preds {
		mean += p.Spread
	}
	mean /= float64(len(preds))

	var variance float64
	for _, p := range preds {
		variance += (p.Spread - mean) * (p.Spread - mean)
	}
	return variance / float64(len(preds))
}

// winnerAndConfidence maps a home win probability onto the winner label
// and a 50-100 confidence scale.
func winnerAndConfidence(homeProb float64) (string, float64) {
	if homeProb >= 0.5 {
		return models.WinnerHome, homeProb * 100
	}
	return models.WinnerAway, (1 - homeProb) * 100
}

// spreadWinProbability converts a point spread into a home win
// probability through the Elo logistic at the standard points-per-rating
// exchange rate.
func spreadWinProbability(spread float64) float64 {
	return 1 / (1 + math.Pow(10, spread*defaultEloPointsPerRating/400))
}

// marketModel reads the market's own opinion: no-vig moneyline
// probabilities averaged across books, spread and total from the quoted
// consensus in the feature vector.
type marketModel struct{}

func (m *marketModel) Name() string { return ModelMarket }

func (m *marketModel) Predict(_ context.Context, gc GameContext) (models.ModelPrediction, error) {
	var probSum float64
	var quoted int
	for i := range gc.Books {
		if !gc.Books[i].HasMarket(models.MarketMoneyline) {
			continue
		}
		nv, err := oddsmath.RemoveVig(gc.Books[i].MoneylineHome, gc.Books[i].MoneylineAway)
		if err != nil {
			continue
		}
		probSum += nv.ProbA
		quoted++
	}
	if quoted == 0 {
		return models.ModelPrediction{}, fmt.Errorf("no moneyline quotes to derive a market prediction")
	}

	homeProb := probSum / float64(quoted)
	winner, confidence := winnerAndConfidence(homeProb)
	return models.ModelPrediction{
		Winner:         winner,
		Confidence:     confidence,
		Spread:         gc.Features.MarketSpread,
		Total:          gc.Features.MarketTotal,
		WinProbability: homeProb,
	}, nil
}

// eloModel translates the rating gap into a spread and win probability,
// with home field folded in as rating points.
type eloModel struct {
	pointsPerRating float64
	homeFieldPoints float64
}

func (m *eloModel) Name() string { return ModelElo }

func (m *eloModel) Predict(_ context.Context, gc GameContext) (models.ModelPrediction, error) {
	homeField := gc.Features.HomeFieldAdvantage
	if homeField == 0 {
		homeField = m.homeFieldPoints
	}
	adjusted := gc.Features.EloDiff + homeField*m.pointsPerRating

	winProb := 1 / (1 + math.Pow(10, -adjusted/400))
	winner, confidence := winnerAndConfidence(winProb)
	return models.ModelPrediction{
		Winner:         winner,
		Confidence:     confidence,
		Spread:         -adjusted / m.pointsPerRating,
		Total:          gc.Features.MarketTotal,
		WinProbability: winProb,
	}, nil
}

// regressionModel is a pluggable slot: a linear blend of the market
// line and the rating-implied line.
type regressionModel struct{}

func (m *regressionModel) Name() string { return ModelRegression }

func (m *regressionModel) Predict(_ context.Context, gc GameContext) (models.ModelPrediction, error) {
	eloSpread := -gc.Features.EloDiff/defaultEloPointsPerRating - gc.Features.HomeFieldAdvantage
	spread := regressionMarketShare*gc.Features.MarketSpread + regressionEloShare*eloSpread
	total := gc.Features.MarketTotal + weatherTotalShare*gc.Features.WeatherImpact

	winProb := spreadWinProbability(spread)
	winner, confidence := winnerAndConfidence(winProb)
	return models.ModelPrediction{
		Winner:         winner,
		Confidence:     confidence,
		Spread:         spread,
		Total:          total,
		WinProbability: winProb,
	}, nil
}

// momentumModel is a pluggable slot leaning on recent form: a full form
// gap is worth about two touchdowns against the market line.
type momentumModel struct{}

func (m *momentumModel) Name() string { return ModelMomentum }

func (m *momentumModel) Predict(_ context.Context, gc GameContext) (models.ModelPrediction, error) {
	formGap := gc.Features.RecentFormHome - gc.Features.RecentFormAway
	spread := momentumMarketShare*gc.Features.MarketSpread + (1-momentumMarketShare)*(-formGap*formGapSpreadPoints)

	winProb := spreadWinProbability(spread)
	winner, confidence := winnerAndConfidence(winProb)
	return models.ModelPrediction{
		Winner:         winner,
		Confidence:     confidence,
		Spread:         spread,
		Total:          gc.Features.MarketTotal,
		WinProbability: winProb,
	}, nil
}

// situationalModel is a pluggable slot for scheduling and weather
// spots: rest edges move the line, weather moves the total.
type situationalModel struct{}

func (m *situationalModel) Name() string { return ModelSituational }

func (m *situationalModel) Predict(_ context.Context, gc GameContext) (models.ModelPrediction, error) {
	spread := gc.Features.MarketSpread - restDaySpreadPoints*gc.Features.RestDayDiff
	total := gc.Features.MarketTotal + gc.Features.WeatherImpact

	winProb := spreadWinProbability(spread)
	winner, confidence := winnerAndConfidence(winProb)
	return models.ModelPrediction{
		Winner:         winner,
		Confidence:     confidence,
		Spread:         spread,
		Total:          total,
		WinProbability: winProb,
	}, nil
}
