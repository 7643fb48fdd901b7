package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/sharpline/sharpline-go/internal/models"
)

// CalibrationSample pairs a graded prediction with the situational
// context of its game, which is what the calibrator buckets on.
type CalibrationSample struct {
	Game       models.Game `json:"game"`
	Confidence float64     `json:"confidence"`
	Spread     float64     `json:"spread"`
	Correct    bool        `json:"correct"`
}

// PredictionRepository handles database operations for ensemble
// predictions, their grading, and the calibration modifiers derived
// from them.
type PredictionRepository struct {
	pool DatabasePool
}

// NewPredictionRepository creates a new prediction repository.
//
// Parameters:
//
//	pool: The database connection pool.
//
// Returns:
//
//	*PredictionRepository: The initialized repository.
func NewPredictionRepository(pool DatabasePool) *PredictionRepository {
	return &PredictionRepository{
		pool: pool,
	}
}

// Upsert stores the latest prediction for a game. Re-predicting a game
// replaces the previous row and clears any grade it carried.
//
// Parameters:
//
//	ctx: Context.
//	p: Prediction to persist.
//
// Returns:
//
//	error: Error if the upsert fails.
func (r *PredictionRepository) Upsert(ctx context.Context, p *models.EnsemblePrediction) error {
	modelsJSON, err := json.Marshal(p.Models)
	if err != nil {
		return fmt.Errorf("failed to encode sub-model predictions: %w", err)
	}
	weightsJSON, err := json.Marshal(p.ModelWeights)
	if err != nil {
		return fmt.Errorf("failed to encode model weights: %w", err)
	}
	reasoningJSON, err := json.Marshal(p.Reasoning)
	if err != nil {
		return fmt.Errorf("failed to encode reasoning: %w", err)
	}

	query := `
		INSERT INTO predictions (game_id, sport, home_team, away_team, final_winner,
			final_confidence, final_spread, final_total, win_probability,
			models, model_weights, reasoning, predicted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (game_id)
		DO UPDATE SET
			final_winner = EXCLUDED.final_winner,
			final_confidence = EXCLUDED.final_confidence,
			final_spread = EXCLUDED.final_spread,
			final_total = EXCLUDED.final_total,
			win_probability = EXCLUDED.win_probability,
			models = EXCLUDED.models,
			model_weights = EXCLUDED.model_weights,
			reasoning = EXCLUDED.reasoning,
			predicted_at = EXCLUDED.predicted_at,
			correct = NULL,
			graded_at = NULL
	`

	_, err = r.pool.Exec(ctx, query,
		p.GameID, p.Sport, p.HomeTeam, p.AwayTeam, p.FinalWinner,
		p.FinalConfidence, p.FinalSpread, p.FinalTotal, p.WinProbability,
		modelsJSON, weightsJSON, reasoningJSON, p.PredictedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert prediction: %w", err)
	}

	return nil
}

// Get fetches the prediction for a game.
//
// Parameters:
//
//	ctx: Context.
//	gameID: Game identifier.
//
// Returns:
//
//	*models.EnsemblePrediction: The prediction, or nil when not found.
//	error: Error if retrieval fails.
func (r *PredictionRepository) Get(ctx context.Context, gameID string) (*models.EnsemblePrediction, error) {
	query := predictionSelect + ` WHERE game_id = $1`

	var p models.EnsemblePrediction
	var modelsJSON, weightsJSON, reasoningJSON []byte
	err := r.pool.QueryRow(ctx, query, gameID).Scan(
		&p.GameID,
		&p.Sport,
		&p.HomeTeam,
		&p.AwayTeam,
		&p.FinalWinner,
		&p.FinalConfidence,
		&p.FinalSpread,
		&p.FinalTotal,
		&p.WinProbability,
		&modelsJSON,
		&weightsJSON,
		&reasoningJSON,
		&p.PredictedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get prediction: %w", err)
	}

	if err := decodePredictionDocs(&p, modelsJSON, weightsJSON, reasoningJSON); err != nil {
		return nil, err
	}

	return &p, nil
}

// ListRecent returns the newest predictions for a sport.
//
// Parameters:
//
//	ctx: Context.
//	sport: Sport key filter.
//	limit: Maximum rows to return.
//
// Returns:
//
//	[]models.EnsemblePrediction: Matching predictions, newest first.
//	error: Error if retrieval fails.
func (r *PredictionRepository) ListRecent(ctx context.Context, sport models.Sport, limit int) ([]models.EnsemblePrediction, error) {
	query := predictionSelect + ` WHERE sport = $1 ORDER BY predicted_at DESC LIMIT $2`

	rows, err := r.pool.Query(ctx, query, sport, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list predictions: %w", err)
	}
	defer rows.Close()

	return scanPredictions(rows)
}

// ListUngraded returns predictions that have not been graded yet,
// oldest first.
//
// Parameters:
//
//	ctx: Context.
//	limit: Maximum rows to return.
//
// Returns:
//
//	[]models.EnsemblePrediction: Ungraded predictions.
//	error: Error if retrieval fails.
func (r *PredictionRepository) ListUngraded(ctx context.Context, limit int) ([]models.EnsemblePrediction, error) {
	query := predictionSelect + ` WHERE graded_at IS NULL ORDER BY predicted_at ASC LIMIT $1`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list ungraded predictions: %w", err)
	}
	defer rows.Close()

	return scanPredictions(rows)
}

// Grade marks a prediction correct or incorrect once its game has a
// final result.
//
// Parameters:
//
//	ctx: Context.
//	gameID: Game identifier.
//	correct: Whether the predicted winner matched the result.
//
// Returns:
//
//	error: Error if the prediction does not exist or the update fails.
func (r *PredictionRepository) Grade(ctx context.Context, gameID string, correct bool) error {
	query := `
		UPDATE predictions
		SET correct = $2, graded_at = CURRENT_TIMESTAMP
		WHERE game_id = $1
	`

	result, err := r.pool.Exec(ctx, query, gameID, correct)
	if err != nil {
		return fmt.Errorf("failed to grade prediction: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("prediction for game %s not found", gameID)
	}

	return nil
}

// AccuracySummary aggregates graded predictions for a sport since the
// given time.
//
// Parameters:
//
//	ctx: Context.
//	sport: Sport key filter.
//	since: Oldest prediction time to include.
//
// Returns:
//
//	*models.PredictionAccuracy: Aggregate accuracy figures.
//	error: Error if aggregation fails.
func (r *PredictionRepository) AccuracySummary(ctx context.Context, sport models.Sport, since time.Time) (*models.PredictionAccuracy, error) {
	query := `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE correct),
			COALESCE(AVG(final_confidence), 0)
		FROM predictions
		WHERE sport = $1 AND graded_at IS NOT NULL AND predicted_at >= $2
	`

	summary := models.PredictionAccuracy{Sport: sport, ModelName: "ensemble"}
	err := r.pool.QueryRow(ctx, query, sport, since).Scan(
		&summary.Graded,
		&summary.Correct,
		&summary.AvgConfidence,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize prediction accuracy: %w", err)
	}

	if summary.Graded > 0 {
		summary.AccuracyRate = float64(summary.Correct) / float64(summary.Graded) * 100
	}

	return &summary, nil
}

// CalibrationSamples returns every graded prediction for a sport joined
// with its game context.
//
// Parameters:
//
//	ctx: Context.
//	sport: Sport key filter.
//
// Returns:
//
//	[]CalibrationSample: Graded samples with game context.
//	error: Error if retrieval fails.
func (r *PredictionRepository) CalibrationSamples(ctx context.Context, sport models.Sport) ([]CalibrationSample, error) {
	query := `
		SELECT g.id, g.sport, g.home_team, g.away_team, g.start_time, g.division,
			g.home_rest_days, g.away_rest_days, g.temperature_f, g.wind_mph, g.created_at,
			p.final_confidence, p.final_spread, p.correct
		FROM predictions p
		JOIN games g ON g.id = p.game_id
		WHERE p.sport = $1 AND p.graded_at IS NOT NULL
		ORDER BY g.start_time ASC
	`

	rows, err := r.pool.Query(ctx, query, sport)
	if err != nil {
		return nil, fmt.Errorf("failed to get calibration samples: %w", err)
	}
	defer rows.Close()

	var samples []CalibrationSample
	for rows.Next() {
		var s CalibrationSample
		err := rows.Scan(
			&s.Game.ID,
			&s.Game.Sport,
			&s.Game.HomeTeam,
			&s.Game.AwayTeam,
			&s.Game.StartTime,
			&s.Game.Division,
			&s.Game.HomeRestDays,
			&s.Game.AwayRestDays,
			&s.Game.TemperatureF,
			&s.Game.WindMph,
			&s.Game.CreatedAt,
			&s.Confidence,
			&s.Spread,
			&s.Correct,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan calibration sample: %w", err)
		}
		samples = append(samples, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating calibration samples: %w", err)
	}

	return samples, nil
}

// UpsertModifier stores a situational confidence modifier keyed by its
// situation label.
//
// Parameters:
//
//	ctx: Context.
//	m: Modifier to persist.
//
// Returns:
//
//	error: Error if the upsert fails.
func (r *PredictionRepository) UpsertModifier(ctx context.Context, m *models.ConfidenceModifier) error {
	query := `
		INSERT INTO confidence_modifiers (situation, modifier, based_on_games,
			historical_accuracy, expected_accuracy, confidence_level, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, CURRENT_TIMESTAMP)
		ON CONFLICT (situation)
		DO UPDATE SET
			modifier = EXCLUDED.modifier,
			based_on_games = EXCLUDED.based_on_games,
			historical_accuracy = EXCLUDED.historical_accuracy,
			expected_accuracy = EXCLUDED.expected_accuracy,
			confidence_level = EXCLUDED.confidence_level,
			updated_at = CURRENT_TIMESTAMP
	`

	_, err := r.pool.Exec(ctx, query,
		m.Situation, m.Modifier, m.BasedOnGames,
		m.HistoricalAccuracy, m.ExpectedAccuracy, m.ConfidenceLevel,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert confidence modifier: %w", err)
	}

	return nil
}

// ListModifiers returns all stored confidence modifiers.
//
// Parameters:
//
//	ctx: Context.
//
// Returns:
//
//	[]models.ConfidenceModifier: All modifiers.
//	error: Error if retrieval fails.
func (r *PredictionRepository) ListModifiers(ctx context.Context) ([]models.ConfidenceModifier, error) {
	query := `
		SELECT situation, modifier, based_on_games, historical_accuracy,
			expected_accuracy, confidence_level
		FROM confidence_modifiers
		ORDER BY situation ASC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list confidence modifiers: %w", err)
	}
	defer rows.Close()

	var modifiers []models.ConfidenceModifier
	for rows.Next() {
		var m models.ConfidenceModifier
		err := rows.Scan(
			&m.Situation,
			&m.Modifier,
			&m.BasedOnGames,
			&m.HistoricalAccuracy,
			&m.ExpectedAccuracy,
			&m.ConfidenceLevel,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan confidence modifier: %w", err)
		}
		modifiers = append(modifiers, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating confidence modifiers: %w", err)
	}

	return modifiers, nil
}

const predictionSelect = `
	SELECT game_id, sport, home_team, away_team, final_winner,
		final_confidence, final_spread, final_total, win_probability,
		models, model_weights, reasoning, predicted_at
	FROM predictions`

func scanPredictions(rows pgx.Rows) ([]models.EnsemblePrediction, error) {
	var predictions []models.EnsemblePrediction
	for rows.Next() {
		var p models.EnsemblePrediction
		var modelsJSON, weightsJSON, reasoningJSON []byte
		err := rows.Scan(
			&p.GameID,
			&p.Sport,
			&p.HomeTeam,
			&p.AwayTeam,
			&p.FinalWinner,
			&p.FinalConfidence,
			&p.FinalSpread,
			&p.FinalTotal,
			&p.WinProbability,
			&modelsJSON,
			&weightsJSON,
			&reasoningJSON,
			&p.PredictedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan prediction: %w", err)
		}
		if err := decodePredictionDocs(&p, modelsJSON, weightsJSON, reasoningJSON); err != nil {
			return nil, err
		}
		predictions = append(predictions, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating predictions: %w", err)
	}

	return predictions, nil
}

func decodePredictionDocs(p *models.EnsemblePrediction, modelsJSON, weightsJSON, reasoningJSON []byte) error {
	if len(modelsJSON) > 0 {
		if err := json.Unmarshal(modelsJSON, &p.Models); err != nil {
			return fmt.Errorf("failed to decode sub-model predictions: %w", err)
		}
	}
	if len(weightsJSON) > 0 {
		if err := json.Unmarshal(weightsJSON, &p.ModelWeights); err != nil {
			return fmt.Errorf("failed to decode model weights: %w", err)
		}
	}
	if len(reasoningJSON) > 0 {
		if err := json.Unmarshal(reasoningJSON, &p.Reasoning); err != nil {
			return fmt.Errorf("failed to decode reasoning: %w", err)
		}
	}
	return nil
}
