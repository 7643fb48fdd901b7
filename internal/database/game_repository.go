package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/sharpline/sharpline-go/internal/models"
)

// GameRepository handles database operations for games and final results.
type GameRepository struct {
	pool DatabasePool
}

// NewGameRepository creates a new game repository.
//
// Parameters:
//
//	pool: The database connection pool.
//
// Returns:
//
//	*GameRepository: The initialized repository.
func NewGameRepository(pool DatabasePool) *GameRepository {
	return &GameRepository{
		pool: pool,
	}
}

// UpsertGame inserts a game or refreshes its situational metadata.
//
// Parameters:
//
//	ctx: Context.
//	game: Game to persist.
//
// Returns:
//
//	error: Error if operation fails.
func (r *GameRepository) UpsertGame(ctx context.Context, game *models.Game) error {
	query := `
		INSERT INTO games (id, sport, home_team, away_team, start_time, division,
			home_rest_days, away_rest_days, temperature_f, wind_mph)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id)
		DO UPDATE SET
			start_time = EXCLUDED.start_time,
			division = EXCLUDED.division,
			home_rest_days = EXCLUDED.home_rest_days,
			away_rest_days = EXCLUDED.away_rest_days,
			temperature_f = EXCLUDED.temperature_f,
			wind_mph = EXCLUDED.wind_mph
	`

	_, err := r.pool.Exec(ctx, query,
		game.ID, game.Sport, game.HomeTeam, game.AwayTeam, game.StartTime,
		game.Division, game.HomeRestDays, game.AwayRestDays, game.TemperatureF, game.WindMph,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert game: %w", err)
	}

	return nil
}

// GetGame fetches one game by ID.
//
// Parameters:
//
//	ctx: Context.
//	gameID: Game identifier.
//
// Returns:
//
//	*models.Game: The game, or nil when not found.
//	error: Error if retrieval fails.
func (r *GameRepository) GetGame(ctx context.Context, gameID string) (*models.Game, error) {
	query := `
		SELECT id, sport, home_team, away_team, start_time, division,
			home_rest_days, away_rest_days, temperature_f, wind_mph, created_at
		FROM games
		WHERE id = $1
	`

	var game models.Game
	err := r.pool.QueryRow(ctx, query, gameID).Scan(
		&game.ID,
		&game.Sport,
		&game.HomeTeam,
		&game.AwayTeam,
		&game.StartTime,
		&game.Division,
		&game.HomeRestDays,
		&game.AwayRestDays,
		&game.TemperatureF,
		&game.WindMph,
		&game.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get game: %w", err)
	}

	return &game, nil
}

// ListUpcoming returns games for a sport that have not started yet,
// soonest first.
//
// Parameters:
//
//	ctx: Context.
//	sport: Sport key filter.
//	now: Reference time.
//
// Returns:
//
//	[]models.Game: Matching games.
//	error: Error if retrieval fails.
func (r *GameRepository) ListUpcoming(ctx context.Context, sport models.Sport, now time.Time) ([]models.Game, error) {
	query := `
		SELECT id, sport, home_team, away_team, start_time, division,
			home_rest_days, away_rest_days, temperature_f, wind_mph, created_at
		FROM games
		WHERE sport = $1 AND start_time > $2
		ORDER BY start_time ASC
	`

	rows, err := r.pool.Query(ctx, query, sport, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list upcoming games: %w", err)
	}
	defer rows.Close()

	var games []models.Game
	for rows.Next() {
		var game models.Game
		err := rows.Scan(
			&game.ID,
			&game.Sport,
			&game.HomeTeam,
			&game.AwayTeam,
			&game.StartTime,
			&game.Division,
			&game.HomeRestDays,
			&game.AwayRestDays,
			&game.TemperatureF,
			&game.WindMph,
			&game.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan game: %w", err)
		}
		games = append(games, game)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating games: %w", err)
	}

	return games, nil
}

// SaveResult records a completed game's final score. Replaying the same
// result is a no-op update.
//
// Parameters:
//
//	ctx: Context.
//	result: Final score to persist.
//
// Returns:
//
//	error: Error if operation fails.
func (r *GameRepository) SaveResult(ctx context.Context, result *models.GameResult) error {
	query := `
		INSERT INTO game_results (game_id, home_score, away_score, completed_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (game_id)
		DO UPDATE SET
			home_score = EXCLUDED.home_score,
			away_score = EXCLUDED.away_score,
			completed_at = EXCLUDED.completed_at
	`

	_, err := r.pool.Exec(ctx, query,
		result.GameID, result.HomeScore, result.AwayScore, result.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save game result: %w", err)
	}

	return nil
}

// GetResult fetches the final score for a game.
//
// Parameters:
//
//	ctx: Context.
//	gameID: Game identifier.
//
// Returns:
//
//	*models.GameResult: The result, or nil when the game has no result yet.
//	error: Error if retrieval fails.
func (r *GameRepository) GetResult(ctx context.Context, gameID string) (*models.GameResult, error) {
	query := `
		SELECT game_id, home_score, away_score, completed_at
		FROM game_results
		WHERE game_id = $1
	`

	var result models.GameResult
	err := r.pool.QueryRow(ctx, query, gameID).Scan(
		&result.GameID,
		&result.HomeScore,
		&result.AwayScore,
		&result.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get game result: %w", err)
	}

	return &result, nil
}

// RecentForm returns a team's win rate over its last N completed games,
// most recent first. Ties count as half a win. A team with no completed
// games reads as a neutral 0.5.
//
// Parameters:
//
//	ctx: Context.
//	sport: Sport key filter.
//	team: Canonical team name.
//	lastN: Number of most recent games to consider.
//
// Returns:
//
//	float64: Win rate in [0, 1].
//	error: Error if retrieval fails.
func (r *GameRepository) RecentForm(ctx context.Context, sport models.Sport, team string, lastN int) (float64, error) {
	query := `
		SELECT g.home_team, res.home_score, res.away_score
		FROM game_results res
		JOIN games g ON g.id = res.game_id
		WHERE g.sport = $1 AND (g.home_team = $2 OR g.away_team = $2)
		ORDER BY res.completed_at DESC
		LIMIT $3
	`

	rows, err := r.pool.Query(ctx, query, sport, team, lastN)
	if err != nil {
		return 0, fmt.Errorf("failed to query recent form: %w", err)
	}
	defer rows.Close()

	var games, score int
	for rows.Next() {
		var homeTeam string
		var homeScore, awayScore int
		if err := rows.Scan(&homeTeam, &homeScore, &awayScore); err != nil {
			return 0, fmt.Errorf("failed to scan recent form row: %w", err)
		}

		games++
		teamScore, oppScore := homeScore, awayScore
		if homeTeam != team {
			teamScore, oppScore = awayScore, homeScore
		}
		switch {
		case teamScore > oppScore:
			score += 2
		case teamScore == oppScore:
			score++
		}
	}

	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("error iterating recent form rows: %w", err)
	}

	if games == 0 {
		return 0.5, nil
	}
	return float64(score) / float64(2*games), nil
}

// DeleteGamesBefore removes games that started before the cutoff along
// with nothing else; dependent rows are covered by their own retention
// passes.
//
// Parameters:
//
//	ctx: Context.
//	cutoff: Oldest start time to keep.
//
// Returns:
//
//	int64: Number of games removed.
//	error: Error if cleanup fails.
func (r *GameRepository) DeleteGamesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM games WHERE start_time < $1`

	result, err := r.pool.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old games: %w", err)
	}

	return result.RowsAffected(), nil
}
