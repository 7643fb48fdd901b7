package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/sharpline/sharpline-go/internal/models"
)

// RatingRepository handles database operations for Elo team ratings.
type RatingRepository struct {
	pool DatabasePool
}

// NewRatingRepository creates a new rating repository.
func NewRatingRepository(pool DatabasePool) *RatingRepository {
	return &RatingRepository{
		pool: pool,
	}
}

// Get fetches the rating for one team, or nil when the team has no
// rating yet.
func (r *RatingRepository) Get(ctx context.Context, sport models.Sport, team string) (*models.TeamRating, error) {
	query := `
		SELECT team, sport, rating, games, updated_at
		FROM team_ratings
		WHERE sport = $1 AND team = $2
	`

	var rating models.TeamRating
	err := r.pool.QueryRow(ctx, query, sport, team).Scan(
		&rating.Team,
		&rating.Sport,
		&rating.Rating,
		&rating.Games,
		&rating.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get team rating: %w", err)
	}

	return &rating, nil
}

// Upsert stores a team's rating and played-game count.
func (r *RatingRepository) Upsert(ctx context.Context, rating *models.TeamRating) error {
	query := `
		INSERT INTO team_ratings (team, sport, rating, games, updated_at)
		VALUES ($1, $2, $3, $4, CURRENT_TIMESTAMP)
		ON CONFLICT (sport, team)
		DO UPDATE SET
			rating = EXCLUDED.rating,
			games = EXCLUDED.games,
			updated_at = CURRENT_TIMESTAMP
	`

	_, err := r.pool.Exec(ctx, query, rating.Team, rating.Sport, rating.Rating, rating.Games)
	if err != nil {
		return fmt.Errorf("failed to upsert team rating: %w", err)
	}

	return nil
}

// ListBySport returns all ratings for a sport, strongest first.
func (r *RatingRepository) ListBySport(ctx context.Context, sport models.Sport) ([]models.TeamRating, error) {
	query := `
		SELECT team, sport, rating, games, updated_at
		FROM team_ratings
		WHERE sport = $1
		ORDER BY rating DESC
	`

	rows, err := r.pool.Query(ctx, query, sport)
	if err != nil {
		return nil, fmt.Errorf("failed to list team ratings: %w", err)
	}
	defer rows.Close()

	var ratings []models.TeamRating
	for rows.Next() {
		var rating models.TeamRating
		err := rows.Scan(
			&rating.Team,
			&rating.Sport,
			&rating.Rating,
			&rating.Games,
			&rating.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan team rating: %w", err)
		}
		ratings = append(ratings, rating)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating team ratings: %w", err)
	}

	return ratings, nil
}
