package services

import (
	"context"
	"math"

	"github.com/sharpline/sharpline-go/internal/config"
	"github.com/sharpline/sharpline-go/internal/database"
	"github.com/sharpline/sharpline-go/internal/models"
	"github.com/sharpline/sharpline-go/internal/utils"
)

// defaultEloRating is the baseline every unseen team starts from.
const defaultEloRating = 1500.0

const defaultEloKFactor = 20.0

// RatingStore is the persistence surface the rating service needs.
type RatingStore interface {
	Get(ctx context.Context, sport models.Sport, team string) (*models.TeamRating, error)
	Upsert(ctx context.Context, rating *models.TeamRating) error
	ListBySport(ctx context.Context, sport models.Sport) ([]models.TeamRating, error)
}

var _ RatingStore = (*database.RatingRepository)(nil)

// RatingService maintains per-team Elo ratings from final scores and
// serves the rating gap the prediction ensemble feeds on.
type RatingService struct {
	store   RatingStore
	kFactor float64
}

// NewRatingService creates a rating service with the configured
// K-factor.
func NewRatingService(store RatingStore, cfg config.EnsembleConfig) *RatingService {
	k := cfg.EloKFactor
	if k <= 0 {
		k = defaultEloKFactor
	}
	return &RatingService{store: store, kFactor: k}
}

// TeamRating returns the stored rating, or the 1500 baseline for a team
// with no games on record.
func (s *RatingService) TeamRating(ctx context.Context, sport models.Sport, team string) (models.TeamRating, error) {
	rating, err := s.store.Get(ctx, sport, team)
	if err != nil {
		return models.TeamRating{}, err
	}
	if rating == nil {
		return models.TeamRating{Team: team, Sport: sport, Rating: defaultEloRating}, nil
	}
	return *rating, nil
}

// EloDiff returns home rating minus away rating.
func (s *RatingService) EloDiff(ctx context.Context, sport models.Sport, homeTeam, awayTeam string) (float64, error) {
	home, err := s.TeamRating(ctx, sport, homeTeam)
	if err != nil {
		return 0, err
	}
	away, err := s.TeamRating(ctx, sport, awayTeam)
	if err != nil {
		return 0, err
	}
	return home.Rating - away.Rating, nil
}

// ApplyResult folds a final score into both teams' ratings with the
// standard Elo update: the winner takes K scaled by how surprising the
// result was, the loser gives it up. Ties split the exchange.
func (s *RatingService) ApplyResult(ctx context.Context, game *models.Game, result *models.GameResult) error {
	if game == nil || result == nil {
		return utils.NewValidationError("rating update needs a game and its result")
	}

	home, err := s.TeamRating(ctx, game.Sport, game.HomeTeam)
	if err != nil {
		return err
	}
	away, err := s.TeamRating(ctx, game.Sport, game.AwayTeam)
	if err != nil {
		return err
	}

	expectedHome := 1 / (1 + math.Pow(10, (away.Rating-home.Rating)/400))
	var actualHome float64
	switch result.Winner() {
	case models.WinnerHome:
		actualHome = 1
	case models.WinnerAway:
		actualHome = 0
	default:
		actualHome = 0.5
	}

	delta := s.kFactor * (actualHome - expectedHome)
	home.Rating += delta
	home.Games++
	away.Rating -= delta
	away.Games++

	if err := s.store.Upsert(ctx, &home); err != nil {
		return err
	}
	return s.store.Upsert(ctx, &away)
}

// Leaderboard returns a sport's ratings, strongest first.
func (s *RatingService) Leaderboard(ctx context.Context, sport models.Sport) ([]models.TeamRating, error) {
	return s.store.ListBySport(ctx, sport)
}
