package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sharpline/sharpline-go/internal/cache"
	"github.com/sharpline/sharpline-go/internal/database"
	"github.com/sharpline/sharpline-go/internal/models"
	"github.com/sharpline/sharpline-go/internal/telemetry"
)

// WarmingGameStore lists the games whose team names get seeded into the
// alias cache.
type WarmingGameStore interface {
	ListUpcoming(ctx context.Context, sport models.Sport, now time.Time) ([]models.Game, error)
}

var _ WarmingGameStore = (*database.GameRepository)(nil)

// CacheWarmingService seeds the team alias cache on application startup.
// After a restart the in-memory alias layer is empty, so the first
// pipeline cycle would miss on every lookup; seeding canonical names
// from stored games keeps the normalizer resolving from the start.
type CacheWarmingService struct {
	games  WarmingGameStore
	teams  cache.TeamCache
	sports []models.Sport
	logger *slog.Logger
}

// NewCacheWarmingService creates a warming service over the game store.
//
// Parameters:
//   games: Game listing store.
//   teams: Team alias cache to seed.
//   sports: Sport keys to warm.
//
// Returns:
//   *CacheWarmingService: Initialized service.
func NewCacheWarmingService(games WarmingGameStore, teams cache.TeamCache, sports []string) *CacheWarmingService {
	warmSports := make([]models.Sport, 0, len(sports))
	for _, sport := range sports {
		warmSports = append(warmSports, models.Sport(sport))
	}
	if len(warmSports) == 0 {
		warmSports = []models.Sport{models.SportNFL}
	}

	return &CacheWarmingService{
		games:  games,
		teams:  teams,
		sports: warmSports,
		logger: telemetry.Logger(),
	}
}

// WarmCache seeds team aliases for every configured sport. A sport that
// fails to warm is logged and skipped; startup never blocks on warming.
//
// Parameters:
//   ctx: Context.
//
// Returns:
//   error: Error when the service is missing its stores.
func (c *CacheWarmingService) WarmCache(ctx context.Context) error {
	if c.games == nil {
		return fmt.Errorf("game store is nil")
	}
	if c.teams == nil {
		return fmt.Errorf("team cache is nil")
	}

	c.logger.Info("Starting cache warming")
	start := time.Now()

	seeded := 0
	for _, sport := range c.sports {
		count, err := c.warmTeamAliases(ctx, sport)
		if err != nil {
			c.logger.Warn("Failed to warm team aliases", "sport", string(sport), "error", err)
			continue
		}
		seeded += count
	}

	c.logger.Info("Cache warming completed",
		"teams_seeded", seeded,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// warmTeamAliases registers each upcoming matchup's canonical names as
// their own aliases so exact provider spellings resolve without a miss.
func (c *CacheWarmingService) warmTeamAliases(ctx context.Context, sport models.Sport) (int, error) {
	games, err := c.games.ListUpcoming(ctx, sport, time.Now())
	if err != nil {
		return 0, err
	}

	count := 0
	for _, game := range games {
		for _, team := range []string{game.HomeTeam, game.AwayTeam} {
			if team == "" {
				continue
			}
			c.teams.AddAlias(team, team)
			count++
		}
	}

	c.logger.Info("Team alias cache warmed", "sport", string(sport), "teams", count)
	return count, nil
}
