package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sharpline/sharpline-go/internal/cache"
	"github.com/sharpline/sharpline-go/internal/models"
)

func warmingTestGames() []models.Game {
	start := time.Now().Add(48 * time.Hour)
	return []models.Game{
		{
			ID:        "game-a",
			Sport:     models.SportNFL,
			HomeTeam:  "Kansas City Chiefs",
			AwayTeam:  "Buffalo Bills",
			StartTime: start,
		},
		{
			ID:        "game-b",
			Sport:     models.SportNFL,
			HomeTeam:  "Dallas Cowboys",
			AwayTeam:  "Philadelphia Eagles",
			StartTime: start.Add(3 * time.Hour),
		},
	}
}

func TestCacheWarmingService_WarmCache(t *testing.T) {
	games := new(MockScanGameStore)
	games.On("ListUpcoming", mock.Anything, models.SportNFL, mock.Anything).
		Return(warmingTestGames(), nil)

	teams := cache.NewMemoryTeamCache()
	svc := NewCacheWarmingService(games, teams, []string{string(models.SportNFL)})

	err := svc.WarmCache(context.Background())
	require.NoError(t, err)

	canonical, ok := teams.Resolve("Kansas City Chiefs")
	assert.True(t, ok)
	assert.Equal(t, "Kansas City Chiefs", canonical)

	// Normalization makes casing and whitespace variants hit too.
	canonical, ok = teams.Resolve("  kansas city chiefs ")
	assert.True(t, ok)
	assert.Equal(t, "Kansas City Chiefs", canonical)

	assert.Equal(t, int64(4), teams.GetStats().Adds)
	games.AssertExpectations(t)
}

func TestCacheWarmingService_WarmCache_SportFailureSkipped(t *testing.T) {
	games := new(MockScanGameStore)
	games.On("ListUpcoming", mock.Anything, models.SportNFL, mock.Anything).
		Return(nil, errors.New("db down"))
	games.On("ListUpcoming", mock.Anything, models.SportNBA, mock.Anything).
		Return([]models.Game{{
			ID:        "game-c",
			Sport:     models.SportNBA,
			HomeTeam:  "Boston Celtics",
			AwayTeam:  "Denver Nuggets",
			StartTime: time.Now().Add(24 * time.Hour),
		}}, nil)

	teams := cache.NewMemoryTeamCache()
	svc := NewCacheWarmingService(games, teams, []string{
		string(models.SportNFL),
		string(models.SportNBA),
	})

	// One sport failing to warm must not fail the whole pass.
	err := svc.WarmCache(context.Background())
	require.NoError(t, err)

	_, ok := teams.Resolve("Boston Celtics")
	assert.True(t, ok)
	games.AssertExpectations(t)
}

func TestCacheWarmingService_WarmCache_NilStores(t *testing.T) {
	svc := NewCacheWarmingService(nil, cache.NewMemoryTeamCache(), nil)
	assert.Error(t, svc.WarmCache(context.Background()))

	svc = NewCacheWarmingService(new(MockScanGameStore), nil, nil)
	assert.Error(t, svc.WarmCache(context.Background()))
}

func TestCacheWarmingService_DefaultsToNFL(t *testing.T) {
	games := new(MockScanGameStore)
	games.On("ListUpcoming", mock.Anything, models.SportNFL, mock.Anything).
		Return([]models.Game{}, nil)

	svc := NewCacheWarmingService(games, cache.NewMemoryTeamCache(), nil)
	require.NoError(t, svc.WarmCache(context.Background()))
	games.AssertExpectations(t)
}
