package providers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sharpline/sharpline-go/internal/config"
	"github.com/sharpline/sharpline-go/internal/logging"
	"github.com/sharpline/sharpline-go/internal/providers"
	"github.com/sharpline/sharpline-go/internal/utils"
)

func newTestLogger() *logging.StandardLogger {
	return logging.NewStandardLogger("error", "test")
}

func newTestClient(serverURL string) *providers.TheOddsAPIClient {
	cfg := &config.ProvidersConfig{
		OddsAPIBaseURL: serverURL,
		OddsAPIKey:     "test-key",
		Timeout:        "5s",
	}
	return providers.NewTheOddsAPIClient(cfg, newTestLogger())
}

func float64Ptr(v float64) *float64 {
	return &v
}

func TestNewTheOddsAPIClient_Defaults(t *testing.T) {
	client := providers.NewTheOddsAPIClient(&config.ProvidersConfig{}, newTestLogger())

	assert.NotNil(t, client)
	assert.NotNil(t, client.HTTPClient)
	assert.Equal(t, "https://api.the-odds-api.com", client.BaseURL())
	assert.Equal(t, "the-odds-api", client.Name())
	assert.Equal(t, int64(-1), client.RemainingRequests())
}

func TestTheOddsAPIClient_FetchOdds(t *testing.T) {
	payload := []providers.RawGameOdds{
		{
			ID:           "8577b03b5d8e0f8f1cd4f871dfd46a51",
			SportKey:     "americanfootball_nfl",
			SportTitle:   "NFL",
			CommenceTime: time.Date(2026, 1, 11, 18, 0, 0, 0, time.UTC),
			HomeTeam:     "Kansas City Chiefs",
			AwayTeam:     "Buffalo Bills",
			Bookmakers: []providers.RawBookmaker{
				{
					Key:   "draftkings",
					Title: "DraftKings",
					Markets: []providers.RawMarket{
						{
							Key: providers.MarketKeyH2H,
							Outcomes: []providers.RawOutcome{
								{Name: "Kansas City Chiefs", Price: -135},
								{Name: "Buffalo Bills", Price: 115},
							},
						},
						{
							Key: providers.MarketKeySpreads,
							Outcomes: []providers.RawOutcome{
								{Name: "Kansas City Chiefs", Price: -110, Point: float64Ptr(-2.5)},
								{Name: "Buffalo Bills", Price: -110, Point: float64Ptr(2.5)},
							},
						},
						{
							Key: providers.MarketKeyTotals,
							Outcomes: []providers.RawOutcome{
								{Name: "Over", Price: -105, Point: float64Ptr(47.5)},
								{Name: "Under", Price: -115, Point: float64Ptr(47.5)},
							},
						},
					},
				},
			},
		},
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v4/sports/americanfootball_nfl/odds", r.URL.Path)
		assert.Equal(t, "GET", r.Method)

		query := r.URL.Query()
		assert.Equal(t, "test-key", query.Get("apiKey"))
		assert.Equal(t, "american", query.Get("oddsFormat"))
		assert.Equal(t, "us", query.Get("regions"))
		assert.Equal(t, "h2h,spreads,totals", query.Get("markets"))
		assert.Equal(t, "pinnacle,draftkings", query.Get("bookmakers"))

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Requests-Remaining", "482")
		w.WriteHeader(http.StatusOK)
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			t.Errorf("Failed to encode response: %v", err)
		}
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	games, err := client.FetchOdds(context.Background(), providers.FetchOptions{
		SportKey:   "americanfootball_nfl",
		Regions:    []string{"us"},
		Markets:    []string{"h2h", "spreads", "totals"},
		Bookmakers: []string{"pinnacle", "draftkings"},
	})

	require.NoError(t, err)
	require.Len(t, games, 1)

	game := games[0]
	assert.Equal(t, "8577b03b5d8e0f8f1cd4f871dfd46a51", game.ID)
	assert.Equal(t, "Kansas City Chiefs", game.HomeTeam)
	assert.Equal(t, "Buffalo Bills", game.AwayTeam)
	require.Len(t, game.Bookmakers, 1)
	require.Len(t, game.Bookmakers[0].Markets, 3)

	spreads := game.Bookmakers[0].Markets[1]
	require.Len(t, spreads.Outcomes, 2)
	require.NotNil(t, spreads.Outcomes[0].Point)
	assert.Equal(t, -2.5, *spreads.Outcomes[0].Point)
	assert.Equal(t, float64(-110), spreads.Outcomes[0].Price)

	h2h := game.Bookmakers[0].Markets[0]
	assert.Nil(t, h2h.Outcomes[0].Point)

	assert.Equal(t, int64(482), client.RemainingRequests())
}

func TestTheOddsAPIClient_FetchOdds_MissingSportKey(t *testing.T) {
	client := newTestClient("http://localhost:1")

	_, err := client.FetchOdds(context.Background(), providers.FetchOptions{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "sport key is required")
}

func TestTheOddsAPIClient_FetchOdds_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"message": "Usage quota reached"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.FetchOdds(context.Background(), providers.FetchOptions{SportKey: "americanfootball_nfl"})

	require.Error(t, err)
	assert.True(t, utils.IsProviderRateLimited(err))

	var rateLimited *utils.ProviderRateLimitedError
	require.True(t, errors.As(err, &rateLimited))
	assert.Equal(t, "the-odds-api", rateLimited.Provider)
	assert.Equal(t, 30*time.Second, rateLimited.RetryAfter)
}

func TestTheOddsAPIClient_FetchOdds_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"message": "upstream maintenance"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.FetchOdds(context.Background(), providers.FetchOptions{SportKey: "americanfootball_nfl"})

	require.Error(t, err)
	assert.True(t, utils.IsProviderUnavailable(err))
	assert.Contains(t, err.Error(), "odds feed error (503)")
	assert.Contains(t, err.Error(), "upstream maintenance")
}

func TestTheOddsAPIClient_FetchOdds_BadRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message": "Unknown sport key"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.FetchOdds(context.Background(), providers.FetchOptions{SportKey: "curling_olympics"})

	require.Error(t, err)
	assert.False(t, utils.IsProviderRateLimited(err))
	assert.False(t, utils.IsProviderUnavailable(err))
	assert.Contains(t, err.Error(), "Unknown sport key")
}

func TestTheOddsAPIClient_FetchOdds_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := newTestClient(server.URL)

	_, err := client.FetchOdds(context.Background(), providers.FetchOptions{SportKey: "americanfootball_nfl"})

	require.Error(t, err)
	assert.True(t, utils.IsProviderUnavailable(err))
}

func TestTheOddsAPIClient_FetchOdds_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	cfg := &config.ProvidersConfig{
		OddsAPIBaseURL: server.URL,
		OddsAPIKey:     "test-key",
		Timeout:        "50ms",
	}
	client := providers.NewTheOddsAPIClient(cfg, newTestLogger())

	_, err := client.FetchOdds(context.Background(), providers.FetchOptions{SportKey: "americanfootball_nfl"})

	require.Error(t, err)
	assert.True(t, utils.IsProviderUnavailable(err))
}

func TestTheOddsAPIClient_FetchScores(t *testing.T) {
	lastUpdate := time.Date(2026, 1, 11, 22, 5, 0, 0, time.UTC)
	payload := []providers.RawGameScore{
		{
			ID:           "8577b03b5d8e0f8f1cd4f871dfd46a51",
			SportKey:     "americanfootball_nfl",
			CommenceTime: time.Date(2026, 1, 11, 18, 0, 0, 0, time.UTC),
			Completed:    true,
			HomeTeam:     "Kansas City Chiefs",
			AwayTeam:     "Buffalo Bills",
			Scores: []providers.RawTeamScore{
				{Name: "Kansas City Chiefs", Score: "27"},
				{Name: "Buffalo Bills", Score: "24"},
			},
			LastUpdate: &lastUpdate,
		},
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v4/sports/americanfootball_nfl/scores", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("daysFrom"))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			t.Errorf("Failed to encode response: %v", err)
		}
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	scores, err := client.FetchScores(context.Background(), "americanfootball_nfl", 2)

	require.NoError(t, err)
	require.Len(t, scores, 1)
	assert.True(t, scores[0].Completed)
	require.Len(t, scores[0].Scores, 2)
	assert.Equal(t, "27", scores[0].Scores[0].Score)
	require.NotNil(t, scores[0].LastUpdate)
	assert.Equal(t, lastUpdate, scores[0].LastUpdate.UTC())
}

func TestTheOddsAPIClient_ListSports(t *testing.T) {
	payload := []providers.SportInfo{
		{Key: "americanfootball_nfl", Group: "American Football", Title: "NFL", Active: true},
		{Key: "basketball_nba", Group: "Basketball", Title: "NBA", Active: true},
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v4/sports", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("apiKey"))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			t.Errorf("Failed to encode response: %v", err)
		}
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	sports, err := client.ListSports(context.Background())

	require.NoError(t, err)
	require.Len(t, sports, 2)
	assert.Equal(t, "americanfootball_nfl", sports[0].Key)
	assert.True(t, sports[1].Active)
}
