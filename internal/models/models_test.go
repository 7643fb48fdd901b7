package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGame_IsNightGame(t *testing.T) {
	tests := []struct {
		name  string
		hour  int
		night bool
	}{
		{"afternoon kickoff", 13, false},
		{"early evening", 18, false},
		{"prime time boundary", 19, true},
		{"late game", 22, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			game := Game{
				StartTime: time.Date(2025, 10, 12, tt.hour, 30, 0, 0, time.UTC),
			}
			assert.Equal(t, tt.night, game.IsNightGame())
		})
	}
}

func TestGame_RestDayDiff(t *testing.T) {
	game := Game{HomeRestDays: 7, AwayRestDays: 4}
	assert.Equal(t, 3, game.RestDayDiff())

	game = Game{HomeRestDays: 4, AwayRestDays: 10}
	assert.Equal(t, 6, game.RestDayDiff())
}

func TestGame_HasBadWeather(t *testing.T) {
	tests := []struct {
		name string
		temp float64
		wind float64
		bad  bool
	}{
		{"mild", 65, 8, false},
		{"freezing", 28, 5, true},
		{"windy", 55, 25, true},
		{"boundary temp", 35, 10, false},
		{"boundary wind", 50, 20, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			game := Game{TemperatureF: tt.temp, WindMph: tt.wind}
			assert.Equal(t, tt.bad, game.HasBadWeather())
		})
	}
}

func TestGameResult_Winner(t *testing.T) {
	result := GameResult{HomeScore: 27, AwayScore: 24}
	assert.Equal(t, WinnerHome, result.Winner())
	assert.Equal(t, 51, result.TotalPoints())

	result = GameResult{HomeScore: 17, AwayScore: 31}
	assert.Equal(t, WinnerAway, result.Winner())

	result = GameResult{HomeScore: 20, AwayScore: 20}
	assert.Equal(t, "tie", result.Winner())
}

func TestOddsSnapshot_Validate(t *testing.T) {
	snapshot := OddsSnapshot{
		ID:             uuid.New(),
		GameID:         "nfl-2025-week6-kc-buf",
		Bookmaker:      "draftkings",
		SnapshotAt:     time.Now(),
		SpreadHome:     decimal.NewFromFloat(-2.5),
		SpreadHomeOdds: -110,
		SpreadAwayOdds: -110,
		MoneylineHome:  -135,
		MoneylineAway:  115,
	}
	require.NoError(t, snapshot.Validate())

	missing := snapshot
	missing.GameID = ""
	assert.Error(t, missing.Validate())

	missing = snapshot
	missing.Bookmaker = ""
	assert.Error(t, missing.Validate())

	missing = snapshot
	missing.SnapshotAt = time.Time{}
	assert.Error(t, missing.Validate())
}

func TestOddsSnapshot_HasMarket(t *testing.T) {
	snapshot := OddsSnapshot{
		SpreadHome:     decimal.NewFromFloat(-3.5),
		SpreadHomeOdds: -110,
		SpreadAwayOdds: -110,
		MoneylineHome:  -180,
		MoneylineAway:  155,
	}

	assert.True(t, snapshot.HasMarket(MarketSpread))
	assert.True(t, snapshot.HasMarket(MarketMoneyline))
	assert.False(t, snapshot.HasMarket(MarketTotal))
}

func TestOddsSnapshot_SideOdds(t *testing.T) {
	snapshot := OddsSnapshot{
		SpreadHomeOdds: -112,
		SpreadAwayOdds: -108,
		TotalLine:      decimal.NewFromFloat(47.5),
		OverOdds:       -105,
		UnderOdds:      -115,
		MoneylineHome:  -140,
		MoneylineAway:  120,
	}

	home, away := snapshot.SideOdds(MarketSpread)
	assert.Equal(t, -112, home)
	assert.Equal(t, -108, away)

	over, under := snapshot.SideOdds(MarketTotal)
	assert.Equal(t, -105, over)
	assert.Equal(t, -115, under)

	ml1, ml2 := snapshot.SideOdds(MarketMoneyline)
	assert.Equal(t, -140, ml1)
	assert.Equal(t, 120, ml2)
}

func TestLineMovementAlert_Validate(t *testing.T) {
	alert := LineMovementAlert{
		ID:          uuid.New(),
		GameID:      "nfl-2025-week6-kc-buf",
		AlertType:   AlertSignificantMove,
		Severity:    SeverityHigh,
		Market:      MarketSpread,
		Bookmaker:   "fanduel",
		OpeningLine: decimal.NewFromFloat(-3.5),
		CurrentLine: decimal.NewFromFloat(-6.5),
		Movement:    decimal.NewFromFloat(-3.0),
		Fingerprint: "1f0e2d3c",
		CreatedAt:   time.Now(),
	}
	require.NoError(t, alert.Validate())

	bad := alert
	bad.AlertType = "line_wiggle"
	assert.Error(t, bad.Validate())

	bad = alert
	bad.Severity = "extreme"
	assert.Error(t, bad.Validate())

	bad = alert
	bad.Fingerprint = ""
	assert.Error(t, bad.Validate())
}

func TestLineMovementAlert_IsExpired(t *testing.T) {
	now := time.Now()
	expires := now.Add(-time.Minute)
	alert := LineMovementAlert{ExpiresAt: expires}
	assert.True(t, alert.IsExpired(now))

	future := now.Add(time.Hour)
	alert.ExpiresAt = future
	assert.False(t, alert.IsExpired(now))

	alert.ExpiresAt = time.Time{}
	assert.False(t, alert.IsExpired(now))
}

func TestPublicBettingSnapshot_MajoritySide(t *testing.T) {
	split := PublicBettingSnapshot{HomeBetPercent: 72, AwayBetPercent: 28}
	assert.Equal(t, WinnerHome, split.MajoritySide())

	split = PublicBettingSnapshot{HomeBetPercent: 31, AwayBetPercent: 69}
	assert.Equal(t, WinnerAway, split.MajoritySide())

	split = PublicBettingSnapshot{HomeBetPercent: 50, AwayBetPercent: 50}
	assert.Equal(t, "", split.MajoritySide())
}

func TestOpportunity_Validate(t *testing.T) {
	arb := Opportunity{
		ID:       uuid.New(),
		Kind:     OpportunityArbitrage,
		Sport:    SportNFL,
		Market:   MarketMoneyline,
		GameID:   "nfl-2025-week6-kc-buf",
		HomeTeam: "Buffalo Bills",
		AwayTeam: "Kansas City Chiefs",
		Leg1: OpportunityLeg{
			Bookmaker:    "draftkings",
			Selection:    "Buffalo Bills",
			AmericanOdds: 120,
			DecimalOdds:  2.2,
			Stake:        decimal.NewFromFloat(476.19),
		},
		Leg2: OpportunityLeg{
			Bookmaker:    "fanduel",
			Selection:    "Kansas City Chiefs",
			AmericanOdds: -105,
			DecimalOdds:  1.952,
			Stake:        decimal.NewFromFloat(523.81),
		},
		TotalStake: decimal.NewFromFloat(1000),
		Confidence: ConfidenceHigh,
		DetectedAt: time.Now(),
	}
	require.NoError(t, arb.Validate())
	assert.False(t, arb.IsMiddle())

	bad := arb
	bad.Kind = "hedge"
	assert.Error(t, bad.Validate())

	bad = arb
	bad.Leg2.Bookmaker = ""
	assert.Error(t, bad.Validate())
}

func TestOpportunity_Validate_Middle(t *testing.T) {
	prob := 0.18
	middle := Opportunity{
		ID:     uuid.New(),
		Kind:   OpportunityMiddle,
		Sport:  SportNFL,
		Market: MarketTotal,
		GameID: "nfl-2025-week6-kc-buf",
		Leg1:   OpportunityLeg{Bookmaker: "draftkings", Selection: "over 44.5", AmericanOdds: -110},
		Leg2:   OpportunityLeg{Bookmaker: "fanduel", Selection: "under 47.5", AmericanOdds: -110},
		MiddleRange: &MiddleRange{
			Min: 45,
			Max: 47,
		},
		MiddleProbability: &prob,
		DetectedAt:        time.Now(),
	}
	require.NoError(t, middle.Validate())
	assert.True(t, middle.IsMiddle())

	bad := middle
	bad.MiddleRange = nil
	assert.Error(t, bad.Validate())

	bad = middle
	bad.Market = MarketMoneyline
	assert.Error(t, bad.Validate())
}

func TestEnsemblePrediction_Validate(t *testing.T) {
	prediction := EnsemblePrediction{
		GameID:          "nfl-2025-week6-kc-buf",
		Sport:           SportNFL,
		FinalWinner:     WinnerHome,
		FinalConfidence: 71.5,
		FinalSpread:     -3.2,
		FinalTotal:      46.8,
		WinProbability:  0.64,
		ModelWeights:    map[string]float64{"market": 0.4, "elo": 0.25},
		PredictedAt:     time.Now(),
	}
	require.NoError(t, prediction.Validate())

	bad := prediction
	bad.GameID = ""
	assert.Error(t, bad.Validate())

	bad = prediction
	bad.FinalWinner = "visitors"
	assert.Error(t, bad.Validate())

	bad = prediction
	bad.FinalConfidence = 104
	assert.Error(t, bad.Validate())
}

func TestBetRecord_Validate(t *testing.T) {
	bet := BetRecord{
		ID:           uuid.New(),
		GameID:       "nfl-2025-week6-kc-buf",
		Sport:        SportNFL,
		Market:       MarketSpread,
		Selection:    "Buffalo Bills -2.5",
		Bookmaker:    "draftkings",
		AmericanOdds: -110,
		Line:         decimal.NewFromFloat(-2.5),
		Stake:        decimal.NewFromFloat(110),
		Status:       BetPending,
		PlacedAt:     time.Now(),
	}
	require.NoError(t, bet.Validate())
	assert.False(t, bet.IsSettled())

	bad := bet
	bad.Stake = decimal.Zero
	assert.Error(t, bad.Validate())

	bad = bet
	bad.Market = "parlay"
	assert.Error(t, bad.Validate())

	bad = bet
	bad.AmericanOdds = 0
	assert.Error(t, bad.Validate())

	settled := bet
	settled.Status = BetWon
	assert.True(t, settled.IsSettled())
}

func TestOddsSnapshot_JSONRoundTrip(t *testing.T) {
	snapshot := OddsSnapshot{
		ID:             uuid.New(),
		GameID:         "nfl-2025-week6-kc-buf",
		Bookmaker:      "betmgm",
		SnapshotAt:     time.Date(2025, 10, 12, 17, 0, 0, 0, time.UTC),
		SpreadHome:     decimal.NewFromFloat(-2.5),
		SpreadHomeOdds: -110,
		SpreadAwayOdds: -110,
		TotalLine:      decimal.NewFromFloat(47.5),
		OverOdds:       -108,
		UnderOdds:      -112,
		MoneylineHome:  -135,
		MoneylineAway:  115,
	}

	data, err := json.Marshal(snapshot)
	require.NoError(t, err)

	var decoded OddsSnapshot
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, snapshot.GameID, decoded.GameID)
	assert.Equal(t, snapshot.Bookmaker, decoded.Bookmaker)
	assert.True(t, snapshot.SpreadHome.Equal(decoded.SpreadHome))
	assert.Equal(t, snapshot.MoneylineAway, decoded.MoneylineAway)
}
