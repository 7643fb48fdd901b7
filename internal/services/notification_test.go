package services

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sharpline/sharpline-go/internal/config"
	"github.com/sharpline/sharpline-go/internal/models"
)

func newTestNotificationService(alerts NotificationAlertStore, games NotificationGameStore) *NotificationService {
	ns := NewNotificationService(alerts, games, nil, config.TelegramConfig{ChatID: "12345"})
	ns.logger.SetOutput(io.Discard)
	return ns
}

func notifyTestAlert(gameID string, alertType models.AlertType) models.LineMovementAlert {
	return models.LineMovementAlert{
		ID:          uuid.New(),
		GameID:      gameID,
		AlertType:   alertType,
		Severity:    models.SeverityHigh,
		Market:      models.MarketSpread,
		Bookmaker:   "draftkings",
		OpeningLine: decimal.NewFromInt(-3),
		CurrentLine: decimal.NewFromInt(-6),
		Movement:    decimal.NewFromInt(-3),
		SharpMoney:  true,
		CreatedAt:   time.Now(),
		ExpiresAt:   time.Now().Add(24 * time.Hour),
	}
}

func notifyTestOpportunity(kind models.OpportunityKind) models.Opportunity {
	opp := models.Opportunity{
		ID:         uuid.New(),
		Kind:       kind,
		Sport:      models.SportNFL,
		Market:     models.MarketMoneyline,
		GameID:     "game-a",
		HomeTeam:   "Kansas City Chiefs",
		AwayTeam:   "Buffalo Bills",
		GameTime:   time.Now().Add(24 * time.Hour),
		Confidence: models.ConfidenceHigh,
		Leg1: models.OpportunityLeg{
			Bookmaker:    "betonline",
			Selection:    "Kansas City Chiefs",
			AmericanOdds: 110,
		},
		Leg2: models.OpportunityLeg{
			Bookmaker:    "pinnacle",
			Selection:    "Buffalo Bills",
			AmericanOdds: 105,
		},
		TotalStake: decimal.NewFromInt(100),
		MaxProfit:  decimal.NewFromFloat(4.65),
		ROIPercent: decimal.NewFromFloat(4.65),
		DetectedAt: time.Now(),
	}
	if kind == models.OpportunityMiddle {
		opp.Market = models.MarketSpread
		opp.MiddleRange = &models.MiddleRange{Min: 4, Max: 6}
	}
	return opp
}

func TestNewNotificationService(t *testing.T) {
	ns := NewNotificationService(nil, nil, nil, config.TelegramConfig{})
	assert.NotNil(t, ns)
	assert.Nil(t, ns.bot)
	assert.Equal(t, time.Minute, ns.pollInterval)
	assert.False(t, ns.IsRunning())

	ns = NewNotificationService(nil, nil, nil, config.TelegramConfig{PollInterval: "30s"})
	assert.Equal(t, 30*time.Second, ns.pollInterval)
}

func TestNotificationServiceIdleWithoutBot(t *testing.T) {
	ns := newTestNotificationService(nil, nil)

	// Start succeeds but never spins up the poll loop.
	require.NoError(t, ns.Start())
	assert.False(t, ns.IsRunning())

	running, lastPush := ns.GetStatus()
	assert.False(t, running)
	assert.True(t, lastPush.IsZero())

	ns.Stop()
}

func TestNotifyMovementAlertsNothingPending(t *testing.T) {
	alerts := new(MockNotificationAlertStore)
	ns := newTestNotificationService(alerts, nil)

	alerts.On("ListUnnotified", mock.Anything, models.SeverityHigh, mock.Anything).
		Return([]models.LineMovementAlert{}, nil)

	// No bot is configured, so reaching the send path would error. An
	// empty poll must return before it.
	notified, err := ns.NotifyMovementAlerts(context.Background())
	require.NoError(t, err)
	assert.Zero(t, notified)
}

func TestNotifyMovementAlertsWithoutBot(t *testing.T) {
	alerts := new(MockNotificationAlertStore)
	ns := newTestNotificationService(alerts, nil)

	alerts.On("ListUnnotified", mock.Anything, models.SeverityHigh, mock.Anything).
		Return([]models.LineMovementAlert{notifyTestAlert("game-a", models.AlertSteamMove)}, nil)

	_, err := ns.NotifyMovementAlerts(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bot not initialized")
	alerts.AssertNotCalled(t, "MarkRead", mock.Anything, mock.Anything)
}

func TestNotifyMovementAlertsListError(t *testing.T) {
	alerts := new(MockNotificationAlertStore)
	ns := newTestNotificationService(alerts, nil)

	alerts.On("ListUnnotified", mock.Anything, models.SeverityHigh, mock.Anything).
		Return(nil, errors.New("database unavailable"))

	_, err := ns.NotifyMovementAlerts(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unnotified")
}

func TestNotifyOpportunitiesEmptyIsNoop(t *testing.T) {
	ns := newTestNotificationService(nil, nil)
	require.NoError(t, ns.NotifyOpportunities(context.Background(), nil))
}

func TestNotifyOpportunitiesWithoutBot(t *testing.T) {
	ns := newTestNotificationService(nil, nil)

	err := ns.NotifyOpportunities(context.Background(),
		[]models.Opportunity{notifyTestOpportunity(models.OpportunityArbitrage)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bot not initialized")
}

func TestLookupMatchups(t *testing.T) {
	games := new(MockPipelineGameStore)
	ns := newTestNotificationService(nil, games)

	resolved := scanTestGame("game-a")
	games.On("GetGame", mock.Anything, "game-a").Return(&resolved, nil)
	games.On("GetGame", mock.Anything, "game-b").Return(nil, errors.New("connection reset"))

	alerts := []models.LineMovementAlert{
		notifyTestAlert("game-a", models.AlertSteamMove),
		notifyTestAlert("game-a", models.AlertSignificantMove),
		notifyTestAlert("game-b", models.AlertSteamMove),
	}

	matchups := ns.lookupMatchups(context.Background(), alerts)
	assert.Equal(t, map[string]string{"game-a": "Buffalo Bills @ Kansas City Chiefs"}, matchups)

	// The duplicate game ID is resolved once.
	games.AssertNumberOfCalls(t, "GetGame", 2)
}

func TestFormatAlertMessage(t *testing.T) {
	ns := newTestNotificationService(nil, nil)

	alerts := []models.LineMovementAlert{
		notifyTestAlert("game-a", models.AlertSteamMove),
		notifyTestAlert("game-b", models.AlertReverseLine),
		notifyTestAlert("game-c", models.AlertSignificantMove),
		notifyTestAlert("game-d", models.AlertSignificantMove),
	}
	alerts[1].ReverseLine = true
	matchups := map[string]string{"game-a": "Buffalo Bills @ Kansas City Chiefs"}

	message := ns.formatAlertMessage(alerts, matchups)

	assert.Contains(t, message, "🚨 *Sharp Line Movement*")
	assert.Contains(t, message, "Found 4 high severity moves")
	assert.Contains(t, message, "*1. Buffalo Bills @ Kansas City Chiefs*")
	// Unresolved games fall back to their raw ID.
	assert.Contains(t, message, "*2. game-b*")
	assert.Contains(t, message, "🔥 Steam move on spread")
	assert.Contains(t, message, "🔄 Moving against the public")
	assert.Contains(t, message, "`-3.0` → `-6.0`")
	assert.Contains(t, message, "💪 Sharp money pattern")
	assert.Contains(t, message, "...and 1 more alerts")
	assert.NotContains(t, message, "game-d")
}

func TestFormatAlertMessageEmpty(t *testing.T) {
	ns := newTestNotificationService(nil, nil)
	assert.Equal(t, "No line movement alerts.", ns.formatAlertMessage(nil, nil))
}

func TestFormatOpportunityMessage(t *testing.T) {
	ns := newTestNotificationService(nil, nil)

	message := ns.formatOpportunityMessage(
		[]models.Opportunity{notifyTestOpportunity(models.OpportunityArbitrage)})

	assert.Contains(t, message, "🚀 *Arbitrage Opportunities*")
	assert.Contains(t, message, "Found 1 profitable opportunities")
	assert.Contains(t, message, "*1. Buffalo Bills @ Kansas City Chiefs*")
	assert.Contains(t, message, "ROI: *4.65%*")
	assert.Contains(t, message, "📈 betonline: Kansas City Chiefs at `+110`")
	assert.Contains(t, message, "📉 pinnacle: Buffalo Bills at `+105`")
	assert.NotContains(t, message, "more opportunities")
	assert.NotContains(t, message, "Middle window")
}

func TestFormatOpportunityMessageMiddle(t *testing.T) {
	ns := newTestNotificationService(nil, nil)

	message := ns.formatOpportunityMessage(
		[]models.Opportunity{notifyTestOpportunity(models.OpportunityMiddle)})

	assert.Contains(t, message, "🎯 *Middle Opportunities*")
	assert.Contains(t, message, "Middle window: 4.0 to 6.0")
}

func TestFormatOpportunityMessageMixedTruncates(t *testing.T) {
	ns := newTestNotificationService(nil, nil)

	opps := []models.Opportunity{
		notifyTestOpportunity(models.OpportunityArbitrage),
		notifyTestOpportunity(models.OpportunityMiddle),
		notifyTestOpportunity(models.OpportunityArbitrage),
		notifyTestOpportunity(models.OpportunityArbitrage),
		notifyTestOpportunity(models.OpportunityArbitrage),
	}

	message := ns.formatOpportunityMessage(opps)

	assert.Contains(t, message, "🤖 *Betting Opportunities*")
	assert.Contains(t, message, "Found 5 profitable opportunities")
	assert.Contains(t, message, "...and 2 more opportunities")
}

func TestAlertTypeLabel(t *testing.T) {
	assert.Equal(t, "🔥 Steam move on", alertTypeLabel(models.AlertSteamMove))
	assert.Equal(t, "🔄 Reverse line move on", alertTypeLabel(models.AlertReverseLine))
	assert.Equal(t, "📈 Significant move on", alertTypeLabel(models.AlertSignificantMove))
}

func TestFormatAmericanOdds(t *testing.T) {
	assert.Equal(t, "+150", formatAmericanOdds(150))
	assert.Equal(t, "-110", formatAmericanOdds(-110))
}
