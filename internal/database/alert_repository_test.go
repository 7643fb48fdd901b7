package database

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sharpline/sharpline-go/internal/models"
)

var alertTestColumns = []string{
	"id", "game_id", "alert_type", "severity", "market", "bookmaker",
	"opening_line", "current_line", "movement", "movement_percent", "sharp_money",
	"reverse_line", "trend_direction", "fingerprint", "read", "created_at", "expires_at",
}

func testAlert(gameID string) *models.LineMovementAlert {
	now := time.Date(2026, 9, 8, 12, 0, 0, 0, time.UTC)
	return &models.LineMovementAlert{
		ID:              uuid.New(),
		GameID:          gameID,
		AlertType:       models.AlertSignificantMove,
		Severity:        models.SeverityHigh,
		Market:          models.MarketSpread,
		Bookmaker:       "pinnacle",
		OpeningLine:     decimal.NewFromFloat(-3.5),
		CurrentLine:     decimal.NewFromFloat(-7.0),
		Movement:        decimal.NewFromFloat(-3.5),
		MovementPercent: decimal.NewFromFloat(100),
		SharpMoney:      true,
		ReverseLine:     false,
		TrendDirection:  models.TrendTowardHome,
		Fingerprint:     "1f4d6f0a",
		CreatedAt:       now,
		ExpiresAt:       now.Add(48 * time.Hour),
	}
}

func addAlertRow(rows *pgxmock.Rows, a *models.LineMovementAlert) *pgxmock.Rows {
	return rows.AddRow(
		a.ID, a.GameID, a.AlertType, a.Severity, a.Market, a.Bookmaker,
		a.OpeningLine, a.CurrentLine, a.Movement, a.MovementPercent, a.SharpMoney,
		a.ReverseLine, a.TrendDirection, a.Fingerprint, a.Read, a.CreatedAt, a.ExpiresAt,
	)
}

func TestAlertRepository_Create(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	repo := NewAlertRepository(NewMockPoolAdapter(mockPool))
	alert := testAlert("game-1")

	mockPool.ExpectExec("INSERT INTO movement_alerts").
		WithArgs(alert.ID, alert.GameID, alert.AlertType, alert.Severity, alert.Market,
			alert.Bookmaker, alert.OpeningLine, alert.CurrentLine, alert.Movement,
			alert.MovementPercent, alert.SharpMoney, alert.ReverseLine, alert.TrendDirection,
			alert.Fingerprint, alert.ExpiresAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	created, err := repo.Create(context.Background(), alert)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestAlertRepository_Create_DuplicateFingerprint(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	repo := NewAlertRepository(NewMockPoolAdapter(mockPool))
	alert := testAlert("game-1")

	// The conflict clause swallows the duplicate; no row is written.
	mockPool.ExpectExec("INSERT INTO movement_alerts").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	created, err := repo.Create(context.Background(), alert)
	require.NoError(t, err)
	assert.False(t, created)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestAlertRepository_List_NoFilters(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	repo := NewAlertRepository(NewMockPoolAdapter(mockPool))

	rows := pgxmock.NewRows(alertTestColumns)
	addAlertRow(rows, testAlert("game-1"))
	addAlertRow(rows, testAlert("game-2"))

	mockPool.ExpectQuery("SELECT (.+) FROM movement_alerts").
		WillReturnRows(rows)

	alerts, err := repo.List(context.Background(), models.AlertListRequest{})
	require.NoError(t, err)
	require.Len(t, alerts, 2)
	assert.Equal(t, "game-1", alerts[0].GameID)
	assert.Equal(t, models.AlertSignificantMove, alerts[0].AlertType)
	assert.True(t, alerts[0].CurrentLine.Equal(decimal.NewFromFloat(-7.0)))
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestAlertRepository_List_AllFilters(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	repo := NewAlertRepository(NewMockPoolAdapter(mockPool))

	rows := pgxmock.NewRows(alertTestColumns)
	addAlertRow(rows, testAlert("game-1"))

	mockPool.ExpectQuery("SELECT (.+) FROM movement_alerts a JOIN games g").
		WithArgs("americanfootball_nfl", "high", 20).
		WillReturnRows(rows)

	alerts, err := repo.List(context.Background(), models.AlertListRequest{
		Sport:    "americanfootball_nfl",
		Severity: "high",
		Unread:   true,
		Limit:    20,
	})
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestAlertRepository_ListUnnotified(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	repo := NewAlertRepository(NewMockPoolAdapter(mockPool))
	now := time.Date(2026, 9, 8, 12, 0, 0, 0, time.UTC)

	rows := pgxmock.NewRows(alertTestColumns)
	addAlertRow(rows, testAlert("game-1"))

	mockPool.ExpectQuery("SELECT (.+) FROM movement_alerts").
		WithArgs([]string{"high", "critical"}, now).
		WillReturnRows(rows)

	alerts, err := repo.ListUnnotified(context.Background(), models.SeverityHigh, now)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.False(t, alerts[0].Read)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestAlertRepository_MarkRead(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	repo := NewAlertRepository(NewMockPoolAdapter(mockPool))
	id := uuid.New()

	mockPool.ExpectExec("UPDATE movement_alerts").
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err = repo.MarkRead(context.Background(), id)
	assert.NoError(t, err)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestAlertRepository_MarkRead_NotFound(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	repo := NewAlertRepository(NewMockPoolAdapter(mockPool))
	id := uuid.New()

	mockPool.ExpectExec("UPDATE movement_alerts").
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err = repo.MarkRead(context.Background(), id)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAlertNotFound)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestAlertRepository_DeleteExpired(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	repo := NewAlertRepository(NewMockPoolAdapter(mockPool))
	now := time.Date(2026, 9, 8, 12, 0, 0, 0, time.UTC)

	mockPool.ExpectExec("DELETE FROM movement_alerts").
		WithArgs(now).
		WillReturnResult(pgxmock.NewResult("DELETE", 7))

	removed, err := repo.DeleteExpired(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, int64(7), removed)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestSeverityAtLeast(t *testing.T) {
	assert.Equal(t, []string{"high", "critical"}, severityAtLeast(models.SeverityHigh))
	assert.Equal(t, []string{"critical"}, severityAtLeast(models.SeverityCritical))
	assert.Equal(t,
		[]string{"low", "medium", "high", "critical"},
		severityAtLeast(models.SeverityLow))
	// Unknown severities fall back to everything rather than filtering all alerts out.
	assert.Equal(t,
		[]string{"low", "medium", "high", "critical"},
		severityAtLeast(models.Severity("unknown")))
}
