package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/sharpline/sharpline-go/internal/database"
	"github.com/sharpline/sharpline-go/internal/models"
)

// Shared testify mocks for the storage interfaces the services consume.
// Kept in a regular file so every test in the package can reuse them.

// MockRatingStore implements RatingStore for testing within the services package
type MockRatingStore struct {
	mock.Mock
}

func (m *MockRatingStore) Get(ctx context.Context, sport models.Sport, team string) (*models.TeamRating, error) {
	args := m.Called(ctx, sport, team)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TeamRating), args.Error(1)
}

func (m *MockRatingStore) Upsert(ctx context.Context, rating *models.TeamRating) error {
	args := m.Called(ctx, rating)
	return args.Error(0)
}

func (m *MockRatingStore) ListBySport(ctx context.Context, sport models.Sport) ([]models.TeamRating, error) {
	args := m.Called(ctx, sport)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.TeamRating), args.Error(1)
}

// MockCalibrationStore implements CalibrationStore for testing within the services package
type MockCalibrationStore struct {
	mock.Mock
}

func (m *MockCalibrationStore) CalibrationSamples(ctx context.Context, sport models.Sport) ([]database.CalibrationSample, error) {
	args := m.Called(ctx, sport)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]database.CalibrationSample), args.Error(1)
}

func (m *MockCalibrationStore) UpsertModifier(ctx context.Context, modifier *models.ConfidenceModifier) error {
	args := m.Called(ctx, modifier)
	return args.Error(0)
}

func (m *MockCalibrationStore) ListModifiers(ctx context.Context) ([]models.ConfidenceModifier, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ConfidenceModifier), args.Error(1)
}

// MockBetStore implements BetStore for testing within the services package
type MockBetStore struct {
	mock.Mock
}

func (m *MockBetStore) Insert(ctx context.Context, bet *models.BetRecord) error {
	args := m.Called(ctx, bet)
	return args.Error(0)
}

func (m *MockBetStore) Get(ctx context.Context, id uuid.UUID) (*models.BetRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BetRecord), args.Error(1)
}

func (m *MockBetStore) List(ctx context.Context, status models.BetStatus, limit int) ([]models.BetRecord, error) {
	args := m.Called(ctx, status, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.BetRecord), args.Error(1)
}

func (m *MockBetStore) Settle(ctx context.Context, bet *models.BetRecord) error {
	args := m.Called(ctx, bet)
	return args.Error(0)
}

func (m *MockBetStore) CLVSummary(ctx context.Context) (*models.CLVSummary, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CLVSummary), args.Error(1)
}

// MockScanGameStore implements ScanGameStore for testing within the services package
type MockScanGameStore struct {
	mock.Mock
}

func (m *MockScanGameStore) ListUpcoming(ctx context.Context, sport models.Sport, now time.Time) ([]models.Game, error) {
	args := m.Called(ctx, sport, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Game), args.Error(1)
}

// MockScanSnapshotStore implements ScanSnapshotStore for testing within the services package
type MockScanSnapshotStore struct {
	mock.Mock
}

func (m *MockScanSnapshotStore) LatestPerBook(ctx context.Context, gameID string) ([]models.OddsSnapshot, error) {
	args := m.Called(ctx, gameID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.OddsSnapshot), args.Error(1)
}

// MockScanOpportunityStore implements ScanOpportunityStore for testing within the services package
type MockScanOpportunityStore struct {
	mock.Mock
}

func (m *MockScanOpportunityStore) Insert(ctx context.Context, opp *models.Opportunity) error {
	args := m.Called(ctx, opp)
	return args.Error(0)
}

func (m *MockScanOpportunityStore) DeleteForGames(ctx context.Context, gameIDs []string) (int64, error) {
	args := m.Called(ctx, gameIDs)
	return args.Get(0).(int64), args.Error(1)
}

// MockPipelineGameStore implements PipelineGameStore for testing within the services package
type MockPipelineGameStore struct {
	mock.Mock
}

func (m *MockPipelineGameStore) UpsertGame(ctx context.Context, game *models.Game) error {
	args := m.Called(ctx, game)
	return args.Error(0)
}

func (m *MockPipelineGameStore) GetGame(ctx context.Context, gameID string) (*models.Game, error) {
	args := m.Called(ctx, gameID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Game), args.Error(1)
}

func (m *MockPipelineGameStore) SaveResult(ctx context.Context, result *models.GameResult) error {
	args := m.Called(ctx, result)
	return args.Error(0)
}

func (m *MockPipelineGameStore) GetResult(ctx context.Context, gameID string) (*models.GameResult, error) {
	args := m.Called(ctx, gameID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.GameResult), args.Error(1)
}

func (m *MockPipelineGameStore) RecentForm(ctx context.Context, sport models.Sport, team string, lastN int) (float64, error) {
	args := m.Called(ctx, sport, team, lastN)
	return args.Get(0).(float64), args.Error(1)
}

// MockPipelineSnapshotStore implements PipelineSnapshotStore for testing within the services package
type MockPipelineSnapshotStore struct {
	mock.Mock
}

func (m *MockPipelineSnapshotStore) InsertBatch(ctx context.Context, snapshots []models.OddsSnapshot) (int64, error) {
	args := m.Called(ctx, snapshots)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockPipelineSnapshotStore) History(ctx context.Context, req models.OddsHistoryRequest) ([]models.OddsSnapshot, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.OddsSnapshot), args.Error(1)
}

func (m *MockPipelineSnapshotStore) LatestPerBook(ctx context.Context, gameID string) ([]models.OddsSnapshot, error) {
	args := m.Called(ctx, gameID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.OddsSnapshot), args.Error(1)
}

// MockPipelineAlertStore implements PipelineAlertStore for testing within the services package
type MockPipelineAlertStore struct {
	mock.Mock
}

func (m *MockPipelineAlertStore) Create(ctx context.Context, alert *models.LineMovementAlert) (bool, error) {
	args := m.Called(ctx, alert)
	return args.Bool(0), args.Error(1)
}

// MockPipelinePredictionStore implements PipelinePredictionStore for testing within the services package
type MockPipelinePredictionStore struct {
	mock.Mock
}

func (m *MockPipelinePredictionStore) Upsert(ctx context.Context, prediction *models.EnsemblePrediction) error {
	args := m.Called(ctx, prediction)
	return args.Error(0)
}

func (m *MockPipelinePredictionStore) Get(ctx context.Context, gameID string) (*models.EnsemblePrediction, error) {
	args := m.Called(ctx, gameID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.EnsemblePrediction), args.Error(1)
}

func (m *MockPipelinePredictionStore) Grade(ctx context.Context, gameID string, correct bool) error {
	args := m.Called(ctx, gameID, correct)
	return args.Error(0)
}

// MockNotificationAlertStore implements NotificationAlertStore for testing within the services package
type MockNotificationAlertStore struct {
	mock.Mock
}

func (m *MockNotificationAlertStore) ListUnnotified(ctx context.Context, minSeverity models.Severity, now time.Time) ([]models.LineMovementAlert, error) {
	args := m.Called(ctx, minSeverity, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.LineMovementAlert), args.Error(1)
}

func (m *MockNotificationAlertStore) MarkRead(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockOpportunityNotifier implements OpportunityNotifier for testing within the services package
type MockOpportunityNotifier struct {
	mock.Mock
}

func (m *MockOpportunityNotifier) NotifyOpportunities(ctx context.Context, opportunities []models.Opportunity) error {
	args := m.Called(ctx, opportunities)
	return args.Error(0)
}

// MockCleanupSnapshotStore implements CleanupSnapshotStore for testing within the services package
type MockCleanupSnapshotStore struct {
	mock.Mock
}

func (m *MockCleanupSnapshotStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

// MockCleanupAlertStore implements CleanupAlertStore for testing within the services package
type MockCleanupAlertStore struct {
	mock.Mock
}

func (m *MockCleanupAlertStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

// MockCleanupOpportunityStore implements CleanupOpportunityStore for testing within the services package
type MockCleanupOpportunityStore struct {
	mock.Mock
}

func (m *MockCleanupOpportunityStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

// MockCleanupGameStore implements CleanupGameStore for testing within the services package
type MockCleanupGameStore struct {
	mock.Mock
}

func (m *MockCleanupGameStore) DeleteGamesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

// MockExportAlertStore implements ExportAlertStore for testing within the services package
type MockExportAlertStore struct {
	mock.Mock
}

func (m *MockExportAlertStore) List(ctx context.Context, req models.AlertListRequest) ([]models.LineMovementAlert, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.LineMovementAlert), args.Error(1)
}
