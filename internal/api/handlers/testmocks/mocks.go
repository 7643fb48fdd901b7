// Package testmocks provides testify mocks for the handler store and
// worker interfaces, shared between the handler and router tests.
package testmocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/sharpline/sharpline-go/internal/models"
	"github.com/sharpline/sharpline-go/internal/services"
	"github.com/sharpline/sharpline-go/pkg/oddsmath"
)

// MockOddsStore implements handlers.OddsStore for testing
type MockOddsStore struct {
	mock.Mock
}

func (m *MockOddsStore) LatestPerBook(ctx context.Context, gameID string) ([]models.OddsSnapshot, error) {
	args := m.Called(ctx, gameID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.OddsSnapshot), args.Error(1)
}

func (m *MockOddsStore) History(ctx context.Context, req models.OddsHistoryRequest) ([]models.OddsSnapshot, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.OddsSnapshot), args.Error(1)
}

// MockMovementStore implements handlers.MovementStore for testing
type MockMovementStore struct {
	mock.Mock
}

func (m *MockMovementStore) List(ctx context.Context, req models.AlertListRequest) ([]models.LineMovementAlert, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.LineMovementAlert), args.Error(1)
}

func (m *MockMovementStore) MarkRead(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockOpportunityStore implements handlers.OpportunityStore for testing
type MockOpportunityStore struct {
	mock.Mock
}

func (m *MockOpportunityStore) List(ctx context.Context, req models.OpportunityListRequest) ([]models.Opportunity, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Opportunity), args.Error(1)
}

// MockPredictionStore implements handlers.PredictionStore for testing
type MockPredictionStore struct {
	mock.Mock
}

func (m *MockPredictionStore) Get(ctx context.Context, gameID string) (*models.EnsemblePrediction, error) {
	args := m.Called(ctx, gameID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.EnsemblePrediction), args.Error(1)
}

// MockBetAdvisor implements handlers.BetAdvisor for testing
type MockBetAdvisor struct {
	mock.Mock
}

func (m *MockBetAdvisor) Kelly(req models.KellyRequest) (*oddsmath.KellyResult, error) {
	args := m.Called(req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*oddsmath.KellyResult), args.Error(1)
}

func (m *MockBetAdvisor) ExpectedValue(req models.EVRequest) (*oddsmath.EVResult, error) {
	args := m.Called(req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*oddsmath.EVResult), args.Error(1)
}

func (m *MockBetAdvisor) RecordBet(ctx context.Context, req models.RecordBetRequest) (*models.BetRecord, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BetRecord), args.Error(1)
}

func (m *MockBetAdvisor) SettleBet(ctx context.Context, id uuid.UUID, req models.SettleBetRequest) (*models.BetRecord, error) {
	args := m.Called(ctx, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BetRecord), args.Error(1)
}

func (m *MockBetAdvisor) ListBets(ctx context.Context, status models.BetStatus, limit int) ([]models.BetRecord, error) {
	args := m.Called(ctx, status, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.BetRecord), args.Error(1)
}

func (m *MockBetAdvisor) CLVReport(ctx context.Context) (*models.CLVSummary, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CLVSummary), args.Error(1)
}

// MockPipelineRunner implements handlers.PipelineRunner for testing
type MockPipelineRunner struct {
	mock.Mock
}

func (m *MockPipelineRunner) RunCycle(ctx context.Context, sport models.Sport) (*services.BatchSummary, error) {
	args := m.Called(ctx, sport)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.BatchSummary), args.Error(1)
}

func (m *MockPipelineRunner) GetStatus() (bool, time.Time, []services.BatchSummary) {
	args := m.Called()
	var summaries []services.BatchSummary
	if args.Get(2) != nil {
		summaries = args.Get(2).([]services.BatchSummary)
	}
	return args.Bool(0), args.Get(1).(time.Time), summaries
}

func (m *MockPipelineRunner) ProviderStats() map[string]services.CircuitBreakerStats {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(map[string]services.CircuitBreakerStats)
}

// MockCleanupRunner implements handlers.CleanupRunner for testing
type MockCleanupRunner struct {
	mock.Mock
}

func (m *MockCleanupRunner) RunCleanup(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCleanupRunner) PurgeGames(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCleanupRunner) GetStatus() (bool, time.Time, int64) {
	args := m.Called()
	return args.Bool(0), args.Get(1).(time.Time), args.Get(2).(int64)
}

// MockAlertNotifier implements handlers.AlertNotifier for testing
type MockAlertNotifier struct {
	mock.Mock
}

func (m *MockAlertNotifier) NotifyMovementAlerts(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockAlertNotifier) GetStatus() (bool, time.Time) {
	args := m.Called()
	return args.Bool(0), args.Get(1).(time.Time)
}
