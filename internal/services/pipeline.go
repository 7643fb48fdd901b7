package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/sharpline/sharpline-go/internal/config"
	"github.com/sharpline/sharpline-go/internal/database"
	"github.com/sharpline/sharpline-go/internal/logging"
	"github.com/sharpline/sharpline-go/internal/models"
	"github.com/sharpline/sharpline-go/internal/providers"
)

const (
	defaultCollectionInterval = 5 * time.Minute
	defaultSnapshotBatchSize  = 100
	defaultGradeDaysFrom      = 2
	recentFormWindow          = 5
)

// PipelineGameStore is the game persistence surface one collection cycle
// touches.
type PipelineGameStore interface {
	UpsertGame(ctx context.Context, game *models.Game) error
	GetGame(ctx context.Context, gameID string) (*models.Game, error)
	SaveResult(ctx context.Context, result *models.GameResult) error
	GetResult(ctx context.Context, gameID string) (*models.GameResult, error)
	RecentForm(ctx context.Context, sport models.Sport, team string, lastN int) (float64, error)
}

// PipelineSnapshotStore persists and reads back odds snapshots.
type PipelineSnapshotStore interface {
	InsertBatch(ctx context.Context, snapshots []models.OddsSnapshot) (int64, error)
	History(ctx context.Context, req models.OddsHistoryRequest) ([]models.OddsSnapshot, error)
	LatestPerBook(ctx context.Context, gameID string) ([]models.OddsSnapshot, error)
}

// PipelineAlertStore records movement alerts.
type PipelineAlertStore interface {
	Create(ctx context.Context, alert *models.LineMovementAlert) (bool, error)
}

// PipelinePredictionStore persists and grades ensemble predictions.
type PipelinePredictionStore interface {
	Upsert(ctx context.Context, prediction *models.EnsemblePrediction) error
	Get(ctx context.Context, gameID string) (*models.EnsemblePrediction, error)
	Grade(ctx context.Context, gameID string, correct bool) error
}

var _ PipelineGameStore = (*database.GameRepository)(nil)
var _ PipelineSnapshotStore = (*database.SnapshotRepository)(nil)
var _ PipelineAlertStore = (*database.AlertRepository)(nil)
var _ PipelinePredictionStore = (*database.PredictionRepository)(nil)

// BatchSummary reports what one sport's collection cycle accomplished.
// Per-item failures are collected in Errors; the cycle itself only fails
// when the odds feed is entirely unreachable.
type BatchSummary struct {
	Sport          models.Sport `json:"sport"`
	GamesProcessed int          `json:"games_processed"`
	SnapshotsSaved int          `json:"snapshots_saved"`
	AlertsCreated  int          `json:"alerts_created"`
	Predictions    int          `json:"predictions"`
	Errors         []string     `json:"errors,omitempty"`
	DurationMs     int64        `json:"duration_ms"`
}

// PipelineService runs the collection pipeline: fetch current odds,
// normalize them into snapshots, analyze line movement per game and
// refresh predictions for upcoming games. It runs each configured sport
// on a shared ticker and exposes RunCycle for the admin trigger.
//
// Provider calls go through a per-feed circuit breaker and the
// provider_fetch retry policy; per-game analysis fans out over a worker
// pool sized by the resource optimizer.
type PipelineService struct {
	games       PipelineGameStore
	snapshots   PipelineSnapshotStore
	alerts      PipelineAlertStore
	predictions PipelinePredictionStore

	odds       providers.OddsProvider
	scores     providers.ScoreProvider
	publicFeed providers.PublicBettingFeed

	normalizer *Normalizer
	analyzer   *MovementAnalyzer
	ensemble   *PredictionEnsemble
	calibrator *ConfidenceCalibrator
	ratings    *RatingService

	breakers  *CircuitBreakerManager
	recovery  *ErrorRecoveryManager
	optimizer *ResourceOptimizer

	cfg       *config.Config
	interval  time.Duration
	batchSize int

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.RWMutex
	isRunning bool
	lastRun   time.Time
	lastRuns  []BatchSummary

	logger *logrus.Logger
	events *logging.StandardLogger
}

// NewPipelineService wires a pipeline over the given stores, providers
// and analysis services. publicFeed may be nil; movement analysis then
// runs without reverse line movement classification. The movement
// analyzer, prediction ensemble and the resilience stack are built here
// from the config.
func NewPipelineService(
	games PipelineGameStore,
	snapshots PipelineSnapshotStore,
	alerts PipelineAlertStore,
	predictions PipelinePredictionStore,
	odds providers.OddsProvider,
	scores providers.ScoreProvider,
	publicFeed providers.PublicBettingFeed,
	normalizer *Normalizer,
	ratings *RatingService,
	calibrator *ConfidenceCalibrator,
	cfg *config.Config,
	events *logging.StandardLogger,
) (*PipelineService, error) {
	ensemble, err := NewPredictionEnsemble(cfg.Ensemble)
	if err != nil {
		return nil, fmt.Errorf("failed to build prediction ensemble: %w", err)
	}

	interval := defaultCollectionInterval
	if parsed, err := time.ParseDuration(cfg.Pipeline.CollectionInterval); err == nil && parsed > 0 {
		interval = parsed
	}
	batchSize := cfg.Pipeline.SnapshotBatchSize
	if batchSize <= 0 {
		batchSize = defaultSnapshotBatchSize
	}

	logger := logrus.New()
	if events == nil {
		events = logging.NewStandardLogger("info", "development")
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &PipelineService{
		games:       games,
		snapshots:   snapshots,
		alerts:      alerts,
		predictions: predictions,
		odds:        odds,
		scores:      scores,
		publicFeed:  publicFeed,
		normalizer:  normalizer,
		analyzer:    NewMovementAnalyzer(cfg.Movement),
		ensemble:    ensemble,
		calibrator:  calibrator,
		ratings:     ratings,
		breakers:    NewCircuitBreakerManager(logger),
		recovery:    NewErrorRecoveryManager(logger),
		optimizer:   NewResourceOptimizer(ResourceOptimizerConfig{}),
		cfg:         cfg,
		interval:    interval,
		batchSize:   batchSize,
		ctx:         ctx,
		cancel:      cancel,
		logger:      logger,
		events:      events,
	}, nil
}

// Start begins the periodic collection loop over the configured sports.
func (p *PipelineService) Start() error {
	p.mu.Lock()
	if p.isRunning {
		p.mu.Unlock()
		return fmt.Errorf("pipeline service is already running")
	}
	p.isRunning = true
	p.mu.Unlock()

	p.logger.WithFields(logrus.Fields{
		"interval": p.interval,
		"sports":   p.cfg.Providers.Sports,
	}).Info("Starting collection pipeline")

	p.wg.Add(1)
	go p.collectionLoop()
	return nil
}

// Stop halts the collection loop and waits for the current cycle to
// finish.
func (p *PipelineService) Stop() {
	p.mu.Lock()
	if !p.isRunning {
		p.mu.Unlock()
		return
	}
	p.isRunning = false
	p.mu.Unlock()

	p.cancel()
	p.wg.Wait()
	p.logger.Info("Collection pipeline stopped")
}

// IsRunning reports whether the collection loop is active.
func (p *PipelineService) IsRunning() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.isRunning
}

// GetStatus returns the running flag, the time of the last completed
// run and the per-sport summaries it produced.
func (p *PipelineService) GetStatus() (bool, time.Time, []BatchSummary) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	summaries := make([]BatchSummary, len(p.lastRuns))
	copy(summaries, p.lastRuns)
	return p.isRunning, p.lastRun, summaries
}

// ProviderStats returns circuit breaker statistics per upstream feed.
func (p *PipelineService) ProviderStats() map[string]CircuitBreakerStats {
	return p.breakers.GetAllStats()
}

func (p *PipelineService) collectionLoop() {
	defer p.wg.Done()

	p.runAll(p.ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.runAll(p.ctx)
		}
	}
}

// runAll runs one full cycle for every configured sport, grades any
// newly final games and feeds the cycle stats back into the resource
// optimizer.
func (p *PipelineService) runAll(ctx context.Context) {
	start := time.Now()
	summaries := make([]BatchSummary, 0, len(p.cfg.Providers.Sports))
	games, failures := 0, 0

	for _, sportKey := range p.cfg.Providers.Sports {
		sport := models.Sport(sportKey)
		summary, err := p.RunCycle(ctx, sport)
		if err != nil {
			failures++
			p.logger.WithError(err).WithField("sport", sport).Error("Collection cycle failed")
			continue
		}
		games += summary.GamesProcessed
		failures += len(summary.Errors)
		summaries = append(summaries, *summary)

		if _, err := p.GradeResults(ctx, sport, defaultGradeDaysFrom); err != nil {
			p.logger.WithError(err).WithField("sport", sport).Error("Result grading failed")
		}
	}

	if err := p.optimizer.UpdateSystemMetrics(ctx); err != nil {
		p.logger.WithError(err).Debug("System metrics refresh failed")
	}
	errorRate := 0.0
	if games > 0 {
		errorRate = float64(failures) / float64(games) * 100
	}
	p.optimizer.RecordCycle(games, errorRate, time.Since(start).Milliseconds())

	p.mu.Lock()
	p.lastRun = time.Now()
	p.lastRuns = summaries
	p.mu.Unlock()
}

// RunCycle collects, stores and analyzes one sport's current odds. Only
// a total provider failure returns an error; everything recoverable is
// reported per item in the summary's Errors.
func (p *PipelineService) RunCycle(ctx context.Context, sport models.Sport) (*BatchSummary, error) {
	start := time.Now()
	summary := &BatchSummary{Sport: sport}

	raw, fetchedAt, err := p.fetchOdds(ctx, sport)
	if err != nil {
		return nil, err
	}

	cycleGames := make([]*models.Game, 0, len(raw))
	var batch []models.OddsSnapshot
	for _, rawGame := range raw {
		normalized, err := p.normalizer.NormalizeGame(rawGame, fetchedAt)
		if err != nil {
			summary.Errors = append(summary.Errors, err.Error())
			continue
		}
		for _, dropErr := range normalized.Dropped {
			summary.Errors = append(summary.Errors, dropErr.Error())
		}
		if err := p.restoreGameContext(ctx, normalized.Game); err != nil {
			summary.Errors = append(summary.Errors, err.Error())
			continue
		}
		if err := p.games.UpsertGame(ctx, normalized.Game); err != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("failed to store game %s: %v", normalized.Game.ID, err))
			continue
		}
		cycleGames = append(cycleGames, normalized.Game)
		batch = append(batch, normalized.Snapshots...)
		summary.GamesProcessed++
	}

	summary.SnapshotsSaved = p.storeSnapshots(ctx, batch, summary)
	p.analyzeGames(ctx, cycleGames, summary)

	summary.DurationMs = time.Since(start).Milliseconds()
	p.events.LogPipelineRun(string(sport), summary.GamesProcessed, summary.SnapshotsSaved, summary.AlertsCreated, summary.DurationMs)
	return summary, nil
}

// fetchOdds pulls the sport's current quotes through the feed's circuit
// breaker and the provider_fetch retry policy.
func (p *PipelineService) fetchOdds(ctx context.Context, sport models.Sport) ([]providers.RawGameOdds, time.Time, error) {
	breaker := p.breakers.GetOrCreate(p.odds.Name(), CircuitBreakerConfig{})
	opts := providers.FetchOptions{
		SportKey:   string(sport),
		Regions:    p.cfg.Providers.Regions,
		Bookmakers: p.cfg.Providers.Bookmakers,
	}

	var raw []providers.RawGameOdds
	err := p.recovery.ExecuteWithRetry(ctx, "provider_fetch", func() error {
		return breaker.Execute(ctx, func(callCtx context.Context) error {
			fetched, fetchErr := p.odds.FetchOdds(callCtx, opts)
			if fetchErr != nil {
				return fetchErr
			}
			raw = fetched
			return nil
		})
	})
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to fetch %s odds: %w", sport, err)
	}
	return raw, time.Now().UTC(), nil
}

// restoreGameContext carries stored rest, weather and division fields
// onto a freshly normalized game. Odds payloads never carry those
// fields, so upserting without this would reset whatever the backfill
// recorded.
func (p *PipelineService) restoreGameContext(ctx context.Context, game *models.Game) error {
	existing, err := p.games.GetGame(ctx, game.ID)
	if err != nil {
		return fmt.Errorf("failed to load stored game %s: %w", game.ID, err)
	}
	if existing == nil {
		return nil
	}
	game.Division = existing.Division
	game.HomeRestDays = existing.HomeRestDays
	game.AwayRestDays = existing.AwayRestDays
	game.TemperatureF = existing.TemperatureF
	game.WindMph = existing.WindMph
	return nil
}

func (p *PipelineService) storeSnapshots(ctx context.Context, batch []models.OddsSnapshot, summary *BatchSummary) int {
	saved := 0
	for start := 0; start < len(batch); start += p.batchSize {
		end := start + p.batchSize
		if end > len(batch) {
			end = len(batch)
		}
		inserted, err := p.snapshots.InsertBatch(ctx, batch[start:end])
		if err != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("failed to store snapshot batch: %v", err))
			continue
		}
		saved += int(inserted)
	}
	return saved
}

// analyzeGames runs movement analysis and prediction refresh over the
// cycle's games, fanned out over a worker pool sized by the resource
// optimizer and capped by the configured per-cycle game concurrency.
func (p *PipelineService) analyzeGames(ctx context.Context, games []*models.Game, summary *BatchSummary) {
	if len(games) == 0 {
		return
	}

	workers := p.optimizer.GetOptimalConcurrency().MaxGameWorkers
	if p.cfg.Pipeline.MaxConcurrentGames > 0 && p.cfg.Pipeline.MaxConcurrentGames < workers {
		workers = p.cfg.Pipeline.MaxConcurrentGames
	}
	if workers < 1 {
		workers = 1
	}

	semaphore := make(chan struct{}, workers)
	var wg sync.WaitGroup
	var mu sync.Mutex

	now := time.Now().UTC()
	for _, game := range games {
		wg.Add(1)
		go func(game *models.Game) {
			defer wg.Done()

			select {
			case <-ctx.Done():
				return
			default:
			}

			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			created, errs := p.analyzeMovement(ctx, game)
			predicted := false
			if game.StartTime.After(now) {
				stored, err := p.predictGame(ctx, game)
				if err != nil {
					errs = append(errs, err)
				}
				predicted = stored
			}

			mu.Lock()
			summary.AlertsCreated += created
			if predicted {
				summary.Predictions++
			}
			for _, err := range errs {
				summary.Errors = append(summary.Errors, err.Error())
			}
			mu.Unlock()
		}(game)
	}
	wg.Wait()
}

// analyzeMovement evaluates each book's snapshot series for the game
// and stores the alerts it triggers. The created count excludes alerts
// already on file from an earlier cycle.
func (p *PipelineService) analyzeMovement(ctx context.Context, game *models.Game) (int, []error) {
	history, err := p.snapshots.History(ctx, models.OddsHistoryRequest{GameID: game.ID})
	if err != nil {
		return 0, []error{fmt.Errorf("failed to load history for game %s: %w", game.ID, err)}
	}

	perBook := make(map[string][]models.OddsSnapshot)
	for _, snapshot := range history {
		perBook[snapshot.Bookmaker] = append(perBook[snapshot.Bookmaker], snapshot)
	}

	public := p.publicSplit(ctx, game.ID)
	created := 0
	var errs []error
	for _, series := range perBook {
		alerts := p.analyzer.Analyze(game, series, public)
		for i := range alerts {
			fresh, err := p.alerts.Create(ctx, &alerts[i])
			if err != nil {
				errs = append(errs, fmt.Errorf("failed to store alert for game %s: %w", game.ID, err))
				continue
			}
			if fresh {
				created++
			}
		}
	}
	return created, errs
}

// publicSplit fetches the public betting percentages when a feed is
// wired. An error means the split is unknown; the movement analyzer
// then skips reverse line movement classification for the game.
func (p *PipelineService) publicSplit(ctx context.Context, gameID string) *models.PublicBettingSnapshot {
	if p.publicFeed == nil {
		return nil
	}
	raw, err := p.publicFeed.FetchPercentages(ctx, gameID)
	if err != nil {
		p.logger.WithError(err).WithField("game_id", gameID).Debug("Public betting split unavailable")
		return nil
	}
	return &models.PublicBettingSnapshot{
		GameID:         raw.GameID,
		Market:         models.MarketSpread,
		HomeBetPercent: raw.TicketPercentHome,
		AwayBetPercent: 100 - raw.TicketPercentHome,
		FetchedAt:      raw.FetchedAt,
	}
}

// predictGame refreshes the ensemble prediction for one upcoming game.
// The stored flag reports whether a prediction was written; a game with
// no usable model inputs is skipped without error.
func (p *PipelineService) predictGame(ctx context.Context, game *models.Game) (bool, error) {
	books, err := p.snapshots.LatestPerBook(ctx, game.ID)
	if err != nil {
		return false, fmt.Errorf("failed to load latest quotes for game %s: %w", game.ID, err)
	}

	features, err := p.buildFeatures(ctx, game, books)
	if err != nil {
		return false, err
	}

	prediction, err := p.ensemble.Predict(ctx, GameContext{Game: game, Features: features, Books: books})
	if err != nil {
		return false, fmt.Errorf("failed to predict game %s: %w", game.ID, err)
	}
	if err := p.calibrator.ApplyModifiers(ctx, prediction, game); err != nil {
		return false, fmt.Errorf("failed to calibrate prediction for game %s: %w", game.ID, err)
	}
	if err := p.predictions.Upsert(ctx, prediction); err != nil {
		return false, fmt.Errorf("failed to store prediction for game %s: %w", game.ID, err)
	}
	return true, nil
}

// buildFeatures assembles the model inputs for one game from team
// ratings, recent results and the current market consensus.
func (p *PipelineService) buildFeatures(ctx context.Context, game *models.Game, books []models.OddsSnapshot) (models.MLFeatures, error) {
	eloDiff, err := p.ratings.EloDiff(ctx, game.Sport, game.HomeTeam, game.AwayTeam)
	if err != nil {
		return models.MLFeatures{}, fmt.Errorf("failed to load ratings for game %s: %w", game.ID, err)
	}
	formHome, err := p.games.RecentForm(ctx, game.Sport, game.HomeTeam, recentFormWindow)
	if err != nil {
		return models.MLFeatures{}, fmt.Errorf("failed to load recent form for %s: %w", game.HomeTeam, err)
	}
	formAway, err := p.games.RecentForm(ctx, game.Sport, game.AwayTeam, recentFormWindow)
	if err != nil {
		return models.MLFeatures{}, fmt.Errorf("failed to load recent form for %s: %w", game.AwayTeam, err)
	}

	marketSpread, marketTotal := consensusLines(books)
	return models.MLFeatures{
		EloDiff:            eloDiff,
		RecentFormHome:     formHome,
		RecentFormAway:     formAway,
		MarketSpread:       marketSpread,
		MarketTotal:        marketTotal,
		HomeFieldAdvantage: p.cfg.Ensemble.HomeFieldPoints,
		RestDayDiff:        float64(game.HomeRestDays - game.AwayRestDays),
		WeatherImpact:      weatherImpact(game),
	}, nil
}

// GradeResults pulls recent final scores and settles everything hanging
// off each newly final game: the stored result, both teams' Elo ratings
// and the prediction grade, then refreshes the calibration table. The
// count reports newly recorded results; scores already on file are
// skipped.
func (p *PipelineService) GradeResults(ctx context.Context, sport models.Sport, daysFrom int) (int, error) {
	if daysFrom <= 0 {
		daysFrom = defaultGradeDaysFrom
	}

	breaker := p.breakers.GetOrCreate(p.scores.Name(), CircuitBreakerConfig{})
	var raw []providers.RawGameScore
	err := p.recovery.ExecuteWithRetry(ctx, "provider_fetch", func() error {
		return breaker.Execute(ctx, func(callCtx context.Context) error {
			fetched, fetchErr := p.scores.FetchScores(callCtx, string(sport), daysFrom)
			if fetchErr != nil {
				return fetchErr
			}
			raw = fetched
			return nil
		})
	})
	if err != nil {
		return 0, fmt.Errorf("failed to fetch %s scores: %w", sport, err)
	}

	now := time.Now().UTC()
	recorded := 0
	for _, score := range raw {
		result, err := p.normalizer.NormalizeScore(score, now)
		if err != nil {
			p.logger.WithError(err).WithField("game_id", score.ID).Warn("Dropping unusable final score")
			continue
		}
		if result == nil {
			continue
		}
		fresh, err := p.recordResult(ctx, result)
		if err != nil {
			p.logger.WithError(err).WithField("game_id", result.GameID).Error("Failed to settle game result")
			continue
		}
		if fresh {
			recorded++
		}
	}

	if recorded > 0 {
		if _, err := p.calibrator.Recalibrate(ctx, sport, now); err != nil {
			p.logger.WithError(err).WithField("sport", sport).Warn("Confidence recalibration failed")
		}
	}
	return recorded, nil
}

// recordResult stores a final score exactly once. A result already on
// file means ratings and grades were settled when it first arrived, so
// the settlement is skipped rather than replayed. Scores for games the
// pipeline never tracked are ignored.
func (p *PipelineService) recordResult(ctx context.Context, result *models.GameResult) (bool, error) {
	existing, err := p.games.GetResult(ctx, result.GameID)
	if err != nil {
		return false, fmt.Errorf("failed to check stored result for game %s: %w", result.GameID, err)
	}
	if existing != nil {
		return false, nil
	}

	game, err := p.games.GetGame(ctx, result.GameID)
	if err != nil {
		return false, fmt.Errorf("failed to load game %s: %w", result.GameID, err)
	}
	if game == nil {
		return false, nil
	}

	if err := p.games.SaveResult(ctx, result); err != nil {
		return false, fmt.Errorf("failed to store result for game %s: %w", result.GameID, err)
	}
	if err := p.ratings.ApplyResult(ctx, game, result); err != nil {
		return false, fmt.Errorf("failed to update ratings for game %s: %w", result.GameID, err)
	}

	prediction, err := p.predictions.Get(ctx, result.GameID)
	if err != nil {
		return false, fmt.Errorf("failed to load prediction for game %s: %w", result.GameID, err)
	}
	if prediction != nil {
		if err := p.predictions.Grade(ctx, result.GameID, prediction.FinalWinner == result.Winner()); err != nil {
			return false, fmt.Errorf("failed to grade prediction for game %s: %w", result.GameID, err)
		}
	}
	return true, nil
}

// consensusLines averages the quoted spread and total across the books
// carrying each market.
func consensusLines(books []models.OddsSnapshot) (float64, float64) {
	var spreadSum, totalSum decimal.Decimal
	var spreadBooks, totalBooks int
	for i := range books {
		if books[i].HasMarket(models.MarketSpread) {
			spreadSum = spreadSum.Add(books[i].SpreadHome)
			spreadBooks++
		}
		if books[i].HasMarket(models.MarketTotal) {
			totalSum = totalSum.Add(books[i].TotalLine)
			totalBooks++
		}
	}

	spread, total := 0.0, 0.0
	if spreadBooks > 0 {
		spread = spreadSum.Div(decimal.NewFromInt(int64(spreadBooks))).InexactFloat64()
	}
	if totalBooks > 0 {
		total = totalSum.Div(decimal.NewFromInt(int64(totalBooks))).InexactFloat64()
	}
	return spread, total
}

// weatherImpact estimates the scoring drag of the game's conditions in
// points. Wind past 10 mph and cold under 35F both pull totals down. A
// zero temperature means no weather reading was stored, not a frozen
// field, and adds nothing.
func weatherImpact(game *models.Game) float64 {
	impact := 0.0
	if game.WindMph > 10 {
		impact -= (game.WindMph - 10) * 0.25
	}
	if game.TemperatureF > 0 && game.TemperatureF < 35 {
		impact -= (35 - game.TemperatureF) * 0.1
	}
	return impact
}
