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
	"github.com/sharpline/sharpline-go/internal/models"
)

// defaultScanInterval is how often the scan runs when the configured
// interval is missing or unparseable.
const defaultScanInterval = 2 * time.Minute

// defaultMaxQuoteAge bounds how stale a book's latest snapshot may be
// and still price into an opportunity. Lines on closed books drift away
// from the market, so pairing against them manufactures phantom edges.
const defaultMaxQuoteAge = 10 * time.Minute

// ScanGameStore lists the games a scan cycle covers.
type ScanGameStore interface {
	ListUpcoming(ctx context.Context, sport models.Sport, now time.Time) ([]models.Game, error)
}

// ScanSnapshotStore supplies the freshest quote per bookmaker.
type ScanSnapshotStore interface {
	LatestPerBook(ctx context.Context, gameID string) ([]models.OddsSnapshot, error)
}

// ScanOpportunityStore persists scan output. Each cycle clears the
// scanned games' rows before inserting so the table always reflects the
// latest prices.
type ScanOpportunityStore interface {
	Insert(ctx context.Context, opp *models.Opportunity) error
	DeleteForGames(ctx context.Context, gameIDs []string) (int64, error)
}

// OpportunityNotifier receives qualifying opportunities after a scan.
// The notification service implements it; a nil notifier disables the
// push without touching the scan.
type OpportunityNotifier interface {
	NotifyOpportunities(ctx context.Context, opportunities []models.Opportunity) error
}

var _ ScanGameStore = (*database.GameRepository)(nil)
var _ ScanSnapshotStore = (*database.SnapshotRepository)(nil)
var _ ScanOpportunityStore = (*database.OpportunityRepository)(nil)
var _ OpportunityNotifier = (*NotificationService)(nil)

// OpportunityScanService periodically sweeps upcoming games for
// cross-book arbitrage and middle opportunities and stores what it
// finds. Results are recomputed from scratch every cycle; nothing is
// updated in place.
type OpportunityScanService struct {
	games         ScanGameStore
	snapshots     ScanSnapshotStore
	opportunities ScanOpportunityStore
	calculator    *OpportunityCalculator
	notifier      OpportunityNotifier
	sports        []models.Sport
	scanInterval  time.Duration
	maxQuoteAge   time.Duration
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
	mu            sync.RWMutex
	isRunning     bool
	logger        *logrus.Logger
	lastScan      time.Time
	lastFound     int
}

// NewOpportunityScanService creates a scan service over the given
// stores. Sports defaults to NFL when empty; interval and quote age
// fall back to workable defaults when unset or unparseable. The
// notifier may be nil.
func NewOpportunityScanService(games ScanGameStore, snapshots ScanSnapshotStore, opportunities ScanOpportunityStore, calculator *OpportunityCalculator, notifier OpportunityNotifier, cfg config.ArbitrageConfig, sports []string) *OpportunityScanService {
	ctx, cancel := context.WithCancel(context.Background())

	scanInterval := defaultScanInterval
	if parsed, err := time.ParseDuration(cfg.ScanInterval); err == nil && parsed > 0 {
		scanInterval = parsed
	}
	maxQuoteAge := defaultMaxQuoteAge
	if parsed, err := time.ParseDuration(cfg.MaxQuoteAge); err == nil && parsed > 0 {
		maxQuoteAge = parsed
	}

	scanSports := make([]models.Sport, 0, len(sports))
	for _, sport := range sports {
		scanSports = append(scanSports, models.Sport(sport))
	}
	if len(scanSports) == 0 {
		scanSports = []models.Sport{models.SportNFL}
	}

	return &OpportunityScanService{
		games:         games,
		snapshots:     snapshots,
		opportunities: opportunities,
		calculator:    calculator,
		notifier:      notifier,
		sports:        scanSports,
		scanInterval:  scanInterval,
		maxQuoteAge:   maxQuoteAge,
		ctx:           ctx,
		cancel:        cancel,
		logger:        logrus.New(),
	}
}

// Start begins the periodic opportunity scan.
func (s *OpportunityScanService) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("opportunity scan service is already running")
	}
	s.isRunning = true
	s.mu.Unlock()

	s.logger.WithFields(logrus.Fields{
		"scan_interval": s.scanInterval.String(),
		"max_quote_age": s.maxQuoteAge.String(),
		"sports":        len(s.sports),
	}).Info("Starting opportunity scan service")

	s.wg.Add(1)
	go s.scanLoop()

	return nil
}

// Stop gracefully shuts down the scan service.
func (s *OpportunityScanService) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	s.mu.Unlock()

	s.logger.Info("Stopping opportunity scan service")
	s.cancel()
	s.wg.Wait()
	s.logger.Info("Opportunity scan service stopped")
}

// IsRunning returns true if the scan loop is active.
func (s *OpportunityScanService) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetStatus returns whether the loop is running, when the last scan
// finished and how many opportunities it found.
func (s *OpportunityScanService) GetStatus() (bool, time.Time, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning, s.lastScan, s.lastFound
}

// scanLoop runs the periodic scan until the service is stopped.
func (s *OpportunityScanService) scanLoop() {
	defer s.wg.Done()

	if _, err := s.Scan(s.ctx); err != nil {
		s.logger.WithError(err).Error("Initial opportunity scan failed")
	}

	ticker := time.NewTicker(s.scanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Scan(s.ctx); err != nil {
				s.logger.WithError(err).Error("Opportunity scan failed")
			}
		}
	}
}

// Scan sweeps every configured sport once and returns how many
// opportunities it stored. The admin API calls this directly to force a
// scan outside the ticker.
//
// Parameters:
//
//	ctx: Context for cancellation.
//
// Returns:
//
//	int: Number of opportunities stored.
//	error: Error if loading games or storing results fails.
func (s *OpportunityScanService) Scan(ctx context.Context) (int, error) {
	startTime := time.Now()
	now := startTime.UTC()

	var gameIDs []string
	var found []models.Opportunity

	for _, sport := range s.sports {
		games, err := s.games.ListUpcoming(ctx, sport, now)
		if err != nil {
			return 0, fmt.Errorf("failed to list upcoming %s games: %w", sport, err)
		}

		for i := range games {
			game := games[i]
			gameIDs = append(gameIDs, game.ID)

			books, err := s.snapshots.LatestPerBook(ctx, game.ID)
			if err != nil {
				s.logger.WithError(err).WithField("game_id", game.ID).Error("Failed to load latest odds")
				continue
			}

			fresh := s.freshQuotes(books, now)
			if len(fresh) < 2 {
				continue
			}

			found = append(found, s.calculator.FindOpportunities(&game, fresh, decimal.Zero)...)
		}
	}

	if err := s.store(ctx, gameIDs, found); err != nil {
		return 0, err
	}

	s.notify(ctx, found)

	s.mu.Lock()
	s.lastScan = time.Now()
	s.lastFound = len(found)
	s.mu.Unlock()

	s.logger.WithFields(logrus.Fields{
		"duration_ms":         time.Since(startTime).Milliseconds(),
		"games_scanned":       len(gameIDs),
		"opportunities_found": len(found),
	}).Info("Opportunity scan completed")

	return len(found), nil
}

// notify forwards high confidence findings to the notifier, if one is
// wired. Push failures never fail the scan.
func (s *OpportunityScanService) notify(ctx context.Context, found []models.Opportunity) {
	if s.notifier == nil {
		return
	}

	var qualifying []models.Opportunity
	for i := range found {
		if found[i].Confidence == models.ConfidenceHigh {
			qualifying = append(qualifying, found[i])
		}
	}
	if len(qualifying) == 0 {
		return
	}

	if err := s.notifier.NotifyOpportunities(ctx, qualifying); err != nil {
		s.logger.WithError(err).Error("Failed to push opportunity notifications")
	}
}

// freshQuotes drops snapshots older than the configured quote age.
func (s *OpportunityScanService) freshQuotes(books []models.OddsSnapshot, now time.Time) []models.OddsSnapshot {
	var fresh []models.OddsSnapshot
	for _, book := range books {
		if now.Sub(book.SnapshotAt) > s.maxQuoteAge {
			continue
		}
		fresh = append(fresh, book)
	}
	return fresh
}

// store replaces the scanned games' opportunity rows with this cycle's
// findings.
func (s *OpportunityScanService) store(ctx context.Context, gameIDs []string, found []models.Opportunity) error {
	removed, err := s.opportunities.DeleteForGames(ctx, gameIDs)
	if err != nil {
		return fmt.Errorf("failed to clear stale opportunities: %w", err)
	}
	if removed > 0 {
		s.logger.WithField("removed", removed).Debug("Cleared stale opportunities")
	}

	for i := range found {
		if err := s.opportunities.Insert(ctx, &found[i]); err != nil {
			return fmt.Errorf("failed to store opportunity for game %s: %w", found[i].GameID, err)
		}
	}

	return nil
}
