package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sharpline/sharpline-go/internal/config"
	"github.com/sharpline/sharpline-go/internal/database"
)

// Retention fallbacks, used when the configured hours are zero or
// negative: thirty days of snapshots, a week of settled alerts, three
// days of opportunities, hourly sweeps.
const (
	defaultSnapshotRetention    = 720 * time.Hour
	defaultAlertRetention       = 168 * time.Hour
	defaultOpportunityRetention = 72 * time.Hour
	defaultCleanupInterval      = time.Hour
)

// CleanupSnapshotStore prunes aged snapshot rows.
type CleanupSnapshotStore interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// CleanupAlertStore prunes alerts that expired before a reference time.
type CleanupAlertStore interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// CleanupOpportunityStore prunes aged opportunity rows.
type CleanupOpportunityStore interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// CleanupGameStore prunes stale games for the admin deep clean.
type CleanupGameStore interface {
	DeleteGamesBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

var _ CleanupSnapshotStore = (*database.SnapshotRepository)(nil)
var _ CleanupAlertStore = (*database.AlertRepository)(nil)
var _ CleanupOpportunityStore = (*database.OpportunityRepository)(nil)
var _ CleanupGameStore = (*database.GameRepository)(nil)

// CleanupService sweeps the high volume tables on a ticker so the
// database holds a bounded window of history. Games stay out of the
// periodic cycle: their rows are cheap and recent form and rating
// history read them long after the odds tables are pruned.
type CleanupService struct {
	snapshots     CleanupSnapshotStore
	alerts        CleanupAlertStore
	opportunities CleanupOpportunityStore
	games         CleanupGameStore

	snapshotRetention    time.Duration
	alertRetention       time.Duration
	opportunityRetention time.Duration
	interval             time.Duration

	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	mu          sync.RWMutex
	isRunning   bool
	logger      *logrus.Logger
	lastRun     time.Time
	lastRemoved int64
}

// NewCleanupService creates a cleanup service over the given stores.
// Non-positive retention or interval values fall back to the defaults.
func NewCleanupService(snapshots CleanupSnapshotStore, alerts CleanupAlertStore, opportunities CleanupOpportunityStore, games CleanupGameStore, cfg config.CleanupConfig) *CleanupService {
	ctx, cancel := context.WithCancel(context.Background())

	snapshotRetention := defaultSnapshotRetention
	if cfg.SnapshotRetentionHours > 0 {
		snapshotRetention = time.Duration(cfg.SnapshotRetentionHours) * time.Hour
	}
	alertRetention := defaultAlertRetention
	if cfg.AlertRetentionHours > 0 {
		alertRetention = time.Duration(cfg.AlertRetentionHours) * time.Hour
	}
	opportunityRetention := defaultOpportunityRetention
	if cfg.OpportunityRetentionHours > 0 {
		opportunityRetention = time.Duration(cfg.OpportunityRetentionHours) * time.Hour
	}
	interval := defaultCleanupInterval
	if cfg.CleanupIntervalMinutes > 0 {
		interval = time.Duration(cfg.CleanupIntervalMinutes) * time.Minute
	}

	return &CleanupService{
		snapshots:            snapshots,
		alerts:               alerts,
		opportunities:        opportunities,
		games:                games,
		snapshotRetention:    snapshotRetention,
		alertRetention:       alertRetention,
		opportunityRetention: opportunityRetention,
		interval:             interval,
		ctx:                  ctx,
		cancel:               cancel,
		logger:               logrus.New(),
	}
}

// Start begins the periodic cleanup.
func (c *CleanupService) Start() error {
	c.mu.Lock()
	if c.isRunning {
		c.mu.Unlock()
		return fmt.Errorf("cleanup service is already running")
	}
	c.isRunning = true
	c.mu.Unlock()

	c.logger.WithFields(logrus.Fields{
		"interval":              c.interval.String(),
		"snapshot_retention":    c.snapshotRetention.String(),
		"alert_retention":       c.alertRetention.String(),
		"opportunity_retention": c.opportunityRetention.String(),
	}).Info("Starting cleanup service")

	c.wg.Add(1)
	go c.cleanupLoop()

	return nil
}

// Stop gracefully shuts down the cleanup service.
func (c *CleanupService) Stop() {
	c.mu.Lock()
	if !c.isRunning {
		c.mu.Unlock()
		return
	}
	c.isRunning = false
	c.mu.Unlock()

	c.logger.Info("Stopping cleanup service")
	c.cancel()
	c.wg.Wait()
	c.logger.Info("Cleanup service stopped")
}

// IsRunning returns true if the cleanup loop is active.
func (c *CleanupService) IsRunning() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.isRunning
}

// GetStatus returns whether the loop is running, when the last sweep
// finished and how many rows it removed.
func (c *CleanupService) GetStatus() (bool, time.Time, int64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.isRunning, c.lastRun, c.lastRemoved
}

// cleanupLoop runs the periodic sweep until the service is stopped.
func (c *CleanupService) cleanupLoop() {
	defer c.wg.Done()

	if _, err := c.RunCleanup(c.ctx); err != nil {
		c.logger.WithError(err).Error("Initial cleanup failed")
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			if _, err := c.RunCleanup(c.ctx); err != nil {
				c.logger.WithError(err).Error("Cleanup failed")
			}
		}
	}
}

// RunCleanup sweeps every retention table once and returns how many
// rows went. The admin API calls this directly to force a sweep outside
// the ticker.
//
// Parameters:
//
//	ctx: Context for cancellation.
//
// Returns:
//
//	int64: Total rows removed across tables.
//	error: Error if any table's sweep fails.
func (c *CleanupService) RunCleanup(ctx context.Context) (int64, error) {
	startTime := time.Now()
	now := startTime.UTC()

	var total int64

	removed, err := c.snapshots.DeleteOlderThan(ctx, now.Add(-c.snapshotRetention))
	if err != nil {
		return total, fmt.Errorf("failed to clean up snapshots: %w", err)
	}
	c.logRemoved("odds_snapshots", removed)
	total += removed

	// Alerts live for their TTL plus the retention window, so expired
	// rows stay queryable for history and export before the purge.
	removed, err = c.alerts.DeleteExpired(ctx, now.Add(-c.alertRetention))
	if err != nil {
		return total, fmt.Errorf("failed to clean up alerts: %w", err)
	}
	c.logRemoved("movement_alerts", removed)
	total += removed

	removed, err = c.opportunities.DeleteOlderThan(ctx, now.Add(-c.opportunityRetention))
	if err != nil {
		return total, fmt.Errorf("failed to clean up opportunities: %w", err)
	}
	c.logRemoved("opportunities", removed)
	total += removed

	c.mu.Lock()
	c.lastRun = time.Now()
	c.lastRemoved = total
	c.mu.Unlock()

	c.logger.WithFields(logrus.Fields{
		"duration_ms": time.Since(startTime).Milliseconds(),
		"removed":     total,
	}).Info("Data cleanup completed")

	return total, nil
}

// PurgeGames removes games that started before the cutoff, for the
// admin endpoint's deep clean. Results and predictions ride along via
// the schema's cascade; live odds tables hold no rows that old once
// their own sweeps have run.
func (c *CleanupService) PurgeGames(ctx context.Context, cutoff time.Time) (int64, error) {
	removed, err := c.games.DeleteGamesBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge games: %w", err)
	}
	c.logRemoved("games", removed)
	return removed, nil
}

func (c *CleanupService) logRemoved(table string, removed int64) {
	if removed > 0 {
		c.logger.WithFields(logrus.Fields{
			"table":   table,
			"removed": removed,
		}).Info("Cleaned up aged rows")
	}
}
