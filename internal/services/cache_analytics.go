package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Cache categories tracked by the analytics service. Handlers record a hit
// or miss under one of these whenever they consult the read-through cache.
const (
	CacheCategoryOdds          = "odds"
	CacheCategoryMovements     = "movements"
	CacheCategoryOpportunities = "opportunities"
	CacheCategoryPredictions   = "predictions"
	CacheCategoryTeams         = "teams"

	cacheCategoryOverall = "overall"

	cacheStatsKey = "cache:analytics:stats"
	cacheStatsTTL = 24 * time.Hour

	defaultReportInterval = 5 * time.Minute
)

// CacheStats represents cache statistics for one category.
type CacheStats struct {
	Hits        int64     `json:"hits"`
	Misses      int64     `json:"misses"`
	HitRate     float64   `json:"hit_rate"`
	TotalOps    int64     `json:"total_ops"`
	LastUpdated time.Time `json:"last_updated"`
}

// CacheMetrics represents detailed cache metrics by category, combined with
// a snapshot of the Redis keyspace.
type CacheMetrics struct {
	Overall    CacheStats            `json:"overall"`
	ByCategory map[string]CacheStats `json:"by_category"`
	RedisInfo  map[string]string     `json:"redis_info"`
	KeyCount   int64                 `json:"key_count"`
}

// CacheAnalyticsService tracks cache performance metrics
type CacheAnalyticsService struct {
	redisClient *redis.Client
	stats       map[string]*CacheStats
	mu          sync.RWMutex
	logger      *logrus.Logger
}

// NewCacheAnalyticsService creates a new cache analytics service
func NewCacheAnalyticsService(redisClient *redis.Client) *CacheAnalyticsService {
	return &CacheAnalyticsService{
		redisClient: redisClient,
		stats:       make(map[string]*CacheStats),
		logger:      logrus.New(),
	}
}

// RecordHit records a cache hit for the given category
func (c *CacheAnalyticsService) RecordHit(category string) {
	c.record(category, true)
}

// RecordMiss records a cache miss for the given category
func (c *CacheAnalyticsService) RecordMiss(category string) {
	c.record(category, false)
}

// record bumps the counters for the category and the overall rollup.
func (c *CacheAnalyticsService) record(category string, hit bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	keys := []string{category, cacheCategoryOverall}
	if category == cacheCategoryOverall {
		keys = keys[1:]
	}

	for _, key := range keys {
		stats := c.stats[key]
		if stats == nil {
			stats = &CacheStats{}
			c.stats[key] = stats
		}
		if hit {
			stats.Hits++
		} else {
			stats.Misses++
		}
		stats.TotalOps++
		stats.HitRate = float64(stats.Hits) / float64(stats.TotalOps)
		stats.LastUpdated = now
	}
}

// GetStats returns cache statistics for a specific category
func (c *CacheAnalyticsService) GetStats(category string) CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if stats, exists := c.stats[category]; exists {
		return *stats
	}
	return CacheStats{}
}

// GetAllStats returns all cache statistics
func (c *CacheAnalyticsService) GetAllStats() map[string]CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make(map[string]CacheStats)
	for category, stats := range c.stats {
		result[category] = *stats
	}
	return result
}

// GetMetrics returns comprehensive cache metrics including Redis keyspace info.
// INFO is best effort; when it fails the redis_info section stays empty.
func (c *CacheAnalyticsService) GetMetrics(ctx context.Context) (*CacheMetrics, error) {
	allStats := c.GetAllStats()

	keyCount, err := c.redisClient.DBSize(ctx).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read keyspace size: %w", err)
	}

	infoMap := make(map[string]string)
	if info, err := c.redisClient.Info(ctx, "memory", "clients", "keyspace").Result(); err == nil {
		infoMap = parseRedisInfo(info)
	}

	metrics := &CacheMetrics{
		ByCategory: allStats,
		RedisInfo:  infoMap,
		KeyCount:   keyCount,
	}

	if overall, exists := allStats[cacheCategoryOverall]; exists {
		metrics.Overall = overall
	}

	return metrics, nil
}

// parseRedisInfo parses Redis INFO command output into key/value pairs,
// skipping section headers and blank lines.
func parseRedisInfo(info string) map[string]string {
	result := make(map[string]string)

	if info == "" {
		return result
	}

	lines := strings.Split(info, "\n")
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, ":", 2)
		if len(parts) == 2 {
			key := strings.TrimSpace(parts[0])
			value := strings.TrimSpace(parts[1])
			result[key] = value
		}
	}

	return result
}

// ResetStats resets all cache statistics
func (c *CacheAnalyticsService) ResetStats() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats = make(map[string]*CacheStats)
}

// StartPeriodicReporting persists cache stats to Redis on the given interval
// until the context is cancelled.
func (c *CacheAnalyticsService) StartPeriodicReporting(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = defaultReportInterval
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := c.reportStats(ctx); err != nil {
					c.logger.WithError(err).Warn("Failed to report cache stats")
				}
			}
		}
	}()
}

// reportStats writes the current stats snapshot to Redis for persistence.
func (c *CacheAnalyticsService) reportStats(ctx context.Context) error {
	statsJSON, err := json.Marshal(c.GetAllStats())
	if err != nil {
		return fmt.Errorf("failed to marshal cache stats: %w", err)
	}

	if err := c.redisClient.Set(ctx, cacheStatsKey, statsJSON, cacheStatsTTL).Err(); err != nil {
		return fmt.Errorf("failed to persist cache stats: %w", err)
	}
	return nil
}
