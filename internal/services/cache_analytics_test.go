package services

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCacheAnalytics(t *testing.T) (*CacheAnalyticsService, *miniredis.Miniredis) {
	redisServer := miniredis.RunT(t)

	redisClient := redis.NewClient(&redis.Options{
		Addr: redisServer.Addr(),
	})
	t.Cleanup(func() { _ = redisClient.Close() })

	service := NewCacheAnalyticsService(redisClient)
	service.logger.SetOutput(io.Discard)
	return service, redisServer
}

func TestNewCacheAnalyticsService(t *testing.T) {
	service, _ := newTestCacheAnalytics(t)

	assert.NotNil(t, service.redisClient)
	assert.NotNil(t, service.stats)
	assert.NotNil(t, service.logger)
}

func TestCacheRecordHitAndMiss(t *testing.T) {
	service, _ := newTestCacheAnalytics(t)

	service.RecordHit(CacheCategoryOdds)
	service.RecordHit(CacheCategoryOdds)
	service.RecordMiss(CacheCategoryOdds)

	stats := service.GetStats(CacheCategoryOdds)
	assert.Equal(t, int64(2), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(3), stats.TotalOps)
	assert.InDelta(t, 2.0/3.0, stats.HitRate, 0.0001)
	assert.False(t, stats.LastUpdated.IsZero())

	overall := service.GetStats(cacheCategoryOverall)
	assert.Equal(t, int64(2), overall.Hits)
	assert.Equal(t, int64(3), overall.TotalOps)
}

func TestCacheRecordRollsUpAcrossCategories(t *testing.T) {
	service, _ := newTestCacheAnalytics(t)

	service.RecordHit(CacheCategoryOdds)
	service.RecordMiss(CacheCategoryTeams)

	assert.Equal(t, int64(1), service.GetStats(CacheCategoryOdds).TotalOps)
	assert.Equal(t, int64(1), service.GetStats(CacheCategoryTeams).TotalOps)

	overall := service.GetStats(cacheCategoryOverall)
	assert.Equal(t, int64(1), overall.Hits)
	assert.Equal(t, int64(1), overall.Misses)
	assert.Equal(t, int64(2), overall.TotalOps)
}

func TestCacheRecordOverallNotDoubleCounted(t *testing.T) {
	service, _ := newTestCacheAnalytics(t)

	service.RecordHit(cacheCategoryOverall)

	overall := service.GetStats(cacheCategoryOverall)
	assert.Equal(t, int64(1), overall.Hits)
	assert.Equal(t, int64(1), overall.TotalOps)
}

func TestCacheGetStatsUnknownCategory(t *testing.T) {
	service, _ := newTestCacheAnalytics(t)

	stats := service.GetStats("nope")
	assert.Equal(t, CacheStats{}, stats)
}

func TestCacheGetAllStats(t *testing.T) {
	service, _ := newTestCacheAnalytics(t)

	service.RecordHit(CacheCategoryOdds)
	service.RecordMiss(CacheCategoryPredictions)

	all := service.GetAllStats()
	assert.Len(t, all, 3)
	assert.Contains(t, all, CacheCategoryOdds)
	assert.Contains(t, all, CacheCategoryPredictions)
	assert.Contains(t, all, cacheCategoryOverall)
}

func TestCacheGetMetrics(t *testing.T) {
	service, _ := newTestCacheAnalytics(t)
	ctx := context.Background()

	service.RecordHit(CacheCategoryOdds)
	service.RecordMiss(CacheCategoryOdds)

	require.NoError(t, service.redisClient.Set(ctx, "odds:game-1", "cached", 0).Err())
	require.NoError(t, service.redisClient.Set(ctx, "odds:game-2", "cached", 0).Err())

	metrics, err := service.GetMetrics(ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(2), metrics.KeyCount)
	assert.NotNil(t, metrics.RedisInfo)
	assert.Contains(t, metrics.ByCategory, CacheCategoryOdds)
	assert.Equal(t, int64(2), metrics.Overall.TotalOps)
	assert.InDelta(t, 0.5, metrics.Overall.HitRate, 0.0001)
}

func TestCacheGetMetricsRedisDown(t *testing.T) {
	service, redisServer := newTestCacheAnalytics(t)
	redisServer.Close()

	_, err := service.GetMetrics(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "keyspace size")
}

func TestParseRedisInfo(t *testing.T) {
	info := "# Memory\r\nused_memory:1024\r\nmaxmemory_policy:allkeys-lru\r\n\r\n# Clients\r\nconnected_clients:3\r\n# Keyspace\r\ndb0:keys=5,expires=0\r\n"

	parsed := parseRedisInfo(info)
	assert.Equal(t, "1024", parsed["used_memory"])
	assert.Equal(t, "allkeys-lru", parsed["maxmemory_policy"])
	assert.Equal(t, "3", parsed["connected_clients"])
	assert.Equal(t, "keys=5,expires=0", parsed["db0"])
	assert.NotContains(t, parsed, "# Memory")
}

func TestParseRedisInfoEmpty(t *testing.T) {
	assert.Empty(t, parseRedisInfo(""))
}

func TestCacheResetStats(t *testing.T) {
	service, _ := newTestCacheAnalytics(t)

	service.RecordHit(CacheCategoryOdds)
	service.ResetStats()

	assert.Empty(t, service.GetAllStats())
	assert.Equal(t, CacheStats{}, service.GetStats(CacheCategoryOdds))
}

func TestCacheReportStats(t *testing.T) {
	service, redisServer := newTestCacheAnalytics(t)
	ctx := context.Background()

	service.RecordHit(CacheCategoryMovements)
	require.NoError(t, service.reportStats(ctx))

	raw, err := service.redisClient.Get(ctx, cacheStatsKey).Result()
	require.NoError(t, err)

	var persisted map[string]CacheStats
	require.NoError(t, json.Unmarshal([]byte(raw), &persisted))
	assert.Equal(t, int64(1), persisted[CacheCategoryMovements].Hits)

	assert.Equal(t, cacheStatsTTL, redisServer.TTL(cacheStatsKey))
}

func TestCacheReportStatsRedisDown(t *testing.T) {
	service, redisServer := newTestCacheAnalytics(t)
	redisServer.Close()

	err := service.reportStats(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "persist cache stats")
}

func TestCacheStartPeriodicReporting(t *testing.T) {
	service, redisServer := newTestCacheAnalytics(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	service.RecordHit(CacheCategoryOdds)
	service.StartPeriodicReporting(ctx, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		return redisServer.Exists(cacheStatsKey)
	}, 2*time.Second, 10*time.Millisecond)
}
