package cache

import (
	"context"
	"log"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// TeamCacheStats tracks alias resolution performance.
type TeamCacheStats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Adds   int64 `json:"adds"`
}

// TeamCache maps raw provider team names onto canonical team names. A
// failed resolution means the quote cannot be matched to a tracked game;
// callers must skip it rather than guess.
type TeamCache interface {
	// Resolve returns the canonical name for a raw provider spelling.
	Resolve(rawName string) (string, bool)
	// AddAlias registers a raw spelling for a canonical team name.
	AddAlias(alias, canonical string)
	// Preload registers a batch of alias to canonical mappings.
	Preload(aliases map[string]string)
	// GetStats returns the current cache statistics.
	GetStats() TeamCacheStats
	// LogStats logs the current cache statistics.
	LogStats()
}

// NormalizeTeamKey reduces a team name to its lookup key: lowercased,
// periods stripped, whitespace collapsed.
func NormalizeTeamKey(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.ReplaceAll(name, ".", "")
	return strings.Join(strings.Fields(name), " ")
}

// DisplayName renders a team name in title case for storage and display.
func DisplayName(name string) string {
	return cases.Title(language.English).String(NormalizeTeamKey(name))
}

// MemoryTeamCache is the in-process alias table. It serves tests and
// development directly and backs RedisTeamCache as its fast path.
type MemoryTeamCache struct {
	mu      sync.RWMutex
	aliases map[string]string
	stats   TeamCacheStats
}

// NewMemoryTeamCache creates an empty in-memory team cache.
func NewMemoryTeamCache() *MemoryTeamCache {
	return &MemoryTeamCache{
		aliases: make(map[string]string),
	}
}

// lookup checks a pre-normalized key without touching stats
func (c *MemoryTeamCache) lookup(key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	canonical, ok := c.aliases[key]
	return canonical, ok
}

// Resolve returns the canonical name for a raw provider spelling.
func (c *MemoryTeamCache) Resolve(rawName string) (string, bool) {
	key := NormalizeTeamKey(rawName)
	if key == "" {
		return "", false
	}

	canonical, ok := c.lookup(key)

	c.mu.Lock()
	if ok {
		c.stats.Hits++
	} else {
		c.stats.Misses++
	}
	c.mu.Unlock()

	return canonical, ok
}

// AddAlias registers a raw spelling for a canonical team name.
func (c *MemoryTeamCache) AddAlias(alias, canonical string) {
	key := NormalizeTeamKey(alias)
	if key == "" || canonical == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.aliases[key]; !exists {
		c.stats.Adds++
	}
	c.aliases[key] = canonical
}

// Preload registers a batch of alias to canonical mappings.
func (c *MemoryTeamCache) Preload(aliases map[string]string) {
	for alias, canonical := range aliases {
		c.AddAlias(alias, canonical)
	}
}

// GetStats returns the current cache statistics.
func (c *MemoryTeamCache) GetStats() TeamCacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stats
}

// LogStats logs the current cache statistics.
func (c *MemoryTeamCache) LogStats() {
	stats := c.GetStats()
	total := stats.Hits + stats.Misses
	hitRate := float64(0)
	if total > 0 {
		hitRate = float64(stats.Hits) / float64(total) * 100
	}
	log.Printf("Team Cache Stats - Hits: %d, Misses: %d, Adds: %d, Hit Rate: %.2f%%",
		stats.Hits, stats.Misses, stats.Adds, hitRate)
}

// RedisTeamCache persists team aliases in Redis so resolutions survive
// restarts, with an in-memory layer in front of every lookup. Aliases do
// not expire.
type RedisTeamCache struct {
	client redis.Cmdable
	ctx    context.Context
	local  *MemoryTeamCache
	prefix string
	mu     sync.Mutex
	stats  TeamCacheStats
}

// NewRedisTeamCache creates a Redis-backed team cache.
//
// Parameters:
//   client: The Redis client interface.
//
// Returns:
//   *RedisTeamCache: A pointer to the initialized RedisTeamCache.
func NewRedisTeamCache(client redis.Cmdable) *RedisTeamCache {
	return &RedisTeamCache{
		client: client,
		ctx:    context.Background(),
		local:  NewMemoryTeamCache(),
		prefix: "team_alias:",
	}
}

// Resolve returns the canonical name for a raw provider spelling. The
// in-memory layer is consulted first; Redis hits are copied into it.
func (c *RedisTeamCache) Resolve(rawName string) (string, bool) {
	key := NormalizeTeamKey(rawName)
	if key == "" {
		c.recordMiss()
		return "", false
	}

	if canonical, ok := c.local.lookup(key); ok {
		c.recordHit()
		return canonical, true
	}

	canonical, err := c.client.Get(c.ctx, c.prefix+key).Result()
	if err != nil {
		if err != redis.Nil {
			log.Printf("Redis team alias lookup error for %q: %v", rawName, err)
		}
		c.recordMiss()
		return "", false
	}

	c.local.AddAlias(key, canonical)
	c.recordHit()
	return canonical, true
}

// AddAlias registers a raw spelling for a canonical team name in both
// layers.
func (c *RedisTeamCache) AddAlias(alias, canonical string) {
	key := NormalizeTeamKey(alias)
	if key == "" || canonical == "" {
		return
	}

	c.local.AddAlias(key, canonical)

	if err := c.client.Set(c.ctx, c.prefix+key, canonical, 0).Err(); err != nil {
		log.Printf("Redis team alias store error for %q: %v", alias, err)
		return
	}

	c.mu.Lock()
	c.stats.Adds++
	c.mu.Unlock()
}

// Preload registers a batch of alias to canonical mappings.
func (c *RedisTeamCache) Preload(aliases map[string]string) {
	for alias, canonical := range aliases {
		c.AddAlias(alias, canonical)
	}
}

// GetStats returns the current cache statistics.
func (c *RedisTeamCache) GetStats() TeamCacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// LogStats logs the current cache statistics.
func (c *RedisTeamCache) LogStats() {
	stats := c.GetStats()
	total := stats.Hits + stats.Misses
	hitRate := float64(0)
	if total > 0 {
		hitRate = float64(stats.Hits) / float64(total) * 100
	}
	log.Printf("Redis Team Cache Stats - Hits: %d, Misses: %d, Adds: %d, Hit Rate: %.2f%%",
		stats.Hits, stats.Misses, stats.Adds, hitRate)
}

func (c *RedisTeamCache) recordHit() {
	c.mu.Lock()
	c.stats.Hits++
	c.mu.Unlock()
}

func (c *RedisTeamCache) recordMiss() {
	c.mu.Lock()
	c.stats.Misses++
	c.mu.Unlock()
}
