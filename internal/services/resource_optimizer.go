package services

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/sharpline/sharpline-go/internal/telemetry"
)

// ResourceOptimizer sizes the pipeline's concurrency from the host's
// CPU and memory headroom. The per-game analysis pool and the batch
// write fan-out both read their limits from here instead of hardcoding
// worker counts.
type ResourceOptimizer struct {
	mu                   sync.RWMutex
	cpuCores             int
	memoryGB             float64
	currentCPUUsage      float64
	currentMemoryUsage   float64
	optimalConcurrency   OptimalConcurrency
	lastOptimization     time.Time
	optimizationInterval time.Duration
	cycleHistory         []CycleSnapshot
	maxHistorySize       int
	adaptiveMode         bool
	logger               *slog.Logger
}

// OptimalConcurrency holds the derived concurrency limits.
type OptimalConcurrency struct {
	MaxGameWorkers       int     `json:"max_game_workers"`       // Per-game analysis goroutines
	MaxConcurrentFetches int     `json:"max_concurrent_fetches"` // Simultaneous provider calls
	MaxConcurrentWrites  int     `json:"max_concurrent_writes"`  // Simultaneous batch inserts
	MemoryThreshold      float64 `json:"memory_threshold"`
	CPUThreshold         float64 `json:"cpu_threshold"`
}

// CycleSnapshot captures how one pipeline cycle behaved alongside the
// system load it ran under.
type CycleSnapshot struct {
	Timestamp      time.Time `json:"timestamp"`
	CPUUsage       float64   `json:"cpu_usage"`
	MemoryUsage    float64   `json:"memory_usage"`
	Goroutines     int       `json:"goroutines"`
	GamesProcessed int       `json:"games_processed"`
	ErrorRate      float64   `json:"error_rate"`
	CycleMs        int64     `json:"cycle_ms"`
}

// ResourceOptimizerConfig holds tuning for the optimizer.
type ResourceOptimizerConfig struct {
	OptimizationInterval time.Duration `yaml:"optimization_interval"`
	AdaptiveMode         bool          `yaml:"adaptive_mode"`
	MaxHistorySize       int           `yaml:"max_history_size"`
	CPUThreshold         float64       `yaml:"cpu_threshold"`
	MemoryThreshold      float64       `yaml:"memory_threshold"`
	MinWorkers           int           `yaml:"min_workers"`
	MaxWorkers           int           `yaml:"max_workers"`
}

// NewResourceOptimizer creates an optimizer and derives the initial
// limits from the host.
func NewResourceOptimizer(config ResourceOptimizerConfig) *ResourceOptimizer {
	if config.OptimizationInterval == 0 {
		config.OptimizationInterval = 5 * time.Minute
	}
	if config.MaxHistorySize == 0 {
		config.MaxHistorySize = 100
	}
	if config.CPUThreshold == 0 {
		config.CPUThreshold = 80.0
	}
	if config.MemoryThreshold == 0 {
		config.MemoryThreshold = 85.0
	}
	if config.MinWorkers == 0 {
		config.MinWorkers = 2
	}
	if config.MaxWorkers == 0 {
		config.MaxWorkers = 16
	}

	ro := &ResourceOptimizer{
		cpuCores:             runtime.NumCPU(),
		optimizationInterval: config.OptimizationInterval,
		maxHistorySize:       config.MaxHistorySize,
		adaptiveMode:         config.AdaptiveMode,
		logger:               telemetry.Logger(),
	}

	if memInfo, err := mem.VirtualMemory(); err == nil {
		ro.memoryGB = float64(memInfo.Total) / (1024 * 1024 * 1024)
	} else {
		ro.logger.Warn("Could not read memory info, assuming 8GB", "error", err)
		ro.memoryGB = 8.0
	}

	ro.calculateOptimalConcurrency(config)

	ro.logger.Info("Resource optimizer initialized",
		"cpu_cores", ro.cpuCores,
		"memory_gb", ro.memoryGB,
		"adaptive_mode", ro.adaptiveMode)

	return ro
}

// calculateOptimalConcurrency derives the limits from cores, memory and
// current load.
func (ro *ResourceOptimizer) calculateOptimalConcurrency(config ResourceOptimizerConfig) {
	ro.mu.Lock()
	defer ro.mu.Unlock()

	baseWorkers := ro.cpuCores * 2
	if baseWorkers < config.MinWorkers {
		baseWorkers = config.MinWorkers
	}
	if baseWorkers > config.MaxWorkers {
		baseWorkers = config.MaxWorkers
	}

	memoryFactor := 1.0
	if ro.memoryGB < 4.0 {
		memoryFactor = 0.5
	} else if ro.memoryGB < 8.0 {
		memoryFactor = 0.75
	}

	loadFactor := 1.0
	if ro.currentCPUUsage > config.CPUThreshold {
		loadFactor = 0.7
	} else if ro.currentMemoryUsage > config.MemoryThreshold {
		loadFactor = 0.8
	}

	gameWorkers := int(float64(baseWorkers) * memoryFactor * loadFactor)
	if gameWorkers < config.MinWorkers {
		gameWorkers = config.MinWorkers
	}

	// Provider calls are quota-bound, not CPU-bound; keep the fan-out
	// narrow regardless of core count.
	fetches := gameWorkers / 2
	if fetches < 1 {
		fetches = 1
	}
	if fetches > 4 {
		fetches = 4
	}

	writes := gameWorkers / 2
	if writes < 1 {
		writes = 1
	}
	if writes > 8 {
		writes = 8
	}

	ro.optimalConcurrency = OptimalConcurrency{
		MaxGameWorkers:       gameWorkers,
		MaxConcurrentFetches: fetches,
		MaxConcurrentWrites:  writes,
		MemoryThreshold:      config.MemoryThreshold,
		CPUThreshold:         config.CPUThreshold,
	}

	ro.logger.Info("Calculated concurrency limits",
		"max_game_workers", gameWorkers,
		"max_concurrent_fetches", fetches,
		"max_concurrent_writes", writes)
}

// GetOptimalConcurrency returns the current limits.
func (ro *ResourceOptimizer) GetOptimalConcurrency() OptimalConcurrency {
	ro.mu.RLock()
	defer ro.mu.RUnlock()
	return ro.optimalConcurrency
}

// UpdateSystemMetrics samples current CPU and memory usage.
func (ro *ResourceOptimizer) UpdateSystemMetrics(ctx context.Context) error {
	cpuPercent, err := cpu.PercentWithContext(ctx, time.Second, false)
	if err != nil {
		return fmt.Errorf("failed to get CPU usage: %w", err)
	}
	if len(cpuPercent) > 0 {
		ro.mu.Lock()
		ro.currentCPUUsage = cpuPercent[0]
		ro.mu.Unlock()
	}

	memInfo, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to get memory usage: %w", err)
	}
	ro.mu.Lock()
	ro.currentMemoryUsage = memInfo.UsedPercent
	ro.mu.Unlock()

	return nil
}

// RecordCycle appends one pipeline cycle's outcome to the history the
// adaptive mode reads.
func (ro *ResourceOptimizer) RecordCycle(gamesProcessed int, errorRate float64, cycleMs int64) {
	ro.mu.Lock()
	defer ro.mu.Unlock()

	ro.cycleHistory = append(ro.cycleHistory, CycleSnapshot{
		Timestamp:      time.Now(),
		CPUUsage:       ro.currentCPUUsage,
		MemoryUsage:    ro.currentMemoryUsage,
		Goroutines:     runtime.NumGoroutine(),
		GamesProcessed: gamesProcessed,
		ErrorRate:      errorRate,
		CycleMs:        cycleMs,
	})

	if len(ro.cycleHistory) > ro.maxHistorySize {
		ro.cycleHistory = ro.cycleHistory[1:]
	}
}

// OptimizeIfNeeded recalculates the limits when the optimization
// interval has elapsed, or sooner when adaptive mode sees strain.
func (ro *ResourceOptimizer) OptimizeIfNeeded(config ResourceOptimizerConfig) bool {
	ro.mu.RLock()
	lastOpt := ro.lastOptimization
	adaptive := ro.adaptiveMode
	ro.mu.RUnlock()

	strained := adaptive && ro.underStrain()
	if !strained && time.Since(lastOpt) < ro.optimizationInterval {
		return false
	}

	if strained {
		ro.logger.Info("Adaptive optimization triggered by load")
	}
	ro.calculateOptimalConcurrency(config)
	ro.mu.Lock()
	ro.lastOptimization = time.Now()
	ro.mu.Unlock()
	return true
}

// underStrain reports whether recent cycles ran hot enough to warrant
// resizing ahead of schedule.
func (ro *ResourceOptimizer) underStrain() bool {
	ro.mu.RLock()
	defer ro.mu.RUnlock()

	if len(ro.cycleHistory) < 5 {
		return false
	}

	recent := ro.cycleHistory[len(ro.cycleHistory)-5:]
	var avgCPU, avgMemory, avgErrorRate, avgCycleMs float64
	for _, snapshot := range recent {
		avgCPU += snapshot.CPUUsage
		avgMemory += snapshot.MemoryUsage
		avgErrorRate += snapshot.ErrorRate
		avgCycleMs += float64(snapshot.CycleMs)
	}
	avgCPU /= float64(len(recent))
	avgMemory /= float64(len(recent))
	avgErrorRate /= float64(len(recent))
	avgCycleMs /= float64(len(recent))

	if avgCPU > 85.0 || avgMemory > 90.0 || avgErrorRate > 5.0 || avgCycleMs > 60000.0 {
		return true
	}
	return runtime.NumGoroutine() > 1000
}

// GetCycleHistory returns up to limit recent cycle snapshots.
func (ro *ResourceOptimizer) GetCycleHistory(limit int) []CycleSnapshot {
	ro.mu.RLock()
	defer ro.mu.RUnlock()

	if limit <= 0 || limit > len(ro.cycleHistory) {
		limit = len(ro.cycleHistory)
	}

	start := len(ro.cycleHistory) - limit
	return ro.cycleHistory[start:]
}

// GetSystemInfo returns current host and optimizer state for the admin
// status endpoint.
func (ro *ResourceOptimizer) GetSystemInfo() map[string]interface{} {
	ro.mu.RLock()
	defer ro.mu.RUnlock()

	return map[string]interface{}{
		"cpu_cores":         ro.cpuCores,
		"memory_gb":         ro.memoryGB,
		"current_cpu":       ro.currentCPUUsage,
		"current_memory":    ro.currentMemoryUsage,
		"goroutines":        runtime.NumGoroutine(),
		"last_optimization": ro.lastOptimization,
		"adaptive_mode":     ro.adaptiveMode,
		"optimal_config":    ro.optimalConcurrency,
	}
}
