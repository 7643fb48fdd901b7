package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// DatabaseHealthChecker interface for database health checks.
type DatabaseHealthChecker interface {
	// HealthCheck verifies the database connection.
	HealthCheck(ctx context.Context) error
}

// RedisHealthChecker interface for redis health checks.
type RedisHealthChecker interface {
	// HealthCheck verifies the Redis connection.
	HealthCheck(ctx context.Context) error
}

// HealthHandler manages health check endpoints.
type HealthHandler struct {
	db        DatabaseHealthChecker
	redis     RedisHealthChecker
	version   string
	startedAt time.Time
}

// HealthResponse represents the health status response.
type HealthResponse struct {
	// Status is the overall system status ("healthy" or "degraded").
	Status string `json:"status"`
	// Timestamp is the check time.
	Timestamp time.Time `json:"timestamp"`
	// Services contains status of individual services.
	Services map[string]string `json:"services"`
	// Version is the application version.
	Version string `json:"version"`
	// Uptime is the service uptime.
	Uptime string `json:"uptime"`
}

// NewHealthHandler creates a new instance of HealthHandler.
func NewHealthHandler(db DatabaseHealthChecker, redis RedisHealthChecker, version string) *HealthHandler {
	return &HealthHandler{
		db:        db,
		redis:     redis,
		version:   version,
		startedAt: time.Now(),
	}
}

// HealthCheck verifies connectivity to the database and Redis and
// reports per-service status. Any failing dependency degrades the
// overall status and the endpoint answers 503.
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	status := "healthy"
	servicesStatus := make(map[string]string)

	if h.db != nil {
		if err := h.db.HealthCheck(ctx); err != nil {
			servicesStatus["database"] = "unhealthy: " + err.Error()
			status = "degraded"
		} else {
			servicesStatus["database"] = "healthy"
		}
	} else {
		servicesStatus["database"] = "unhealthy: not configured"
		status = "degraded"
	}

	if h.redis != nil {
		if err := h.redis.HealthCheck(ctx); err != nil {
			servicesStatus["redis"] = "unhealthy: " + err.Error()
			status = "degraded"
		} else {
			servicesStatus["redis"] = "healthy"
		}
	} else {
		servicesStatus["redis"] = "unhealthy: not configured"
		status = "degraded"
	}

	statusCode := http.StatusOK
	if status != "healthy" {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, HealthResponse{
		Status:    status,
		Timestamp: time.Now(),
		Services:  servicesStatus,
		Version:   h.version,
		Uptime:    time.Since(h.startedAt).Round(time.Second).String(),
	})
}

// ReadinessCheck reports whether the service can take traffic. Both
// stores must answer.
func (h *HealthHandler) ReadinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if h.db == nil || h.redis == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready", "reason": "stores not configured"})
		return
	}
	if err := h.db.HealthCheck(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready", "reason": "database: " + err.Error()})
		return
	}
	if err := h.redis.HealthCheck(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready", "reason": "redis: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// LivenessCheck reports that the process is up.
func (h *HealthHandler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive", "timestamp": time.Now()})
}
