package db

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// PoolStats represents database connection pool statistics.
type PoolStats struct {
	Size           int   `json:"size"`
	InUse          int64 `json:"in_use"`
	OpenConns      int   `json:"open_conns"`
	IdleConns      int   `json:"idle_conns"`
	AcquireCount   int64 `json:"acquire_count"`
	WaitCount      int64 `json:"wait_count"`
	ExhaustedCount int64 `json:"exhausted_count"`
	Healthy        bool  `json:"healthy"`
}

// Stats returns a snapshot of pool usage.
func (p *Pool) Stats() PoolStats {
	dbStats := p.db.Stats()
	return PoolStats{
		Size:           int(p.size),
		InUse:          p.inUse.Load(),
		OpenConns:      dbStats.OpenConnections,
		IdleConns:      dbStats.Idle,
		AcquireCount:   p.acquires.Load(),
		WaitCount:      p.waits.Load(),
		ExhaustedCount: p.exhausted.Load(),
		Healthy:        true,
	}
}

// HealthHandler returns a handler for the database health check endpoint.
func HealthHandler(pool *Pool) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()

		err := pool.Ping(ctx)
		stats := pool.Stats()

		if err != nil {
			stats.Healthy = false
			return c.JSON(http.StatusServiceUnavailable, map[string]interface{}{
				"status": "unhealthy",
				"error":  err.Error(),
				"pool":   stats,
			})
		}

		return c.JSON(http.StatusOK, map[string]interface{}{
			"status": "healthy",
			"pool":   stats,
		})
	}
}
