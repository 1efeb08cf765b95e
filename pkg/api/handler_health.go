package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	echo "github.com/labstack/echo/v5"

	"github.com/codeready-toolchain/fortuned/pkg/database"
	"github.com/codeready-toolchain/fortuned/pkg/queue"
	"github.com/codeready-toolchain/fortuned/pkg/version"
)

const (
	healthStatusHealthy   = "healthy"
	healthStatusDegraded  = "degraded"
	healthStatusUnhealthy = "unhealthy"
)

// healthHandler handles GET /health. Only this core's own components
// (database, worker pool, vector store index) are checked; the LLM
// provider is an external dependency guarded by its own circuit breaker
// and is excluded here so an upstream outage doesn't read as a crashed
// process.
func (s *Server) healthHandler(c *echo.Context) error {
	reqCtx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]HealthCheck)
	status := healthStatusHealthy

	if _, err := database.Health(reqCtx, s.db); err != nil {
		status = healthStatusUnhealthy
		checks["database"] = HealthCheck{Status: healthStatusUnhealthy, Message: err.Error()}
	} else {
		checks["database"] = HealthCheck{Status: healthStatusHealthy}
	}

	var poolHealth *queue.PoolHealth
	if s.pool != nil {
		poolHealth = s.pool.Health()
		checkStatus := healthStatusHealthy
		if !poolHealth.IsHealthy {
			checkStatus = healthStatusDegraded
			if status == healthStatusHealthy {
				status = healthStatusDegraded
			}
		}
		checks["worker_pool"] = HealthCheck{Status: checkStatus}
	}

	if s.vstore != nil {
		vstats := s.vstore.Stats()
		checkStatus := healthStatusHealthy
		if vstats.TotalChunks == 0 {
			checkStatus = healthStatusDegraded
			if status == healthStatusHealthy {
				status = healthStatusDegraded
			}
		}
		checks["vector_store"] = HealthCheck{
			Status: checkStatus,
			Message: fmt.Sprintf("total_chunks=%d unique_temples=%d unique_poems=%d",
				vstats.TotalChunks, vstats.UniqueTemples, vstats.UniquePoems),
		}
	}

	httpStatus := http.StatusOK
	if status == healthStatusUnhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	return c.JSON(httpStatus, &HealthResponse{
		Status: status, Version: version.Full(), Checks: checks, Pool: poolHealth,
	})
}
