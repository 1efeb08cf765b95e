package api

import (
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/codeready-toolchain/fortuned/pkg/breaker"
)

func breakerSnapshotResponse(snap breaker.Snapshot) BreakerSnapshotResponse {
	resp := BreakerSnapshotResponse{
		Name:                snap.Name,
		State:               snap.State,
		ConsecutiveFailures: snap.Counts.ConsecutiveFailures,
		Requests:            snap.Counts.Requests,
		FailureThreshold:    snap.FailureThreshold,
		OpenTimeoutSeconds:  snap.OpenTimeout.Seconds(),
	}
	if !snap.LastFailure.IsZero() {
		lf := snap.LastFailure
		resp.LastFailure = &lf
	}
	return resp
}

// listBreakersHandler handles GET /api/v1/admin/breakers, an operator
// view of every guarded dependency's current circuit state.
func (s *Server) listBreakersHandler(c *echo.Context) error {
	resp := make([]BreakerSnapshotResponse, 0, len(s.breakers))
	for _, b := range s.breakers {
		resp = append(resp, breakerSnapshotResponse(b.Snapshot()))
	}
	return c.JSON(http.StatusOK, resp)
}

// resetBreakerHandler handles POST /api/v1/admin/breakers/:name/reset,
// forcing a named breaker back to closed. Intended for an operator who
// has confirmed the guarded dependency recovered and doesn't want to
// wait out the open timeout.
func (s *Server) resetBreakerHandler(c *echo.Context) error {
	name := c.Param("name")
	b, ok := s.breakers[name]
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "unknown breaker")
	}
	b.Reset()
	return c.JSON(http.StatusOK, breakerSnapshotResponse(b.Snapshot()))
}
