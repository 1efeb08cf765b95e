package api

import (
	"net/http"
	"strconv"

	echo "github.com/labstack/echo/v5"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// listTasksHandler handles GET /api/v1/tasks, a newest-first history
// listing scoped to the caller.
func (s *Server) listTasksHandler(c *echo.Context) error {
	owner, err := requireOwner(c)
	if err != nil {
		return err
	}

	limit := defaultListLimit
	if v := c.QueryParam("limit"); v != "" {
		n, convErr := strconv.Atoi(v)
		if convErr != nil || n <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = n
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	offset := 0
	if v := c.QueryParam("offset"); v != "" {
		n, convErr := strconv.Atoi(v)
		if convErr != nil || n < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "offset must be a non-negative integer")
		}
		offset = n
	}

	tasks, err := s.store.List(c.Request().Context(), owner, limit, offset)
	if err != nil {
		return mapTaskError(err)
	}

	summaries := make([]TaskSummary, len(tasks))
	for i, t := range tasks {
		summaries[i] = taskToSummary(t)
	}
	return c.JSON(http.StatusOK, summaries)
}

// getTaskHandler handles GET /api/v1/tasks/:id.
func (s *Server) getTaskHandler(c *echo.Context) error {
	owner, err := requireOwner(c)
	if err != nil {
		return err
	}

	task, err := s.store.Get(c.Request().Context(), c.Param("id"), owner)
	if err != nil {
		return mapTaskError(err)
	}
	return c.JSON(http.StatusOK, taskToResponse(task))
}

// cancelTaskHandler handles POST /api/v1/tasks/:id/cancel. It persists the
// cancellation flag first, then interrupts the task on this pod if it's
// currently claimed here; a worker on another pod picks up the flag on its
// next suspension point.
func (s *Server) cancelTaskHandler(c *echo.Context) error {
	owner, err := requireOwner(c)
	if err != nil {
		return err
	}

	id := c.Param("id")
	if err := s.store.Cancel(c.Request().Context(), id, owner); err != nil {
		return mapTaskError(err)
	}
	s.pool.CancelTask(id)

	return c.JSON(http.StatusOK, &CancelTaskResponse{
		TaskID: id, Message: "cancellation requested",
	})
}
