package api

import (
	"errors"
	"log/slog"
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/codeready-toolchain/fortuned/pkg/apperr"
)

// mapTaskError maps a task-processing error to an HTTP error response,
// using its apperr.Category when one is present and falling back to the
// taxonomy's sentinel errors otherwise.
func mapTaskError(err error) *echo.HTTPError {
	if errors.Is(err, apperr.ErrNotFound) || errors.Is(err, apperr.ErrNotOwner) {
		return echo.NewHTTPError(http.StatusNotFound, "task not found")
	}
	if errors.Is(err, apperr.ErrConflictingUpdate) {
		return echo.NewHTTPError(http.StatusConflict, "conflicting update")
	}

	var te *apperr.TaskError
	if errors.As(err, &te) {
		switch te.Category {
		case apperr.CategoryInvalidInput:
			return echo.NewHTTPError(http.StatusBadRequest, te.Err.Error())
		case apperr.CategoryNotFound:
			return echo.NewHTTPError(http.StatusNotFound, "task not found")
		case apperr.CategoryDependencyUnavailable:
			return echo.NewHTTPError(http.StatusServiceUnavailable, "service temporarily degraded, retry later")
		case apperr.CategoryTimeout:
			return echo.NewHTTPError(http.StatusGatewayTimeout, "request timed out")
		case apperr.CategoryMalformedModelOutput:
			return echo.NewHTTPError(http.StatusBadGateway, "upstream returned a malformed response")
		case apperr.CategoryCancelled:
			return echo.NewHTTPError(http.StatusConflict, "task was cancelled")
		}
	}

	slog.Error("Unexpected task error", "error", err)
	return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
}
