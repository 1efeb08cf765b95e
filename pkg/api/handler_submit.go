package api

import (
	"net/http"
	"strings"

	echo "github.com/labstack/echo/v5"

	"github.com/codeready-toolchain/fortuned/pkg/models"
	"github.com/codeready-toolchain/fortuned/pkg/statuscode"
)

var supportedLanguages = map[string]bool{"zh": true, "en": true, "ja": true}

const maxQuestionLen = 1000

// submitTaskHandler handles POST /api/v1/tasks. It validates the request,
// resolves deity_id to a temple, and rejects any (temple, fortune_number)
// pair that doesn't already exist in the vector store before the task is
// ever queued.
func (s *Server) submitTaskHandler(c *echo.Context) error {
	owner, err := requireOwner(c)
	if err != nil {
		return err
	}

	var req SubmitTaskRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}

	question := strings.TrimSpace(req.Question)
	if question == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "question must not be empty")
	}
	if len([]rune(question)) > maxQuestionLen {
		return echo.NewHTTPError(http.StatusBadRequest, "question exceeds maximum length")
	}

	if req.FortuneNumber < s.cfg.Defaults.FortuneNumberMin || req.FortuneNumber > s.cfg.Defaults.FortuneNumberMax {
		return echo.NewHTTPError(http.StatusBadRequest, "fortune_number out of range")
	}

	language := req.Language
	if language == "" {
		language = s.cfg.Defaults.Language
	}
	if !supportedLanguages[language] {
		return echo.NewHTTPError(http.StatusBadRequest, "unsupported language")
	}

	temple, err := s.deities.Resolve(req.DeityID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unknown deity_id")
	}

	if !s.vstore.HasPoem(temple, req.FortuneNumber) {
		return echo.NewHTTPError(http.StatusBadRequest, "fortune_number does not exist for this deity")
	}

	id, err := s.store.Create(c.Request().Context(), &models.Task{
		OwnerID: owner, DeityID: req.DeityID, Number: req.FortuneNumber,
		Question: question, Context: req.Context, Language: language,
	})
	if err != nil {
		return mapTaskError(err)
	}

	s.bus.Publish(id, models.ProgressEvent{
		Type: models.EventStatus, TaskID: id, Status: statuscode.Queued,
		Message: statuscode.Message(statuscode.Queued, language),
	})

	return c.JSON(http.StatusAccepted, &SubmitTaskResponse{
		TaskID: id, StreamURL: "/api/v1/tasks/" + id + "/stream",
		Status: string(models.TaskQueued), Message: "interpretation queued",
	})
}
