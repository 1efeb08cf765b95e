package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	echo "github.com/labstack/echo/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/fortuned/pkg/models"
	"github.com/codeready-toolchain/fortuned/pkg/statuscode"
)

func TestStreamTaskHandler_MissingOwner(t *testing.T) {
	s := &Server{}
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/tasks/abc/stream", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("abc")

	err := s.streamTaskHandler(c)
	require.Error(t, err)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, he.Code)
}

func TestWriteSSEFraming(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/tasks/abc/stream", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	res := c.Response()

	writeSSE(res, rec, models.ProgressEvent{Type: models.EventStatus, Status: statuscode.Queued})

	body := rec.Body.String()
	assert.True(t, strings.HasPrefix(body, "data: "))
	assert.True(t, strings.HasSuffix(body, "\n\n"))
	assert.Contains(t, body, `"type":"status"`)
}

func TestTerminalReplayEvent(t *testing.T) {
	t.Run("completed", func(t *testing.T) {
		response := "fortune reading"
		ev := terminalReplayEvent(&models.Task{State: models.TaskCompleted, Response: response})
		assert.Equal(t, models.EventComplete, ev.Type)
		require.NotNil(t, ev.Result)
		assert.Equal(t, response, ev.Result.Response)
	})

	t.Run("failed", func(t *testing.T) {
		ev := terminalReplayEvent(&models.Task{State: models.TaskFailed, ErrorMessage: "boom"})
		assert.Equal(t, models.EventError, ev.Type)
		assert.Equal(t, "boom", ev.Error)
	})

	t.Run("cancelled", func(t *testing.T) {
		ev := terminalReplayEvent(&models.Task{State: models.TaskCancelled})
		assert.Equal(t, models.EventError, ev.Type)
		assert.Equal(t, "cancelled", ev.Error)
	})
}
