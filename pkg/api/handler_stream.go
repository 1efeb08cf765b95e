package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	echo "github.com/labstack/echo/v5"

	"github.com/codeready-toolchain/fortuned/pkg/models"
)

// streamTaskHandler handles GET /api/v1/tasks/:id/stream, replaying the
// task's buffered backlog and then its live event stream as SSE. Closing
// the connection never cancels the underlying task; a worker on another
// pod, or the same pod reconnecting, keeps making progress regardless.
func (s *Server) streamTaskHandler(c *echo.Context) error {
	owner, err := requireOwner(c)
	if err != nil {
		return err
	}

	id := c.Param("id")
	task, err := s.store.Get(c.Request().Context(), id, owner)
	if err != nil {
		return mapTaskError(err)
	}

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("Connection", "keep-alive")
	res.WriteHeader(http.StatusOK)
	flusher, ok := http.ResponseWriter(res).(http.Flusher)
	if !ok {
		return echo.NewHTTPError(http.StatusInternalServerError, "streaming unsupported")
	}

	if task.State.IsTerminal() {
		writeSSE(res, flusher, terminalReplayEvent(task))
		return nil
	}

	sub := s.bus.Subscribe(c.Request().Context(), id)
	defer sub.Close()

	for _, ev := range sub.Backlog {
		writeSSE(res, flusher, ev)
	}

	ping := time.NewTicker(time.Duration(s.cfg.Stream.PingSeconds) * time.Second)
	defer ping.Stop()
	deadline := time.NewTimer(time.Duration(s.cfg.Stream.MaxConnectionSeconds) * time.Second)
	defer deadline.Stop()

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-deadline.C:
			return nil
		case <-ping.C:
			writeSSE(res, flusher, models.ProgressEvent{Type: models.EventPing})
		case ev, open := <-sub.Events:
			if !open {
				return nil
			}
			writeSSE(res, flusher, ev)
			if ev.IsTerminal() {
				return nil
			}
		}
	}
}

// writeSSE writes event as a single `data: <json>\n\n` frame and flushes
// it immediately; the literal framing is the wire contract, not just a
// transport detail.
func writeSSE(res *echo.Response, flusher http.Flusher, event models.ProgressEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	fmt.Fprintf(res, "data: %s\n\n", payload)
	flusher.Flush()
}

// terminalReplayEvent synthesizes the single event a late subscriber gets
// when it attaches after the task already reached a terminal state.
func terminalReplayEvent(t *models.Task) models.ProgressEvent {
	if t.State == models.TaskFailed {
		return models.ProgressEvent{
			Type: models.EventError, Status: t.StatusCode, Error: t.ErrorMessage,
		}
	}
	if t.State == models.TaskCancelled {
		return models.ProgressEvent{Type: models.EventError, Status: t.StatusCode, Error: "cancelled"}
	}
	var confidence float32
	if t.Confidence != nil {
		confidence = *t.Confidence
	}
	var durationMS int64
	if t.ProcessingTimeMS != nil {
		durationMS = *t.ProcessingTimeMS
	}
	return models.ProgressEvent{
		Type: models.EventComplete, Status: t.StatusCode,
		Result: &models.TaskResult{
			Response: t.Response, Confidence: confidence, SourcesUsed: t.SourceChunkIDs,
			ProcessingTimeMS: durationMS, CanGenerateReport: t.CanGenerateReport,
		},
	}
}
