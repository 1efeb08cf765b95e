package api

import (
	"time"

	"github.com/codeready-toolchain/fortuned/pkg/models"
	"github.com/codeready-toolchain/fortuned/pkg/queue"
)

// SubmitTaskResponse is returned by POST /api/v1/tasks.
type SubmitTaskResponse struct {
	TaskID    string `json:"task_id"`
	StreamURL string `json:"stream_url"`
	Status    string `json:"status"`
	Message   string `json:"message"`
}

// CancelTaskResponse is returned by POST /api/v1/tasks/:id/cancel.
type CancelTaskResponse struct {
	TaskID  string `json:"task_id"`
	Message string `json:"message"`
}

// TaskResponse mirrors a persisted task row, returned by GET
// /api/v1/tasks/:id.
type TaskResponse struct {
	ID                string                 `json:"id"`
	DeityID           string                 `json:"deity_id"`
	FortuneNumber     int                    `json:"fortune_number"`
	Question          string                 `json:"question"`
	Language          string                 `json:"language"`
	State             string                 `json:"state"`
	Progress          int                    `json:"progress"`
	StatusCode        int                    `json:"status_code"`
	Message           string                 `json:"message,omitempty"`
	SubmittedAt       time.Time              `json:"submitted_at"`
	StartedAt         *time.Time             `json:"started_at,omitempty"`
	CompletedAt       *time.Time             `json:"completed_at,omitempty"`
	Response          string                 `json:"response,omitempty"`
	Structured        *models.Interpretation `json:"structured,omitempty"`
	Confidence        *float32               `json:"confidence,omitempty"`
	SourcesUsed       []string               `json:"sources_used,omitempty"`
	ProcessingTimeMS  *int64                 `json:"processing_time_ms,omitempty"`
	ErrorCategory     string                 `json:"error_category,omitempty"`
	ErrorMessage      string                 `json:"error_message,omitempty"`
	CanGenerateReport bool                   `json:"can_generate_report"`
}

// taskToResponse converts a store-loaded task to its wire shape.
func taskToResponse(t *models.Task) *TaskResponse {
	return &TaskResponse{
		ID: t.ID, DeityID: t.DeityID, FortuneNumber: t.Number, Question: t.Question,
		Language: t.Language, State: string(t.State), Progress: t.Progress,
		StatusCode: int(t.StatusCode), Message: t.LastMessage, SubmittedAt: t.SubmittedAt,
		StartedAt: t.StartedAt, CompletedAt: t.CompletedAt, Response: t.Response,
		Structured: t.Structured, Confidence: t.Confidence, SourcesUsed: t.SourceChunkIDs,
		ProcessingTimeMS: t.ProcessingTimeMS, ErrorCategory: string(t.ErrorCategory),
		ErrorMessage: t.ErrorMessage, CanGenerateReport: t.CanGenerateReport,
	}
}

// TaskSummary is one entry of a task-history listing.
type TaskSummary struct {
	ID              string     `json:"id"`
	DeityID         string     `json:"deity_id"`
	FortuneNumber   int        `json:"fortune_number"`
	QuestionPreview string     `json:"question_preview"`
	State           string     `json:"state"`
	SubmittedAt     time.Time  `json:"submitted_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
}

const questionPreviewLen = 80

// taskToSummary converts a store-loaded task to its history-listing shape,
// truncating the question to a preview.
func taskToSummary(t *models.Task) TaskSummary {
	preview := t.Question
	if runes := []rune(preview); len(runes) > questionPreviewLen {
		preview = string(runes[:questionPreviewLen]) + "…"
	}
	return TaskSummary{
		ID: t.ID, DeityID: t.DeityID, FortuneNumber: t.Number, QuestionPreview: preview,
		State: string(t.State), SubmittedAt: t.SubmittedAt, CompletedAt: t.CompletedAt,
	}
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status  string                 `json:"status"`
	Version string                 `json:"version"`
	Checks  map[string]HealthCheck `json:"checks"`
	Pool    *queue.PoolHealth      `json:"worker_pool,omitempty"`
}

// HealthCheck represents the status of a single health check component.
type HealthCheck struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// BreakerSnapshotResponse is each entry of GET /api/v1/admin/breakers and
// the body returned by POST /api/v1/admin/breakers/:name/reset.
type BreakerSnapshotResponse struct {
	Name                string     `json:"name"`
	State               string     `json:"state"`
	ConsecutiveFailures uint32     `json:"consecutive_failures"`
	Requests            uint32     `json:"requests"`
	FailureThreshold    uint32     `json:"failure_threshold"`
	OpenTimeoutSeconds  float64    `json:"open_timeout_seconds"`
	LastFailure         *time.Time `json:"last_failure,omitempty"`
}
