// Package models holds the plain Go types shared across the task
// lifecycle engine, pipeline orchestrator, progress bus, and HTTP layer.
package models

import (
	"time"

	"github.com/codeready-toolchain/fortuned/pkg/apperr"
	"github.com/codeready-toolchain/fortuned/pkg/statuscode"
)

// TaskState is a task's position in the Queued -> Processing ->
// {Completed|Failed|Cancelled} lifecycle.
type TaskState string

const (
	TaskQueued     TaskState = "queued"
	TaskProcessing TaskState = "processing"
	TaskCompleted  TaskState = "completed"
	TaskFailed     TaskState = "failed"
	TaskCancelled  TaskState = "cancelled"
)

// IsTerminal reports whether s is one of the DAG's terminal states.
func (s TaskState) IsTerminal() bool {
	return s == TaskCompleted || s == TaskFailed || s == TaskCancelled
}

// Task is a single fortune-interpretation request and its lifecycle state.
type Task struct {
	ID       string
	OwnerID  string
	DeityID  string
	Number   int
	Question string
	Context  map[string]string
	Language string

	// Priority orders claims within the queue; higher values claim
	// first. Defaults to 0.
	Priority int

	State       TaskState
	Progress    int
	StatusCode  statuscode.Code
	LastMessage string
	ClaimedBy   string
	// LastActivityAt advances on every progress update; the worker pool's
	// stuck-worker monitor compares it against the configured threshold.
	LastActivityAt time.Time
	SubmittedAt    time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time

	Response           string
	Structured         *Interpretation
	Confidence         *float32
	SourceChunkIDs     []string
	ProcessingTimeMS   *int64
	ErrorCategory      apperr.Category
	ErrorMessage       string
	CanGenerateReport  bool
	RetryCount         int

	// CancelRequested is observed at the next suspension point inside the
	// pipeline orchestrator; it does not interrupt mid-flight work.
	CancelRequested bool
}
