// Package queue is the Worker Pool: a fixed set of cooperative workers
// that claim Queued tasks from the Task Store, hand each to a
// TaskExecutor under a per-task timeout, and record the terminal
// outcome. It also runs backstop polling and a stuck-worker monitor.
package queue

import (
	"context"
	"errors"
	"time"

	"github.com/codeready-toolchain/fortuned/pkg/apperr"
	"github.com/codeready-toolchain/fortuned/pkg/models"
	"github.com/codeready-toolchain/fortuned/pkg/statuscode"
)

// Sentinel errors for queue operations.
var (
	// ErrNoTasksAvailable indicates no Queued tasks are in the store.
	ErrNoTasksAvailable = errors.New("no tasks available")

	// ErrAtCapacity indicates the global concurrent task limit has been reached.
	ErrAtCapacity = errors.New("at capacity")
)

// ProgressReporter is handed to a TaskExecutor so it can advance a task's
// status code and progress as it works; the worker pool wires this to
// both the Task Store (for persistence and monotonicity enforcement) and
// the Progress Bus (for live streaming).
type ProgressReporter func(code statuscode.Code, progress int, message string)

// TaskExecutor runs the Pipeline Orchestrator for a single task.
//
// The executor owns the entire task lifecycle from Processing onward: it
// consults the cache, calls the retrieval and model adapters behind their
// circuit breakers, reports progress via report, and observes the task's
// cancel flag at every suspension point. The worker only handles:
// claiming, the timeout context, terminal persistence, and publishing the
// final event.
type TaskExecutor interface {
	Execute(ctx context.Context, task *models.Task, report ProgressReporter) *ExecutionResult
}

// ExecutionResult is the terminal outcome of one task execution.
type ExecutionResult struct {
	State         models.TaskState // Completed, Failed, or Cancelled
	Result        *models.TaskResult
	Structured    *models.Interpretation
	Confidence    float32
	Sources       []string
	DurationMS    int64
	ErrorCategory apperr.Category
	ErrorMessage  string
}

// PoolHealth contains health information for the entire worker pool.
type PoolHealth struct {
	IsHealthy        bool           `json:"is_healthy"`
	StoreReachable   bool           `json:"store_reachable"`
	StoreError       string         `json:"store_error,omitempty"`
	PodID            string         `json:"pod_id"`
	ActiveWorkers    int            `json:"active_workers"`
	TotalWorkers     int            `json:"total_workers"`
	ActiveTasks      int            `json:"active_tasks"`
	MaxConcurrent    int            `json:"max_concurrent"`
	QueueDepth       int            `json:"queue_depth"`
	WorkerStats      []WorkerHealth `json:"worker_stats"`
	LastStuckScan    time.Time      `json:"last_stuck_scan"`
	StuckTasksLogged int            `json:"stuck_tasks_logged"`
}

// WorkerHealth contains health information for a single worker.
type WorkerHealth struct {
	ID              string    `json:"id"`
	Status          string    `json:"status"` // "idle" or "working"
	CurrentTaskID   string    `json:"current_task_id,omitempty"`
	TasksProcessed  int       `json:"tasks_processed"`
	LastActivity    time.Time `json:"last_activity"`
}
