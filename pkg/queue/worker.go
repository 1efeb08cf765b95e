package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/codeready-toolchain/fortuned/pkg/apperr"
	"github.com/codeready-toolchain/fortuned/pkg/bus"
	"github.com/codeready-toolchain/fortuned/pkg/config"
	"github.com/codeready-toolchain/fortuned/pkg/models"
	"github.com/codeready-toolchain/fortuned/pkg/statuscode"
	"github.com/codeready-toolchain/fortuned/pkg/store"
)

// WorkerStatus represents the current state of a worker.
type WorkerStatus string

// Worker status constants.
const (
	WorkerStatusIdle    WorkerStatus = "idle"
	WorkerStatusWorking WorkerStatus = "working"
)

// Worker is a single queue worker that polls for and processes tasks.
type Worker struct {
	id       string
	podID    string
	store    *store.Store
	bus      *bus.Bus
	config   *config.QueueConfig
	executor TaskExecutor
	pool     TaskRegistry
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	// Health tracking
	mu             sync.RWMutex
	status         WorkerStatus
	currentTaskID  string
	tasksProcessed int
	lastActivity   time.Time
}

// TaskRegistry is the subset of WorkerPool used by Worker for task
// cancellation registration.
type TaskRegistry interface {
	RegisterTask(taskID string, cancel context.CancelFunc)
	UnregisterTask(taskID string)
}

// NewWorker creates a new queue worker.
func NewWorker(id, podID string, st *store.Store, b *bus.Bus, cfg *config.QueueConfig, executor TaskExecutor, pool TaskRegistry) *Worker {
	return &Worker{
		id:           id,
		podID:        podID,
		store:        st,
		bus:          b,
		config:       cfg,
		executor:     executor,
		pool:         pool,
		stopCh:       make(chan struct{}),
		status:       WorkerStatusIdle,
		lastActivity: time.Now(),
	}
}

// Start begins the worker polling loop in a goroutine.
func (w *Worker) Start(ctx context.Context) {
	w.wg.Add(1)
	go w.run(ctx)
}

// Stop signals the worker to stop and waits for it to finish.
// It is safe to call Stop multiple times.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	w.wg.Wait()
}

// Health returns the current worker health status.
func (w *Worker) Health() WorkerHealth {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return WorkerHealth{
		ID:             w.id,
		Status:         string(w.status),
		CurrentTaskID:  w.currentTaskID,
		TasksProcessed: w.tasksProcessed,
		LastActivity:   w.lastActivity,
	}
}

// run is the main worker loop.
func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()

	log := slog.With("worker_id", w.id, "pod_id", w.podID)
	log.Info("Worker started")

	for {
		select {
		case <-w.stopCh:
			log.Info("Worker shutting down")
			return
		case <-ctx.Done():
			log.Info("Context cancelled, worker shutting down")
			return
		default:
			if err := w.pollAndProcess(ctx); err != nil {
				if errors.Is(err, ErrNoTasksAvailable) || errors.Is(err, ErrAtCapacity) {
					w.sleep(w.pollInterval())
					continue
				}
				log.Error("Error processing task", "error", err)
				w.sleep(time.Second) // Brief backoff on error
			}
		}
	}
}

// sleep waits for the given duration or until stop is signalled.
func (w *Worker) sleep(d time.Duration) {
	select {
	case <-w.stopCh:
	case <-time.After(d):
	}
}

// pollAndProcess checks capacity, claims a task, and processes it.
func (w *Worker) pollAndProcess(ctx context.Context) error {
	// 1. Check global capacity (best-effort; racy with concurrent workers
	//    but bounded by WorkerCount and mitigated by poll jitter).
	activeCount, err := w.store.CountProcessing(ctx)
	if err != nil {
		return fmt.Errorf("checking active tasks: %w", err)
	}
	if activeCount >= w.config.MaxConcurrentTasks {
		return ErrAtCapacity
	}

	// 2. Claim next task
	task, err := w.store.ClaimNext(ctx, w.id)
	if err != nil {
		return fmt.Errorf("claiming task: %w", err)
	}
	if task == nil {
		return ErrNoTasksAvailable
	}

	log := slog.With("task_id", task.ID, "worker_id", w.id)
	log.Info("Task claimed")

	w.setStatus(WorkerStatusWorking, task.ID)
	defer w.setStatus(WorkerStatusIdle, "")

	w.publishStatus(task.ID, statuscode.Initializing, "processing started")

	// 3. Create task context with timeout
	taskCtx, cancelTask := context.WithTimeout(ctx, w.config.TaskTimeout)
	defer cancelTask()

	// 4. Register cancel function for API-triggered cancellation
	w.pool.RegisterTask(task.ID, cancelTask)
	defer w.pool.UnregisterTask(task.ID)

	report := w.reporterFor(task.ID)

	// 5. Execute task
	result := w.executor.Execute(taskCtx, task, report)

	// 5a. Nil-guard and timeout/cancel synthesis.
	result = w.reconcileResult(taskCtx, result)

	// 6. Persist terminal outcome (background context — task ctx may be cancelled)
	if err := w.finalize(context.Background(), task.ID, result); err != nil {
		log.Error("Failed to finalize task", "error", err)
		return err
	}

	w.mu.Lock()
	w.tasksProcessed++
	w.mu.Unlock()

	log.Info("Task processing complete", "state", result.State)
	return nil
}

// reconcileResult fills in a terminal result when the executor returned
// nil, or when the task's context ended for a reason the executor itself
// didn't report.
func (w *Worker) reconcileResult(taskCtx context.Context, result *ExecutionResult) *ExecutionResult {
	if result != nil && result.State != "" {
		return result
	}

	switch {
	case errors.Is(taskCtx.Err(), context.DeadlineExceeded):
		return &ExecutionResult{
			State:         models.TaskFailed,
			ErrorCategory: apperr.CategoryTimeout,
			ErrorMessage:  fmt.Sprintf("task timed out after %v", w.config.TaskTimeout),
		}
	case errors.Is(taskCtx.Err(), context.Canceled):
		return &ExecutionResult{State: models.TaskCancelled}
	default:
		return &ExecutionResult{
			State:         models.TaskFailed,
			ErrorCategory: apperr.CategoryInternal,
			ErrorMessage:  "executor returned no terminal state",
		}
	}
}

// finalize writes the terminal outcome to the store and publishes the
// closing event on the task's bus topic.
func (w *Worker) finalize(ctx context.Context, taskID string, result *ExecutionResult) error {
	switch result.State {
	case models.TaskCompleted:
		if err := w.store.Complete(ctx, taskID, result.Result, result.Structured, result.Confidence, result.Sources, result.DurationMS); err != nil {
			return fmt.Errorf("complete task %s: %w", taskID, err)
		}
		w.bus.Publish(taskID, models.ProgressEvent{Type: models.EventComplete, Result: result.Result})

	case models.TaskCancelled:
		if err := w.store.MarkCancelled(ctx, taskID); err != nil {
			return fmt.Errorf("mark cancelled %s: %w", taskID, err)
		}
		w.bus.Publish(taskID, models.ProgressEvent{Type: models.EventError, Error: "cancelled", RetryAllowed: false})

	default:
		if err := w.store.Fail(ctx, taskID, result.ErrorCategory, result.ErrorMessage); err != nil {
			return fmt.Errorf("fail task %s: %w", taskID, err)
		}
		w.bus.Publish(taskID, models.ProgressEvent{
			Type:         models.EventError,
			Error:        result.ErrorMessage,
			RetryAllowed: retryAllowed(result.ErrorCategory),
		})
	}
	return nil
}

// retryAllowed reports whether a client may reasonably resubmit after a
// failure of the given category.
func retryAllowed(category apperr.Category) bool {
	switch category {
	case apperr.CategoryDependencyUnavailable, apperr.CategoryTimeout:
		return true
	default:
		return false
	}
}

// reporterFor builds the ProgressReporter the executor uses to advance
// this task's status, wiring it to both the store (for persistence and
// monotonicity) and the bus (for live streaming).
func (w *Worker) reporterFor(taskID string) ProgressReporter {
	return func(code statuscode.Code, progress int, message string) {
		if err := w.store.UpdateProgress(context.Background(), taskID, code, progress, message); err != nil {
			slog.Warn("Progress update rejected", "task_id", taskID, "error", err)
		}
		w.bus.Publish(taskID, models.ProgressEvent{
			Type:     models.EventProgress,
			Status:   code,
			Progress: progress,
			Message:  message,
		})
		w.setLastActivity()
	}
}

// publishStatus emits a status event without touching the store (used
// for the claim-time transition, which the claim itself already persisted).
func (w *Worker) publishStatus(taskID string, code statuscode.Code, message string) {
	w.bus.Publish(taskID, models.ProgressEvent{Type: models.EventStatus, Status: code, Message: message})
}

// pollInterval returns the poll duration with jitter.
func (w *Worker) pollInterval() time.Duration {
	base := w.config.PollInterval
	jitter := w.config.PollIntervalJitter
	if jitter <= 0 {
		return base
	}
	// Range: [base - jitter, base + jitter]
	offset := time.Duration(rand.Int64N(int64(2 * jitter)))
	return base - jitter + offset
}

// setStatus updates the worker's health tracking state.
func (w *Worker) setStatus(status WorkerStatus, taskID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.status = status
	w.currentTaskID = taskID
	w.lastActivity = time.Now()
}

func (w *Worker) setLastActivity() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.lastActivity = time.Now()
}
