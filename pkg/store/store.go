// Package store is the durable Task Store: task records with a monotonic
// state machine, indexable by owner and by claim order, plus an
// append-only log of status-code transitions sufficient to replay a
// task's event history.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/codeready-toolchain/fortuned/pkg/apperr"
	"github.com/codeready-toolchain/fortuned/pkg/models"
	"github.com/codeready-toolchain/fortuned/pkg/statuscode"
)

// Store is the Task Store, backed directly by database/sql (no ORM): the
// claim/update/complete/fail/cancel operations below are each a single
// hand-written statement guarded by the conditions the state machine
// requires.
type Store struct {
	db *sql.DB
}

// New wraps an already-migrated *sql.DB.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Create persists a new task in the Queued state and returns its id. If
// task.ID is empty a new one is generated.
func (s *Store) Create(ctx context.Context, task *models.Task) (string, error) {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	if task.SubmittedAt.IsZero() {
		task.SubmittedAt = time.Now()
	}
	task.State = models.TaskQueued

	contextJSON, err := marshalOrNil(task.Context)
	if err != nil {
		return "", apperr.New(apperr.CategoryInternal, fmt.Errorf("marshal context: %w", err))
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO tasks (
			id, owner_id, deity_id, number, question, context, language, priority,
			state, progress, status_code, last_message, last_activity_at, submitted_at, can_generate_report
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		task.ID, task.OwnerID, task.DeityID, task.Number, task.Question, contextJSON,
		task.Language, task.Priority, string(task.State), task.Progress, int(task.StatusCode),
		task.LastMessage, task.SubmittedAt, task.SubmittedAt, task.CanGenerateReport,
	)
	if err != nil {
		return "", apperr.New(apperr.CategoryInternal, fmt.Errorf("create task: %w", err))
	}
	return task.ID, nil
}

// ClaimNext atomically transitions the oldest, highest-priority Queued
// task to Processing and returns it, or (nil, nil) if none is available.
// FOR UPDATE SKIP LOCKED lets concurrent workers race without blocking
// each other; a losing worker simply sees no row to claim.
func (s *Store) ClaimNext(ctx context.Context, workerID string) (*models.Task, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, apperr.New(apperr.CategoryInternal, fmt.Errorf("begin claim tx: %w", err))
	}
	defer func() { _ = tx.Rollback() }()

	var id string
	err = tx.QueryRowContext(ctx, `
		SELECT id FROM tasks
		WHERE state = $1
		ORDER BY priority DESC, submitted_at ASC
		LIMIT 1
		FOR UPDATE SKIP LOCKED`, string(models.TaskQueued),
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.New(apperr.CategoryInternal, fmt.Errorf("select claimable task: %w", err))
	}

	now := time.Now()
	_, err = tx.ExecContext(ctx, `
		UPDATE tasks SET state = $1, started_at = $2, claimed_by = $3, last_activity_at = $2
		WHERE id = $4`, string(models.TaskProcessing), now, workerID, id)
	if err != nil {
		return nil, apperr.New(apperr.CategoryInternal, fmt.Errorf("claim task %s: %w", id, err))
	}

	task, err := scanTask(tx.QueryRowContext(ctx, selectTaskByID, id))
	if err != nil {
		return nil, apperr.New(apperr.CategoryInternal, fmt.Errorf("reload claimed task %s: %w", id, err))
	}

	if err := tx.Commit(); err != nil {
		return nil, apperr.New(apperr.CategoryInternal, fmt.Errorf("commit claim tx: %w", err))
	}
	return task, nil
}

// UpdateProgress advances a Processing task's progress and status code,
// appending a row to the transition log. It fails with
// apperr.ErrConflictingUpdate if progress would decrease or the task is
// no longer Processing; callers must not blindly retry such a failure.
func (s *Store) UpdateProgress(ctx context.Context, id string, code statuscode.Code, progress int, message string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE tasks SET progress = $1, status_code = $2, last_message = $3, last_activity_at = now()
		WHERE id = $4 AND state = $5 AND progress <= $1`,
		progress, int(code), message, id, string(models.TaskProcessing))
	if err != nil {
		return apperr.New(apperr.CategoryInternal, fmt.Errorf("update progress for %s: %w", id, err))
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return apperr.New(apperr.CategoryInternal, fmt.Errorf("rows affected for %s: %w", id, err))
	}
	if rows == 0 {
		return fmt.Errorf("%w: task %s progress/state", apperr.ErrConflictingUpdate, id)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO task_status_transitions (task_id, sequence, status_code, progress, message)
		VALUES ($1, (SELECT COALESCE(MAX(sequence), 0) + 1 FROM task_status_transitions WHERE task_id = $1), $2, $3, $4)`,
		id, int(code), progress, message)
	if err != nil {
		return apperr.New(apperr.CategoryInternal, fmt.Errorf("log transition for %s: %w", id, err))
	}
	return nil
}

// Complete marks a task Completed with its final response.
func (s *Store) Complete(ctx context.Context, id string, result *models.TaskResult, structured *models.Interpretation, confidence float32, sources []string, durationMS int64) error {
	structuredJSON, err := marshalOrNil(structured)
	if err != nil {
		return apperr.New(apperr.CategoryInternal, fmt.Errorf("marshal structured result: %w", err))
	}
	sourcesJSON, err := marshalOrNil(sources)
	if err != nil {
		return apperr.New(apperr.CategoryInternal, fmt.Errorf("marshal sources: %w", err))
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE tasks SET
			state = $1, progress = 100, status_code = $2, last_message = $3,
			completed_at = $4, response = $5, structured = $6, confidence = $7,
			source_chunk_ids = $8, processing_time_ms = $9, can_generate_report = $10
		WHERE id = $11 AND state = $12`,
		string(models.TaskCompleted), int(statuscode.Completed), "complete",
		time.Now(), result.Response, structuredJSON, confidence, sourcesJSON,
		durationMS, result.CanGenerateReport, id, string(models.TaskProcessing))
	if err != nil {
		return apperr.New(apperr.CategoryInternal, fmt.Errorf("complete task %s: %w", id, err))
	}
	return checkTerminalTransition(res, id)
}

// Fail marks a task Failed with the given error category and message.
func (s *Store) Fail(ctx context.Context, id string, category apperr.Category, message string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE tasks SET
			state = $1, status_code = $2, last_message = $3, completed_at = $4,
			error_category = $5, error_message = $6
		WHERE id = $7 AND state = $8`,
		string(models.TaskFailed), int(statuscode.Failed), message,
		time.Now(), string(category), message, id, string(models.TaskProcessing))
	if err != nil {
		return apperr.New(apperr.CategoryInternal, fmt.Errorf("fail task %s: %w", id, err))
	}
	return checkTerminalTransition(res, id)
}

// Cancel sets the cancel flag on owner's task so the worker observes it
// at its next suspension point. Cancelling an already-terminal task is a
// no-op that returns success, not an error.
func (s *Store) Cancel(ctx context.Context, id, owner string) error {
	task, err := scanTask(s.db.QueryRowContext(ctx, selectTaskByID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.New(apperr.CategoryNotFound, fmt.Errorf("%w: task %s", apperr.ErrNotFound, id))
	}
	if err != nil {
		return apperr.New(apperr.CategoryInternal, fmt.Errorf("get task %s for cancel: %w", id, err))
	}
	if task.OwnerID != owner {
		return apperr.New(apperr.CategoryNotFound, fmt.Errorf("%w: task %s", apperr.ErrNotOwner, id))
	}
	if task.State.IsTerminal() {
		return nil
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE tasks SET cancel_requested = true
		WHERE id = $1 AND state IN ($2, $3)`,
		id, string(models.TaskQueued), string(models.TaskProcessing))
	if err != nil {
		return apperr.New(apperr.CategoryInternal, fmt.Errorf("cancel task %s: %w", id, err))
	}
	return nil
}

// MarkCancelled finalizes a task a worker observed the cancel flag on.
func (s *Store) MarkCancelled(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE tasks SET state = $1, status_code = $2, last_message = 'cancelled', completed_at = $3,
			error_category = $4, error_message = 'cancelled by owner'
		WHERE id = $5 AND state = $6`,
		string(models.TaskCancelled), int(statuscode.Cancelled), time.Now(),
		string(apperr.CategoryCancelled), id, string(models.TaskProcessing))
	if err != nil {
		return apperr.New(apperr.CategoryInternal, fmt.Errorf("mark cancelled %s: %w", id, err))
	}
	return checkTerminalTransition(res, id)
}

// Get returns id's task if owner is its owner, or apperr.ErrNotFound.
func (s *Store) Get(ctx context.Context, id, owner string) (*models.Task, error) {
	task, err := scanTask(s.db.QueryRowContext(ctx, selectTaskByID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.New(apperr.CategoryNotFound, fmt.Errorf("%w: task %s", apperr.ErrNotFound, id))
	}
	if err != nil {
		return nil, apperr.New(apperr.CategoryInternal, fmt.Errorf("get task %s: %w", id, err))
	}
	if task.OwnerID != owner {
		return nil, apperr.New(apperr.CategoryNotFound, fmt.Errorf("%w: task %s", apperr.ErrNotOwner, id))
	}
	return task, nil
}

// List returns owner's tasks newest-first.
func (s *Store) List(ctx context.Context, owner string, limit, offset int) ([]*models.Task, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+taskColumns+` FROM tasks
		WHERE owner_id = $1
		ORDER BY submitted_at DESC
		LIMIT $2 OFFSET $3`, owner, limit, offset)
	if err != nil {
		return nil, apperr.New(apperr.CategoryInternal, fmt.Errorf("list tasks for %s: %w", owner, err))
	}
	defer rows.Close()

	var tasks []*models.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, apperr.New(apperr.CategoryInternal, fmt.Errorf("scan listed task: %w", err))
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// CountProcessing returns the number of tasks currently in the Processing
// state, for the worker pool's global concurrency cap.
func (s *Store) CountProcessing(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tasks WHERE state = $1`, string(models.TaskProcessing),
	).Scan(&n)
	if err != nil {
		return 0, apperr.New(apperr.CategoryInternal, fmt.Errorf("count processing: %w", err))
	}
	return n, nil
}

// CountQueued returns the number of tasks currently waiting to be
// claimed, for health reporting.
func (s *Store) CountQueued(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tasks WHERE state = $1`, string(models.TaskQueued),
	).Scan(&n)
	if err != nil {
		return 0, apperr.New(apperr.CategoryInternal, fmt.Errorf("count queued: %w", err))
	}
	return n, nil
}

// StaleProcessing returns Processing tasks whose last_activity_at is older
// than olderThan, for the stuck-worker monitor. It does not itself change
// task state.
func (s *Store) StaleProcessing(ctx context.Context, olderThan time.Duration) ([]*models.Task, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+taskColumns+` FROM tasks
		WHERE state = $1 AND last_activity_at < $2`,
		string(models.TaskProcessing), time.Now().Add(-olderThan))
	if err != nil {
		return nil, apperr.New(apperr.CategoryInternal, fmt.Errorf("stale processing query: %w", err))
	}
	defer rows.Close()

	var tasks []*models.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, apperr.New(apperr.CategoryInternal, fmt.Errorf("scan stale task: %w", err))
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// RequeueClaimedBy transitions every Processing task claimed by workerID
// back to Queued, clearing the claim. Used on graceful shutdown so
// in-flight work is picked up by a surviving worker instead of being lost.
func (s *Store) RequeueClaimedBy(ctx context.Context, workerID string) (int, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE tasks SET state = $1, claimed_by = NULL, started_at = NULL, last_activity_at = now()
		WHERE claimed_by = $2 AND state = $3`,
		string(models.TaskQueued), workerID, string(models.TaskProcessing))
	if err != nil {
		return 0, apperr.New(apperr.CategoryInternal, fmt.Errorf("requeue claimed by %s: %w", workerID, err))
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, apperr.New(apperr.CategoryInternal, fmt.Errorf("rows affected requeue %s: %w", workerID, err))
	}
	return int(rows), nil
}

// Stats summarizes recent task outcomes for health reporting.
type Stats struct {
	ByStatus    map[models.TaskState]int64
	AvgMS       float64
	P95MS       float64
	SuccessRate float64
}

// Stats aggregates outcomes over the trailing windowHours.
func (s *Store) Stats(ctx context.Context, windowHours int) (Stats, error) {
	since := time.Now().Add(-time.Duration(windowHours) * time.Hour)

	byStatus := make(map[models.TaskState]int64)
	rows, err := s.db.QueryContext(ctx, `
		SELECT state, COUNT(*) FROM tasks WHERE submitted_at >= $1 GROUP BY state`, since)
	if err != nil {
		return Stats{}, apperr.New(apperr.CategoryInternal, fmt.Errorf("stats by_status: %w", err))
	}
	for rows.Next() {
		var state string
		var count int64
		if err := rows.Scan(&state, &count); err != nil {
			rows.Close()
			return Stats{}, apperr.New(apperr.CategoryInternal, fmt.Errorf("scan stats row: %w", err))
		}
		byStatus[models.TaskState(state)] = count
	}
	rows.Close()

	var avg, p95 sql.NullFloat64
	err = s.db.QueryRowContext(ctx, `
		SELECT AVG(processing_time_ms), PERCENTILE_CONT(0.95) WITHIN GROUP (ORDER BY processing_time_ms)
		FROM tasks WHERE submitted_at >= $1 AND processing_time_ms IS NOT NULL`, since,
	).Scan(&avg, &p95)
	if err != nil {
		return Stats{}, apperr.New(apperr.CategoryInternal, fmt.Errorf("stats durations: %w", err))
	}

	completed := byStatus[models.TaskCompleted]
	failed := byStatus[models.TaskFailed]
	var successRate float64
	if total := completed + failed; total > 0 {
		successRate = float64(completed) / float64(total)
	}

	return Stats{ByStatus: byStatus, AvgMS: avg.Float64, P95MS: p95.Float64, SuccessRate: successRate}, nil
}

func checkTerminalTransition(res sql.Result, id string) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return apperr.New(apperr.CategoryInternal, fmt.Errorf("rows affected for %s: %w", id, err))
	}
	if rows == 0 {
		return fmt.Errorf("%w: task %s already terminal", apperr.ErrConflictingUpdate, id)
	}
	return nil
}

func marshalOrNil(v any) ([]byte, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case *models.Interpretation:
		if x == nil {
			return nil, nil
		}
	case map[string]string:
		if len(x) == 0 {
			return nil, nil
		}
	case []string:
		if len(x) == 0 {
			return nil, nil
		}
	}
	return json.Marshal(v)
}
