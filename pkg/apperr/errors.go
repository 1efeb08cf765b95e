// Package apperr defines the task-processing error taxonomy shared by the
// pipeline orchestrator, worker pool, and HTTP/SSE boundary.
package apperr

import (
	"errors"
	"fmt"
)

// Category classifies a task-processing failure into one of the seven
// buckets the stream gateway maps onto a status code band.
type Category string

const (
	// CategoryInvalidInput covers malformed submissions: unknown deity,
	// out-of-range fortune number, unsupported language.
	CategoryInvalidInput Category = "invalid_input"

	// CategoryNotFound covers references to a task or poem that doesn't exist.
	CategoryNotFound Category = "not_found"

	// CategoryDependencyUnavailable covers the vector store or LLM
	// provider being unreachable or breaker-open.
	CategoryDependencyUnavailable Category = "dependency_unavailable"

	// CategoryTimeout covers a stage or the whole task exceeding its
	// configured deadline.
	CategoryTimeout Category = "timeout"

	// CategoryMalformedModelOutput covers an LLM reply that fails
	// structured-output validation after retry.
	CategoryMalformedModelOutput Category = "malformed_model_output"

	// CategoryCancelled covers a task cancelled by its owner.
	CategoryCancelled Category = "cancelled"

	// CategoryInternal covers anything else: programmer error, database
	// failure, unexpected panic recovery.
	CategoryInternal Category = "internal"
)

var (
	// ErrNotFound is returned when a task or poem lookup misses.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyTerminal names a task that already reached a terminal
	// status. Store.Cancel does not return it (cancelling a terminal task
	// is a successful no-op), and a terminal-transition conflict is
	// reported as ErrConflictingUpdate.
	ErrAlreadyTerminal = errors.New("task already in a terminal state")

	// ErrNotOwner is returned when the caller identity doesn't match the
	// task's owning identity.
	ErrNotOwner = errors.New("caller does not own this task")

	// ErrConflictingUpdate is returned by the task store when a write
	// would violate a monotonicity invariant (state regression, progress
	// decrease). Callers must not blindly retry it.
	ErrConflictingUpdate = errors.New("conflicting update")
)

// TaskError wraps a failure with the category the HTTP/SSE boundary and
// the pipeline orchestrator need to decide how to present and whether to
// retry it.
type TaskError struct {
	Category Category
	Err      error
}

// Error implements error.
func (e *TaskError) Error() string {
	return fmt.Sprintf("%s: %v", e.Category, e.Err)
}

// Unwrap allows errors.Is/errors.As to reach the wrapped cause.
func (e *TaskError) Unwrap() error {
	return e.Err
}

// New wraps err with category, or returns nil if err is nil.
func New(category Category, err error) error {
	if err == nil {
		return nil
	}
	return &TaskError{Category: category, Err: err}
}

// Newf builds a TaskError from a formatted message.
func Newf(category Category, format string, args ...any) error {
	return &TaskError{Category: category, Err: fmt.Errorf(format, args...)}
}

// CategoryOf extracts the category from err, defaulting to
// CategoryInternal when err carries none.
func CategoryOf(err error) Category {
	var te *TaskError
	if errors.As(err, &te) {
		return te.Category
	}
	return CategoryInternal
}
