package models

import (
	"time"

	"github.com/codeready-toolchain/fortuned/pkg/statuscode"
)

// EventType identifies the kind of a ProgressEvent on the wire.
type EventType string

const (
	EventStatus   EventType = "status"
	EventProgress EventType = "progress"
	EventComplete EventType = "complete"
	EventError    EventType = "error"
	EventPing     EventType = "ping"
	EventLag      EventType = "lag"
)

// ProgressEvent is one entry in a task's event stream. Within a task,
// sequence numbers strictly increase and the last event is always one of
// {complete, error}; ping and lag events carry no semantic progress.
type ProgressEvent struct {
	Type       EventType       `json:"type"`
	TaskID     string          `json:"-"`
	Status     statuscode.Code `json:"status,omitempty"`
	Progress   int             `json:"progress,omitempty"`
	Message    string          `json:"message,omitempty"`
	Data       map[string]any  `json:"data,omitempty"`
	Result     *TaskResult     `json:"result,omitempty"`
	Error      string          `json:"error,omitempty"`
	RetryAllowed bool          `json:"retry_allowed,omitempty"`
	Dropped    int             `json:"dropped,omitempty"`
	Sequence   int64           `json:"-"`
	Timestamp  time.Time       `json:"-"`
}

// TaskResult is the terminal payload of a {complete} event.
type TaskResult struct {
	Response          string  `json:"response"`
	Confidence        float32 `json:"confidence"`
	SourcesUsed       []string `json:"sources_used"`
	ProcessingTimeMS  int64   `json:"processing_time_ms"`
	CanGenerateReport bool    `json:"can_generate_report"`
}

// IsTerminal reports whether this event ends the task's event stream.
func (e ProgressEvent) IsTerminal() bool {
	return e.Type == EventComplete || e.Type == EventError
}
