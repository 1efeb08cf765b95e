// Package statuscode defines the closed, stable numeric status-code set a
// task's progress events carry, grouped by phase: 0-9 queue/init, 10-19
// RAG, 20-39 LLM, 40-49 LLM streaming/heartbeat, 50-59 validation, 60-69
// completion, 70-79 errors.
package statuscode

// Code is one value from the closed status-code set.
type Code int

const (
	// Queue / init band (0-9).
	Queued       Code = 0
	Initializing Code = 5

	// RAG band (10-19).
	CacheProbe        Code = 10
	RetrievingContext Code = 15

	// LLM band (20-39).
	BuildingPrompt  Code = 20
	CallingModel    Code = 25
	ModelRespondedC Code = 35

	// LLM streaming / heartbeat band (40-49).
	Heartbeat Code = 40

	// Validation band (50-59).
	ValidatingOutput Code = 50

	// Completion band (60-69).
	Finalizing Code = 60
	Completed  Code = 65

	// Error band (70-79).
	Failed    Code = 70
	Cancelled Code = 75
)

// Band returns the ten-wide phase grouping a code belongs to, e.g. 10 for
// any code in [10, 19].
func Band(c Code) int {
	return (int(c) / 10) * 10
}

// IsTerminal reports whether a code marks the end of a task's event stream.
func IsTerminal(c Code) bool {
	return Band(c) == 60 || Band(c) == 70
}
