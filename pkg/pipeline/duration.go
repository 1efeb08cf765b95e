package pipeline

import (
	"sync"
	"time"
)

// durationTracker keeps a rolling average duration per named operation
// kind ("rag", "llm"), used to phrase heartbeat messages adaptively:
// without a prior sample, a conservative default estimate is used
// instead.
//
// Grounded on the original system's SmartStreamingProcessor, which keeps
// a short history of completed operations per type and averages the most
// recent ones to estimate how long the current one will take.
type durationTracker struct {
	mu      sync.Mutex
	samples map[string][]time.Duration
}

const maxSamplesPerKind = 10

var defaultEstimate = map[string]time.Duration{
	"rag": 3 * time.Second,
	"llm": 15 * time.Second,
}

func newDurationTracker() *durationTracker {
	return &durationTracker{samples: make(map[string][]time.Duration)}
}

// Estimate returns the rolling average duration observed for kind, or a
// built-in default when no samples have been recorded yet.
func (t *durationTracker) Estimate(kind string) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	samples := t.samples[kind]
	if len(samples) == 0 {
		if d, ok := defaultEstimate[kind]; ok {
			return d
		}
		return 5 * time.Second
	}
	var sum time.Duration
	for _, s := range samples {
		sum += s
	}
	return sum / time.Duration(len(samples))
}

// Record appends an observed duration for kind, keeping only the most
// recent maxSamplesPerKind samples.
func (t *durationTracker) Record(kind string, d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	samples := append(t.samples[kind], d)
	if len(samples) > maxSamplesPerKind {
		samples = samples[len(samples)-maxSamplesPerKind:]
	}
	t.samples[kind] = samples
}
