package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDurationTrackerDefaultsBeforeAnySample(t *testing.T) {
	tr := newDurationTracker()
	assert.Equal(t, 3*time.Second, tr.Estimate("rag"))
	assert.Equal(t, 15*time.Second, tr.Estimate("llm"))
	assert.Equal(t, 5*time.Second, tr.Estimate("unknown"))
}

func TestDurationTrackerAverages(t *testing.T) {
	tr := newDurationTracker()
	tr.Record("llm", 10*time.Second)
	tr.Record("llm", 20*time.Second)
	assert.Equal(t, 15*time.Second, tr.Estimate("llm"))
}

func TestDurationTrackerKeepsOnlyRecentSamples(t *testing.T) {
	tr := newDurationTracker()
	for i := 0; i < maxSamplesPerKind+5; i++ {
		tr.Record("rag", time.Duration(i+1)*time.Second)
	}
	tr.mu.Lock()
	n := len(tr.samples["rag"])
	tr.mu.Unlock()
	assert.Equal(t, maxSamplesPerKind, n)
}
