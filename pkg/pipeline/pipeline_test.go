package pipeline

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/fortuned/pkg/apperr"
	"github.com/codeready-toolchain/fortuned/pkg/models"
	"github.com/codeready-toolchain/fortuned/pkg/statuscode"
)

func TestValidateLengthRejectsTooShort(t *testing.T) {
	interp := &models.Interpretation{
		LineByLineInterpretation: "a", OverallDevelopment: "b", PositiveFactors: "c",
		Challenges: "d", SuggestedActions: "e", SupplementaryNotes: "f", Conclusion: "g",
	}
	err := validateLength(interp)
	assert.Error(t, err)
}

func TestValidateLengthRejectsTooLong(t *testing.T) {
	long := strings.Repeat("x", maxResponseLen+1)
	interp := &models.Interpretation{
		LineByLineInterpretation: long, OverallDevelopment: "b", PositiveFactors: "c",
		Challenges: "d", SuggestedActions: "e", SupplementaryNotes: "f", Conclusion: "g",
	}
	err := validateLength(interp)
	assert.Error(t, err)
}

func TestValidateLengthAcceptsWithinRange(t *testing.T) {
	interp := &models.Interpretation{
		LineByLineInterpretation: strings.Repeat("a", 100), OverallDevelopment: strings.Repeat("b", 50),
		PositiveFactors: strings.Repeat("c", 50), Challenges: strings.Repeat("d", 50),
		SuggestedActions: strings.Repeat("e", 50), SupplementaryNotes: strings.Repeat("f", 30),
		Conclusion: strings.Repeat("g", 30),
	}
	assert.NoError(t, validateLength(interp))
}

func TestConcatenatePreservesOrderAndLabels(t *testing.T) {
	interp := &models.Interpretation{
		LineByLineInterpretation: "line", OverallDevelopment: "overall", PositiveFactors: "positive",
		Challenges: "challenge", SuggestedActions: "suggested", SupplementaryNotes: "notes", Conclusion: "conclusion",
	}
	out := concatenate(interp, "en")

	assert.Contains(t, out, "Line-by-line interpretation")
	assert.True(t, strings.Index(out, "line") < strings.Index(out, "overall"))
	assert.True(t, strings.Index(out, "overall") < strings.Index(out, "conclusion"))
}

func TestConcatenateWithUnknownLanguageOmitsLabels(t *testing.T) {
	interp := &models.Interpretation{Conclusion: "just the conclusion text"}
	out := concatenate(interp, "")
	assert.NotContains(t, out, "Conclusion")
	assert.Contains(t, out, "just the conclusion text")
}

func TestCancelledDetectsDoneContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	assert.False(t, cancelled(ctx))
	cancel()
	assert.True(t, cancelled(ctx))
}

func TestCancelledResultCarriesCancelledCategory(t *testing.T) {
	res := cancelledResult()
	assert.Equal(t, models.TaskCancelled, res.State)
	assert.Equal(t, apperr.CategoryCancelled, res.ErrorCategory)
}

func TestFailResultCarriesCategoryAndMessage(t *testing.T) {
	res := failResult(apperr.CategoryTimeout, "deadline exceeded")
	assert.Equal(t, models.TaskFailed, res.State)
	assert.Equal(t, apperr.CategoryTimeout, res.ErrorCategory)
	assert.Equal(t, "deadline exceeded", res.ErrorMessage)
}

func TestRunHeartbeatNeverExceedsNinety(t *testing.T) {
	p := &Pipeline{durations: newDurationTracker()}
	// start is far in the past relative to a tiny estimate, so the first
	// tick should already be "overtime" and clamped at 90.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var mu sync.Mutex
	var seen []int
	report := func(_ statuscode.Code, progress int, _ string) {
		mu.Lock()
		seen = append(seen, progress)
		mu.Unlock()
	}

	p.runHeartbeat(ctx, time.Now().Add(-20*time.Second), time.Second, "en", report)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, seen)
	for _, progress := range seen {
		assert.LessOrEqual(t, progress, 90)
		assert.GreaterOrEqual(t, progress, 60)
	}
}
