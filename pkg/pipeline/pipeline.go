// Package pipeline is the Pipeline Orchestrator: it runs a single task
// through cache probe, retrieval, prompt assembly, model invocation, and
// validation, producing the terminal result the worker pool persists.
//
// Grounded on the original system's FortuneChromaSystem.search_and_prepare
// / _create_llm_prompt pipeline shape and its StreamingProcessor's staged
// progress reporting, generalized to Go's synchronous call/error
// convention and the closed statuscode.Code set. See DESIGN.md for why
// this package has no single upstream analogue to adapt wholesale.
package pipeline

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/codeready-toolchain/fortuned/pkg/apperr"
	"github.com/codeready-toolchain/fortuned/pkg/breaker"
	"github.com/codeready-toolchain/fortuned/pkg/cache"
	"github.com/codeready-toolchain/fortuned/pkg/config"
	"github.com/codeready-toolchain/fortuned/pkg/deity"
	"github.com/codeready-toolchain/fortuned/pkg/llm"
	"github.com/codeready-toolchain/fortuned/pkg/models"
	"github.com/codeready-toolchain/fortuned/pkg/queue"
	"github.com/codeready-toolchain/fortuned/pkg/statuscode"
	"github.com/codeready-toolchain/fortuned/pkg/vectorstore"
)

// minResponseLen and maxResponseLen bound the concatenated interpretation
// text after validation; outside this range the reply is treated as
// malformed even if every section individually met its minimum length.
const (
	minResponseLen = 300
	maxResponseLen = 20000
)

// Pipeline implements queue.TaskExecutor for the fortune-interpretation
// domain.
type Pipeline struct {
	deities *deity.Registry
	vstore  *vectorstore.Store
	llm     *llm.Client
	cache   *cache.Cache

	vstoreBreaker *breaker.Breaker[any]
	llmBreaker    *breaker.Breaker[any]

	rag    *config.RAGConfig
	prompt *promptBuilder

	durations *durationTracker
}

// New builds a Pipeline from its dependencies. vstoreBreaker and
// llmBreaker each guard every call to their respective dependency, so
// failures across the pipeline's several vector-store and LLM calls
// accumulate against a single per-dependency trip count.
func New(
	deities *deity.Registry,
	vstore *vectorstore.Store,
	llmClient *llm.Client,
	resultCache *cache.Cache,
	vstoreBreaker *breaker.Breaker[any],
	llmBreaker *breaker.Breaker[any],
	rag *config.RAGConfig,
) *Pipeline {
	return &Pipeline{
		deities:       deities,
		vstore:        vstore,
		llm:           llmClient,
		cache:         resultCache,
		vstoreBreaker: vstoreBreaker,
		llmBreaker:    llmBreaker,
		rag:           rag,
		prompt:        newPromptBuilder(),
		durations:     newDurationTracker(),
	}
}

var _ queue.TaskExecutor = (*Pipeline)(nil)

// Execute runs the full seven-stage interpretation pipeline for task,
// reporting progress through report as it goes. It never touches the
// task store or the progress bus directly — that wiring belongs to the
// worker pool that calls it.
func (p *Pipeline) Execute(ctx context.Context, task *models.Task, report queue.ProgressReporter) *queue.ExecutionResult {
	started := time.Now()

	// Stage 1: Initialize.
	report(statuscode.Initializing, 5, statuscode.Message(statuscode.Initializing, task.Language))

	if task.CancelRequested {
		return cancelledResult()
	}
	question := strings.TrimSpace(task.Question)
	if question == "" {
		return failResult(apperr.CategoryInvalidInput, "question must not be empty")
	}
	temple, err := p.deities.Resolve(task.DeityID)
	if err != nil {
		return failResult(apperr.CategoryInvalidInput, err.Error())
	}

	// Stage 2: Cache probe.
	report(statuscode.CacheProbe, 10, statuscode.Message(statuscode.CacheProbe, task.Language))
	key := cache.KeyFor(temple, task.Number, question, task.Language)
	if hit, ok := p.cache.Get(key); ok {
		return &queue.ExecutionResult{
			State: models.TaskCompleted,
			Result: &models.TaskResult{
				Response:         hit.Response,
				Confidence:       hit.Confidence,
				SourcesUsed:      hit.SourceChunkIDs,
				ProcessingTimeMS: time.Since(started).Milliseconds(),
			},
			Confidence: hit.Confidence,
			Sources:    hit.SourceChunkIDs,
			DurationMS: time.Since(started).Milliseconds(),
		}
	}

	if cancelled(ctx) {
		return cancelledResult()
	}

	// Stage 3: RAG.
	report(statuscode.RetrievingContext, 15, statuscode.Message(statuscode.RetrievingContext, task.Language))
	poemChunks, extra, sources, confidence, err := p.retrieve(ctx, temple, task.Number, question, task.Language)
	if err != nil {
		return failResult(apperr.CategoryOf(err), err.Error())
	}
	report(statuscode.RetrievingContext, 20, statuscode.Message(statuscode.RetrievingContext, task.Language))

	if cancelled(ctx) {
		return cancelledResult()
	}

	// Stage 4: prompt assembly.
	report(statuscode.BuildingPrompt, 25, statuscode.Message(statuscode.BuildingPrompt, task.Language))
	promptText := p.prompt.Build(poemChunks, extra, question, task.Language)

	if cancelled(ctx) {
		return cancelledResult()
	}

	// Stage 5: model invocation, with one tightened retry on validation
	// failure (stage 6).
	report(statuscode.CallingModel, 30, statuscode.Message(statuscode.CallingModel, task.Language))
	interp, err := p.invoke(ctx, promptText, task.Language, report)
	if err != nil {
		return failResult(apperr.CategoryOf(err), err.Error())
	}

	if validationErr := validateLength(interp); validationErr != nil {
		retryPrompt := p.prompt.Tighten(promptText, task.Language)
		interp, err = p.invoke(ctx, retryPrompt, task.Language, report)
		if err != nil {
			return failResult(apperr.CategoryOf(err), err.Error())
		}
		if validationErr := validateLength(interp); validationErr != nil {
			return failResult(apperr.CategoryMalformedModelOutput, validationErr.Error())
		}
	}

	if cancelled(ctx) {
		return cancelledResult()
	}

	// Stage 6: validation confirmed above; report it explicitly for the
	// event stream.
	report(statuscode.ValidatingOutput, 92, statuscode.Message(statuscode.ValidatingOutput, task.Language))

	// Stage 7: finalize.
	report(statuscode.Finalizing, 95, statuscode.Message(statuscode.Finalizing, task.Language))
	responseText := concatenate(interp, task.Language)
	durationMS := time.Since(started).Milliseconds()

	p.cache.Put(key, models.CacheEntry{
		Response:         responseText,
		Confidence:       confidence,
		SourceChunkIDs:   sources,
		ProcessingTimeMS: durationMS,
		CreatedAt:        time.Now(),
	})

	return &queue.ExecutionResult{
		State: models.TaskCompleted,
		Result: &models.TaskResult{
			Response:          responseText,
			Confidence:        confidence,
			SourcesUsed:       sources,
			ProcessingTimeMS:  durationMS,
			CanGenerateReport: true,
		},
		Structured: interp,
		Confidence: confidence,
		Sources:    sources,
		DurationMS: durationMS,
	}
}

// retrieve fetches the authoritative poem chunks and up to rag.TopK
// contextual chunks for question, deduplicating any contextual chunk
// whose ID already appears among the authoritative ones. Authoritative
// chunks are always listed first in the combined source list. confidence
// is the minimum cosine-similarity complement (1 - distance) across the
// contextual chunks kept, or 0.5 when none were kept — the poem was then
// interpreted from its authoritative text alone.
func (p *Pipeline) retrieve(ctx context.Context, temple string, number int, question, language string) (poem []*models.PoemChunk, extra []*models.PoemChunk, sources []string, confidence float32, err error) {
	start := time.Now()
	defer func() { p.durations.Record("rag", time.Since(start)) }()

	poemAny, err := p.vstoreBreaker.Execute(ctx, func(ctx context.Context) (any, error) {
		return p.vstore.GetPoem(temple, number)
	})
	if err != nil {
		return nil, nil, nil, 0, err
	}
	poem = poemAny.([]*models.PoemChunk)

	seen := make(map[string]bool, len(poem))
	for _, c := range poem {
		seen[c.ID] = true
		sources = append(sources, c.ID)
	}

	resultsAny, err := p.vstoreBreaker.Execute(ctx, func(ctx context.Context) (any, error) {
		return p.vstore.Search(ctx, temple, number, question, language, p.rag.TopK)
	})
	if err != nil {
		return nil, nil, nil, 0, err
	}
	results := resultsAny.([]vectorstore.Result)

	sort.Slice(results, func(i, j int) bool { return results[i].Distance < results[j].Distance })
	confidence = 0.5
	haveExtra := false
	for _, r := range results {
		if seen[r.Chunk.ID] {
			continue
		}
		similarity := 1 - r.Distance
		if p.rag.MinScore > 0 && similarity < p.rag.MinScore {
			continue
		}
		seen[r.Chunk.ID] = true
		extra = append(extra, r.Chunk)
		sources = append(sources, r.Chunk.ID)
		if !haveExtra || similarity < confidence {
			confidence = similarity
		}
		haveExtra = true
	}
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}
	return poem, extra, sources, confidence, nil
}

// invoke calls the LLM guarded by the breaker, running a heartbeat
// goroutine alongside it that reports adaptive progress between the
// model-call and validation bands based on the rolling average duration
// of past calls. The heartbeat never advances progress past 90.
func (p *Pipeline) invoke(ctx context.Context, promptText, language string, report queue.ProgressReporter) (*models.Interpretation, error) {
	start := time.Now()
	estimate := p.durations.Estimate("llm")

	hbCtx, stopHeartbeat := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		p.runHeartbeat(hbCtx, start, estimate, language, report)
	}()

	interpAny, err := p.llmBreaker.Execute(ctx, func(ctx context.Context) (any, error) {
		return p.llm.Interpret(ctx, promptText)
	})
	stopHeartbeat()
	wg.Wait()

	p.durations.Record("llm", time.Since(start))

	if err != nil {
		return nil, err
	}
	report(statuscode.ModelRespondedC, 90, statuscode.Message(statuscode.ModelRespondedC, language))
	return interpAny.(*models.Interpretation), nil
}

// runHeartbeat emits adaptive progress updates every 0.8-1.5 seconds
// until ctx is cancelled (the model call finished or the task was
// cancelled), phrasing each update as early/middle/late/overtime based
// on elapsed time versus estimate.
func (p *Pipeline) runHeartbeat(ctx context.Context, start time.Time, estimate time.Duration, language string, report queue.ProgressReporter) {
	for {
		interval := 800*time.Millisecond + time.Duration(rand.Int64N(int64(700*time.Millisecond)))
		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			elapsed := time.Since(start)
			frac := 0.0
			if estimate > 0 {
				frac = float64(elapsed) / float64(estimate)
			}
			progress := 60 + int(frac*30)
			if progress > 90 {
				progress = 90
			}
			if progress < 60 {
				progress = 60
			}
			phrase := statuscode.HeartbeatPhrase(frac, language)
			report(statuscode.Heartbeat, progress, phrase)
		}
	}
}

// validateLength checks the total concatenated length of interp's
// sections falls within [minResponseLen, maxResponseLen]; per-section
// minimums are already enforced by Interpretation.Validate, which the
// LLM adapter calls before ever returning interp.
func validateLength(interp *models.Interpretation) error {
	total := len([]rune(concatenate(interp, "")))
	if total < minResponseLen {
		return fmt.Errorf("interpretation too short: %d characters (minimum %d)", total, minResponseLen)
	}
	if total > maxResponseLen {
		return fmt.Errorf("interpretation too long: %d characters (maximum %d)", total, maxResponseLen)
	}
	return nil
}

var sectionLabels = map[string]map[string]string{
	"zh": {
		"line_by_line_interpretation": "逐句解读", "overall_development": "整体运势走向",
		"positive_factors": "有利因素", "challenges": "挑战与注意事项",
		"suggested_actions": "建议行动", "supplementary_notes": "补充说明", "conclusion": "结语",
	},
	"en": {
		"line_by_line_interpretation": "Line-by-line interpretation", "overall_development": "Overall development",
		"positive_factors": "Positive factors", "challenges": "Challenges",
		"suggested_actions": "Suggested actions", "supplementary_notes": "Supplementary notes", "conclusion": "Conclusion",
	},
	"ja": {
		"line_by_line_interpretation": "逐語解釈", "overall_development": "全体的な運勢の展開",
		"positive_factors": "好材料", "challenges": "課題",
		"suggested_actions": "推奨される行動", "supplementary_notes": "補足事項", "conclusion": "結論",
	},
}

// concatenate joins interp's seven sections, preserving their labels, in
// fixed order. Passing an empty language writes only the section values,
// with no label or key, used internally by validateLength where the
// label text itself shouldn't count toward the length check either way.
func concatenate(interp *models.Interpretation, language string) string {
	labels := sectionLabels[language]
	sections := []struct {
		key   string
		value string
	}{
		{"line_by_line_interpretation", interp.LineByLineInterpretation},
		{"overall_development", interp.OverallDevelopment},
		{"positive_factors", interp.PositiveFactors},
		{"challenges", interp.Challenges},
		{"suggested_actions", interp.SuggestedActions},
		{"supplementary_notes", interp.SupplementaryNotes},
		{"conclusion", interp.Conclusion},
	}
	var sb strings.Builder
	for _, s := range sections {
		if labels != nil {
			sb.WriteString(labels[s.key])
			sb.WriteString("\n")
		}
		sb.WriteString(s.value)
		sb.WriteString("\n\n")
	}
	return strings.TrimSpace(sb.String())
}

func cancelled(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

func cancelledResult() *queue.ExecutionResult {
	return &queue.ExecutionResult{
		State:         models.TaskCancelled,
		ErrorCategory: apperr.CategoryCancelled,
		ErrorMessage:  "cancelled",
	}
}

func failResult(category apperr.Category, message string) *queue.ExecutionResult {
	return &queue.ExecutionResult{
		State:         models.TaskFailed,
		ErrorCategory: category,
		ErrorMessage:  message,
	}
}
