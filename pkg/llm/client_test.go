package llm

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/fortuned/pkg/apperr"
	"github.com/codeready-toolchain/fortuned/pkg/config"
)

func fakeInterpretationJSON() string {
	return `{
		"line_by_line_interpretation": "` + strings.Repeat("a", 100) + `",
		"overall_development": "` + strings.Repeat("b", 50) + `",
		"positive_factors": "` + strings.Repeat("c", 50) + `",
		"challenges": "` + strings.Repeat("d", 50) + `",
		"suggested_actions": "` + strings.Repeat("e", 50) + `",
		"supplementary_notes": "` + strings.Repeat("f", 30) + `",
		"conclusion": "` + strings.Repeat("g", 30) + `"
	}`
}

func fakeServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{
				{Message: openai.ChatCompletionMessage{Content: content}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func TestInterpretReturnsValidatedResult(t *testing.T) {
	srv := fakeServer(t, fakeInterpretationJSON())
	defer srv.Close()

	cfg := &config.LLMConfig{
		Model:                "gpt-test",
		BaseURL:              srv.URL + "/v1",
		MaxOutputTokens:      512,
		RequestTimeout:       5 * time.Second,
		StructuredOutputMode: "prompt",
	}
	c := New(cfg, "test-key")

	interp, err := c.Interpret(t.Context(), "interpret this poem")
	require.NoError(t, err)
	assert.Contains(t, interp.Conclusion, "g")
}

func TestInterpretRejectsMalformedJSON(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		resp := openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: "not json"}}},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	cfg := &config.LLMConfig{
		Model:                "gpt-test",
		BaseURL:              srv.URL + "/v1",
		MaxOutputTokens:      512,
		RequestTimeout:       5 * time.Second,
		StructuredOutputMode: "prompt",
	}
	c := New(cfg, "test-key")

	_, err := c.Interpret(t.Context(), "interpret this poem")
	require.Error(t, err)
	assert.Equal(t, apperr.CategoryMalformedModelOutput, apperr.CategoryOf(err))
	assert.Equal(t, int32(maxParseAttempts), calls.Load(), "expected the initial call plus two retries on parse failure")
}

func TestInterpretRetriesThenSucceedsOnMalformedReply(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		content := "not json"
		if n == 2 {
			content = fakeInterpretationJSON()
		}
		resp := openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: content}}},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	cfg := &config.LLMConfig{
		Model:                "gpt-test",
		BaseURL:              srv.URL + "/v1",
		MaxOutputTokens:      512,
		RequestTimeout:       5 * time.Second,
		StructuredOutputMode: "prompt",
	}
	c := New(cfg, "test-key")

	interp, err := c.Interpret(t.Context(), "interpret this poem")
	require.NoError(t, err)
	assert.Contains(t, interp.Conclusion, "g")
	assert.Equal(t, int32(2), calls.Load())
}

func TestInterpretDoesNotRetryDependencyFailure(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := &config.LLMConfig{
		Model:                "gpt-test",
		BaseURL:              srv.URL + "/v1",
		MaxOutputTokens:      512,
		RequestTimeout:       5 * time.Second,
		StructuredOutputMode: "prompt",
	}
	c := New(cfg, "test-key")

	_, err := c.Interpret(t.Context(), "interpret this poem")
	require.Error(t, err)
	assert.Equal(t, apperr.CategoryDependencyUnavailable, apperr.CategoryOf(err))
	assert.Equal(t, int32(1), calls.Load(), "a dependency-unavailable failure should not be retried")
}
