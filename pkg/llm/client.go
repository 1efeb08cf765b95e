// Package llm adapts an OpenAI-compatible chat-completions endpoint into
// a provider-agnostic structured-output call: given a prompt, produce a
// validated seven-section Interpretation.
package llm

import (
	"context"
	"encoding/json"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/codeready-toolchain/fortuned/pkg/apperr"
	"github.com/codeready-toolchain/fortuned/pkg/config"
	"github.com/codeready-toolchain/fortuned/pkg/models"
)

// Client generates structured interpretations via a chat-completion model.
type Client struct {
	api   *openai.Client
	model string
	cfg   *config.LLMConfig
}

// New builds a Client from cfg. apiKey is resolved by the caller from
// cfg.APIKeyEnv (kept out of this package so callers control where
// secrets are read from).
func New(cfg *config.LLMConfig, apiKey string) *Client {
	clientCfg := openai.DefaultConfig(apiKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &Client{api: openai.NewClientWithConfig(clientCfg), model: cfg.Model, cfg: cfg}
}

// schemaJSON is the JSON schema describing models.Interpretation, used
// both for native structured-output requests and to embed in the prompt
// fallback.
const schemaJSON = `{
  "type": "object",
  "properties": {
    "line_by_line_interpretation": {"type": "string"},
    "overall_development": {"type": "string"},
    "positive_factors": {"type": "string"},
    "challenges": {"type": "string"},
    "suggested_actions": {"type": "string"},
    "supplementary_notes": {"type": "string"},
    "conclusion": {"type": "string"}
  },
  "required": [
    "line_by_line_interpretation", "overall_development", "positive_factors",
    "challenges", "suggested_actions", "supplementary_notes", "conclusion"
  ],
  "additionalProperties": false
}`

// maxParseAttempts bounds how many times Interpret calls the model for a
// single logical request: the first call plus up to two retries when the
// reply fails to parse as JSON or fails schema validation. A dependency
// failure or timeout is never retried here.
const maxParseAttempts = 3

// Interpret calls the model with prompt and returns a validated
// Interpretation, retrying up to twice more on a malformed reply (invalid
// JSON or a schema validation failure) before giving up. When
// cfg.StructuredOutputMode is "json_schema" it uses the provider's native
// structured-output support; otherwise it embeds the schema in the prompt
// and parses the reply as JSON.
func (c *Client) Interpret(ctx context.Context, prompt string) (*models.Interpretation, error) {
	var lastErr error
	for attempt := 1; attempt <= maxParseAttempts; attempt++ {
		interp, err := c.interpretOnce(ctx, prompt)
		if err == nil {
			return interp, nil
		}
		if apperr.CategoryOf(err) != apperr.CategoryMalformedModelOutput {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

func (c *Client) interpretOnce(ctx context.Context, prompt string) (*models.Interpretation, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: c.buildContent(prompt)},
		},
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxOutputTokens,
	}
	if c.cfg.StructuredOutputMode == "json_schema" {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   "interpretation",
				Schema: json.RawMessage(schemaJSON),
				Strict: true,
			},
		}
	}

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, apperr.New(apperr.CategoryTimeout, fmt.Errorf("llm call timed out: %w", ctx.Err()))
		}
		return nil, apperr.New(apperr.CategoryDependencyUnavailable, fmt.Errorf("llm call failed: %w", err))
	}
	if len(resp.Choices) == 0 {
		return nil, apperr.New(apperr.CategoryMalformedModelOutput, fmt.Errorf("model returned no choices"))
	}

	var interp models.Interpretation
	content := resp.Choices[0].Message.Content
	if err := json.Unmarshal([]byte(content), &interp); err != nil {
		return nil, apperr.New(apperr.CategoryMalformedModelOutput, fmt.Errorf("model reply is not valid JSON: %w", err))
	}
	if err := interp.Validate(); err != nil {
		return nil, apperr.New(apperr.CategoryMalformedModelOutput, fmt.Errorf("model reply failed validation: %w", err))
	}
	return &interp, nil
}

func (c *Client) buildContent(prompt string) string {
	if c.cfg.StructuredOutputMode == "json_schema" {
		return prompt
	}
	return prompt + "\n\nRespond with a single JSON object matching this schema, and nothing else:\n" + schemaJSON
}
