package config

import "time"

// LLMConfig configures the chat-completion provider used by the pipeline
// orchestrator's interpretation stage.
type LLMConfig struct {
	// Model is the chat-completion model name (required).
	Model string `yaml:"model" validate:"required"`

	// APIKeyEnv names the environment variable holding the API key.
	APIKeyEnv string `yaml:"api_key_env,omitempty"`

	// BaseURL overrides the provider endpoint, for OpenAI-compatible
	// self-hosted backends.
	BaseURL string `yaml:"base_url,omitempty"`

	// Temperature controls sampling randomness.
	Temperature float32 `yaml:"temperature,omitempty"`

	// MaxOutputTokens bounds the generated completion length.
	MaxOutputTokens int `yaml:"max_output_tokens" validate:"required,min=256"`

	// RequestTimeout bounds a single completion call.
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// StructuredOutputMode selects how the seven-section interpretation
	// schema is requested: "json_schema" uses the provider's native
	// structured-output support, "prompt" embeds the schema in the
	// prompt and parses the reply as a fallback.
	StructuredOutputMode string `yaml:"structured_output_mode,omitempty"`
}

// DefaultLLMConfig returns the built-in LLM defaults.
func DefaultLLMConfig() *LLMConfig {
	return &LLMConfig{
		Model:                "gpt-4o-mini",
		APIKeyEnv:            "OPENAI_API_KEY",
		Temperature:          0.7,
		MaxOutputTokens:      2048,
		RequestTimeout:       45 * time.Second,
		StructuredOutputMode: "json_schema",
	}
}
