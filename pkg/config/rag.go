package config

// RAGConfig configures the retrieval stage of the pipeline orchestrator.
type RAGConfig struct {
	// TopK is the number of poem chunks retrieved per query.
	TopK int `yaml:"top_k" validate:"required,min=1"`

	// MinScore filters out retrieved chunks below this similarity score.
	MinScore float32 `yaml:"min_score,omitempty"`
}

// DefaultRAGConfig returns the built-in retrieval defaults.
func DefaultRAGConfig() *RAGConfig {
	return &RAGConfig{
		TopK:     5,
		MinScore: 0,
	}
}
