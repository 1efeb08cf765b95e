package config

// VectorStoreConfig configures the embedded similarity index.
type VectorStoreConfig struct {
	// PersistPath is the directory the vector index persists to on disk.
	PersistPath string `yaml:"persist_path" validate:"required"`

	// Collection is the name of the chromem-go collection holding poem chunks.
	Collection string `yaml:"collection,omitempty"`

	// EmbeddingAPIKeyEnv names the environment variable holding the
	// embedding provider's API key, when EmbeddingModel requires one.
	EmbeddingAPIKeyEnv string `yaml:"embedding_api_key_env,omitempty"`

	// EmbeddingModel is the embedding model identifier used to vectorize
	// poem chunks and incoming questions.
	EmbeddingModel string `yaml:"embedding_model,omitempty"`
}

// DefaultVectorStoreConfig returns the built-in vector store defaults.
func DefaultVectorStoreConfig() *VectorStoreConfig {
	return &VectorStoreConfig{
		PersistPath:    "./data/vectorstore",
		Collection:     "poems",
		EmbeddingModel: "text-embedding-3-small",
	}
}
