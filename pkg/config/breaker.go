package config

import "time"

// BreakerConfig configures one circuit breaker instance guarding an
// external dependency (the vector store or the LLM provider).
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive failures that trips
	// the breaker from closed to open.
	FailureThreshold uint32 `yaml:"failure_threshold" validate:"required,min=1"`

	// OpenTimeout is how long the breaker stays open before allowing a
	// half-open trial request.
	OpenTimeout time.Duration `yaml:"open_timeout"`

	// HalfOpenMaxRequests bounds how many trial requests are allowed
	// through while half-open.
	HalfOpenMaxRequests uint32 `yaml:"half_open_max_requests" validate:"required,min=1"`
}

// BreakersConfig groups the per-dependency breaker configuration.
type BreakersConfig struct {
	VectorStore *BreakerConfig `yaml:"vectorstore,omitempty"`
	LLM         *BreakerConfig `yaml:"llm,omitempty"`
}

// DefaultBreakerConfig returns the built-in breaker defaults for the LLM
// provider, the dependency with the loosest tolerance for a slow or
// truncated call.
func DefaultBreakerConfig() *BreakerConfig {
	return &BreakerConfig{
		FailureThreshold:    5,
		OpenTimeout:         60 * time.Second,
		HalfOpenMaxRequests: 1,
	}
}

// DefaultVectorStoreBreakerConfig returns the built-in breaker defaults
// for the vector store. The same breaker also guards RAG retrieval: in
// this architecture retrieval has no dependency of its own, it is
// GetPoem/Search calls directly against the vector store, so a separate
// RAG breaker would trip on exactly the same failures this one already
// does (see DESIGN.md).
func DefaultVectorStoreBreakerConfig() *BreakerConfig {
	return &BreakerConfig{
		FailureThreshold:    3,
		OpenTimeout:         45 * time.Second,
		HalfOpenMaxRequests: 1,
	}
}

// DefaultBreakersConfig returns built-in defaults for every guarded
// dependency.
func DefaultBreakersConfig() *BreakersConfig {
	return &BreakersConfig{
		VectorStore: DefaultVectorStoreBreakerConfig(),
		LLM:         DefaultBreakerConfig(),
	}
}
