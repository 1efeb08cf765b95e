package config

import "fmt"

// Validator validates configuration comprehensively with clear error messages
type Validator struct {
	cfg *Config
}

// NewValidator creates a validator for the given configuration
func NewValidator(cfg *Config) *Validator {
	return &Validator{cfg: cfg}
}

// ValidateAll performs comprehensive validation (fail-fast - stops at first error)
func (v *Validator) ValidateAll() error {
	if err := v.validateQueue(); err != nil {
		return fmt.Errorf("queue validation failed: %w", err)
	}
	if err := v.validateCache(); err != nil {
		return fmt.Errorf("cache validation failed: %w", err)
	}
	if err := v.validateRAG(); err != nil {
		return fmt.Errorf("rag validation failed: %w", err)
	}
	if err := v.validateVectorStore(); err != nil {
		return fmt.Errorf("vectorstore validation failed: %w", err)
	}
	if err := v.validateLLM(); err != nil {
		return fmt.Errorf("llm validation failed: %w", err)
	}
	if err := v.validateBreakers(); err != nil {
		return fmt.Errorf("breakers validation failed: %w", err)
	}
	if err := v.validateStream(); err != nil {
		return fmt.Errorf("stream validation failed: %w", err)
	}
	if err := v.validateServer(); err != nil {
		return fmt.Errorf("server validation failed: %w", err)
	}
	if err := v.validateDefaults(); err != nil {
		return fmt.Errorf("defaults validation failed: %w", err)
	}

	return nil
}

func (v *Validator) validateQueue() error {
	q := v.cfg.Queue
	if q == nil {
		return fmt.Errorf("queue configuration is nil")
	}
	if q.WorkerCount < 1 || q.WorkerCount > 50 {
		return fmt.Errorf("worker_count must be between 1 and 50, got %d", q.WorkerCount)
	}
	if q.MaxConcurrentTasks < 1 {
		return fmt.Errorf("max_concurrent_tasks must be at least 1, got %d", q.MaxConcurrentTasks)
	}
	if q.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive, got %v", q.PollInterval)
	}
	if q.PollIntervalJitter < 0 {
		return fmt.Errorf("poll_interval_jitter must be non-negative, got %v", q.PollIntervalJitter)
	}
	if q.PollIntervalJitter >= q.PollInterval {
		return fmt.Errorf("poll_interval_jitter must be less than poll_interval, got jitter=%v interval=%v", q.PollIntervalJitter, q.PollInterval)
	}
	if q.TaskTimeout <= 0 {
		return fmt.Errorf("task_timeout must be positive, got %v", q.TaskTimeout)
	}
	if q.GracefulShutdownTimeout <= 0 {
		return fmt.Errorf("graceful_shutdown_timeout must be positive, got %v", q.GracefulShutdownTimeout)
	}
	if q.OrphanDetectionInterval <= 0 {
		return fmt.Errorf("orphan_detection_interval must be positive, got %v", q.OrphanDetectionInterval)
	}
	if q.OrphanThreshold <= 0 {
		return fmt.Errorf("orphan_threshold must be positive, got %v", q.OrphanThreshold)
	}
	return nil
}

func (v *Validator) validateCache() error {
	c := v.cfg.Cache
	if c == nil {
		return fmt.Errorf("cache configuration is nil")
	}
	if c.MaxEntries < 1 {
		return fmt.Errorf("max_entries must be at least 1, got %d", c.MaxEntries)
	}
	if c.TTL < 0 {
		return fmt.Errorf("ttl must be non-negative, got %v", c.TTL)
	}
	return nil
}

func (v *Validator) validateRAG() error {
	r := v.cfg.RAG
	if r == nil {
		return fmt.Errorf("rag configuration is nil")
	}
	if r.TopK < 1 {
		return fmt.Errorf("top_k must be at least 1, got %d", r.TopK)
	}
	if r.MinScore < 0 || r.MinScore > 1 {
		return fmt.Errorf("min_score must be between 0 and 1, got %v", r.MinScore)
	}
	return nil
}

func (v *Validator) validateVectorStore() error {
	vs := v.cfg.VectorStore
	if vs == nil {
		return fmt.Errorf("vectorstore configuration is nil")
	}
	if vs.PersistPath == "" {
		return fmt.Errorf("%w: persist_path", ErrMissingRequiredField)
	}
	return nil
}

func (v *Validator) validateLLM() error {
	l := v.cfg.LLM
	if l == nil {
		return fmt.Errorf("llm configuration is nil")
	}
	if l.Model == "" {
		return fmt.Errorf("%w: model", ErrMissingRequiredField)
	}
	if l.MaxOutputTokens < 256 {
		return fmt.Errorf("max_output_tokens must be at least 256, got %d", l.MaxOutputTokens)
	}
	if l.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %v", l.RequestTimeout)
	}
	switch l.StructuredOutputMode {
	case "json_schema", "prompt":
	default:
		return fmt.Errorf("%w: structured_output_mode must be 'json_schema' or 'prompt', got %q", ErrInvalidValue, l.StructuredOutputMode)
	}
	return nil
}

func (v *Validator) validateBreakers() error {
	b := v.cfg.Breakers
	if b == nil || b.VectorStore == nil || b.LLM == nil {
		return fmt.Errorf("breakers configuration is incomplete")
	}
	for name, bc := range map[string]*BreakerConfig{"vectorstore": b.VectorStore, "llm": b.LLM} {
		if bc.FailureThreshold < 1 {
			return fmt.Errorf("%s: failure_threshold must be at least 1, got %d", name, bc.FailureThreshold)
		}
		if bc.OpenTimeout <= 0 {
			return fmt.Errorf("%s: open_timeout must be positive, got %v", name, bc.OpenTimeout)
		}
		if bc.HalfOpenMaxRequests < 1 {
			return fmt.Errorf("%s: half_open_max_requests must be at least 1, got %d", name, bc.HalfOpenMaxRequests)
		}
	}
	return nil
}

func (v *Validator) validateStream() error {
	s := v.cfg.Stream
	if s == nil {
		return fmt.Errorf("stream configuration is nil")
	}
	if s.BacklogSize < 1 {
		return fmt.Errorf("backlog_size must be at least 1, got %d", s.BacklogSize)
	}
	if s.SubscriberBufferSize < 1 {
		return fmt.Errorf("subscriber_buffer_size must be at least 1, got %d", s.SubscriberBufferSize)
	}
	if s.TeardownGrace < 0 {
		return fmt.Errorf("teardown_grace_seconds must be non-negative, got %d", s.TeardownGrace)
	}
	return nil
}

func (v *Validator) validateServer() error {
	s := v.cfg.Server
	if s == nil {
		return fmt.Errorf("server configuration is nil")
	}
	if s.Addr == "" {
		return fmt.Errorf("%w: addr", ErrMissingRequiredField)
	}
	if s.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown_timeout must be positive, got %v", s.ShutdownTimeout)
	}
	return nil
}

func (v *Validator) validateDefaults() error {
	d := v.cfg.Defaults
	if d == nil {
		return fmt.Errorf("defaults configuration is nil")
	}
	switch d.Language {
	case "zh", "en", "ja":
	default:
		return fmt.Errorf("%w: defaults.language must be one of zh, en, ja, got %q", ErrInvalidValue, d.Language)
	}
	if d.FortuneNumberMin < 1 || d.FortuneNumberMax < d.FortuneNumberMin {
		return fmt.Errorf("invalid fortune number range [%d, %d]", d.FortuneNumberMin, d.FortuneNumberMax)
	}
	return nil
}
