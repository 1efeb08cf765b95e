package config

// StreamConfig configures the in-process progress bus backing the
// SSE stream gateway.
type StreamConfig struct {
	// BacklogSize is the number of recent progress events replayed to a
	// subscriber that (re)connects mid-task.
	BacklogSize int `yaml:"backlog_size" validate:"required,min=1"`

	// SubscriberBufferSize bounds the per-subscriber channel before a
	// slow reader is marked lagging.
	SubscriberBufferSize int `yaml:"subscriber_buffer_size" validate:"required,min=1"`

	// TeardownGrace is how long a task's bus topic is kept alive after
	// its terminal event, to let a slow-to-attach subscriber still
	// receive the replayed backlog.
	TeardownGrace int `yaml:"teardown_grace_seconds"`

	// PingSeconds is how long the stream gateway waits without a live
	// event before emitting a {ping} keep-alive.
	PingSeconds int `yaml:"ping_seconds"`

	// MaxConnectionSeconds bounds a single SSE connection; the client is
	// expected to reconnect and replay from the bus backlog.
	MaxConnectionSeconds int `yaml:"max_connection_seconds"`
}

// DefaultStreamConfig returns the built-in stream defaults.
func DefaultStreamConfig() *StreamConfig {
	return &StreamConfig{
		BacklogSize:          128,
		SubscriberBufferSize: 32,
		TeardownGrace:        30,
		PingSeconds:          30,
		MaxConnectionSeconds: 300,
	}
}
