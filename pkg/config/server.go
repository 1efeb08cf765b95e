package config

import "time"

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DefaultServerConfig returns the built-in HTTP server defaults.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Addr: ":8080",
		// WriteTimeout is intentionally left at zero: SSE connections are
		// long-lived and must not be cut by a fixed write deadline.
		ReadTimeout:     15 * time.Second,
		ShutdownTimeout: 15 * time.Second,
	}
}
