package api

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/codeready-toolchain/fortuned/pkg/bus"
	"github.com/codeready-toolchain/fortuned/pkg/config"
	"github.com/codeready-toolchain/fortuned/pkg/deity"
)

func TestNewServerRegistersExpectedRoutes(t *testing.T) {
	cfg := &config.Config{Defaults: config.DefaultDefaults(), Server: config.DefaultServerConfig(), Stream: config.DefaultStreamConfig()}
	s := NewServer(cfg, nil, nil, nil, bus.New(cfg.Stream), deity.New(nil), nil, nil)

	want := map[string]bool{
		"GET /health":                             false,
		"POST /api/v1/tasks":                      false,
		"GET /api/v1/tasks":                       false,
		"GET /api/v1/tasks/:id":                   false,
		"POST /api/v1/tasks/:id/cancel":            false,
		"GET /api/v1/tasks/:id/stream":             false,
		"GET /api/v1/admin/breakers":               false,
		"POST /api/v1/admin/breakers/:name/reset":  false,
	}

	for _, r := range s.echo.Routes() {
		key := r.Method + " " + r.Path
		if _, ok := want[key]; ok {
			want[key] = true
		}
	}

	for route, found := range want {
		assert.True(t, found, "expected route %q to be registered", route)
	}
}

func TestServerShutdownWithoutStartIsNoOp(t *testing.T) {
	cfg := &config.Config{Defaults: config.DefaultDefaults(), Server: config.DefaultServerConfig(), Stream: config.DefaultStreamConfig()}
	s := NewServer(cfg, nil, nil, nil, bus.New(cfg.Stream), deity.New(nil), nil, nil)
	assert.NoError(t, s.Shutdown(nil))
}
