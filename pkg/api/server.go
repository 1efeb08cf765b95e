// Package api is the HTTP surface of the fortune-interpretation core:
// task submission, history, cancellation, and the SSE stream gateway.
package api

import (
	"context"
	"database/sql"
	"net"
	"net/http"

	echo "github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"

	"github.com/codeready-toolchain/fortuned/pkg/breaker"
	"github.com/codeready-toolchain/fortuned/pkg/bus"
	"github.com/codeready-toolchain/fortuned/pkg/config"
	"github.com/codeready-toolchain/fortuned/pkg/deity"
	"github.com/codeready-toolchain/fortuned/pkg/queue"
	"github.com/codeready-toolchain/fortuned/pkg/store"
	"github.com/codeready-toolchain/fortuned/pkg/vectorstore"
)

// maxSubmissionBodyBytes bounds request bodies well above a 1000-character
// question plus a reasonable context map, rejecting oversized payloads at
// the HTTP read level.
const maxSubmissionBodyBytes = 64 * 1024

// Server is the HTTP API server, built with Echo v5.
type Server struct {
	echo       *echo.Echo
	httpServer *http.Server
	cfg        *config.Config
	db         *sql.DB
	store      *store.Store
	pool       *queue.WorkerPool
	bus        *bus.Bus
	deities    *deity.Registry
	vstore     *vectorstore.Store
	breakers   map[string]*breaker.Breaker[any]
}

// NewServer creates a new API server and registers all routes. breakers
// keys the dependency breakers by name (e.g. "vectorstore", "llm") for
// the operator-facing inspect/reset endpoints; a nil or empty map is
// fine in tests that don't exercise those routes.
func NewServer(
	cfg *config.Config,
	db *sql.DB,
	st *store.Store,
	pool *queue.WorkerPool,
	b *bus.Bus,
	deities *deity.Registry,
	vstore *vectorstore.Store,
	breakers map[string]*breaker.Breaker[any],
) *Server {
	e := echo.New()

	s := &Server{
		echo: e, cfg: cfg, db: db, store: st, pool: pool, bus: b,
		deities: deities, vstore: vstore, breakers: breakers,
	}

	s.setupRoutes()
	return s
}

// setupRoutes registers all API routes.
func (s *Server) setupRoutes() {
	s.echo.Use(securityHeaders())
	s.echo.Use(middleware.BodyLimit(maxSubmissionBodyBytes))

	s.echo.GET("/health", s.healthHandler)

	v1 := s.echo.Group("/api/v1")
	v1.POST("/tasks", s.submitTaskHandler)
	v1.GET("/tasks", s.listTasksHandler)
	v1.GET("/tasks/:id", s.getTaskHandler)
	v1.POST("/tasks/:id/cancel", s.cancelTaskHandler)
	v1.GET("/tasks/:id/stream", s.streamTaskHandler)

	admin := v1.Group("/admin")
	admin.GET("/breakers", s.listBreakersHandler)
	admin.POST("/breakers/:name/reset", s.resetBreakerHandler)
}

// Start starts the HTTP server on the given address (non-blocking).
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{
		Addr:        addr,
		Handler:     s.echo,
		ReadTimeout: s.cfg.Server.ReadTimeout,
		// WriteTimeout is intentionally left at the config's zero value:
		// SSE connections are long-lived and must not be cut by a fixed
		// write deadline. stream.max_connection_s bounds them instead.
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}
	return s.httpServer.ListenAndServe()
}

// StartWithListener starts the HTTP server on a pre-created listener.
// Used by test infrastructure to serve on a random OS-assigned port.
func (s *Server) StartWithListener(ln net.Listener) error {
	s.httpServer = &http.Server{Handler: s.echo}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
