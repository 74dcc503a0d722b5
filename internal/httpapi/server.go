// Package httpapi implements the HTTP edge: route registration,
// Basic-Auth and request-id middleware, and the centralized error-to-status
// mapping of spec.md §6-7. Response shapes and the manual Basic-Auth
// compare against dynamic credentials are modeled on
// internal/webdav/server.go; the success/error envelope and fiber handler
// shape are modeled on internal/api/response_test.go and
// internal/api/update_handlers.go.
package httpapi

import (
	"context"
	"strconv"
	"sync/atomic"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/javi11/magicer/internal/admission"
	"github.com/javi11/magicer/internal/config"
	"github.com/javi11/magicer/internal/ingest"
	"github.com/javi11/magicer/internal/metrics"
	"github.com/javi11/magicer/internal/sandbox"
	"github.com/javi11/magicer/internal/valueobj"
)

// Server owns the fiber app and the collaborators its handlers dispatch
// to. It is constructed once at startup by cmd/magicer.
type Server struct {
	app       *fiber.App
	cfg       config.ConfigGetter
	pipeline  *ingest.Pipeline
	validator *sandbox.Validator
	limiter   *admission.Limiter
	ready     atomic.Bool
}

// New builds the fiber app and registers every route in spec.md §6 plus
// the supplemented health/readiness/metrics endpoints.
func New(cfg config.ConfigGetter, pipeline *ingest.Pipeline, validator *sandbox.Validator, limiter *admission.Limiter, rec *metrics.Recorder, credentials func() valueobj.Credentials) *Server {
	c := cfg()
	app := fiber.New(fiber.Config{
		StreamRequestBody:     true,
		DisableStartupMessage: true,
		Concurrency:           c.Server.MaxConnections,
		ReadTimeout:           c.ReadTimeout(),
		WriteTimeout:          c.WriteTimeout(),
		IdleTimeout:           c.IdleTimeout(),
	})
	app.Use(recover.New())

	s := &Server{
		app:       app,
		cfg:       cfg,
		pipeline:  pipeline,
		validator: validator,
		limiter:   limiter,
	}

	app.Use(requestIDMiddleware)

	app.Get("/v1/ping", handlePing)
	app.Get("/v1/healthz", s.handleHealthz)
	app.Get("/v1/readyz", s.handleReadyz)
	app.Get("/v1/metrics", metricsHandler(limiter, rec))

	authed := app.Group("", basicAuthMiddleware(credentials))
	authed.Post("/v1/magic/content", s.handleMagicContent)
	authed.Post("/v1/magic/path", s.handleMagicPath)

	return s
}

// IsReady reports whether the server has finished startup and should
// accept traffic; handleReadyz reflects this flag.
func (s *Server) IsReady() bool {
	return s.ready.Load()
}

// SetReady flips the readiness flag; cmd/magicer sets it true once the
// eager orphan sweep has completed and false at the start of shutdown.
func (s *Server) SetReady(ready bool) {
	s.ready.Store(ready)
}

// Listen starts the HTTP listener on the configured port. It blocks until
// the listener stops (normally via Shutdown from another goroutine).
func (s *Server) Listen() error {
	return s.app.Listen(":" + strconv.Itoa(s.cfg().Server.Port))
}

// Shutdown drains in-flight requests for up to the deadline carried by ctx,
// then force-closes, per spec.md §6 process lifecycle.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// App returns the underlying fiber app, so tests can drive requests
// in-memory via app.Test without binding a real socket.
func (s *Server) App() *fiber.App {
	return s.app
}
