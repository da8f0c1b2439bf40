// Package httpapi is the echo-based JSON control surface SPEC_FULL.md
// adds alongside the native wire protocol: every handler here is a thin
// translation of an HTTP verb/path onto one protocol.Dispatcher method,
// the same pattern internal/httpcontroller/api.go uses to front its
// Controller with Echo (read-only GETs for discovery, session-gated
// POST/DELETE routes for anything mutating).
package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pulsed/pulsed/internal/mainloop"
	"github.com/pulsed/pulsed/internal/protocol"
	"github.com/pulsed/pulsed/internal/sample"
)

// Config configures the HTTP control surface.
type Config struct {
	ListenAddr string
	SessionSecret string // empty disables session cookies; auth-gated routes then 503
	AuthUsername string
	AuthPassword string
	DefaultSpec sample.Spec // reported verbatim in GET /server-info
}

// Server wraps an *echo.Echo bound to one protocol.Dispatcher.
type Server struct {
	Echo *echo.Echo
	dispatcher *protocol.Dispatcher
	cfg Config
	store sessions.Store
	registry *prometheus.Registry
	log *slog.Logger
	loop *mainloop.ThreadedLoop
}

const sessionName = "pulsed_session"
const sessionAuthedKey = "authed"

// New builds a Server wired to dispatcher and registry (for /metrics),
// but does not start listening; call Start for that. loop is the
// ThreadedLoop driving dispatcher's Core — every handler that touches
// the dispatcher marshals onto it via loop's lock, since Echo serves
// each request on its own goroutine.
func New(cfg Config, dispatcher *protocol.Dispatcher, registry *prometheus.Registry, loop *mainloop.ThreadedLoop, log *slog.Logger) *Server {
	s := &Server{
 Echo: echo.New(),
 dispatcher: dispatcher,
 cfg: cfg,
 registry: registry,
 loop: loop,
 log: log,
	}
	if cfg.SessionSecret != "" {
 s.store = sessions.NewCookieStore([]byte(cfg.SessionSecret))
	}
	s.Echo.HideBanner = true
	s.Echo.HidePort = true
	s.Echo.Use(middleware.Recover())
	s.Echo.Use(middleware.RequestID())
	s.Echo.Use(s.requestLogger())
	s.registerRoutes()
	return s
}

// marshalToLoop runs the wrapped handler with the mainloop lock held,
// so it can safely call into dispatcher without racing the loop
// goroutine. A nil loop (tests driving the dispatcher against a Core
// that's never actually running) skips locking entirely.
func (s *Server) marshalToLoop() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
 return func(c echo.Context) error {
 if s.loop == nil {
 return next(c)
 }
 var err error
 s.loop.WithLock(func() { err = next(c) })
 return err
 }
	}
}

// requestLogger logs each request at the same granularity
// logging.ForService callers use elsewhere in the daemon.
func (s *Server) requestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
 return func(c echo.Context) error {
 start := time.Now()
 err := next(c)
 if s.log != nil {
 s.log.Debug("http request",
 "method", c.Request().Method,
 "path", c.Path(),
 "status", c.Response().Status,
 "duration", time.Since(start),
)
 }
 return err
 }
	}
}

// Start runs the Echo server, blocking until ctx-driven shutdown or a
// listener error. Callers typically run this inside an errgroup.
func (s *Server) Start() error {
	addr := s.cfg.ListenAddr
	if addr == "" {
 addr = "127.0.0.1:4714"
	}
	err := s.Echo.Start(addr)
	if err == http.ErrServerClosed {
 return nil
	}
	return err
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(deadline time.Duration) error {
	c, cancel := newShutdownContext(deadline)
	defer cancel()
	return s.Echo.Shutdown(c)
}

func (s *Server) metricsHandler() echo.HandlerFunc {
	if s.registry == nil {
 return func(c echo.Context) error { return c.NoContent(http.StatusNotFound) }
	}
	h := promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
	return echo.WrapHandler(h)
}
