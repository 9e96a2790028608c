// Package memserver is a reference implementation of the remote memory API served
// over fiber. It backs the end-to-end tests of the client and the `serve` command
// of the CLI, and stores memories in a Store (in-process or Redis).
package memserver

import (
	"context"
	"net"
	"time"

	"github.com/goccy/go-json"
	fiber "github.com/gofiber/fiber/v3"
	"github.com/hyp3rd/ewrap"

	"github.com/hyp3rd/memclient/internal/constants"
	"github.com/hyp3rd/memclient/internal/sentinel"
)

// Option configures the Server.
type Option func(*Server)

// WithAPIKey requires every request to carry "Authorization: Bearer {key}".
func WithAPIKey(key string) Option {
	return func(s *Server) { s.apiKey = key }
}

// WithReadTimeout sets read timeout.
func WithReadTimeout(d time.Duration) Option {
	return func(s *Server) { s.readTimeout = d }
}

// WithWriteTimeout sets write timeout.
func WithWriteTimeout(d time.Duration) Option {
	return func(s *Server) { s.writeTimeout = d }
}

const (
	defaultReadTimeout  = 5 * time.Second
	defaultWriteTimeout = 30 * time.Second
)

// Server holds the fiber app and its store.
type Server struct {
	addr         string
	store        Store
	app          *fiber.App
	apiKey       string
	readTimeout  time.Duration
	writeTimeout time.Duration
	ln           net.Listener
	started      bool
	ctx          context.Context
}

// New builds a server holder (lazy start).
func New(addr string, store Store, opts ...Option) *Server {
	srv := &Server{
		addr:         addr,
		store:        store,
		readTimeout:  defaultReadTimeout,
		writeTimeout: defaultWriteTimeout,
	}
	for _, opt := range opts {
		opt(srv)
	}

	srv.app = fiber.New(fiber.Config{
		ReadTimeout:  srv.readTimeout,
		WriteTimeout: srv.writeTimeout,
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
	})

	return srv
}

// Start mounts the routes and listens in the background (idempotent).
func (s *Server) Start(ctx context.Context) error {
	if s.started {
		return nil
	}

	s.ctx = context.WithoutCancel(ctx)
	s.mountRoutes()

	lc := net.ListenConfig{}

	ln, err := lc.Listen(ctx, "tcp", s.addr)
	if err != nil {
		return ewrap.Wrap(err, "memserver listen")
	}

	s.ln = ln

	go func() {
		err := s.app.Listener(ln)
		if err != nil {
			return
		}
	}()

	s.started = true

	return nil
}

// Address returns the bound address (useful when passing ":0" for ephemeral port). Empty if not started yet.
func (s *Server) Address() string {
	if s.ln == nil {
		return ""
	}

	return s.ln.Addr().String()
}

// BaseURL returns the http URL of the bound address.
func (s *Server) BaseURL() string {
	if s.ln == nil {
		return ""
	}

	return "http://" + s.ln.Addr().String()
}

// Shutdown stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if !s.started {
		return nil
	}

	ch := make(chan error, 1)

	go func() {
		ch <- s.app.Shutdown()
	}()

	select {
	case <-ctx.Done():
		return sentinel.ErrServerShutdownTimeout
	case err := <-ch:
		return err
	}
}

// mountRoutes registers the batch routes before the keyed ones so that they win the match.
func (s *Server) mountRoutes() {
	s.app.Use(fiber.Handler(s.authenticate))

	s.app.Post(constants.PathMemoryBatch, s.handlePutMany)
	s.app.Delete(constants.PathMemoryBatch, s.handleDeleteMany)
	s.app.Post(constants.PathMemoryBatchGet, s.handleGetMany)

	s.app.Post(constants.PathMemories, s.handlePut)
	s.app.Delete(constants.PathMemories, s.handleClear)
	s.app.Get(constants.PathMemories+"/:key", s.handleGet)
	s.app.Delete(constants.PathMemories+"/:key", s.handleDelete)

	s.app.Get(constants.PathKeysPrefix+":namespace", s.handleKeys)
	s.app.Get(constants.PathSearchPrefix+":namespace"+constants.PathSearchSuffix, s.handleSearch)

	s.app.Get("/health", func(fctx fiber.Ctx) error { return fctx.SendString("ok") })
}

func (s *Server) authenticate(fctx fiber.Ctx) error {
	if s.apiKey == "" || fctx.Path() == "/health" {
		return fctx.Next()
	}

	if fctx.Get(constants.HeaderAuthorization) != constants.BearerPrefix+s.apiKey {
		return fctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid api key"})
	}

	return fctx.Next()
}
