// Package httpserver exposes the mailer over HTTP.
//
//	POST /templates/{name}   JSON or multipart send request, 204 on success
//	GET  /templates          [{name, description}] sorted by name
//	GET  /health/live
//	GET  /health/ready
//
// Every error is rendered as {"name": "...", "message": "..."} with the
// status of its kind.
package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/mailroom/internal/config"
	"github.com/dmitrymomot/mailroom/pkg/health"
	"github.com/dmitrymomot/mailroom/pkg/mailer"
)

const (
	defaultReadHeaderTimeout = 10 * time.Second
	defaultShutdownTimeout   = 30 * time.Second
	defaultMaxHeaderBytes    = 1 << 20
)

// Mailer sends a named template.
type Mailer interface {
	Send(ctx context.Context, name string, req mailer.Request) error
}

// TemplateLister lists the templates a Mailer can send.
type TemplateLister interface {
	Templates() []mailer.Template
}

// Server routes HTTP requests to the mailer.
type Server struct {
	mailer    Mailer
	templates TemplateLister
	cfg       config.HTTP
	logger    *slog.Logger
	checks    health.Checks
	hooks     []func(context.Context) error
	handler   http.Handler
}

// Option configures a Server.
type Option func(*Server)

func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithHealthCheck adds a readiness check.
func WithHealthCheck(name string, check health.Check) Option {
	return func(s *Server) {
		s.checks[name] = check
	}
}

// WithShutdownHook registers fn to run after the HTTP server stops.
// Hooks run in registration order.
func WithShutdownHook(fn func(context.Context) error) Option {
	return func(s *Server) {
		s.hooks = append(s.hooks, fn)
	}
}

func New(m Mailer, templates TemplateLister, cfg config.HTTP, opts ...Option) *Server {
	s := &Server{
		mailer:    m,
		templates: templates,
		cfg:       cfg,
		logger:    slog.New(slog.DiscardHandler),
		checks:    health.Checks{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.handler = s.routes()
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(RequestID, s.accessLog, s.recoverer)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, r, ErrNotFound("route not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, r, NewHTTPError(http.StatusMethodNotAllowed, "method not allowed"))
	})

	r.Get("/health/live", health.Live())
	r.Get("/health/ready", health.Ready(s.checks, health.WithLogger(s.logger)))

	r.Get("/templates", s.handle(s.listTemplates))
	r.Post("/templates/{name}", s.handle(s.sendTemplate))
	return r
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// handle adapts an error-returning handler.
func (s *Server) handle(fn func(w http.ResponseWriter, r *http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fn(w, r); err != nil {
			s.writeError(w, r, err)
		}
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	he := AsHTTPError(err)
	ctx := r.Context()

	if he.Code >= http.StatusInternalServerError {
		attrs := []any{slog.String("error", errString(he)), slog.String("path", r.URL.Path)}
		var pe *PanicError
		if errors.As(he, &pe) {
			attrs = append(attrs, slog.String("stack", string(pe.Stack)))
		}
		s.logger.ErrorContext(ctx, "request failed", attrs...)
	} else {
		s.logger.DebugContext(ctx, "request rejected",
			slog.Int("status", he.Code),
			slog.String("error", he.Message))
	}

	if rw, ok := w.(*responseWriter); ok && rw.Written() {
		return
	}

	body := errorBody{Name: he.Name(), Message: he.Message}
	if he.Code >= http.StatusInternalServerError && !s.cfg.ExposeInternalErrors {
		body.Message = ""
	}
	writeJSON(w, he.Code, body)
}

func errString(he *HTTPError) string {
	if he.Err != nil {
		return he.Err.Error()
	}
	return he.Message
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Run listens on the configured address and serves until ctx is cancelled
// or the process receives SIGINT or SIGTERM.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done, then shuts the server
// down gracefully and runs the shutdown hooks.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	server := &http.Server{
		Handler:           s.handler,
		ReadTimeout:       s.cfg.ReadTimeout,
		ReadHeaderTimeout: defaultReadHeaderTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
		IdleTimeout:       s.cfg.IdleTimeout,
		MaxHeaderBytes:    defaultMaxHeaderBytes,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", slog.String("address", ln.Addr().String()))
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var errs []error
	if err := server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, err)
	}
	for _, hook := range s.hooks {
		if err := hook(shutdownCtx); err != nil {
			s.logger.Error("shutdown hook failed", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	s.logger.Info("shutdown completed")
	return nil
}
