// Package health serves liveness and readiness probes.
//
//	r.Get("/health/live", health.Live())
//	r.Get("/health/ready", health.Ready(health.Checks{
//		"smtp":     pool.Ping,
//		"postgres": db.Ping,
//	}, health.WithTimeout(3*time.Second)))
//
// Responses are plain text unless the client asks for JSON with an
// Accept header or ?format=json.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"

	defaultTimeout = 5 * time.Second
)

// ErrCheckTimeout is reported for a check that outlived the probe timeout.
var ErrCheckTimeout = errors.New("health: check timeout")

// Check reports a dependency as unhealthy by returning an error.
type Check func(ctx context.Context) error

// Checks maps a dependency name to its check.
type Checks map[string]Check

// Report is the JSON body of a probe response.
type Report struct {
	Status string            `json:"status"`
	Checks map[string]Result `json:"checks,omitempty"`
}

// Result is the outcome of one check.
type Result struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type options struct {
	timeout time.Duration
	logger  *slog.Logger
}

// Option configures Ready.
type Option func(*options)

// WithTimeout bounds how long all checks may run together.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithLogger logs failed checks at warn level.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// Live always reports healthy.
func Live() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respond(w, r, http.StatusOK, &Report{Status: StatusHealthy})
	}
}

// Ready runs every check in parallel and answers 503 if any fails.
func Ready(checks Checks, opts ...Option) http.HandlerFunc {
	o := &options{timeout: defaultTimeout, logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(o)
	}

	return func(w http.ResponseWriter, r *http.Request) {
		report := Run(r.Context(), checks, o.timeout, o.logger)
		status := http.StatusOK
		if report.Status != StatusHealthy {
			status = http.StatusServiceUnavailable
		}
		respond(w, r, status, report)
	}
}

// Run executes checks concurrently under a shared timeout. A nil logger
// discards failures.
func Run(ctx context.Context, checks Checks, timeout time.Duration, logger *slog.Logger) *Report {
	report := &Report{Status: StatusHealthy}
	if len(checks) == 0 {
		return report
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	report.Checks = make(map[string]Result, len(checks))

	for name, check := range checks {
		g.Go(func() error {
			res := Result{Status: StatusHealthy}
			if err := check(ctx); err != nil {
				if errors.Is(err, context.DeadlineExceeded) {
					err = ErrCheckTimeout
				}
				res = Result{Status: StatusUnhealthy, Error: err.Error()}
				logger.WarnContext(ctx, "health check failed",
					slog.String("check", name),
					slog.String("error", err.Error()),
				)
			}

			mu.Lock()
			report.Checks[name] = res
			if res.Status != StatusHealthy {
				report.Status = StatusUnhealthy
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return report
}

func respond(w http.ResponseWriter, r *http.Request, status int, report *Report) {
	if r.URL.Query().Get("format") == "json" || strings.Contains(r.Header.Get("Accept"), "application/json") {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(report)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	if status == http.StatusOK {
		_, _ = w.Write([]byte("OK"))
		return
	}
	_, _ = w.Write([]byte("Service Unavailable"))
}
