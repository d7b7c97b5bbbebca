// Package app assembles the service from its configuration.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/dmitrymomot/mailroom/internal/config"
	"github.com/dmitrymomot/mailroom/internal/httpserver"
	"github.com/dmitrymomot/mailroom/internal/store"
	"github.com/dmitrymomot/mailroom/pkg/db"
	"github.com/dmitrymomot/mailroom/pkg/health"
	"github.com/dmitrymomot/mailroom/pkg/mailer"
	"github.com/dmitrymomot/mailroom/pkg/mailer/logsender"
	"github.com/dmitrymomot/mailroom/pkg/mailer/mailgun"
	"github.com/dmitrymomot/mailroom/pkg/mailer/resend"
	"github.com/dmitrymomot/mailroom/pkg/mailer/ses"
	"github.com/dmitrymomot/mailroom/pkg/mailer/smtp"
)

// App owns the long-lived dependencies of the service.
type App struct {
	Config   config.Config
	Logger   *slog.Logger
	Registry *mailer.Registry
	Mailer   *mailer.Mailer
	Pool     mailer.Pool

	sqlDB  *sql.DB
	checks health.Checks
	hooks  []func(context.Context) error
}

// New connects to PostgreSQL when configured, loads templates and opens the
// transport. On error everything opened so far is closed.
func New(ctx context.Context, cfg config.Config, log *slog.Logger) (_ *App, err error) {
	a := &App{Config: cfg, Logger: log, checks: health.Checks{}}
	defer func() {
		if err != nil {
			_ = a.Close(context.Background())
		}
	}()

	if cfg.UseDB() {
		pool, err := db.Connect(ctx, cfg.DB)
		if err != nil {
			return nil, err
		}
		a.sqlDB = db.Open(pool)
		a.checks["postgres"] = db.Healthcheck(pool)
		a.hooks = append(a.hooks, db.Shutdown(pool))
	}

	templates, err := LoadTemplates(ctx, cfg.Templates, a.sqlDB)
	if err != nil {
		return nil, err
	}
	if a.Registry, err = mailer.NewRegistry(templates...); err != nil {
		return nil, err
	}
	log.Info("templates loaded",
		slog.String("source", cfg.Templates.Source),
		slog.Int("count", a.Registry.Len()))

	pool, check, err := NewPool(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	a.Pool = pool
	// The transport closes before the database.
	a.hooks = append([]func(context.Context) error{func(context.Context) error { return pool.Close() }}, a.hooks...)
	if check != nil {
		a.checks[cfg.Transport] = check
	}

	a.Mailer = mailer.New(a.Registry, pool, cfg.Mailer, mailer.WithLogger(log))
	return a, nil
}

// Server builds the HTTP server. Its shutdown closes the App.
func (a *App) Server() *httpserver.Server {
	opts := []httpserver.Option{
		httpserver.WithLogger(a.Logger),
		httpserver.WithShutdownHook(a.Close),
	}
	for name, check := range a.checks {
		opts = append(opts, httpserver.WithHealthCheck(name, check))
	}
	return httpserver.New(a.Mailer, a.Registry, a.Config.HTTP, opts...)
}

// DB returns the database handle, or nil when PostgreSQL is not configured.
func (a *App) DB() *sql.DB {
	return a.sqlDB
}

// Close releases the transport and the database pool.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for _, hook := range a.hooks {
		if err := hook(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.hooks = nil
	return errors.Join(errs...)
}

// LoadTemplates reads templates from the configured source. sqlDB is only
// used for the database source.
func LoadTemplates(ctx context.Context, cfg config.Templates, sqlDB *sql.DB) ([]mailer.Template, error) {
	switch cfg.Source {
	case config.SourceFS:
		if _, err := os.Stat(cfg.Dir); err != nil {
			return nil, fmt.Errorf("templates dir: %w", err)
		}
		return mailer.LoadFS(os.DirFS(cfg.Dir), ".")
	case config.SourceDB:
		if sqlDB == nil {
			return nil, fmt.Errorf("%w: database source without connection", config.ErrInvalid)
		}
		return store.New(sqlDB).Templates(ctx)
	}
	return nil, fmt.Errorf("%w: unknown template source %q", config.ErrInvalid, cfg.Source)
}

// NewPool opens the configured transport. The returned check is nil for
// transports without a cheap liveness probe.
func NewPool(ctx context.Context, cfg config.Config, log *slog.Logger) (mailer.Pool, health.Check, error) {
	switch cfg.Transport {
	case config.TransportSMTP:
		pool, err := smtp.New(cfg.SMTP, smtp.WithLogger(log))
		if err != nil {
			return nil, nil, err
		}
		if cfg.SMTP.WarmConns > 0 {
			if err := pool.Warm(ctx, cfg.SMTP.WarmConns); err != nil {
				// The pool dials lazily, so a cold start is not fatal.
				log.WarnContext(ctx, "smtp warm-up failed", slog.String("error", err.Error()))
			}
		}
		return pool, pool.Ping, nil

	case config.TransportResend:
		s, err := resend.New(cfg.Resend)
		if err != nil {
			return nil, nil, err
		}
		return mailer.NewSenderPool(s), nil, nil

	case config.TransportSES:
		return mailer.NewSenderPool(ses.New(cfg.SES, log)), nil, nil

	case config.TransportMailgun:
		s, err := mailgun.New(cfg.Mailgun)
		if err != nil {
			return nil, nil, err
		}
		return mailer.NewSenderPool(s), nil, nil

	case config.TransportLog:
		return mailer.NewSenderPool(logsender.New(log)), nil, nil
	}
	return nil, nil, fmt.Errorf("%w: unknown transport %q", config.ErrInvalid, cfg.Transport)
}
