package mailer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dmitrymomot/mailroom/pkg/params"
)

// Mailer runs the send pipeline: validate, look up, render, assemble, dispatch.
// It holds no per-request state and is safe for concurrent use.
type Mailer struct {
	templates TemplateFinder
	pool      Pool
	config    Config
	logger    *slog.Logger
}

// Option configures a Mailer.
type Option func(*Mailer)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(m *Mailer) {
		if l != nil {
			m.logger = l
		}
	}
}

// New creates a Mailer that looks templates up in templates and sends through pool.
func New(templates TemplateFinder, pool Pool, cfg Config, opts ...Option) *Mailer {
	m := &Mailer{
		templates: templates,
		pool:      pool,
		config:    cfg,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Render looks up a template and renders it with p.
// Subject resolution: mj-title > config fallback.
func (m *Mailer) Render(name string, p params.Value) (Content, error) {
	t, err := m.templates.FindByName(name)
	if err != nil {
		return Content{}, err
	}
	c, err := t.Render(p)
	if err != nil {
		return Content{}, err
	}
	if c.Subject == "" {
		c.Subject = m.config.FallbackSubject
	}
	return c, nil
}

// Prepare validates req and produces the message that Send would dispatch.
func (m *Mailer) Prepare(name string, req Request) (*Message, error) {
	if err := req.Validate(); err != nil {
		return nil, Classify(err)
	}
	c, err := m.Render(name, req.Params)
	if err != nil {
		return nil, Classify(err)
	}
	msg, err := Assemble(c, req)
	if err != nil {
		return nil, Classify(err)
	}
	return msg, nil
}

// Send renders template name for req and sends it with a single attempt.
// Every failure is returned as *Error.
func (m *Mailer) Send(ctx context.Context, name string, req Request) error {
	start := time.Now()

	msg, err := m.Prepare(name, req)
	if err != nil {
		return err
	}
	m.logger.DebugContext(ctx, "email rendered",
		slog.String("template", name),
		slog.Int("attachments", len(msg.Attachments)))

	if err := m.Dispatch(ctx, msg); err != nil {
		return err
	}

	m.logger.InfoContext(ctx, "email sent",
		slog.String("template", name),
		slog.String("to", msg.To),
		slog.Int("attachments", len(msg.Attachments)),
		slog.Duration("duration", time.Since(start)))
	return nil
}

// Dispatch checks out a connection, sends msg once and returns the connection.
func (m *Mailer) Dispatch(ctx context.Context, msg *Message) error {
	conn, err := m.pool.Acquire(ctx)
	if err != nil {
		return Classify(fmt.Errorf("%w: %v", ErrAcquireConnection, err))
	}
	defer conn.Release()

	if err := conn.Send(ctx, msg); err != nil {
		return Classify(fmt.Errorf("%w: %v", ErrSendFailed, err))
	}
	return nil
}
