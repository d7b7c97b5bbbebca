package logger

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	sentryslog "github.com/getsentry/sentry-go/slog"
)

// FlushFunc drains buffered Sentry events. It is a no-op without Sentry.
type FlushFunc func(ctx context.Context) error

// New builds a logger writing to w. An invalid level falls back to info,
// an unknown format to JSON. When cfg.Sentry.DSN is set, warnings and errors
// are also reported to Sentry; if Sentry cannot be initialized the failure is
// logged and the logger keeps working without it.
func New(cfg Config, w io.Writer, extractors ...ContextExtractor) (*slog.Logger, FlushFunc) {
	level, err := ParseLevel(cfg.Level)
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}
	if err != nil {
		slog.New(handler).Warn("invalid log level, using info", slog.String("level", cfg.Level))
	}

	flush := FlushFunc(func(context.Context) error { return nil })
	if cfg.Sentry.DSN != "" {
		if sh, initErr := sentryHandler(cfg.Sentry); initErr != nil {
			slog.New(handler).Error("failed to initialize sentry", slog.String("error", initErr.Error()))
		} else {
			handler = fanout{handler, sh}
			flush = flushSentry
		}
	}

	return slog.New(WithExtractors(handler, extractors...)), flush
}

func sentryHandler(cfg SentryConfig) (slog.Handler, error) {
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.DSN,
		Environment: cfg.Environment,
		EnableLogs:  true,
	}); err != nil {
		return nil, err
	}

	logLevel := []slog.Level{slog.LevelWarn, slog.LevelError}
	if strings.EqualFold(cfg.MinLevel, "error") {
		logLevel = []slog.Level{slog.LevelError}
	}

	return sentryslog.Option{
		EventLevel: []slog.Level{slog.LevelError},
		LogLevel:   logLevel,
	}.NewSentryHandler(context.Background()), nil
}

func flushSentry(ctx context.Context) error {
	timeout := 2 * time.Second
	if dl, ok := ctx.Deadline(); ok {
		timeout = time.Until(dl)
	}
	sentry.Flush(timeout)
	return nil
}

// NewNop returns a logger that discards everything.
func NewNop() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
