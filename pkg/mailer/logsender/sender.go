// Package logsender is a transport that logs messages instead of delivering them.
// It is meant for local development and tests.
package logsender

import (
	"context"
	"log/slog"

	"github.com/dmitrymomot/mailroom/pkg/mailer"
)

// Sender implements mailer.Sender by writing one log record per message.
type Sender struct {
	logger *slog.Logger
}

// New creates a log sender. A nil logger means slog.Default().
func New(logger *slog.Logger) *Sender {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sender{logger: logger}
}

// Send implements mailer.Sender.
func (s *Sender) Send(ctx context.Context, msg *mailer.Message) error {
	names := make([]string, len(msg.Attachments))
	for i, a := range msg.Attachments {
		names[i] = a.Filename
	}
	s.logger.InfoContext(ctx, "email would be sent",
		slog.String("from", msg.From),
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
		slog.Int("text_bytes", len(msg.Text)),
		slog.Int("html_bytes", len(msg.HTML)),
		slog.Any("attachments", names))
	return nil
}
