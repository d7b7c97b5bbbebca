// Package mailgun sends mail through the Mailgun HTTP API.
package mailgun

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/mailgun/mailgun-go/v4"

	"github.com/dmitrymomot/mailroom/pkg/mailer"
)

var ErrInvalidConfig = errors.New("mailgun: invalid config")

type client interface {
	NewMIMEMessage(body io.ReadCloser, to ...string) *mailgun.Message
	Send(ctx context.Context, m *mailgun.Message) (string, string, error)
}

// Sender implements mailer.Sender using the Mailgun API.
type Sender struct {
	client  client
	timeout time.Duration
}

// New creates a Mailgun sender.
func New(cfg Config) (*Sender, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: API key is required", ErrInvalidConfig)
	}
	if cfg.Domain == "" {
		return nil, fmt.Errorf("%w: domain is required", ErrInvalidConfig)
	}

	mg := mailgun.NewMailgun(cfg.Domain, cfg.APIKey)
	if cfg.Region == "eu" {
		mg.SetAPIBase("https://api.eu.mailgun.net/v3")
	}
	return &Sender{client: mg, timeout: cfg.Timeout}, nil
}

// Send implements mailer.Sender. The message goes out as encoded MIME,
// so attachment content types survive; recipients come from the envelope.
func (s *Sender) Send(ctx context.Context, msg *mailer.Message) error {
	_, to, err := msg.Envelope()
	if err != nil {
		return fmt.Errorf("mailgun: %w", err)
	}
	raw, err := msg.Bytes()
	if err != nil {
		return fmt.Errorf("mailgun: encode message: %w", err)
	}
	m := s.client.NewMIMEMessage(io.NopCloser(bytes.NewReader(raw)), to...)

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	if _, _, err := s.client.Send(ctx, m); err != nil {
		return fmt.Errorf("mailgun: failed to send email: %w", err)
	}
	return nil
}
