// Package ses sends raw MIME messages through Amazon SES.
package ses

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/smithy-go"

	"github.com/dmitrymomot/mailroom/pkg/mailer"
)

type api interface {
	SendRawEmail(ctx context.Context, in *ses.SendRawEmailInput, optFns ...func(*ses.Options)) (*ses.SendRawEmailOutput, error)
}

// Sender implements mailer.Sender using SES SendRawEmail, so attachments travel as MIME parts.
type Sender struct {
	client api
	logger *slog.Logger
	cfg    Config
}

// New creates an SES sender with static credentials when they are configured,
// otherwise with an empty credential chain left to the SDK defaults.
func New(cfg Config, logger *slog.Logger) *Sender {
	awsCfg := aws.Config{Region: cfg.Region}
	if cfg.AccessKeyID != "" {
		awsCfg.Credentials = aws.NewCredentialsCache(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		)
	}
	client := ses.NewFromConfig(awsCfg, func(o *ses.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return newSender(client, cfg, logger)
}

func newSender(client api, cfg Config, logger *slog.Logger) *Sender {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sender{client: client, cfg: cfg, logger: logger}
}

// Send implements mailer.Sender.
func (s *Sender) Send(ctx context.Context, msg *mailer.Message) error {
	from, to, err := msg.Envelope()
	if err != nil {
		return fmt.Errorf("ses: %w", err)
	}
	raw, err := msg.Bytes()
	if err != nil {
		return fmt.Errorf("ses: encode message: %w", err)
	}

	input := &ses.SendRawEmailInput{
		RawMessage:   &types.RawMessage{Data: raw},
		Source:       aws.String(from),
		Destinations: to,
	}
	if s.cfg.ConfigurationSet != "" {
		input.ConfigurationSetName = aws.String(s.cfg.ConfigurationSet)
	}

	out, err := s.client.SendRawEmail(ctx, input)
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			return fmt.Errorf("ses: %s: %s", apiErr.ErrorCode(), apiErr.ErrorMessage())
		}
		return fmt.Errorf("ses: failed to send email: %w", err)
	}

	s.logger.DebugContext(ctx, "email accepted by ses", slog.String("message_id", aws.ToString(out.MessageId)))
	return nil
}
