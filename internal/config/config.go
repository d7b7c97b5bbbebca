// Package config loads service settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/dmitrymomot/mailroom/pkg/db"
	"github.com/dmitrymomot/mailroom/pkg/logger"
	"github.com/dmitrymomot/mailroom/pkg/mailer"
	"github.com/dmitrymomot/mailroom/pkg/mailer/mailgun"
	"github.com/dmitrymomot/mailroom/pkg/mailer/resend"
	"github.com/dmitrymomot/mailroom/pkg/mailer/ses"
	"github.com/dmitrymomot/mailroom/pkg/mailer/smtp"
)

// Transports.
const (
	TransportSMTP    = "smtp"
	TransportResend  = "resend"
	TransportSES     = "ses"
	TransportMailgun = "mailgun"
	TransportLog     = "log"
)

// Template sources.
const (
	SourceFS = "fs"
	SourceDB = "db"
)

var ErrInvalid = errors.New("config: invalid")

type Config struct {
	Env string `env:"APP_ENV" envDefault:"development"`

	HTTP      HTTP
	Log       logger.Config
	Templates Templates
	DB        db.Config

	Mailer    mailer.Config
	Transport string `env:"MAILER_TRANSPORT" envDefault:"smtp"`
	SMTP      smtp.Config
	Resend    resend.Config
	SES       ses.Config
	Mailgun   mailgun.Config
}

type HTTP struct {
	Addr            string        `env:"HTTP_ADDR" envDefault:":8080"`
	ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"30s"`
	WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"60s"`
	IdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// Upper bound for a multipart body including attachments.
	MaxUploadBytes int64 `env:"HTTP_MAX_UPLOAD_BYTES" envDefault:"33554432"`
	// Parent of per-request upload directories; empty means os.TempDir.
	UploadDir string `env:"HTTP_UPLOAD_DIR"`
	// When false, 500 responses carry only the error name.
	ExposeInternalErrors bool `env:"HTTP_EXPOSE_INTERNAL_ERRORS" envDefault:"true"`
}

type Templates struct {
	Source string `env:"TEMPLATES_SOURCE" envDefault:"fs"`
	Dir    string `env:"TEMPLATES_DIR" envDefault:"templates"`
}

// Load reads .env files (skipped in production, missing files ignored) and
// parses the environment into a validated Config.
func Load(files ...string) (Config, error) {
	if os.Getenv("APP_ENV") != "production" {
		if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("config: load dotenv: %w", err)
		}
	}
	return parse(env.Options{})
}

func parse(opts env.Options) (Config, error) {
	cfg, err := env.ParseAsWithOptions[Config](opts)
	if err != nil {
		return Config{}, fmt.Errorf("config: parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints the env tags cannot express.
func (c Config) Validate() error {
	switch c.Transport {
	case TransportSMTP, TransportResend, TransportSES, TransportMailgun, TransportLog:
	default:
		return fmt.Errorf("%w: unknown MAILER_TRANSPORT %q", ErrInvalid, c.Transport)
	}

	switch c.Templates.Source {
	case SourceFS:
		if c.Templates.Dir == "" {
			return fmt.Errorf("%w: TEMPLATES_DIR is empty", ErrInvalid)
		}
	case SourceDB:
		if c.DB.ConnectionString == "" {
			return fmt.Errorf("%w: DATABASE_CONN_URL is required for TEMPLATES_SOURCE=db", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown TEMPLATES_SOURCE %q", ErrInvalid, c.Templates.Source)
	}

	if c.HTTP.MaxUploadBytes <= 0 {
		return fmt.Errorf("%w: HTTP_MAX_UPLOAD_BYTES must be positive", ErrInvalid)
	}
	return nil
}

// UseDB reports whether a PostgreSQL connection is configured.
func (c Config) UseDB() bool {
	return c.Templates.Source == SourceDB || c.DB.ConnectionString != ""
}
