package smtp

import "time"

// TLS modes.
const (
	TLSNone     = "none"
	TLSStartTLS = "starttls"
	TLSImplicit = "tls"
)

// Config holds SMTP transport configuration.
// Embed this in your app config for env parsing with caarlos0/env.
type Config struct {
	Host      string `env:"SMTP_HOST" envDefault:"localhost"`
	Port      int    `env:"SMTP_PORT" envDefault:"587"`
	Username  string `env:"SMTP_USERNAME"`
	Password  string `env:"SMTP_PASSWORD"`
	TLS       string `env:"SMTP_TLS" envDefault:"starttls"`
	LocalName string `env:"SMTP_LOCAL_NAME" envDefault:"localhost"`

	MaxConns       int32         `env:"SMTP_MAX_CONNS" envDefault:"4"`
	WarmConns      int           `env:"SMTP_WARM_CONNS" envDefault:"0"`
	DialTimeout    time.Duration `env:"SMTP_DIAL_TIMEOUT" envDefault:"10s"`
	AcquireTimeout time.Duration `env:"SMTP_ACQUIRE_TIMEOUT" envDefault:"10s"`
	// Connections idle longer than this are probed with NOOP before reuse.
	IdleCheck time.Duration `env:"SMTP_IDLE_CHECK" envDefault:"30s"`
}
