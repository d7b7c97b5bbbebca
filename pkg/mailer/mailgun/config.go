package mailgun

import "time"

// Config holds Mailgun configuration.
// Embed this in your app config for env parsing with caarlos0/env.
type Config struct {
	APIKey  string        `env:"MAILGUN_API_KEY"`
	Domain  string        `env:"MAILGUN_DOMAIN"`
	Region  string        `env:"MAILGUN_REGION" envDefault:"us"` // us|eu
	Timeout time.Duration `env:"MAILGUN_TIMEOUT" envDefault:"30s"`
}
