package ses

// Config holds AWS SES configuration.
// Embed this in your app config for env parsing with caarlos0/env.
type Config struct {
	Region          string `env:"SES_REGION" envDefault:"us-east-1"`
	AccessKeyID     string `env:"SES_ACCESS_KEY_ID"`
	SecretAccessKey string `env:"SES_SECRET_ACCESS_KEY"`
	// Endpoint overrides the service URL, e.g. for LocalStack.
	Endpoint string `env:"SES_ENDPOINT"`
	// ConfigurationSet is attached to every message when set.
	ConfigurationSet string `env:"SES_CONFIGURATION_SET"`
}
