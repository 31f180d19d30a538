package alerts

import "time"

type Config struct {
	// WebhookURL receives alert payloads as JSON POSTs. Empty disables
	// webhook delivery; alerts are still logged.
	WebhookURL string

	Timeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		Timeout: 10 * time.Second,
	}
}
