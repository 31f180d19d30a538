package git

import "time"

type Config struct {
	// WorkDir holds per-deployment checkouts.
	WorkDir string

	Timeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		WorkDir: "./checkouts",
		Timeout: 5 * time.Minute,
	}
}
