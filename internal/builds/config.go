package builds

import "time"

type Config struct {
	// CommandTimeout bounds each install/test/build command.
	CommandTimeout time.Duration

	// MaxArtifacts caps how many build output paths are reported back.
	MaxArtifacts int
}

func DefaultConfig() Config {
	return Config{
		CommandTimeout: 15 * time.Minute,
		MaxArtifacts:   100,
	}
}
