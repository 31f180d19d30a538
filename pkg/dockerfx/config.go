package dockerfx

import "time"

// Config controls how the daemon client is constructed. Zero values fall
// back to the standard Docker environment variables.
type Config struct {
	// Host is the daemon address, a unix socket path or tcp:// address.
	// Empty resolves from DOCKER_HOST.
	Host string

	// APIVersion pins the API version. Empty negotiates with the daemon.
	APIVersion string

	// Timeout bounds every daemon API request.
	Timeout time.Duration

	// TLSEnabled switches the connection to mutual TLS using TLSConfig.
	TLSEnabled bool

	TLSConfig TLSConfig
}

// TLSConfig carries the certificate material for a TLS daemon connection.
type TLSConfig struct {
	CAFile   string
	CertFile string
	KeyFile  string
}

func DefaultConfig() Config {
	return Config{
		Timeout: 30 * time.Second,
	}
}
