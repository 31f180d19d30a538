package dockerfx

import "errors"

// ErrInvalidTLSConfig is returned when the TLS configuration is invalid.
var ErrInvalidTLSConfig = errors.New("invalid TLS configuration")
