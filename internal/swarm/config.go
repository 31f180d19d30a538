package swarm

type Config struct {
	// IngressHost is the address deployed services are reachable on.
	IngressHost string

	// Published ports are derived per project from this range.
	PortRangeStart int
	PortRangeSize  int
}

func DefaultConfig() Config {
	return Config{
		IngressHost:    "127.0.0.1",
		PortRangeStart: 30000,
		PortRangeSize:  2000,
	}
}
