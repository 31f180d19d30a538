package deployments

// Config fixes the orchestrator's provider catalog and bookkeeping limits.
type Config struct {
	// Providers maps a provider profile name to its kind. Deployments
	// targeting an unknown profile abort at the analyzing stage.
	Providers map[string]ProviderKind

	// Frameworks the build executor knows how to ship.
	Frameworks []string

	// Registry images are pushed to for container providers.
	Registry string

	// LogLimit caps the per-deployment log sequence.
	LogLimit int

	// HistoryLimit is the default page size for history queries.
	HistoryLimit int
}

func DefaultConfig() Config {
	return Config{
		Providers: map[string]ProviderKind{
			"swarm":     KindContainer,
			"functions": KindServerless,
			"edge":      KindStatic,
		},
		Frameworks:   []string{"nextjs", "react", "vue", "express", "fastify", "static"},
		Registry:     "127.0.0.1:5000",
		LogLimit:     1000,
		HistoryLimit: 20,
	}
}
