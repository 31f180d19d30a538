package registry

import (
	"github.com/go-core-fx/logger"
	"github.com/pilotcd/pilotcd/internal/deployments"
	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module(
		"registry",
		logger.WithNamedLogger("registry"),
		fx.Provide(NewService),
		fx.Provide(func(s *Service) deployments.ContainerRegistryClient { return s }),
	)
}
