package swarm

import (
	"github.com/go-core-fx/logger"
	"github.com/pilotcd/pilotcd/internal/deployments"
	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module(
		"swarm",
		logger.WithNamedLogger("swarm"),
		fx.Provide(NewSwarm, fx.Private),
		fx.Provide(NewService),
		fx.Provide(func(s *Service) deployments.CloudProviderClient { return s }),
	)
}
