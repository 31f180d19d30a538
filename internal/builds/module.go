package builds

import (
	"github.com/go-core-fx/logger"
	"github.com/pilotcd/pilotcd/internal/deployments"
	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module(
		"builds",
		logger.WithNamedLogger("builds"),
		fx.Provide(NewService),
		fx.Provide(func(s *Service) deployments.BuildExecutor { return s }),
	)
}
