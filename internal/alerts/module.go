package alerts

import (
	"github.com/go-core-fx/logger"
	"github.com/pilotcd/pilotcd/internal/health"
	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module(
		"alerts",
		logger.WithNamedLogger("alerts"),
		fx.Provide(NewService),
		fx.Provide(func(s *Service) health.AlertSink { return s }),
	)
}
