package git

import (
	"github.com/go-core-fx/logger"
	"github.com/pilotcd/pilotcd/internal/deployments"
	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module(
		"git",
		logger.WithNamedLogger("git"),
		fx.Provide(NewService),
		fx.Provide(func(s *Service) deployments.SourceControlClient { return s }),
	)
}
