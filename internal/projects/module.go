package projects

import (
	"github.com/go-core-fx/logger"
	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module(
		"projects",
		logger.WithNamedLogger("projects"),
		fx.Provide(NewRepository, fx.Private),
		fx.Provide(NewService),
	)
}
