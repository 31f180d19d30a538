package health

import (
	"context"

	"github.com/go-core-fx/logger"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module(
		"health",
		logger.WithNamedLogger("health"),
		fx.Provide(NewRepository, fx.Private),
		fx.Provide(newCollector, fx.Private),
		fx.Provide(NewHTTPProber),
		fx.Provide(func(p *HTTPProber) Prober { return p }, fx.Private),
		fx.Provide(NewService),
		fx.Invoke(func(lc fx.Lifecycle, s *Service) {
			lc.Append(fx.Hook{
				OnStart: func(_ context.Context) error {
					if err := s.metrics.register(prometheus.DefaultRegisterer); err != nil {
						return err
					}
					go s.pruneLoop()
					return nil
				},
				OnStop: func(_ context.Context) error {
					s.Shutdown()
					return nil
				},
			})
		}),
	)
}
