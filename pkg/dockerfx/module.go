package dockerfx

import (
	"context"
	"fmt"

	"github.com/go-core-fx/logger"
	"github.com/moby/moby/client"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func Module() fx.Option {
	return fx.Module(
		"dockerfx",
		logger.WithNamedLogger("dockerfx"),
		fx.Provide(NewClient),
		fx.Invoke(func(lc fx.Lifecycle, cli *client.Client, logger *zap.Logger) {
			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					// fail fast when the daemon is unreachable: every
					// deployment needs it
					if _, err := cli.Ping(ctx, client.PingOptions{}); err != nil {
						return fmt.Errorf("daemon unreachable: %w", err)
					}
					logger.Info("daemon connection established")
					return nil
				},
				OnStop: func(_ context.Context) error {
					logger.Info("closing daemon client")
					if err := cli.Close(); err != nil {
						return fmt.Errorf("failed to close daemon client: %w", err)
					}
					return nil
				},
			})
		}),
	)
}
