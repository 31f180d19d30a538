package internal

import (
	"context"

	"github.com/capcom6/go-infra-fx/validator"
	"github.com/go-core-fx/fiberfx"
	"github.com/go-core-fx/healthfx"
	"github.com/go-core-fx/logger"
	"github.com/pilotcd/pilotcd/internal/alerts"
	"github.com/pilotcd/pilotcd/internal/builds"
	"github.com/pilotcd/pilotcd/internal/config"
	"github.com/pilotcd/pilotcd/internal/deployments"
	"github.com/pilotcd/pilotcd/internal/events"
	"github.com/pilotcd/pilotcd/internal/git"
	"github.com/pilotcd/pilotcd/internal/health"
	"github.com/pilotcd/pilotcd/internal/projects"
	"github.com/pilotcd/pilotcd/internal/registry"
	"github.com/pilotcd/pilotcd/internal/server"
	"github.com/pilotcd/pilotcd/internal/swarm"
	"github.com/pilotcd/pilotcd/pkg/badgerfx"
	"github.com/pilotcd/pilotcd/pkg/dockerfx"
	"github.com/pilotcd/pilotcd/pkg/openapifx"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func Run() {
	fx.New(
		// CORE MODULES
		logger.Module(),
		logger.WithFxDefaultLogger(),
		badgerfx.Module(),
		dockerfx.Module(),
		healthfx.Module(),
		fiberfx.Module(),
		validator.Module,
		//
		// APP MODULES
		config.Module(),
		server.Module(),
		openapifx.Module(),
		swarm.Module(),
		git.Module(),
		builds.Module(),
		registry.Module(),
		//
		// BUSINESS MODULES
		fx.Provide(func() healthfx.Version { return healthfx.Version{Version: "0.0.1", ReleaseID: 1} }),
		events.Module(),
		projects.Module(),
		deployments.Module(),
		health.Module(),
		alerts.Module(),
		//
		// CROSS-MODULE BINDINGS
		fx.Provide(func(svc *deployments.Service) health.DeploymentSource { return &deploymentSource{deployments: svc} }),
		fx.Provide(func(svc *deployments.Service) health.RollbackRequester { return &rollbackRequester{deployments: svc} }),
		fx.Provide(func(prober *health.HTTPProber) deployments.HealthVerifier { return prober }),
		// the monitor starter is bound late: health depends on deployments
		// for its records, so the reverse edge cannot be a constructor one
		fx.Provide(func() *monitorStarter { return &monitorStarter{} }),
		fx.Provide(func(starter *monitorStarter) deployments.MonitorStarter { return starter }),
		fx.Invoke(func(starter *monitorStarter, svc *health.Service) { starter.bind(svc) }),
		//
		// LIFECYCLE MANAGEMENT
		fx.Invoke(func(lc fx.Lifecycle, logger *zap.Logger) {
			lc.Append(fx.Hook{
				OnStart: func(_ context.Context) error {
					logger.Info("🚀 PilotCD application starting up")
					return nil
				},
				OnStop: func(_ context.Context) error {
					logger.Info("🛑 PilotCD application shutting down gracefully")
					return nil
				},
			})
		}),
	).Run()
}
