package config

import (
	"github.com/go-core-fx/fiberfx"
	"github.com/pilotcd/pilotcd/internal/alerts"
	"github.com/pilotcd/pilotcd/internal/builds"
	"github.com/pilotcd/pilotcd/internal/deployments"
	"github.com/pilotcd/pilotcd/internal/git"
	"github.com/pilotcd/pilotcd/internal/health"
	"github.com/pilotcd/pilotcd/internal/swarm"
	"github.com/pilotcd/pilotcd/pkg/badgerfx"
	"github.com/pilotcd/pilotcd/pkg/dockerfx"
	"github.com/pilotcd/pilotcd/pkg/openapifx"
	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module(
		"config",
		fx.Provide(New),
		fx.Provide(func(cfg Config) fiberfx.Config {
			return fiberfx.Config{
				Address:     cfg.HTTP.Address,
				ProxyHeader: cfg.HTTP.ProxyHeader,
				Proxies:     cfg.HTTP.Proxies,
			}
		}),
		fx.Provide(func(cfg Config) openapifx.Config {
			return openapifx.Config{
				Enabled:    cfg.HTTP.OpenAPI.Enabled,
				PublicHost: cfg.HTTP.OpenAPI.PublicHost,
				PublicPath: cfg.HTTP.OpenAPI.PublicPath,
			}
		}),
		fx.Provide(func(cfg Config) badgerfx.Config {
			return badgerfx.Config{
				Dir:      cfg.Storage.DataDir,
				InMemory: cfg.Storage.InMemory,
			}
		}),
		fx.Provide(func(cfg Config) dockerfx.Config {
			return dockerfx.Config{
				Host:       cfg.Docker.Host,
				APIVersion: cfg.Docker.APIVersion,
				Timeout:    cfg.Docker.Timeout,
				TLSEnabled: cfg.Docker.TLSEnabled,
				TLSConfig: dockerfx.TLSConfig{
					CAFile:   cfg.Docker.CAFile,
					CertFile: cfg.Docker.CertFile,
					KeyFile:  cfg.Docker.KeyFile,
				},
			}
		}),
		fx.Provide(func(cfg Config) git.Config {
			return git.Config{
				WorkDir: cfg.Git.WorkDir,
				Timeout: cfg.Git.Timeout,
			}
		}),
		fx.Provide(func(cfg Config) deployments.Config {
			deployCfg := deployments.DefaultConfig()
			if cfg.Pipeline.Registry != "" {
				deployCfg.Registry = cfg.Pipeline.Registry
			}
			if cfg.Pipeline.LogLimit > 0 {
				deployCfg.LogLimit = cfg.Pipeline.LogLimit
			}
			if cfg.Pipeline.HistoryLimit > 0 {
				deployCfg.HistoryLimit = cfg.Pipeline.HistoryLimit
			}
			return deployCfg
		}),
		fx.Provide(func(cfg Config) builds.Config {
			buildCfg := builds.DefaultConfig()
			if cfg.Pipeline.CommandTimeout > 0 {
				buildCfg.CommandTimeout = cfg.Pipeline.CommandTimeout
			}
			return buildCfg
		}),
		fx.Provide(func(cfg Config) swarm.Config {
			return swarm.Config{
				IngressHost:    cfg.Swarm.IngressHost,
				PortRangeStart: cfg.Swarm.PortRangeStart,
				PortRangeSize:  cfg.Swarm.PortRangeSize,
			}
		}),
		fx.Provide(func(cfg Config) health.Config {
			healthCfg := health.DefaultConfig()
			healthCfg.Interval = cfg.Health.Interval
			healthCfg.ProbeTimeout = cfg.Health.ProbeTimeout
			healthCfg.ExpectedStatus = cfg.Health.ExpectedStatus
			healthCfg.FailureThreshold = cfg.Health.FailureThreshold
			healthCfg.MonitorTimeout = cfg.Health.MonitorTimeout
			healthCfg.HistoryRetention = cfg.Health.HistoryRetention
			healthCfg.HistoryLimit = cfg.Health.HistoryLimit
			return healthCfg
		}),
		fx.Provide(func(cfg Config) alerts.Config {
			return alerts.Config{
				WebhookURL: cfg.Alerts.WebhookURL,
				Timeout:    cfg.Alerts.Timeout,
			}
		}),
	)
}
