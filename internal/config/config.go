package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-core-fx/config"
)

type http struct {
	Address     string   `koanf:"address"`
	ProxyHeader string   `koanf:"proxy_header"`
	Proxies     []string `koanf:"proxies"`

	OpenAPI openAPIConfig `koanf:"openapi"`
}

type openAPIConfig struct {
	Enabled    bool   `koanf:"enabled"`
	PublicHost string `koanf:"public_host"`
	PublicPath string `koanf:"public_path"`
}

type storageConfig struct {
	DataDir  string `koanf:"data_dir"`
	InMemory bool   `koanf:"in_memory"`
}

type dockerConfig struct {
	Host       string        `koanf:"host"`
	APIVersion string        `koanf:"api_version"`
	Timeout    time.Duration `koanf:"timeout"`
	TLSEnabled bool          `koanf:"tls_enabled"`
	CAFile     string        `koanf:"ca_file"`
	CertFile   string        `koanf:"cert_file"`
	KeyFile    string        `koanf:"key_file"`
}

type gitConfig struct {
	WorkDir string        `koanf:"work_dir"`
	Timeout time.Duration `koanf:"timeout"`
}

type pipelineConfig struct {
	Registry       string        `koanf:"registry"`
	LogLimit       int           `koanf:"log_limit"`
	HistoryLimit   int           `koanf:"history_limit"`
	CommandTimeout time.Duration `koanf:"command_timeout"`
}

type swarmConfig struct {
	IngressHost    string `koanf:"ingress_host"`
	PortRangeStart int    `koanf:"port_range_start"`
	PortRangeSize  int    `koanf:"port_range_size"`
}

type healthConfig struct {
	Interval         time.Duration `koanf:"interval"`
	ProbeTimeout     time.Duration `koanf:"probe_timeout"`
	ExpectedStatus   int           `koanf:"expected_status"`
	FailureThreshold int           `koanf:"failure_threshold"`
	MonitorTimeout   time.Duration `koanf:"monitor_timeout"`
	HistoryRetention time.Duration `koanf:"history_retention"`
	HistoryLimit     int           `koanf:"history_limit"`
}

type alertsConfig struct {
	WebhookURL string        `koanf:"webhook_url"`
	Timeout    time.Duration `koanf:"timeout"`
}

type Config struct {
	HTTP http `koanf:"http"`

	Storage  storageConfig  `koanf:"storage"`
	Docker   dockerConfig   `koanf:"docker"`
	Git      gitConfig      `koanf:"git"`
	Pipeline pipelineConfig `koanf:"pipeline"`
	Swarm    swarmConfig    `koanf:"swarm"`
	Health   healthConfig   `koanf:"health"`
	Alerts   alertsConfig   `koanf:"alerts"`
}

func Default() Config {
	//nolint:exhaustruct,mnd //default values
	return Config{
		HTTP: http{
			Address:     "127.0.0.1:3000",
			ProxyHeader: "X-Forwarded-For",
			Proxies:     []string{},
			OpenAPI: openAPIConfig{
				Enabled: true,
			},
		},

		Storage: storageConfig{
			DataDir: "./data",
		},

		Docker: dockerConfig{
			Host:       "",
			APIVersion: "",
			Timeout:    30 * time.Second,
		},

		Git: gitConfig{
			WorkDir: "./checkouts",
			Timeout: 5 * time.Minute,
		},

		Pipeline: pipelineConfig{
			Registry:       "127.0.0.1:5000",
			LogLimit:       1000,
			HistoryLimit:   20,
			CommandTimeout: 15 * time.Minute,
		},

		Swarm: swarmConfig{
			IngressHost:    "127.0.0.1",
			PortRangeStart: 30000,
			PortRangeSize:  2000,
		},

		Health: healthConfig{
			Interval:         30 * time.Second,
			ProbeTimeout:     10 * time.Second,
			ExpectedStatus:   200,
			FailureThreshold: 3,
			MonitorTimeout:   30 * time.Minute,
			HistoryRetention: 24 * time.Hour,
			HistoryLimit:     500,
		},

		Alerts: alertsConfig{
			Timeout: 10 * time.Second,
		},
	}
}

func New() (Config, error) {
	cfg := Default()

	options := []config.Option{}
	if yamlPath := os.Getenv("CONFIG_PATH"); yamlPath != "" {
		options = append(options, config.WithLocalYAML(yamlPath))
	}

	if err := config.Load(&cfg, options...); err != nil {
		return Config{}, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}
