package builds

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/pilotcd/pilotcd/internal/deployments"
	"go.uber.org/zap"
)

// Service runs the analyze/install/test/build stages against a checkout.
// It implements the orchestrator's BuildExecutor.
type Service struct {
	config Config
	logger *zap.Logger
}

func NewService(config Config, logger *zap.Logger) *Service {
	return &Service{
		config: config,
		logger: logger,
	}
}

type packageManifest struct {
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
	Scripts         map[string]string `json:"scripts"`
}

// Analyze inspects a checkout and resolves the framework profile the
// remaining stages run with.
func (s *Service) Analyze(_ context.Context, deploymentID uuid.UUID, path string) (*deployments.FrameworkInfo, error) {
	s.logger.Info("analyzing checkout",
		zap.String("deployment_id", deploymentID.String()),
		zap.String("path", path))

	name, err := s.detect(path)
	if err != nil {
		return nil, err
	}

	info := catalog[name]

	// A checked-in Dockerfile takes precedence over the generated one.
	if _, statErr := os.Stat(filepath.Join(path, "Dockerfile")); statErr == nil {
		info.Dockerfile = "Dockerfile"
	}

	s.logger.Info("framework detected",
		zap.String("deployment_id", deploymentID.String()),
		zap.String("framework", info.Name),
		zap.Bool("has_dockerfile", info.Dockerfile != ""))

	return &info, nil
}

func (s *Service) detect(path string) (string, error) {
	raw, err := os.ReadFile(filepath.Join(path, "package.json"))
	if os.IsNotExist(err) {
		if _, statErr := os.Stat(filepath.Join(path, "index.html")); statErr == nil {
			return "static", nil
		}
		return "", fmt.Errorf("%w: no package.json or index.html in %s", ErrUnknownFramework, path)
	}
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUnknownFramework, err)
	}

	var manifest packageManifest
	if err := json.Unmarshal(raw, &manifest); err != nil {
		return "", fmt.Errorf("%w: invalid package.json: %w", ErrUnknownFramework, err)
	}

	for _, entry := range detectionOrder {
		if _, ok := manifest.Dependencies[entry.dependency]; ok {
			return entry.framework, nil
		}
		if _, ok := manifest.DevDependencies[entry.dependency]; ok {
			return entry.framework, nil
		}
	}

	return "", fmt.Errorf("%w: no known framework dependency in package.json", ErrUnknownFramework)
}

// Install fetches the checkout's dependencies. An empty command is a no-op.
func (s *Service) Install(ctx context.Context, deploymentID uuid.UUID, path, command string) error {
	if command == "" {
		s.logger.Debug("no install command, skipping",
			zap.String("deployment_id", deploymentID.String()))
		return nil
	}

	_, err := s.execute(ctx, deploymentID, path, command)
	return err
}

var testCountPattern = regexp.MustCompile(`(\d+)\s+(?:passing|passed|tests? passed)`)

// Test runs the configured test command and summarizes the outcome. A
// failing command yields a report with Passed false rather than an error,
// so the caller decides whether that aborts the run.
func (s *Service) Test(ctx context.Context, deploymentID uuid.UUID, path, command string) (*deployments.TestReport, error) {
	if command == "" {
		return &deployments.TestReport{Passed: true}, nil
	}

	output, err := s.execute(ctx, deploymentID, path, command)
	if err != nil && ctx.Err() != nil {
		return nil, ctx.Err()
	}

	report := &deployments.TestReport{
		Passed: err == nil,
		Output: output,
	}
	if match := testCountPattern.FindStringSubmatch(output); match != nil {
		report.TestsRun, _ = strconv.Atoi(match[1])
	}

	s.logger.Info("test run completed",
		zap.String("deployment_id", deploymentID.String()),
		zap.Bool("passed", report.Passed),
		zap.Int("tests_run", report.TestsRun))

	return report, nil
}

// Build runs the build command and returns the produced output paths,
// relative to the checkout root.
func (s *Service) Build(ctx context.Context, deploymentID uuid.UUID, path, command, outputDir string) ([]string, error) {
	if command != "" {
		if _, err := s.execute(ctx, deploymentID, path, command); err != nil {
			return nil, err
		}
	}

	if outputDir == "" {
		return nil, nil
	}

	artifacts, err := s.collectArtifacts(path, outputDir)
	if err != nil {
		return nil, err
	}

	s.logger.Info("build completed",
		zap.String("deployment_id", deploymentID.String()),
		zap.String("output_dir", outputDir),
		zap.Int("artifacts", len(artifacts)))

	return artifacts, nil
}

func (s *Service) collectArtifacts(path, outputDir string) ([]string, error) {
	root := filepath.Join(path, outputDir)
	if _, err := os.Stat(root); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNoBuildOutput, outputDir)
	}

	var artifacts []string
	err := filepath.WalkDir(root, func(entry string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if len(artifacts) >= s.config.MaxArtifacts {
			return fs.SkipAll
		}
		relative, relErr := filepath.Rel(path, entry)
		if relErr != nil {
			return relErr
		}
		artifacts = append(artifacts, relative)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("collect artifacts: %w", err)
	}

	return artifacts, nil
}

func (s *Service) execute(ctx context.Context, deploymentID uuid.UUID, dir, command string) (string, error) {
	if s.config.CommandTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.CommandTimeout)
		defer cancel()
	}

	parts := strings.Fields(command)
	cmd := exec.CommandContext(ctx, parts[0], parts[1:]...)
	cmd.Dir = dir

	s.logger.Info("running command",
		zap.String("deployment_id", deploymentID.String()),
		zap.String("command", command))

	output, err := cmd.CombinedOutput()
	if err != nil {
		s.logger.Error("command failed",
			zap.String("deployment_id", deploymentID.String()),
			zap.String("command", command),
			zap.Error(err))
		return string(output), fmt.Errorf("%w: %s: %w", ErrCommandFailed, command, err)
	}

	return string(output), nil
}
