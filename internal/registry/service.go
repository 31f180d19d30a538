package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/moby/moby/client"
	"go.uber.org/zap"
)

const generatedDockerfile = "Dockerfile.generated"

// Service builds and publishes container images through the Docker daemon.
// It implements the orchestrator's ContainerRegistryClient.
type Service struct {
	client *client.Client
	logger *zap.Logger
}

func NewService(client *client.Client, logger *zap.Logger) *Service {
	return &Service{
		client: client,
		logger: logger,
	}
}

// Containerize builds an image from the checkout and returns its tag. When
// the checkout carries no Dockerfile a minimal one is generated next to it.
func (s *Service) Containerize(ctx context.Context, deploymentID uuid.UUID, path, dockerfile string, port int) (string, error) {
	if dockerfile == "" {
		generated, err := s.writeDockerfile(path, port)
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrBuildFailed, err)
		}
		dockerfile = generated
	}

	tag := fmt.Sprintf("pilotcd/%s:latest", deploymentID)

	s.logger.Info("building image",
		zap.String("deployment_id", deploymentID.String()),
		zap.String("tag", tag),
		zap.String("dockerfile", dockerfile))

	buildContext, err := tarDirectory(path)
	if err != nil {
		return "", fmt.Errorf("%w: create build context: %w", ErrBuildFailed, err)
	}

	response, err := s.client.ImageBuild(ctx, buildContext, client.ImageBuildOptions{
		Tags:       []string{tag},
		Dockerfile: dockerfile,
		Remove:     true,
	})
	if err != nil {
		s.logger.Error("failed to build image", zap.Error(err), zap.String("tag", tag))
		return "", fmt.Errorf("%w: %w", ErrBuildFailed, err)
	}
	defer response.Body.Close()

	if err := drainDaemonStream(response.Body); err != nil {
		s.logger.Error("image build reported an error", zap.Error(err), zap.String("tag", tag))
		return "", fmt.Errorf("%w: %w", ErrBuildFailed, err)
	}

	s.logger.Info("image built",
		zap.String("deployment_id", deploymentID.String()),
		zap.String("tag", tag))

	return tag, nil
}

// Push retags the image into the configured registry and pushes it.
func (s *Service) Push(ctx context.Context, deploymentID uuid.UUID, imageTag, registry string) error {
	reference := fmt.Sprintf("%s/%s", registry, imageTag)

	s.logger.Info("pushing image",
		zap.String("deployment_id", deploymentID.String()),
		zap.String("reference", reference))

	if _, err := s.client.ImageTag(ctx, client.ImageTagOptions{Source: imageTag, Target: reference}); err != nil {
		s.logger.Error("failed to tag image", zap.Error(err))
		return fmt.Errorf("%w: %w", ErrPushFailed, err)
	}

	response, err := s.client.ImagePush(ctx, reference, client.ImagePushOptions{})
	if err != nil {
		s.logger.Error("failed to push image", zap.Error(err), zap.String("reference", reference))
		return fmt.Errorf("%w: %w", ErrPushFailed, err)
	}
	defer response.Close()

	if err := drainDaemonStream(response); err != nil {
		s.logger.Error("image push reported an error", zap.Error(err), zap.String("reference", reference))
		return fmt.Errorf("%w: %w", ErrPushFailed, err)
	}

	s.logger.Info("image pushed",
		zap.String("deployment_id", deploymentID.String()),
		zap.String("reference", reference))

	return nil
}

func (s *Service) writeDockerfile(path string, port int) (string, error) {
	content := strings.Join([]string{
		"FROM node:20-alpine",
		"WORKDIR /app",
		"COPY . .",
		fmt.Sprintf("EXPOSE %d", port),
		`CMD ["npm", "start"]`,
		"",
	}, "\n")

	if err := os.WriteFile(filepath.Join(path, generatedDockerfile), []byte(content), 0o644); err != nil {
		return "", err
	}

	return generatedDockerfile, nil
}

type daemonMessage struct {
	Stream      string `json:"stream"`
	Error       string `json:"error"`
	ErrorDetail struct {
		Message string `json:"message"`
	} `json:"errorDetail"`
}

// drainDaemonStream consumes a build or push progress stream and surfaces
// the first error message it carries.
func drainDaemonStream(reader io.Reader) error {
	decoder := json.NewDecoder(reader)
	for {
		var message daemonMessage
		if err := decoder.Decode(&message); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("decode daemon stream: %w", err)
		}
		if message.Error != "" {
			return errors.New(message.Error)
		}
		if message.ErrorDetail.Message != "" {
			return errors.New(message.ErrorDetail.Message)
		}
	}
}
