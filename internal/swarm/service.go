package swarm

import (
	"context"
	"errors"
	"fmt"
	"hash/crc32"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/moby/moby/api/types/mount"
	"github.com/moby/moby/api/types/network"
	"github.com/moby/moby/api/types/swarm"
	"github.com/pilotcd/pilotcd/internal/deployments"
	"go.uber.org/zap"
)

const (
	labelProject    = "com.pilotcd.project"
	labelDeployment = "com.pilotcd.deployment"

	staticImage     = "nginx:alpine"
	serverlessImage = "node:20-alpine"
)

// Service ships deployments as Swarm services, one service per project.
// It implements the orchestrator's CloudProviderClient.
type Service struct {
	config Config
	swarm  *Swarm
	logger *zap.Logger
}

func NewService(config Config, swarm *Swarm, logger *zap.Logger) *Service {
	return &Service{
		config: config,
		swarm:  swarm,
		logger: logger,
	}
}

// Deploy creates the project's service, or updates it in place when a
// previous deployment already created one, and returns the service URL.
func (s *Service) Deploy(ctx context.Context, req deployments.DeployRequest) (string, error) {
	spec := s.buildSpec(req)

	existing, err := s.swarm.FindByLabel(ctx, labelProject, req.ProjectID.String())
	switch {
	case err == nil:
		if updateErr := s.swarm.UpdateService(ctx, existing.ID, existing.Version, spec); updateErr != nil {
			return "", fmt.Errorf("%w: %w", ErrDeployFailed, updateErr)
		}
	case errors.Is(err, ErrServiceNotFound):
		if _, createErr := s.swarm.CreateService(ctx, spec); createErr != nil {
			return "", fmt.Errorf("%w: %w", ErrDeployFailed, createErr)
		}
	default:
		return "", fmt.Errorf("%w: %w", ErrDeployFailed, err)
	}

	url := fmt.Sprintf("http://%s:%d", s.config.IngressHost, s.publishedPort(req.ProjectID))

	s.logger.Info("deployment shipped",
		zap.String("deployment_id", req.DeploymentID.String()),
		zap.String("project_id", req.ProjectID.String()),
		zap.String("url", url))

	return url, nil
}

// Rollback points the project's service back at the target deployment's
// revision and returns the now-live deployment id.
func (s *Service) Rollback(ctx context.Context, projectID, targetDeploymentID uuid.UUID) (uuid.UUID, error) {
	existing, err := s.swarm.FindByLabel(ctx, labelProject, projectID.String())
	if err != nil {
		return uuid.Nil, err
	}

	spec := existing.Spec
	spec.Labels[labelDeployment] = targetDeploymentID.String()

	if len(spec.TaskTemplate.ContainerSpec.Mounts) > 0 {
		// Non-container deployments mount a per-deployment source
		// directory; swap the last path element for the target's.
		mounts := spec.TaskTemplate.ContainerSpec.Mounts
		for i := range mounts {
			mounts[i].Source = filepath.Join(filepath.Dir(mounts[i].Source), targetDeploymentID.String())
		}
	} else {
		spec.TaskTemplate.ContainerSpec.Image = imageReference(targetDeploymentID)
	}

	if err := s.swarm.UpdateService(ctx, existing.ID, existing.Version, spec); err != nil {
		return uuid.Nil, err
	}

	s.logger.Info("service rolled back",
		zap.String("project_id", projectID.String()),
		zap.String("target_deployment_id", targetDeploymentID.String()))

	return targetDeploymentID, nil
}

// Restart forces a redeploy of the deployment's service without changing
// its spec.
func (s *Service) Restart(ctx context.Context, deploymentID uuid.UUID) error {
	existing, err := s.swarm.FindByLabel(ctx, labelDeployment, deploymentID.String())
	if err != nil {
		return err
	}

	spec := existing.Spec
	spec.TaskTemplate.ForceUpdate++

	if err := s.swarm.UpdateService(ctx, existing.ID, existing.Version, spec); err != nil {
		return err
	}

	s.logger.Info("service restarted", zap.String("deployment_id", deploymentID.String()))
	return nil
}

func (s *Service) buildSpec(req deployments.DeployRequest) swarm.ServiceSpec {
	container := &swarm.ContainerSpec{}
	targetPort := uint32(req.Framework.Port)

	if req.ImageTag != "" {
		container.Image = req.ImageTag
	} else {
		switch req.Framework.Name {
		case "static":
			container.Image = staticImage
			container.Mounts = []mount.Mount{{
				Type:   mount.TypeBind,
				Source: req.SourcePath,
				Target: "/usr/share/nginx/html",
			}}
			targetPort = 80
		default:
			container.Image = serverlessImage
			container.Command = []string{"npm", "start"}
			container.Dir = "/app"
			container.Mounts = []mount.Mount{{
				Type:   mount.TypeBind,
				Source: req.SourcePath,
				Target: "/app",
			}}
		}
	}

	container.Env = []string{
		"PILOTCD_ENVIRONMENT=" + req.Environment,
		"PILOTCD_REGION=" + req.Region,
	}

	return swarm.ServiceSpec{
		Annotations: swarm.Annotations{
			Name: serviceName(req.ProjectID),
			Labels: map[string]string{
				labelProject:    req.ProjectID.String(),
				labelDeployment: req.DeploymentID.String(),
			},
		},
		TaskTemplate: swarm.TaskSpec{
			ContainerSpec: container,
		},
		EndpointSpec: &swarm.EndpointSpec{
			Ports: []swarm.PortConfig{{
				Protocol:      network.TCP,
				TargetPort:    targetPort,
				PublishedPort: uint32(s.publishedPort(req.ProjectID)),
				PublishMode:   swarm.PortConfigPublishModeIngress,
			}},
		},
	}
}

// publishedPort derives a stable host port for a project from its id.
func (s *Service) publishedPort(projectID uuid.UUID) int {
	sum := crc32.ChecksumIEEE(projectID[:])
	return s.config.PortRangeStart + int(sum)%s.config.PortRangeSize
}

func serviceName(projectID uuid.UUID) string {
	return "pilotcd-" + projectID.String()
}

func imageReference(deploymentID uuid.UUID) string {
	return fmt.Sprintf("pilotcd/%s:latest", deploymentID)
}
