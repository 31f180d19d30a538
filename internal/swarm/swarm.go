package swarm

import (
	"context"
	"fmt"

	"github.com/moby/moby/api/types/swarm"
	"github.com/moby/moby/client"
	"go.uber.org/zap"
)

// Swarm wraps the Swarm-specific operations the deployer needs.
type Swarm struct {
	client *client.Client
	logger *zap.Logger
}

// NewSwarm creates a new Swarm wrapper.
func NewSwarm(client *client.Client, logger *zap.Logger) *Swarm {
	return &Swarm{
		client: client,
		logger: logger,
	}
}

// Inspect reports the current Swarm state. Used as a reachability check.
func (s *Swarm) Inspect(ctx context.Context) (swarm.Swarm, error) {
	s.logger.Debug("inspecting swarm")

	result, err := s.client.SwarmInspect(ctx, client.SwarmInspectOptions{})
	if err != nil {
		s.logger.Error("failed to inspect swarm", zap.Error(err))
		return swarm.Swarm{}, fmt.Errorf("failed to inspect swarm: %w", err)
	}

	return result.Swarm, nil
}

// ListServices lists all services in the Swarm.
func (s *Swarm) ListServices(ctx context.Context) ([]swarm.Service, error) {
	s.logger.Debug("listing services")

	result, err := s.client.ServiceList(ctx, client.ServiceListOptions{})
	if err != nil {
		s.logger.Error("failed to list services", zap.Error(err))
		return nil, fmt.Errorf("failed to list services: %w", err)
	}

	return result.Items, nil
}

// FindByLabel returns the first service carrying label=value.
func (s *Swarm) FindByLabel(ctx context.Context, label, value string) (*swarm.Service, error) {
	services, err := s.ListServices(ctx)
	if err != nil {
		return nil, err
	}

	for i := range services {
		if services[i].Spec.Labels[label] == value {
			return &services[i], nil
		}
	}

	return nil, fmt.Errorf("%w: %s=%s", ErrServiceNotFound, label, value)
}

// CreateService creates a new service in the Swarm.
func (s *Swarm) CreateService(ctx context.Context, spec swarm.ServiceSpec) (string, error) {
	s.logger.Info("creating service",
		zap.String("name", spec.Name),
		zap.String("image", spec.TaskTemplate.ContainerSpec.Image))

	result, err := s.client.ServiceCreate(ctx, client.ServiceCreateOptions{
		Spec: spec,
	})
	if err != nil {
		s.logger.Error("failed to create service", zap.Error(err), zap.String("name", spec.Name))
		return "", fmt.Errorf("failed to create service: %w", err)
	}

	s.logger.Info("service created",
		zap.String("id", result.ID),
		zap.String("name", spec.Name))
	return result.ID, nil
}

// UpdateService applies a new spec to an existing service.
func (s *Swarm) UpdateService(ctx context.Context, serviceID string, version swarm.Version, spec swarm.ServiceSpec) error {
	s.logger.Info("updating service",
		zap.String("id", serviceID),
		zap.String("image", spec.TaskTemplate.ContainerSpec.Image))

	_, err := s.client.ServiceUpdate(ctx, serviceID, client.ServiceUpdateOptions{
		Version: version,
		Spec:    spec,
	})
	if err != nil {
		s.logger.Error("failed to update service", zap.Error(err), zap.String("id", serviceID))
		return fmt.Errorf("failed to update service: %w", err)
	}

	return nil
}

// InspectService returns a service with its current version.
func (s *Swarm) InspectService(ctx context.Context, serviceID string) (swarm.Service, error) {
	s.logger.Debug("inspecting service", zap.String("id", serviceID))

	result, err := s.client.ServiceInspect(ctx, serviceID, client.ServiceInspectOptions{})
	if err != nil {
		s.logger.Error("failed to inspect service", zap.Error(err), zap.String("id", serviceID))
		return swarm.Service{}, fmt.Errorf("failed to inspect service: %w", err)
	}

	return result.Service, nil
}

// RemoveService removes a service from the Swarm.
func (s *Swarm) RemoveService(ctx context.Context, serviceID string) error {
	s.logger.Info("removing service", zap.String("id", serviceID))

	_, err := s.client.ServiceRemove(ctx, serviceID, client.ServiceRemoveOptions{})
	if err != nil {
		s.logger.Error("failed to remove service", zap.Error(err), zap.String("id", serviceID))
		return fmt.Errorf("failed to remove service: %w", err)
	}

	return nil
}
