package internal

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/pilotcd/pilotcd/internal/deployments"
	"github.com/pilotcd/pilotcd/internal/health"
)

// deploymentSource exposes the orchestrator's records to the health
// monitor in its coarse vocabulary.
type deploymentSource struct {
	deployments *deployments.Service
}

func (a *deploymentSource) Info(ctx context.Context, deploymentID uuid.UUID) (*health.DeploymentInfo, error) {
	d, err := a.deployments.Get(ctx, deploymentID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve deployment: %w", err)
	}

	status := string(d.Status)
	switch d.Status {
	case deployments.StatusSucceeded:
		status = health.DeploymentRunning
	case deployments.StatusFailed, deployments.StatusCancelled, deployments.StatusRolledBack:
		status = health.DeploymentFailed
	}

	return &health.DeploymentInfo{
		ProjectID:      d.ProjectID,
		Status:         status,
		HealthEndpoint: d.HealthEndpoint,
	}, nil
}

// monitorStarter hands succeeded deployments over to the health monitor.
// The monitor is injected after construction because it in turn reads
// deployments back through the orchestrator.
type monitorStarter struct {
	mu     sync.Mutex
	health *health.Service
}

func (a *monitorStarter) bind(svc *health.Service) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.health = svc
}

func (a *monitorStarter) StartMonitoring(ctx context.Context, deploymentID, projectID uuid.UUID, autoRollback bool) error {
	a.mu.Lock()
	svc := a.health
	a.mu.Unlock()

	if svc == nil {
		return fmt.Errorf("health monitor is not available")
	}

	cfg := health.MonitorConfig{AutoRollback: autoRollback}
	if _, err := svc.StartMonitoring(ctx, deploymentID, projectID, cfg); err != nil {
		return fmt.Errorf("failed to start monitoring: %w", err)
	}

	return nil
}

// rollbackRequester lets the monitor revert a failing deployment through
// the orchestrator and learn which deployment went live instead.
type rollbackRequester struct {
	deployments *deployments.Service
}

func (a *rollbackRequester) Rollback(ctx context.Context, deploymentID uuid.UUID) (uuid.UUID, error) {
	target, err := a.deployments.Rollback(ctx, deploymentID)
	if err != nil {
		return uuid.Nil, err
	}

	return target.ID, nil
}
