package deployments

import (
	"time"

	"github.com/google/uuid"
	"github.com/pilotcd/pilotcd/internal/deployments"
	"github.com/samber/lo"
)

// StartRequest represents the request payload for starting a deployment.
// Unset fields inherit the project's configuration.
type StartRequest struct {
	ProjectID uuid.UUID `json:"project_id" validate:"required"`

	Branch      string `json:"branch,omitempty"      validate:"omitempty,min=1,max=100"`
	Environment string `json:"environment,omitempty" validate:"omitempty,min=1,max=50"`
	Provider    string `json:"provider,omitempty"    validate:"omitempty,min=1,max=50"`
	Region      string `json:"region,omitempty"      validate:"omitempty,max=50"`

	EnableTests  *bool   `json:"enable_tests,omitempty"`
	AutoRollback *bool   `json:"auto_rollback,omitempty"`
	HealthPath   *string `json:"health_path,omitempty" validate:"omitempty,startswith=/,max=255"`
}

// StageResponse represents one pipeline stage of a deployment.
type StageResponse struct {
	Stage       string     `json:"stage"`
	Status      string     `json:"status"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	DurationMS  int64      `json:"duration_ms"`
	Error       string     `json:"error,omitempty"`
}

// DeploymentResponse represents the response payload for a deployment.
type DeploymentResponse struct {
	ID        uuid.UUID `json:"id"`
	ProjectID uuid.UUID `json:"project_id"`

	Status  string              `json:"status"`
	Options deployments.Options `json:"options"`

	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	Stages []StageResponse `json:"stages"`

	CommitHash     string     `json:"commit_hash,omitempty"`
	Framework      string     `json:"framework,omitempty"`
	ImageTag       string     `json:"image_tag,omitempty"`
	URL            string     `json:"url,omitempty"`
	HealthEndpoint string     `json:"health_endpoint,omitempty"`
	RollbackTarget *uuid.UUID `json:"rollback_target,omitempty"`
	Error          string     `json:"error,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LogsResponse represents the ordered log lines of a deployment.
type LogsResponse struct {
	DeploymentID uuid.UUID `json:"deployment_id"`
	Logs         []string  `json:"logs"`
}

func newDeploymentResponse(domain *deployments.Deployment) DeploymentResponse {
	return DeploymentResponse{
		ID:        domain.ID,
		ProjectID: domain.ProjectID,

		Status:  string(domain.Status),
		Options: domain.Options,

		StartedAt:   domain.StartedAt,
		CompletedAt: domain.CompletedAt,

		Stages: lo.Map(domain.Stages, func(stage deployments.StageResult, _ int) StageResponse {
			return StageResponse{
				Stage:       string(stage.Stage),
				Status:      string(stage.Status),
				StartedAt:   stage.StartedAt,
				CompletedAt: stage.CompletedAt,
				DurationMS:  stage.Duration().Milliseconds(),
				Error:       stage.Error,
			}
		}),

		CommitHash:     domain.CommitHash,
		Framework:      domain.Framework,
		ImageTag:       domain.ImageTag,
		URL:            domain.URL,
		HealthEndpoint: domain.HealthEndpoint,
		RollbackTarget: domain.RollbackTarget,
		Error:          domain.Error,

		CreatedAt: domain.CreatedAt,
		UpdatedAt: domain.UpdatedAt,
	}
}
