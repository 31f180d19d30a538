package projects

import (
	"time"

	"github.com/google/uuid"
)

// CreateRequest represents the request payload for creating a project.
type CreateRequest struct {
	Name        string `json:"name"         validate:"required,min=1,max=100"`
	Description string `json:"description"  validate:"max=500"`
	RepoURL     string `json:"repo_url"     validate:"required,url"`
	Branch      string `json:"branch"       validate:"required,min=1,max=100"`
	Provider    string `json:"provider"     validate:"required,min=1,max=50"`
	Region      string `json:"region"       validate:"max=50"`
	Environment string `json:"environment"  validate:"required,min=1,max=50"`

	EnableTests  bool   `json:"enable_tests"`
	AutoRollback bool   `json:"auto_rollback"`
	HealthPath   string `json:"health_path"  validate:"omitempty,startswith=/,max=255"`
}

// UpdateRequest represents the request payload for updating a project.
type UpdateRequest struct {
	Description *string `json:"description,omitempty"  validate:"omitempty,max=500"`
	RepoURL     *string `json:"repo_url,omitempty"     validate:"omitempty,url"`
	Branch      *string `json:"branch,omitempty"       validate:"omitempty,min=1,max=100"`
	Provider    *string `json:"provider,omitempty"     validate:"omitempty,min=1,max=50"`
	Region      *string `json:"region,omitempty"       validate:"omitempty,max=50"`
	Environment *string `json:"environment,omitempty"  validate:"omitempty,min=1,max=50"`

	EnableTests  *bool   `json:"enable_tests,omitempty"`
	AutoRollback *bool   `json:"auto_rollback,omitempty"`
	HealthPath   *string `json:"health_path,omitempty"  validate:"omitempty,startswith=/,max=255"`
}

// ProjectResponse represents the response payload for a project.
type ProjectResponse struct {
	CreateRequest

	ID uuid.UUID `json:"id"`

	Status         string     `json:"status"`
	LastDeployment *uuid.UUID `json:"last_deployment,omitempty"`
	LastDeployedAt *time.Time `json:"last_deployed_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}
