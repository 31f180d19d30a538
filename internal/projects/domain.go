package projects

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusError    Status = "error"
)

// ProjectDraft carries the mutable configuration of a project.
type ProjectDraft struct {
	// Basic Information
	Name        string
	Description string

	// Source Repository
	RepoURL string // HTTPS or SSH URL
	Branch  string // Default branch to deploy

	// Deployment Target
	Provider    string // Cloud provider profile name
	Region      string
	Environment string // e.g. production, staging

	// Pipeline Options
	EnableTests  bool
	AutoRollback bool
	HealthPath   string // Path probed on the deployed URL, e.g. /healthz

	// Status
	Status         Status
	LastDeployment *uuid.UUID // Most recent successful deployment
	LastDeployedAt *time.Time
}

type Project struct {
	ProjectDraft

	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// MarkDeployed records a successful deployment on the project.
func (p *Project) MarkDeployed(deploymentID uuid.UUID, at time.Time) {
	p.Status = StatusActive
	p.LastDeployment = &deploymentID
	p.LastDeployedAt = &at
}
