package deployments

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusInitializing   Status = "initializing"
	StatusCloning        Status = "cloning"
	StatusAnalyzing      Status = "analyzing"
	StatusInstalling     Status = "installing"
	StatusTesting        Status = "testing"
	StatusBuilding       Status = "building"
	StatusContainerizing Status = "containerizing"
	StatusPushing        Status = "pushing"
	StatusDeploying      Status = "deploying"
	StatusHealthCheck    Status = "health_check"
	StatusRollingBack    Status = "rolling_back"
	StatusSucceeded      Status = "succeeded"
	StatusFailed         Status = "failed"
	StatusCancelled      Status = "cancelled"
	StatusRolledBack     Status = "rolled_back"
)

// Terminal reports whether the status is final. A deployment in a terminal
// status is immutable history.
func (s Status) Terminal() bool {
	switch s {
	case StatusSucceeded, StatusFailed, StatusCancelled, StatusRolledBack:
		return true
	default:
		return false
	}
}

// Stage names one unit of pipeline work. Stage names double as the
// deployment status while that stage runs.
type Stage string

const (
	StageInitializing   Stage = "initializing"
	StageCloning        Stage = "cloning"
	StageAnalyzing      Stage = "analyzing"
	StageInstalling     Stage = "installing"
	StageTesting        Stage = "testing"
	StageBuilding       Stage = "building"
	StageContainerizing Stage = "containerizing"
	StagePushing        Stage = "pushing"
	StageDeploying      Stage = "deploying"
	StageHealthCheck    Stage = "health_check"
	StageRollingBack    Stage = "rolling_back"
)

type StageStatus string

const (
	StagePending   StageStatus = "pending"
	StageRunning   StageStatus = "running"
	StageSucceeded StageStatus = "succeeded"
	StageFailed    StageStatus = "failed"
)

// StageResult records one stage execution. It is sealed when the stage ends
// and never mutated afterwards.
type StageResult struct {
	Stage       Stage       `json:"stage"`
	Status      StageStatus `json:"status"`
	StartedAt   time.Time   `json:"started_at"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
	Error       string      `json:"error,omitempty"`
}

// Duration is zero until the stage is sealed.
func (r StageResult) Duration() time.Duration {
	if r.CompletedAt == nil {
		return 0
	}
	return r.CompletedAt.Sub(r.StartedAt)
}

// ProviderKind classifies a cloud-provider profile. Container providers add
// the containerizing and pushing stages to the pipeline.
type ProviderKind string

const (
	KindContainer  ProviderKind = "container"
	KindServerless ProviderKind = "serverless"
	KindStatic     ProviderKind = "static"
)

// Options fix a deployment's configuration for its whole run. Empty fields
// are filled from the project when the deployment starts.
type Options struct {
	Branch       string `json:"branch"`
	Environment  string `json:"environment"`
	Provider     string `json:"provider"`
	Region       string `json:"region"`
	EnableTests  bool   `json:"enable_tests"`
	AutoRollback bool   `json:"auto_rollback"`
	HealthPath   string `json:"health_path"`
}

// Deployment is one end-to-end attempt to ship a project revision. It is
// mutated exclusively by the orchestrator while active and retained as an
// immutable history record once terminal.
type Deployment struct {
	ID        uuid.UUID `json:"id"`
	ProjectID uuid.UUID `json:"project_id"`

	Status  Status  `json:"status"`
	Options Options `json:"options"`

	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	Stages []StageResult `json:"stages"`
	Logs   []string      `json:"logs"`

	// Execution metadata
	CommitHash     string     `json:"commit_hash,omitempty"`
	Framework      string     `json:"framework,omitempty"`
	Artifacts      []string   `json:"artifacts,omitempty"`
	ImageTag       string     `json:"image_tag,omitempty"`
	URL            string     `json:"url,omitempty"`
	HealthEndpoint string     `json:"health_endpoint,omitempty"`
	RollbackTarget *uuid.UUID `json:"rollback_target,omitempty"`
	Error          string     `json:"error,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StageResult returns the recorded result for a stage, or nil if the stage
// never ran.
func (d *Deployment) StageResult(stage Stage) *StageResult {
	for i := range d.Stages {
		if d.Stages[i].Stage == stage {
			return &d.Stages[i]
		}
	}
	return nil
}

// TotalDuration is the elapsed wall time of the whole run, zero while the
// deployment is still active.
func (d *Deployment) TotalDuration() time.Duration {
	if d.CompletedAt == nil {
		return 0
	}
	return d.CompletedAt.Sub(d.StartedAt)
}
