package health

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusMonitoring Status = "monitoring" // no verdict yet
	StatusHealthy    Status = "healthy"
	StatusUnhealthy  Status = "unhealthy"
	StatusError      Status = "error" // probe or collaborator failure
)

// Coarse deployment states the monitor reasons about.
const (
	DeploymentRunning = "running"
	DeploymentFailed  = "failed"
	DeploymentError   = "error"
)

// CheckResult is an immutable record of one probe.
type CheckResult struct {
	DeploymentID uuid.UUID     `json:"deployment_id"`
	Status       Status        `json:"status"`
	ResponseTime time.Duration `json:"response_time"`
	CheckedAt    time.Time     `json:"checked_at"`
	Error        string        `json:"error,omitempty"`
}

// MonitorConfig tunes one monitor. Zero fields inherit the service
// defaults.
type MonitorConfig struct {
	Interval         time.Duration `json:"interval"`
	ProbeTimeout     time.Duration `json:"probe_timeout"`
	ExpectedStatus   int           `json:"expected_status"`
	FailureThreshold int           `json:"failure_threshold"`
	AutoRollback     bool          `json:"auto_rollback"`

	// Endpoint overrides the deployment's configured health endpoint.
	Endpoint string `json:"endpoint,omitempty"`
}

// Metrics is a point-in-time snapshot of a monitor's accumulated state.
type Metrics struct {
	DeploymentID        uuid.UUID     `json:"deployment_id"`
	Status              Status        `json:"status"`
	UptimePercent       float64       `json:"uptime_percent"`
	AverageResponseTime time.Duration `json:"average_response_time"`
	TotalChecks         int           `json:"total_checks"`
	SuccessCount        int           `json:"success_count"`
	ErrorCount          int           `json:"error_count"`
	ConsecutiveFailures int           `json:"consecutive_failures"`
	LastCheckedAt       time.Time     `json:"last_checked_at"`
}

// DeploymentInfo is the monitor's view of the deployment it watches.
type DeploymentInfo struct {
	ProjectID      uuid.UUID
	Status         string // running, failed, error, or an in-flight state
	HealthEndpoint string
}

// DeploymentSource resolves a deployment's current state. Implemented by
// the orchestrator, injected so the monitor can be tested in isolation.
type DeploymentSource interface {
	Info(ctx context.Context, deploymentID uuid.UUID) (*DeploymentInfo, error)
}

// RollbackRequester reverts a deployment to its last known-good
// predecessor and returns the deployment id the successor monitor should
// watch.
type RollbackRequester interface {
	Rollback(ctx context.Context, deploymentID uuid.UUID) (uuid.UUID, error)
}

type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

type Alert struct {
	DeploymentID uuid.UUID `json:"deployment_id"`
	ProjectID    uuid.UUID `json:"project_id"`
	Severity     Severity  `json:"severity"`
	Message      string    `json:"message"`
	At           time.Time `json:"at"`
}

// AlertSink receives best-effort notifications. Delivery failures never
// abort monitoring.
type AlertSink interface {
	Notify(ctx context.Context, alert Alert) error
}
