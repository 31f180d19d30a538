package deployments

import (
	"context"

	"github.com/google/uuid"
)

// Checkout is the outcome of resolving a project's source for one
// deployment.
type Checkout struct {
	CommitHash string // Resolved HEAD of the requested branch
	Path       string // Working directory holding the checkout
}

// SourceControlClient fetches project source. Implemented by the git
// service.
type SourceControlClient interface {
	Clone(ctx context.Context, repoURL, branch string, deploymentID uuid.UUID) (*Checkout, error)
}

// FrameworkInfo is what the analyzing stage resolves about a checkout.
type FrameworkInfo struct {
	Name           string // e.g. nextjs, express, static
	InstallCommand string
	TestCommand    string
	BuildCommand   string
	OutputDir      string
	Dockerfile     string // Relative path, empty when none is present
	Port           int    // Port the application listens on
}

// TestReport summarizes a test run.
type TestReport struct {
	Passed   bool
	TestsRun int
	Output   string
}

// BuildExecutor performs the analyze/install/test/build stages against a
// checkout.
type BuildExecutor interface {
	Analyze(ctx context.Context, deploymentID uuid.UUID, path string) (*FrameworkInfo, error)
	Install(ctx context.Context, deploymentID uuid.UUID, path, command string) error
	Test(ctx context.Context, deploymentID uuid.UUID, path, command string) (*TestReport, error)
	Build(ctx context.Context, deploymentID uuid.UUID, path, command, outputDir string) ([]string, error)
}

// ContainerRegistryClient builds and publishes container images for
// container-kind providers.
type ContainerRegistryClient interface {
	Containerize(ctx context.Context, deploymentID uuid.UUID, path, dockerfile string, port int) (string, error)
	Push(ctx context.Context, deploymentID uuid.UUID, imageTag, registry string) error
}

// DeployRequest carries everything the provider needs to ship one revision.
type DeployRequest struct {
	DeploymentID uuid.UUID
	ProjectID    uuid.UUID
	Provider     string
	Region       string
	Environment  string
	ImageTag     string // Set for container providers
	SourcePath   string // Build output location for non-container providers
	Framework    FrameworkInfo
}

// CloudProviderClient is the deployment target. Rollback reverts the
// project's live deployment to target and returns the provider-effective
// deployment id.
type CloudProviderClient interface {
	Deploy(ctx context.Context, req DeployRequest) (string, error)
	Rollback(ctx context.Context, projectID, targetDeploymentID uuid.UUID) (uuid.UUID, error)
	Restart(ctx context.Context, deploymentID uuid.UUID) error
}

// HealthVerifier performs the single post-deploy verification of the
// health_check stage. Implemented by the health prober.
type HealthVerifier interface {
	Verify(ctx context.Context, endpoint string) error
}

// MonitorStarter takes over a deployment once it succeeds, beginning its
// continuous health monitoring. Start failures are logged, never fatal to
// the deployment.
type MonitorStarter interface {
	StartMonitoring(ctx context.Context, deploymentID, projectID uuid.UUID, autoRollback bool) error
}
