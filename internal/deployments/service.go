package deployments

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pilotcd/pilotcd/internal/events"
	"github.com/pilotcd/pilotcd/internal/projects"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// Service orchestrates deployment pipelines. Each started deployment runs
// on its own goroutine; the service owns the active-run registry and the
// persisted history.
type Service struct {
	repository *Repository
	projects   *projects.Service

	scm      SourceControlClient
	builder  BuildExecutor
	registry ContainerRegistryClient
	cloud    CloudProviderClient
	verifier HealthVerifier
	monitors MonitorStarter

	hub    *events.Hub
	config Config
	logger *zap.Logger

	mu     sync.Mutex
	active map[uuid.UUID]*activeRun
}

type activeRun struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func NewService(
	repository *Repository,
	projectsSvc *projects.Service,
	scm SourceControlClient,
	builder BuildExecutor,
	registry ContainerRegistryClient,
	cloud CloudProviderClient,
	verifier HealthVerifier,
	monitors MonitorStarter,
	hub *events.Hub,
	config Config,
	logger *zap.Logger,
) *Service {
	return &Service{
		repository: repository,
		projects:   projectsSvc,

		scm:      scm,
		builder:  builder,
		registry: registry,
		cloud:    cloud,
		verifier: verifier,
		monitors: monitors,

		hub:    hub,
		config: config,
		logger: logger,

		active: make(map[uuid.UUID]*activeRun),
	}
}

// Start begins asynchronous execution of a deployment and returns the
// initial record immediately. Progress is observed through the hub or by
// polling Get.
func (s *Service) Start(ctx context.Context, projectID uuid.UUID, opts Options) (*Deployment, error) {
	logger := s.logger.With(zap.String("project_id", projectID.String()))
	logger.Info("starting deployment")

	project, err := s.projects.Get(ctx, projectID)
	if err != nil {
		logger.Error("failed to get project", zap.Error(err))
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	opts = resolveOptions(opts, project)

	d := newDeployment(projectID, opts)
	if err := s.repository.Create(ctx, d); err != nil {
		logger.Error("failed to create deployment", zap.Error(err))
		return nil, err
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	run := &activeRun{cancel: cancel, done: make(chan struct{})}

	// the run goroutine owns d from here on; copy the initial record first
	snapshot := *d

	s.mu.Lock()
	s.active[d.ID] = run
	s.mu.Unlock()

	go s.run(runCtx, d, run)

	logger.Info("deployment started", zap.String("deployment_id", d.ID.String()))

	return &snapshot, nil
}

// Cancel requests cooperative termination of an active deployment. The
// running stage is not interrupted; cancellation is observed at the next
// stage boundary.
func (s *Service) Cancel(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	run, ok := s.active[id]
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrNotActive, id.String())
	}

	s.logger.Info("cancelling deployment", zap.String("deployment_id", id.String()))
	run.cancel()
	return nil
}

// Get retrieves a deployment by ID.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Deployment, error) {
	s.logger.Debug("getting deployment", zap.String("id", id.String()))

	deployment, err := s.repository.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("failed to get deployment", zap.String("id", id.String()), zap.Error(err))
		return nil, err
	}

	return deployment, nil
}

// Logs returns the ordered log sequence of a deployment.
func (s *Service) Logs(ctx context.Context, id uuid.UUID) ([]string, error) {
	deployment, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	return deployment.Logs, nil
}

// History lists deployments newest first, optionally scoped to one project.
func (s *Service) History(ctx context.Context, projectID *uuid.UUID, limit int) ([]Deployment, error) {
	s.logger.Debug("listing deployment history")

	if limit <= 0 {
		limit = s.config.HistoryLimit
	}

	if projectID != nil {
		return s.repository.ListByProject(ctx, *projectID, limit)
	}

	return s.repository.List(ctx, limit)
}

// Restart asks the provider to restart a deployed workload.
func (s *Service) Restart(ctx context.Context, id uuid.UUID) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}

	if err := s.cloud.Restart(ctx, id); err != nil {
		s.logger.Error("failed to restart deployment", zap.String("id", id.String()), zap.Error(err))
		return fmt.Errorf("failed to restart deployment: %w", err)
	}

	return nil
}

// Rollback reverts a project's live workload to the most recent other
// successful deployment and returns that target. Only a succeeded
// deployment can be rolled back; it is resealed as rolled_back. This is
// the entry point the health monitor uses.
func (s *Service) Rollback(ctx context.Context, deploymentID uuid.UUID) (*Deployment, error) {
	logger := s.logger.With(zap.String("deployment_id", deploymentID.String()))
	logger.Info("rolling back deployment")

	d, err := s.repository.GetByID(ctx, deploymentID)
	if err != nil {
		return nil, err
	}

	// only a sealed success may transition to rolled_back; every other
	// status is either still owned by its run or already immutable
	if d.Status != StatusSucceeded {
		logger.Warn("rollback rejected", zap.String("status", string(d.Status)))
		return nil, fmt.Errorf("%w: deployment is %s", ErrNotRollbackable, d.Status)
	}

	target, err := s.rollbackTarget(ctx, d)
	if err != nil {
		logger.Error("no rollback target", zap.Error(err))
		return nil, err
	}

	if _, rbErr := s.cloud.Rollback(ctx, d.ProjectID, target.ID); rbErr != nil {
		logger.Error("provider rollback failed", zap.Error(rbErr))
		return nil, fmt.Errorf("failed to roll back: %w", rbErr)
	}

	now := time.Now()
	d.Status = StatusRolledBack
	d.RollbackTarget = &target.ID
	s.appendLog(d, fmt.Sprintf("rolled back to deployment %s", target.ID))
	s.persist(ctx, d)
	s.publishStatus(d, "rolled back")
	// the record is sealed for good, live-progress subscriptions end here
	s.hub.Drop(d.ID)

	if recErr := s.projects.RecordDeployment(ctx, d.ProjectID, target.ID, true, now); recErr != nil {
		logger.Error("failed to update project after rollback", zap.Error(recErr))
	}

	logger.Info("deployment rolled back", zap.String("target_id", target.ID.String()))
	return target, nil
}

// run drives one deployment to a terminal state and unregisters it from
// the active set.
func (s *Service) run(ctx context.Context, d *Deployment, run *activeRun) {
	defer close(run.done)
	defer func() {
		s.mu.Lock()
		delete(s.active, d.ID)
		s.mu.Unlock()
	}()

	s.execute(ctx, d)
}

// execute walks the stage sequence. The optional testing stage is included
// iff configured; the container stages are included iff the provider kind
// resolved during analyzing is container.
func (s *Service) execute(ctx context.Context, d *Deployment) {
	project, err := s.projects.Get(ctx, d.ProjectID)
	if err != nil {
		s.finish(ctx, d, StatusFailed, err)
		return
	}

	var (
		checkout *Checkout
		fw       *FrameworkInfo
		kind     ProviderKind
	)

	err = s.runStage(ctx, d, StageInitializing, func(_ context.Context) error {
		s.appendLog(d, fmt.Sprintf("deploying %s@%s to %s (%s)",
			project.Name, d.Options.Branch, d.Options.Provider, d.Options.Environment))
		return nil
	})
	if err != nil {
		s.fail(ctx, d, err)
		return
	}

	err = s.runStage(ctx, d, StageCloning, func(ctx context.Context) error {
		c, cloneErr := s.scm.Clone(ctx, project.RepoURL, d.Options.Branch, d.ID)
		if cloneErr != nil {
			return cloneErr
		}
		checkout = c
		d.CommitHash = c.CommitHash
		s.appendLog(d, fmt.Sprintf("resolved commit %s", c.CommitHash))
		return nil
	})
	if err != nil {
		s.fail(ctx, d, err)
		return
	}

	err = s.runStage(ctx, d, StageAnalyzing, func(ctx context.Context) error {
		info, analyzeErr := s.builder.Analyze(ctx, d.ID, checkout.Path)
		if analyzeErr != nil {
			return analyzeErr
		}
		if !lo.Contains(s.config.Frameworks, info.Name) {
			return fmt.Errorf("%w: %s", ErrUnsupportedFramework, info.Name)
		}

		k, ok := s.config.Providers[d.Options.Provider]
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnsupportedProvider, d.Options.Provider)
		}

		fw = info
		kind = k
		d.Framework = info.Name
		s.appendLog(d, fmt.Sprintf("framework %s, provider kind %s", info.Name, k))
		return nil
	})
	if err != nil {
		s.fail(ctx, d, err)
		return
	}

	err = s.runStage(ctx, d, StageInstalling, func(ctx context.Context) error {
		return s.builder.Install(ctx, d.ID, checkout.Path, fw.InstallCommand)
	})
	if err != nil {
		s.fail(ctx, d, err)
		return
	}

	if d.Options.EnableTests {
		err = s.runStage(ctx, d, StageTesting, func(ctx context.Context) error {
			report, testErr := s.builder.Test(ctx, d.ID, checkout.Path, fw.TestCommand)
			if testErr != nil {
				return testErr
			}
			if !report.Passed {
				return fmt.Errorf("%w: %s", ErrTestsFailed, report.Output)
			}
			s.appendLog(d, fmt.Sprintf("%d tests passed", report.TestsRun))
			return nil
		})
		if err != nil {
			s.fail(ctx, d, err)
			return
		}
	}

	err = s.runStage(ctx, d, StageBuilding, func(ctx context.Context) error {
		artifacts, buildErr := s.builder.Build(ctx, d.ID, checkout.Path, fw.BuildCommand, fw.OutputDir)
		if buildErr != nil {
			return buildErr
		}
		d.Artifacts = artifacts
		return nil
	})
	if err != nil {
		s.fail(ctx, d, err)
		return
	}

	if kind == KindContainer {
		err = s.runStage(ctx, d, StageContainerizing, func(ctx context.Context) error {
			tag, imageErr := s.registry.Containerize(ctx, d.ID, checkout.Path, fw.Dockerfile, fw.Port)
			if imageErr != nil {
				return imageErr
			}
			d.ImageTag = tag
			return nil
		})
		if err != nil {
			s.fail(ctx, d, err)
			return
		}

		err = s.runStage(ctx, d, StagePushing, func(ctx context.Context) error {
			return s.registry.Push(ctx, d.ID, d.ImageTag, s.config.Registry)
		})
		if err != nil {
			s.fail(ctx, d, err)
			return
		}
	}

	err = s.runStage(ctx, d, StageDeploying, func(ctx context.Context) error {
		url, deployErr := s.cloud.Deploy(ctx, DeployRequest{
			DeploymentID: d.ID,
			ProjectID:    d.ProjectID,
			Provider:     d.Options.Provider,
			Region:       d.Options.Region,
			Environment:  d.Options.Environment,
			ImageTag:     d.ImageTag,
			SourcePath:   filepath.Join(checkout.Path, fw.OutputDir),
			Framework:    *fw,
		})
		if deployErr != nil {
			return deployErr
		}
		d.URL = url
		if d.Options.HealthPath != "" {
			d.HealthEndpoint = url + d.Options.HealthPath
		}
		s.appendLog(d, fmt.Sprintf("deployed at %s", url))
		return nil
	})
	if err != nil {
		s.fail(ctx, d, err)
		return
	}

	err = s.runStage(ctx, d, StageHealthCheck, func(ctx context.Context) error {
		if d.HealthEndpoint == "" {
			s.appendLog(d, "no health endpoint configured, skipping verification")
			return nil
		}
		return s.verifier.Verify(ctx, d.HealthEndpoint)
	})
	if err != nil {
		s.fail(ctx, d, err)
		return
	}

	s.finish(ctx, d, StatusSucceeded, nil)
}

// fail settles a failed or cancelled run. Rollback runs first when enabled;
// its own failure is recorded but never masks the stage error.
func (s *Service) fail(ctx context.Context, d *Deployment, stageErr error) {
	if errors.Is(stageErr, context.Canceled) || ctx.Err() != nil {
		s.finish(ctx, d, StatusCancelled, nil)
		return
	}

	if d.Options.AutoRollback {
		if rbErr := s.rollbackAfterFailure(ctx, d); rbErr != nil {
			s.appendLog(d, fmt.Sprintf("rollback unavailable: %v", rbErr))
			s.logger.Error("rollback failed",
				zap.String("deployment_id", d.ID.String()), zap.Error(rbErr))
		}
	}

	s.finish(ctx, d, StatusFailed, stageErr)
}

// rollbackAfterFailure runs the rolling_back stage against the most recent
// successful deployment of the project. The pipeline is not rerun.
func (s *Service) rollbackAfterFailure(ctx context.Context, d *Deployment) error {
	target, err := s.rollbackTarget(ctx, d)
	if err != nil {
		return err
	}

	return s.runStage(ctx, d, StageRollingBack, func(ctx context.Context) error {
		if _, rbErr := s.cloud.Rollback(ctx, d.ProjectID, target.ID); rbErr != nil {
			return rbErr
		}
		d.RollbackTarget = &target.ID
		s.appendLog(d, fmt.Sprintf("rolled back to deployment %s", target.ID))
		return nil
	})
}

func (s *Service) rollbackTarget(ctx context.Context, d *Deployment) (*Deployment, error) {
	target, err := s.repository.Latest(ctx, d.ProjectID, func(other *Deployment) bool {
		return other.ID != d.ID && other.Status == StatusSucceeded
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w for project %s", ErrNoRollbackTarget, d.ProjectID.String())
		}
		return nil, err
	}

	return target, nil
}

// finish seals the deployment in a terminal status, persists it as history
// and updates the owning project.
func (s *Service) finish(ctx context.Context, d *Deployment, status Status, err error) {
	// the run context may already be cancelled; bookkeeping still has to land
	ctx = context.WithoutCancel(ctx)

	now := time.Now()
	d.Status = status
	d.CompletedAt = &now
	if err != nil {
		d.Error = err.Error()
	}

	s.appendLog(d, fmt.Sprintf("deployment %s after %s", status, d.TotalDuration().Round(time.Millisecond)))
	s.persist(ctx, d)
	s.publishStatus(d, d.Error)

	switch status {
	case StatusSucceeded, StatusFailed:
		if recErr := s.projects.RecordDeployment(ctx, d.ProjectID, d.ID, status == StatusSucceeded, now); recErr != nil {
			s.logger.Error("failed to update project after deployment",
				zap.String("deployment_id", d.ID.String()), zap.Error(recErr))
		}
	default:
	}

	if status == StatusSucceeded {
		// hand the live deployment over to continuous health monitoring
		if monErr := s.monitors.StartMonitoring(ctx, d.ID, d.ProjectID, d.Options.AutoRollback); monErr != nil {
			s.logger.Error("failed to start health monitoring",
				zap.String("deployment_id", d.ID.String()), zap.Error(monErr))
		}
	} else {
		// nothing will publish for this id anymore; health events keep
		// flowing for succeeded deployments, so those registrations stay
		s.hub.Drop(d.ID)
	}

	s.logger.Info("deployment finished",
		zap.String("deployment_id", d.ID.String()),
		zap.String("status", string(status)),
		zap.Duration("duration", d.TotalDuration()))
}

// resolveOptions fills unset option strings from the project configuration.
func resolveOptions(opts Options, project *projects.Project) Options {
	if opts.Branch == "" {
		opts.Branch = project.Branch
	}
	if opts.Environment == "" {
		opts.Environment = project.Environment
	}
	if opts.Provider == "" {
		opts.Provider = project.Provider
	}
	if opts.Region == "" {
		opts.Region = project.Region
	}
	if opts.HealthPath == "" {
		opts.HealthPath = project.HealthPath
	}
	return opts
}
