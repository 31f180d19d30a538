package projects

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Service struct {
	projects *Repository

	logger *zap.Logger
}

func NewService(projects *Repository, logger *zap.Logger) *Service {
	return &Service{
		projects: projects,
		logger:   logger,
	}
}

// Create registers a new project.
func (s *Service) Create(ctx context.Context, draft *ProjectDraft) (*Project, error) {
	s.logger.Info("creating project", zap.String("name", draft.Name))

	if draft.Status == "" {
		draft.Status = StatusActive
	}

	project, err := s.projects.Create(ctx, draft)
	if err != nil {
		s.logger.Error("failed to create project", zap.Error(err))
		return nil, err
	}

	s.logger.Info("project created", zap.String("id", project.ID.String()))
	return project, nil
}

// Get retrieves a project by ID.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Project, error) {
	s.logger.Debug("getting project", zap.String("id", id.String()))

	project, err := s.projects.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("failed to get project", zap.String("id", id.String()), zap.Error(err))
		return nil, err
	}

	return project, nil
}

// List retrieves all projects.
func (s *Service) List(ctx context.Context) ([]Project, error) {
	s.logger.Debug("listing projects")

	projects, err := s.projects.List(ctx)
	if err != nil {
		s.logger.Error("failed to list projects", zap.Error(err))
		return nil, err
	}

	return projects, nil
}

// Update applies updater to an existing project.
func (s *Service) Update(ctx context.Context, id uuid.UUID, updater func(*Project) error) error {
	s.logger.Info("updating project", zap.String("id", id.String()))

	if err := s.projects.Update(ctx, id, updater); err != nil {
		s.logger.Error("failed to update project", zap.String("id", id.String()), zap.Error(err))
		return err
	}

	return nil
}

// Delete removes a project.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	s.logger.Info("deleting project", zap.String("id", id.String()))

	if err := s.projects.Delete(ctx, id); err != nil {
		s.logger.Error("failed to delete project", zap.String("id", id.String()), zap.Error(err))
		return err
	}

	return nil
}

// RecordDeployment updates the project's status and last-deployment pointer
// after a deployment reaches a terminal state.
func (s *Service) RecordDeployment(ctx context.Context, id, deploymentID uuid.UUID, succeeded bool, at time.Time) error {
	return s.Update(ctx, id, func(project *Project) error {
		if succeeded {
			project.MarkDeployed(deploymentID, at)
		} else {
			project.Status = StatusError
		}
		return nil
	})
}
