package git

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing"
	"github.com/google/uuid"
	"github.com/pilotcd/pilotcd/internal/deployments"
	"go.uber.org/zap"
)

// Service checks out project source for deployments. It implements the
// orchestrator's SourceControlClient.
type Service struct {
	config Config
	logger *zap.Logger
}

func NewService(config Config, logger *zap.Logger) *Service {
	return &Service{
		config: config,
		logger: logger,
	}
}

// Clone performs a shallow single-branch clone into a per-deployment
// directory and resolves the checked-out commit.
func (s *Service) Clone(ctx context.Context, repoURL, branch string, deploymentID uuid.UUID) (*deployments.Checkout, error) {
	directory := filepath.Join(s.config.WorkDir, deploymentID.String())

	s.logger.Info("cloning repository",
		zap.String("url", repoURL),
		zap.String("branch", branch),
		zap.String("directory", directory))

	if _, statErr := os.Stat(directory); statErr == nil {
		return nil, fmt.Errorf("%w: directory %s already exists", ErrRepositoryAlreadyExists, directory)
	}

	if s.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.Timeout)
		defer cancel()
	}

	cloneOptions := &git.CloneOptions{
		URL:          repoURL,
		SingleBranch: true,
		Depth:        1,
	}
	if branch != "" {
		cloneOptions.ReferenceName = plumbing.NewBranchReferenceName(branch)
	}

	repo, err := git.PlainCloneContext(ctx, directory, cloneOptions)
	if err != nil {
		s.logger.Error("failed to clone repository", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrCloneFailed, err)
	}

	head, err := repo.Head()
	if err != nil {
		s.logger.Error("failed to resolve HEAD", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrInvalidRepository, err)
	}

	hash := head.Hash().String()

	s.logger.Info("repository cloned",
		zap.String("url", repoURL),
		zap.String("commit", hash))

	return &deployments.Checkout{
		CommitHash: hash,
		Path:       directory,
	}, nil
}

// Cleanup removes a deployment's checkout directory.
func (s *Service) Cleanup(_ context.Context, deploymentID uuid.UUID) error {
	directory := filepath.Join(s.config.WorkDir, deploymentID.String())

	s.logger.Debug("removing checkout", zap.String("directory", directory))

	if err := os.RemoveAll(directory); err != nil {
		return fmt.Errorf("%w: %w", ErrCleanupFailed, err)
	}

	return nil
}
