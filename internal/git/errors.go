package git

import "errors"

var (
	ErrCloneFailed             = errors.New("failed to clone repository")
	ErrRepositoryAlreadyExists = errors.New("repository already exists")
	ErrInvalidRepository       = errors.New("invalid repository")
	ErrCleanupFailed           = errors.New("failed to cleanup repository")
)
