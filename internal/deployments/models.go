package deployments

import (
	"time"

	"github.com/google/uuid"
)

const (
	prefix = "deployment:"

	prefixByID      = prefix + "id:"
	prefixByProject = prefix + "project:"
)

func newDeployment(projectID uuid.UUID, opts Options) *Deployment {
	now := time.Now()
	return &Deployment{
		ID:        uuid.Must(uuid.NewV7()),
		ProjectID: projectID,
		Status:    StatusInitializing,
		Options:   opts,
		StartedAt: now,
		Stages:    []StageResult{},
		Logs:      []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}
