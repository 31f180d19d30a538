package projects

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pilotcd/pilotcd/internal/storage"
)

const (
	prefix = "project:"

	prefixByID   = prefix + "id:"
	prefixByName = prefix + "name:"
)

// projectModel is the storage representation of a project.
type projectModel struct {
	storage.BaseEntity

	Name        string `json:"name"`
	Description string `json:"description"`

	RepoURL string `json:"repo_url"`
	Branch  string `json:"branch"`

	Provider    string `json:"provider"`
	Region      string `json:"region"`
	Environment string `json:"environment"`

	EnableTests  bool   `json:"enable_tests"`
	AutoRollback bool   `json:"auto_rollback"`
	HealthPath   string `json:"health_path"`

	Status         Status     `json:"status"`
	LastDeployment *uuid.UUID `json:"last_deployment"`
	LastDeployedAt *time.Time `json:"last_deployed_at"`
}

// StorageKey implements storage.Entity.
func (m *projectModel) StorageKey() string {
	return prefixByID + m.ID.String()
}

// StorageIndexes implements storage.Entity.
func (m *projectModel) StorageIndexes() []string {
	return []string{prefixByName + m.Name}
}

// MarshalStorage implements storage.Entity.
func (m *projectModel) MarshalStorage() ([]byte, error) {
	return json.Marshal(m)
}

// UnmarshalStorage implements storage.Entity.
func (m *projectModel) UnmarshalStorage(data []byte) error {
	return json.Unmarshal(data, m)
}

func newProjectModel(draft *ProjectDraft) *projectModel {
	if draft == nil {
		return nil
	}

	now := time.Now()
	return &projectModel{
		BaseEntity: storage.BaseEntity{
			ID:        uuid.Must(uuid.NewV7()),
			CreatedAt: now,
			UpdatedAt: now,
		},
		Name:           draft.Name,
		Description:    draft.Description,
		RepoURL:        draft.RepoURL,
		Branch:         draft.Branch,
		Provider:       draft.Provider,
		Region:         draft.Region,
		Environment:    draft.Environment,
		EnableTests:    draft.EnableTests,
		AutoRollback:   draft.AutoRollback,
		HealthPath:     draft.HealthPath,
		Status:         draft.Status,
		LastDeployment: draft.LastDeployment,
		LastDeployedAt: draft.LastDeployedAt,
	}
}

func newProject(model *projectModel) *Project {
	if model == nil {
		return nil
	}

	return &Project{
		ProjectDraft: ProjectDraft{
			Name:           model.Name,
			Description:    model.Description,
			RepoURL:        model.RepoURL,
			Branch:         model.Branch,
			Provider:       model.Provider,
			Region:         model.Region,
			Environment:    model.Environment,
			EnableTests:    model.EnableTests,
			AutoRollback:   model.AutoRollback,
			HealthPath:     model.HealthPath,
			Status:         model.Status,
			LastDeployment: model.LastDeployment,
			LastDeployedAt: model.LastDeployedAt,
		},
		ID:        model.ID,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
}
