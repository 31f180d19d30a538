package projects

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/pilotcd/pilotcd/internal/storage"
)

type Repository struct {
	db       *badger.DB
	entities *storage.Repository[*projectModel]
}

func NewRepository(db *badger.DB) *Repository {
	return &Repository{
		db:       db,
		entities: storage.NewRepository(db, func() *projectModel { return &projectModel{} }),
	}
}

// Create stores a new project. Names are unique.
func (r *Repository) Create(_ context.Context, draft *ProjectDraft) (*Project, error) {
	model := newProjectModel(draft)

	err := r.db.Update(func(txn *badger.Txn) error {
		if _, getErr := r.entities.ReadByIndex(txn, prefixByName+model.Name); getErr == nil {
			return fmt.Errorf("%w: %s", ErrConflict, model.Name)
		} else if !errors.Is(getErr, storage.ErrNotFound) {
			return getErr
		}

		return r.entities.Write(txn, model)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	return newProject(model), nil
}

// GetByID retrieves a project by its ID.
func (r *Repository) GetByID(_ context.Context, id uuid.UUID) (*Project, error) {
	var model *projectModel

	err := r.db.View(func(txn *badger.Txn) error {
		found, getErr := r.entities.Read(txn, prefixByID+id.String())
		if getErr != nil {
			return getErr
		}
		model = found
		return nil
	})
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id.String())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	return newProject(model), nil
}

// List retrieves every project.
func (r *Repository) List(_ context.Context) ([]Project, error) {
	var projects []Project

	err := r.db.View(func(txn *badger.Txn) error {
		models, listErr := r.entities.List(txn, prefixByID, badger.DefaultIteratorOptions)
		if listErr != nil {
			return listErr
		}

		for _, model := range models {
			projects = append(projects, *newProject(model))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}

	return projects, nil
}

// Update applies updater to a project inside a single transaction.
func (r *Repository) Update(_ context.Context, id uuid.UUID, updater func(*Project) error) error {
	err := r.db.Update(func(txn *badger.Txn) error {
		old, getErr := r.entities.Read(txn, prefixByID+id.String())
		if getErr != nil {
			return getErr
		}

		project := newProject(old)
		if updErr := updater(project); updErr != nil {
			return updErr
		}

		model := newProjectModel(&project.ProjectDraft)
		model.BaseEntity = old.BaseEntity
		model.UpdatedAt = time.Now()

		if model.Name != old.Name {
			if delErr := r.entities.DeleteIndexes(txn, old); delErr != nil {
				return delErr
			}
		}

		return r.entities.Write(txn, model)
	})
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, id.String())
	}
	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}

	return nil
}

// Delete removes a project and its indexes.
func (r *Repository) Delete(_ context.Context, id uuid.UUID) error {
	err := r.db.Update(func(txn *badger.Txn) error {
		return r.entities.Delete(txn, prefixByID+id.String())
	})
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, id.String())
	}
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}

	return nil
}
