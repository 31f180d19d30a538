package deployments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/pilotcd/pilotcd/pkg/badgerfx"
)

// Repository persists deployment records. Records are written by the
// orchestrator goroutine that owns the deployment and read concurrently by
// accessors.
type Repository struct {
	db *badger.DB
}

func NewRepository(db *badger.DB) *Repository {
	return &Repository{
		db: db,
	}
}

// Create stores a fresh deployment and its project index.
func (r *Repository) Create(_ context.Context, deployment *Deployment) error {
	data, err := json.Marshal(deployment)
	if err != nil {
		return fmt.Errorf("failed to marshal deployment: %w", err)
	}

	err = r.db.Update(func(txn *badger.Txn) error {
		if setErr := txn.Set(r.getKey(deployment.ID), data); setErr != nil {
			return fmt.Errorf("failed to store deployment: %w", setErr)
		}

		if idxErr := r.createIndexes(txn, deployment); idxErr != nil {
			return fmt.Errorf("failed to create deployment indexes: %w", idxErr)
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to create deployment: %w", err)
	}

	return nil
}

// Save overwrites the stored snapshot of a deployment.
func (r *Repository) Save(_ context.Context, deployment *Deployment) error {
	data, err := json.Marshal(deployment)
	if err != nil {
		return fmt.Errorf("failed to marshal deployment: %w", err)
	}

	err = r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(r.getKey(deployment.ID), data)
	})
	if err != nil {
		return fmt.Errorf("failed to save deployment: %w", err)
	}

	return nil
}

// GetByID retrieves a deployment by its ID.
func (r *Repository) GetByID(_ context.Context, id uuid.UUID) (*Deployment, error) {
	var deployment *Deployment

	err := r.db.View(func(txn *badger.Txn) error {
		found, getErr := r.getByID(txn, id)
		if getErr == nil {
			deployment = found
		}
		return getErr
	})

	return deployment, err
}

// ListByProject retrieves a project's deployments, newest first. A limit of
// zero returns everything.
func (r *Repository) ListByProject(_ context.Context, projectID uuid.UUID, limit int) ([]Deployment, error) {
	var deployments []Deployment

	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.PrefetchSize = 10

		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := r.getProjectPrefix(projectID)
		for it.Seek(append(prefix, badgerfx.SeekEnd)); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(deployments) >= limit {
				break
			}

			if err := it.Item().Value(func(val []byte) error {
				var deploymentID uuid.UUID
				if err := json.Unmarshal(val, &deploymentID); err != nil {
					return fmt.Errorf("failed to unmarshal deployment ID: %w", err)
				}

				deployment, err := r.getByID(txn, deploymentID)
				if err != nil {
					return err
				}

				deployments = append(deployments, *deployment)
				return nil
			}); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return deployments, fmt.Errorf("failed to list deployments: %w", err)
	}

	return deployments, nil
}

// Latest retrieves the most recent deployment of a project matching
// predicate.
func (r *Repository) Latest(
	_ context.Context,
	projectID uuid.UUID,
	predicate func(*Deployment) bool,
) (*Deployment, error) {
	var latest *Deployment

	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.PrefetchSize = 2

		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := r.getProjectPrefix(projectID)
		for it.Seek(append(prefix, badgerfx.SeekEnd)); it.ValidForPrefix(prefix) && latest == nil; it.Next() {
			if err := it.Item().Value(func(val []byte) error {
				var deploymentID uuid.UUID
				if err := json.Unmarshal(val, &deploymentID); err != nil {
					return fmt.Errorf("failed to unmarshal deployment ID: %w", err)
				}

				deployment, err := r.getByID(txn, deploymentID)
				if err != nil {
					return err
				}

				if predicate != nil && !predicate(deployment) {
					return nil
				}

				latest = deployment
				return nil
			}); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	if latest == nil {
		return nil, fmt.Errorf("%w for project: %s", ErrNotFound, projectID.String())
	}

	return latest, nil
}

// List retrieves deployments across all projects, newest first. V7 ids make
// the id ordering chronological.
func (r *Repository) List(_ context.Context, limit int) ([]Deployment, error) {
	var deployments []Deployment

	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.PrefetchSize = 10

		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(prefixByID)
		for it.Seek(append(prefix, badgerfx.SeekEnd)); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(deployments) >= limit {
				break
			}

			if err := it.Item().Value(func(val []byte) error {
				var deployment Deployment
				if err := json.Unmarshal(val, &deployment); err != nil {
					return fmt.Errorf("failed to unmarshal deployment: %w", err)
				}

				deployments = append(deployments, deployment)
				return nil
			}); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return deployments, fmt.Errorf("failed to list deployments: %w", err)
	}

	return deployments, nil
}

func (r *Repository) getByID(txn *badger.Txn, id uuid.UUID) (*Deployment, error) {
	item, err := txn.Get(r.getKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id.String())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get deployment: %w", err)
	}

	var deployment Deployment
	if valErr := item.Value(func(val []byte) error { return json.Unmarshal(val, &deployment) }); valErr != nil {
		return nil, fmt.Errorf("failed to unmarshal deployment: %w", valErr)
	}

	return &deployment, nil
}

// getKey generates the key for storing a deployment.
func (r *Repository) getKey(id uuid.UUID) []byte {
	return []byte(prefixByID + id.String())
}

// getProjectPrefix generates the prefix for project-scoped deployments.
func (r *Repository) getProjectPrefix(projectID uuid.UUID) []byte {
	return []byte(prefixByProject + projectID.String() + ":")
}

// createIndexes writes the project index `deployment:project:<id>:<nano>`.
func (r *Repository) createIndexes(txn *badger.Txn, deployment *Deployment) error {
	projectKey := []byte(
		prefixByProject + deployment.ProjectID.String() + ":" + strconv.FormatInt(deployment.CreatedAt.UnixNano(), 10),
	)
	projectData, err := json.Marshal(deployment.ID)
	if err != nil {
		return fmt.Errorf("failed to marshal deployment ID: %w", err)
	}
	if setErr := txn.Set(projectKey, projectData); setErr != nil {
		return fmt.Errorf("failed to set project index: %w", setErr)
	}

	return nil
}
