package health

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/pilotcd/pilotcd/internal/storage"
	"github.com/pilotcd/pilotcd/pkg/badgerfx"
)

// Repository retains bounded health-check history. Entries carry a badger
// TTL for age-based expiry; the pruner enforces the per-deployment count
// cap on top.
type Repository struct {
	db        *badger.DB
	entities  *storage.Repository[*checkModel]
	retention time.Duration
}

func NewRepository(db *badger.DB, config Config) *Repository {
	return &Repository{
		db:        db,
		entities:  storage.NewRepository(db, func() *checkModel { return &checkModel{} }),
		retention: config.HistoryRetention,
	}
}

// Append stores one check result.
func (r *Repository) Append(_ context.Context, result CheckResult) error {
	err := r.db.Update(func(txn *badger.Txn) error {
		return r.entities.WriteWithTTL(txn, &checkModel{CheckResult: result}, r.retention)
	})
	if err != nil {
		return fmt.Errorf("failed to append check result: %w", err)
	}

	return nil
}

// ListByDeployment returns a deployment's check history, newest first.
func (r *Repository) ListByDeployment(_ context.Context, deploymentID uuid.UUID, limit int) ([]CheckResult, error) {
	var results []CheckResult

	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.PrefetchSize = 10

		models, listErr := r.entities.List(txn, prefixCheck+deploymentID.String()+":", opts)
		if listErr != nil {
			return listErr
		}

		for _, model := range models {
			if limit > 0 && len(results) >= limit {
				break
			}
			results = append(results, model.CheckResult)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list check history: %w", err)
	}

	return results, nil
}

// Prune drops check results beyond the per-deployment count cap and
// returns how many were removed. Age-based expiry is handled by the entry
// TTLs.
func (r *Repository) Prune(_ context.Context, perDeploymentLimit int) (int, error) {
	if perDeploymentLimit <= 0 {
		return 0, nil
	}

	var stale [][]byte

	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)
		defer it.Close()

		// reverse iteration visits each deployment's newest entries first
		counts := make(map[string]int)

		validPrefix := []byte(prefixCheck)
		for it.Seek(append([]byte(prefixCheck), badgerfx.SeekEnd)); it.ValidForPrefix(validPrefix); it.Next() {
			key := it.Item().KeyCopy(nil)

			rest := strings.TrimPrefix(string(key), prefixCheck)
			deploymentID, _, ok := strings.Cut(rest, ":")
			if !ok {
				continue
			}

			counts[deploymentID]++
			if counts[deploymentID] > perDeploymentLimit {
				stale = append(stale, key)
			}
		}

		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to scan check history: %w", err)
	}

	if len(stale) == 0 {
		return 0, nil
	}

	err = r.db.Update(func(txn *badger.Txn) error {
		for _, key := range stale {
			if delErr := txn.Delete(key); delErr != nil {
				return fmt.Errorf("failed to delete check result: %w", delErr)
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to prune check history: %w", err)
	}

	return len(stale), nil
}
