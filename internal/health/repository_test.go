package health

import (
	"context"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/pilotcd/pilotcd/pkg/badgerfx"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()

	opts := badgerfx.Config{InMemory: true}.Build()
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })

	return NewRepository(db, DefaultConfig())
}

func appendResults(t *testing.T, repo *Repository, deploymentID uuid.UUID, statuses ...Status) {
	t.Helper()

	base := time.Now()
	for i, status := range statuses {
		err := repo.Append(context.Background(), CheckResult{
			DeploymentID: deploymentID,
			Status:       status,
			CheckedAt:    base.Add(time.Duration(i) * time.Millisecond),
		})
		if err != nil {
			t.Fatal(err)
		}
	}
}

func TestRepository_ListByDeployment_NewestFirst(t *testing.T) {
	repo := newTestRepository(t)
	deploymentID := uuid.New()

	appendResults(t, repo, deploymentID, StatusHealthy, StatusHealthy, StatusUnhealthy)

	results, err := repo.ListByDeployment(context.Background(), deploymentID, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[0].Status != StatusUnhealthy {
		t.Error("expected the newest result first")
	}
	for i := 1; i < len(results); i++ {
		if results[i].CheckedAt.After(results[i-1].CheckedAt) {
			t.Fatal("results are not ordered newest first")
		}
	}
}

func TestRepository_ListByDeployment_ScopedAndLimited(t *testing.T) {
	repo := newTestRepository(t)
	first := uuid.New()
	second := uuid.New()

	appendResults(t, repo, first, StatusHealthy, StatusHealthy, StatusHealthy)
	appendResults(t, repo, second, StatusUnhealthy)

	results, err := repo.ListByDeployment(context.Background(), first, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("expected the limit to apply, got %d results", len(results))
	}
	for _, result := range results {
		if result.DeploymentID != first {
			t.Error("history leaked across deployments")
		}
	}
}

func TestRepository_ListByDeployment_Empty(t *testing.T) {
	repo := newTestRepository(t)

	results, err := repo.ListByDeployment(context.Background(), uuid.New(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Errorf("expected no history, got %d results", len(results))
	}
}

func TestRepository_Prune(t *testing.T) {
	repo := newTestRepository(t)
	busy := uuid.New()
	quiet := uuid.New()

	appendResults(t, repo, busy, StatusHealthy, StatusHealthy, StatusHealthy, StatusHealthy, StatusUnhealthy)
	appendResults(t, repo, quiet, StatusHealthy)

	removed, err := repo.Prune(context.Background(), 2)
	if err != nil {
		t.Fatal(err)
	}
	if removed != 3 {
		t.Errorf("expected 3 removals, got %d", removed)
	}

	results, err := repo.ListByDeployment(context.Background(), busy, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 retained results, got %d", len(results))
	}
	// the newest entries survive
	if results[0].Status != StatusUnhealthy {
		t.Error("pruning removed the newest result")
	}

	quietResults, err := repo.ListByDeployment(context.Background(), quiet, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(quietResults) != 1 {
		t.Error("pruning touched a deployment under the cap")
	}
}

func TestRepository_Prune_NoopUnderCap(t *testing.T) {
	repo := newTestRepository(t)
	appendResults(t, repo, uuid.New(), StatusHealthy, StatusHealthy)

	removed, err := repo.Prune(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if removed != 0 {
		t.Errorf("expected no removals, got %d", removed)
	}

	removed, err = repo.Prune(context.Background(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if removed != 0 {
		t.Errorf("a zero cap must disable pruning, got %d removals", removed)
	}
}
